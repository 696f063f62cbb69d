// internal/api/trainer_handler.go
package api

import (
	"fitcoach/coaching-api/internal/domain"
	"fitcoach/coaching-api/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
)

// TrainerHandler serves the trainer's own catalog and assignment maintenance.
type TrainerHandler struct {
	planService       service.PlanService
	assignmentService service.AssignmentService
	reconcileService  service.ReconcileService
}

func NewTrainerHandler(
	planService service.PlanService,
	assignmentService service.AssignmentService,
	reconcileService service.ReconcileService,
) *TrainerHandler {
	return &TrainerHandler{
		planService:       planService,
		assignmentService: assignmentService,
		reconcileService:  reconcileService,
	}
}

// --- DTOs for the Plan Catalog ---

type PlanRequest struct {
	Title       string          `json:"title" binding:"required,max=200"`
	Description string          `json:"description" binding:"max=5000"`
	Kind        domain.PlanKind `json:"kind" binding:"omitempty,oneof=training nutrition"`
	Body        bson.M          `json:"body"`
}

type UpdateAssignmentStatusRequest struct {
	Status domain.AssignmentStatus `json:"status" binding:"required,oneof=completed abandoned"`
}

// --- Handler Methods for the Plan Catalog ---

// CreatePlan godoc
// @Summary Create a plan template
// @Tags Trainer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param plan body PlanRequest true "Template details"
// @Success 201 {object} domain.PlanTemplate
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Router /users/trainer/plans [post]
func (h *TrainerHandler) CreatePlan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if req.Kind == "" {
		abortWithError(c, http.StatusBadRequest, "Validation error: kind is required")
		return
	}
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}

	tpl, err := h.planService.CreatePlan(c.Request.Context(), caller.UserID, service.PlanInput{
		Title:       req.Title,
		Description: req.Description,
		Kind:        req.Kind,
		Body:        req.Body,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, tpl)
}

// ListPlans returns a page of the trainer's templates, optionally ?kind=.
func (h *TrainerHandler) ListPlans(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	page, ok := pageFromQuery(c)
	if !ok {
		return
	}

	plans, err := h.planService.ListPlans(c.Request.Context(), caller.UserID, domain.PlanKind(c.Query("kind")), page)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"items": plans,
		"page":  page.Page,
		"limit": page.Limit,
	})
}

// GetPlan returns one of the trainer's templates.
func (h *TrainerHandler) GetPlan(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	planID, ok := objectIDParam(c, "planId")
	if !ok {
		return
	}
	tpl, err := h.planService.GetPlan(c.Request.Context(), caller.UserID, planID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, tpl)
}

// UpdatePlan edits a template; existing assignments keep their snapshot.
func (h *TrainerHandler) UpdatePlan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	planID, ok := objectIDParam(c, "planId")
	if !ok {
		return
	}

	tpl, err := h.planService.UpdatePlan(c.Request.Context(), caller.UserID, planID, service.PlanInput{
		Title:       req.Title,
		Description: req.Description,
		Kind:        req.Kind,
		Body:        req.Body,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, tpl)
}

// DeletePlan removes a template from the catalog.
func (h *TrainerHandler) DeletePlan(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	planID, ok := objectIDParam(c, "planId")
	if !ok {
		return
	}
	if err := h.planService.DeletePlan(c.Request.Context(), caller.UserID, planID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"id": planID.Hex()})
}

// ReconcilePlans godoc
// @Summary Recompute activeClientCount for all of the trainer's templates
// @Tags Trainer
// @Security BearerAuth
// @Success 200 {object} gin.H "Counts keyed by template ID"
// @Router /users/trainer/plans/reconcile [post]
func (h *TrainerHandler) ReconcilePlans(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	counts, err := h.reconcileService.ReconcileTrainer(c.Request.Context(), caller.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	byHex := make(map[string]int, len(counts))
	for id, n := range counts {
		byHex[id.Hex()] = n
	}
	respondOK(c, http.StatusOK, gin.H{"reconciled": len(byHex), "counts": byHex})
}

// UpdateAssignmentStatus closes one of the trainer's assignments directly.
func (h *TrainerHandler) UpdateAssignmentStatus(c *gin.Context) {
	var req UpdateAssignmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	assignmentID, ok := objectIDParam(c, "assignedPlanId")
	if !ok {
		return
	}

	a, err := h.assignmentService.UpdateAssignmentStatus(c.Request.Context(), caller, assignmentID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, a)
}
