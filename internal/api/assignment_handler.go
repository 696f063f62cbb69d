package api

import (
	"errors"
	"fitcoach/coaching-api/internal/domain"
	"fitcoach/coaching-api/internal/service"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// AssignmentHandler serves plan assignment for a coaching relationship.
// Each kind gets its own route; the handlers are built per kind.
type AssignmentHandler struct {
	assignmentService service.AssignmentService
}

func NewAssignmentHandler(assignmentService service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentService: assignmentService}
}

// --- DTOs ---

type AssignPlanRequest struct {
	PlanID string `json:"planId" binding:"required"`
}

type RemovePlanRequest struct {
	AssignmentID string `json:"assignmentId"`
}

type CustomTrackingRequest struct {
	Documents   []string `json:"documents" binding:"max=20,dive,required"`
	Description string   `json:"description" binding:"max=2000"`
}

// bindOptionalJSON binds a body that may be absent altogether.
func bindOptionalJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return false
	}
	return true
}

// AssignPlan godoc
// @Summary Put a catalog template into effect for the client
// @Description Completes any active assignment of the same kind first.
// @Tags Assignments
// @Security BearerAuth
// @Param id path string true "Coaching request ID"
// @Param request body AssignPlanRequest true "Template to assign"
// @Success 201 {object} service.AssignResult
// @Failure 403 {object} gin.H "Not the accepted trainer, or template of another trainer"
// @Failure 404 {object} gin.H "Request or template not found"
// @Router /coaching-requests/{id}/assign-nutrition-plan [post]
// @Router /coaching-requests/{id}/assign-training-plan [post]
func (h *AssignmentHandler) AssignPlan(kind domain.PlanKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AssignPlanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
			return
		}
		caller, ok := callerFromContext(c)
		if !ok {
			return
		}
		requestID, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		planID, ok := optionalObjectID(c, "planId", req.PlanID)
		if !ok {
			return
		}

		result, err := h.assignmentService.AssignPlan(c.Request.Context(), caller, requestID, *planID, kind)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, http.StatusCreated, result)
	}
}

// RemovePlan abandons the named or the active assignment of kind.
func (h *AssignmentHandler) RemovePlan(kind domain.PlanKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RemovePlanRequest
		if !bindOptionalJSON(c, &req) {
			return
		}
		caller, ok := callerFromContext(c)
		if !ok {
			return
		}
		requestID, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		assignmentID, ok := optionalObjectID(c, "assignmentId", req.AssignmentID)
		if !ok {
			return
		}

		removed, err := h.assignmentService.RemoveAssignment(c.Request.Context(), caller, requestID, kind, assignmentID)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, http.StatusOK, removed)
	}
}

// EnableCustomTracking replaces the active assignment of kind with a freeform one.
func (h *AssignmentHandler) EnableCustomTracking(kind domain.PlanKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CustomTrackingRequest
		if !bindOptionalJSON(c, &req) {
			return
		}
		caller, ok := callerFromContext(c)
		if !ok {
			return
		}
		requestID, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		input := service.CustomTrackingInput{Documents: req.Documents, Description: req.Description}
		a, err := h.assignmentService.EnableCustomTracking(c.Request.Context(), caller, requestID, kind, input)
		if err != nil {
			respondError(c, err)
			return
		}
		respondWithMessage(c, http.StatusCreated, a, "Custom "+string(kind)+" tracking enabled")
	}
}

// ListAssignments returns a page of the relationship's assignment history.
func (h *AssignmentHandler) ListAssignments(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	requestID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	page, ok := pageFromQuery(c)
	if !ok {
		return
	}

	kind := domain.PlanKind(c.Query("kind"))
	assignments, err := h.assignmentService.ListAssignments(c.Request.Context(), caller, requestID, kind, page)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"items": assignments,
		"page":  page.Page,
		"limit": page.Limit,
	})
}

// GetAssignment returns one assignment of the relationship.
func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	requestID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	assignmentID, ok := objectIDParam(c, "planId")
	if !ok {
		return
	}
	a, err := h.assignmentService.GetAssignment(c.Request.Context(), caller, requestID, assignmentID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, a)
}
