package api

import (
	"fitcoach/coaching-api/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CoachingHandler serves the coaching request lifecycle.
type CoachingHandler struct {
	coachingService service.CoachingService
}

func NewCoachingHandler(coachingService service.CoachingService) *CoachingHandler {
	return &CoachingHandler{coachingService: coachingService}
}

// CreateCoachingRequest names the trainer by ID or by email.
type CreateCoachingRequest struct {
	TrainerID    string `json:"trainerId"`
	TrainerEmail string `json:"trainerEmail" binding:"omitempty,email"`
	Message      string `json:"message" binding:"max=1000"`
}

// CreateRequest godoc
// @Summary Ask a trainer for coaching
// @Tags Coaching
// @Security BearerAuth
// @Param request body CreateCoachingRequest true "Trainer and optional message"
// @Success 201 {object} domain.CoachingRelationship
// @Failure 404 {object} gin.H "Trainer not found"
// @Failure 409 {object} gin.H "An open request already exists"
// @Router /coaching-requests [post]
func (h *CoachingHandler) CreateRequest(c *gin.Context) {
	var req CreateCoachingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	trainerID, ok := optionalObjectID(c, "trainerId", req.TrainerID)
	if !ok {
		return
	}

	input := service.CoachingRequestInput{TrainerEmail: req.TrainerEmail, Message: req.Message}
	if trainerID != nil {
		input.TrainerID = *trainerID
	}
	rel, err := h.coachingService.RequestCoaching(c.Request.Context(), caller.UserID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, rel)
}

// ListRequests returns the caller's requests, as trainer or client.
func (h *CoachingHandler) ListRequests(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	rels, err := h.coachingService.ListMyRequests(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, rels)
}

// GetRequest returns one request to either party.
func (h *CoachingHandler) GetRequest(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	requestID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	rel, err := h.coachingService.GetRequest(c.Request.Context(), caller, requestID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, rel)
}

// AcceptRequest is the trainer's acceptance of a pending request.
func (h *CoachingHandler) AcceptRequest(c *gin.Context) { h.respond(c, true) }

// RejectRequest is the trainer's rejection of a pending request.
func (h *CoachingHandler) RejectRequest(c *gin.Context) { h.respond(c, false) }

func (h *CoachingHandler) respond(c *gin.Context, accept bool) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	requestID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	rel, err := h.coachingService.RespondToRequest(c.Request.Context(), caller.UserID, requestID, accept)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, rel)
}
