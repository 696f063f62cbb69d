package api

import (
	"fitcoach/coaching-api/internal/domain"
	"fitcoach/coaching-api/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// TrackingHandler serves daily tracking and progress.
type TrackingHandler struct {
	trackingService service.TrackingService
}

func NewTrackingHandler(trackingService service.TrackingService) *TrackingHandler {
	return &TrackingHandler{trackingService: trackingService}
}

// --- DTOs ---

type MealTrackingRequest struct {
	Date            string             `json:"date" binding:"required"`
	MealIndex       *int               `json:"mealIndex" binding:"required,min=0"`
	OptionIndex     *int               `json:"optionIndex" binding:"required,min=0"`
	Status          domain.EntryStatus `json:"status" binding:"required,oneof=tracking completed"`
	SetAsActiveOnly bool               `json:"setAsActiveOnly"`
}

type WorkoutTrackingRequest struct {
	Date            string             `json:"date" binding:"required"`
	WorkoutIndex    *int               `json:"workoutIndex" binding:"required,min=0"`
	ExerciseIndex   *int               `json:"exerciseIndex" binding:"required,min=0"`
	Status          domain.EntryStatus `json:"status" binding:"required,oneof=tracking completed"`
	SetAsActiveOnly bool               `json:"setAsActiveOnly"`
}

// TrackMeal godoc
// @Summary Record progress on a meal option for a day
// @Description With setAsActiveOnly, starting one meal completes every other entry of the day.
// @Tags Tracking
// @Security BearerAuth
// @Param id path string true "Coaching request ID"
// @Param planId path string true "Assignment ID"
// @Param request body MealTrackingRequest true "Entry update"
// @Success 200 {object} domain.TrackingDay
// @Router /coaching-requests/{id}/nutrition-tracking/{planId}/meal [post]
func (h *TrackingHandler) TrackMeal(c *gin.Context) {
	var req MealTrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	h.setEntry(c, domain.PlanKindNutrition, service.EntryUpdate{
		Date:      req.Date,
		EntryKey:  domain.EntryKey(*req.MealIndex, *req.OptionIndex),
		Status:    req.Status,
		Exclusive: req.SetAsActiveOnly,
	})
}

// TrackWorkout records progress on an exercise of a workout for a day.
func (h *TrackingHandler) TrackWorkout(c *gin.Context) {
	var req WorkoutTrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	h.setEntry(c, domain.PlanKindTraining, service.EntryUpdate{
		Date:      req.Date,
		EntryKey:  domain.EntryKey(*req.WorkoutIndex, *req.ExerciseIndex),
		Status:    req.Status,
		Exclusive: req.SetAsActiveOnly,
	})
}

func (h *TrackingHandler) setEntry(c *gin.Context, kind domain.PlanKind, update service.EntryUpdate) {
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

	day, err := h.trackingService.SetEntryStatus(c.Request.Context(), caller, requestID, assignmentID, kind, update)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, day)
}

// GetDay returns the tracking state of one assignment on ?date=.
func (h *TrackingHandler) GetDay(c *gin.Context) {
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

	day, err := h.trackingService.GetDay(c.Request.Context(), caller, requestID, assignmentID, c.Query("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, day)
}

// ClientProgress godoc
// @Summary Progress of a day against the plan
// @Description Uses the active nutrition assignment unless planId is given.
// @Tags Tracking
// @Security BearerAuth
// @Param id path string true "Coaching request ID"
// @Param date query string true "YYYY-MM-DD"
// @Param planId query string false "Assignment ID"
// @Success 200 {object} service.Progress
// @Router /coaching-requests/{id}/client-progress [get]
func (h *TrackingHandler) ClientProgress(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		return
	}
	requestID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	assignmentID, ok := optionalObjectID(c, "planId", c.Query("planId"))
	if !ok {
		return
	}

	progress, err := h.trackingService.ClientProgress(c.Request.Context(), caller, requestID, c.Query("date"), assignmentID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, progress)
}
