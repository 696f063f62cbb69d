package api

import (
	"fitcoach/coaching-api/internal/domain" // Needed for RoleMiddleware
	"fitcoach/coaching-api/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Services bundles what the HTTP layer depends on.
type Services struct {
	Auth       service.AuthService
	Coaching   service.CoachingService
	Plans      service.PlanService
	Assignment service.AssignmentService
	Tracking   service.TrackingService
	Documents  service.DocumentService
	Reconcile  service.ReconcileService
}

func SetupRoutes(router *gin.Engine, jwtSecret string, svc Services) {
	authHandler := NewAuthHandler(svc.Auth)
	coachingHandler := NewCoachingHandler(svc.Coaching)
	assignmentHandler := NewAssignmentHandler(svc.Assignment)
	trackingHandler := NewTrackingHandler(svc.Tracking)
	documentHandler := NewDocumentHandler(svc.Documents)
	trainerHandler := NewTrainerHandler(svc.Plans, svc.Assignment, svc.Reconcile)

	authMiddleware := AuthMiddleware(jwtSecret)
	trainerOnly := RoleMiddleware(domain.RoleTrainer)
	clientOnly := RoleMiddleware(domain.RoleClient)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", authHandler.Me)

		// --- Coaching Requests ---
		requests := protected.Group("/coaching-requests")
		{
			requests.POST("", clientOnly, coachingHandler.CreateRequest)
			requests.GET("", coachingHandler.ListRequests)
			requests.GET("/:id", coachingHandler.GetRequest)
			requests.POST("/:id/accept", trainerOnly, coachingHandler.AcceptRequest)
			requests.POST("/:id/reject", trainerOnly, coachingHandler.RejectRequest)

			// --- Plan Assignment (trainer only) ---
			for _, kind := range []domain.PlanKind{domain.PlanKindNutrition, domain.PlanKindTraining} {
				k := string(kind)
				requests.POST("/:id/assign-"+k+"-plan", trainerOnly, assignmentHandler.AssignPlan(kind))
				requests.POST("/:id/replace-"+k+"-plan", trainerOnly, assignmentHandler.AssignPlan(kind))
				requests.POST("/:id/remove-"+k+"-plan", trainerOnly, assignmentHandler.RemovePlan(kind))
			}
			requests.POST("/:id/enable-custom-meal-input", trainerOnly, assignmentHandler.EnableCustomTracking(domain.PlanKindNutrition))
			requests.POST("/:id/enable-custom-workout-input", trainerOnly, assignmentHandler.EnableCustomTracking(domain.PlanKindTraining))
			requests.GET("/:id/assigned-plans", assignmentHandler.ListAssignments)
			requests.GET("/:id/assigned-plans/:planId", assignmentHandler.GetAssignment)

			// --- Documents ---
			requests.POST("/:id/documents/upload-url", trainerOnly, documentHandler.RequestUploadURL)
			requests.GET("/:id/documents", documentHandler.ListDocuments)
			requests.DELETE("/:id/documents", trainerOnly, documentHandler.DeleteDocument)
			requests.GET("/:id/assigned-plans/:planId/documents", documentHandler.ListAssignmentDocuments)

			// --- Tracking (either party) ---
			requests.POST("/:id/nutrition-tracking/:planId/meal", trackingHandler.TrackMeal)
			requests.POST("/:id/training-tracking/:planId/workout", trackingHandler.TrackWorkout)
			requests.GET("/:id/tracking/:planId", trackingHandler.GetDay)
			requests.GET("/:id/client-progress", trackingHandler.ClientProgress)
		}

		// --- Trainer Specific Routes ---
		trainerGroup := protected.Group("/users/trainer")
		trainerGroup.Use(trainerOnly)
		{
			trainerGroup.POST("/plans", trainerHandler.CreatePlan)
			trainerGroup.GET("/plans", trainerHandler.ListPlans)
			trainerGroup.POST("/plans/reconcile", trainerHandler.ReconcilePlans)
			trainerGroup.GET("/plans/:planId", trainerHandler.GetPlan)
			trainerGroup.PUT("/plans/:planId", trainerHandler.UpdatePlan)
			trainerGroup.DELETE("/plans/:planId", trainerHandler.DeletePlan)
			trainerGroup.PATCH("/assigned-plans/:assignedPlanId", trainerHandler.UpdateAssignmentStatus)
		}
	}
}
