package api

import (
	"net/http"

	"peakform/coaching-app/internal/events"
	"peakform/coaching-app/internal/service"

	"github.com/gin-gonic/gin"
)

// SetupRoutes registers all API routes on the given router.
func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	rosterService service.RosterService,
	generationService service.GenerationService,
	exportService service.ExportService,
	bus *events.Bus,
) {
	authHandler := NewAuthHandler(authService)
	rosterHandler := NewRosterHandler(rosterService)
	generationHandler := NewGenerationHandler(generationService, exportService)
	streamHandler := NewStreamHandler(bus)

	authMiddleware := AuthMiddleware(jwtSecret)

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
		protected.GET("/me", func(c *gin.Context) {
			coachID, err := getCoachIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get coach ID from token")
				return
			}
			role, _ := c.Get(ContextCoachRoleKey)
			c.JSON(http.StatusOK, gin.H{"coachId": coachID.Hex(), "role": role})
		})

		athleteGroup := protected.Group("/athletes")
		{
			athleteGroup.POST("", rosterHandler.CreateAthlete)
			athleteGroup.GET("", rosterHandler.GetAthletes)
			athleteGroup.POST("/:athleteId/goals", rosterHandler.CreateGoal)
			athleteGroup.GET("/:athleteId/goals", rosterHandler.GetGoals)

			// Creation is the mutation boundary: both return the pending
			// record immediately, the document arrives via the event stream.
			athleteGroup.POST("/:athleteId/plans", generationHandler.CreateTrainingPlan)
			athleteGroup.GET("/:athleteId/plans", generationHandler.GetTrainingPlans)
			athleteGroup.POST("/:athleteId/logs", generationHandler.CreateSessionLog)
			athleteGroup.GET("/:athleteId/logs", generationHandler.GetSessionLogs)
		}

		planGroup := protected.Group("/plans")
		{
			planGroup.POST("/:planId/regenerate", generationHandler.RegenerateTrainingPlan)
			planGroup.GET("/:planId/export", generationHandler.ExportTrainingPlan)
			planGroup.DELETE("/:planId", generationHandler.DeleteTrainingPlan)
		}

		protected.DELETE("/logs/:logId", generationHandler.DeleteSessionLog)

		protected.GET("/generation/stream", streamHandler.Stream)
	}
}
