package api

import (
	"errors"
	"net/http"

	"peakform/coaching-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RosterHandler handles athlete and goal management endpoints.
type RosterHandler struct {
	rosterService service.RosterService
}

// NewRosterHandler creates a new RosterHandler.
func NewRosterHandler(rosterService service.RosterService) *RosterHandler {
	return &RosterHandler{rosterService: rosterService}
}

// CreateAthlete handles POST /athletes. Creation is quota-bound by the
// coach's role.
func (h *RosterHandler) CreateAthlete(c *gin.Context) {
	coachID, err := getCoachIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}

	var req service.CreateAthleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	athlete, err := h.rosterService.CreateAthlete(c.Request.Context(), coachID, req)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, athlete)
}

// GetAthletes handles GET /athletes.
func (h *RosterHandler) GetAthletes(c *gin.Context) {
	coachID, err := getCoachIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}

	athletes, err := h.rosterService.GetAthletes(c.Request.Context(), coachID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, athletes)
}

// CreateGoal handles POST /athletes/:athleteId/goals.
func (h *RosterHandler) CreateGoal(c *gin.Context) {
	coachID, err := getCoachIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}
	athleteID, err := primitive.ObjectIDFromHex(c.Param("athleteId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid athlete ID format")
		return
	}

	var req service.CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	goal, err := h.rosterService.CreateGoal(c.Request.Context(), coachID, athleteID, req)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, goal)
}

// GetGoals handles GET /athletes/:athleteId/goals.
func (h *RosterHandler) GetGoals(c *gin.Context) {
	coachID, err := getCoachIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}
	athleteID, err := primitive.ObjectIDFromHex(c.Param("athleteId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid athlete ID format")
		return
	}

	goals, err := h.rosterService.GetGoalsForAthlete(c.Request.Context(), coachID, athleteID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, goals)
}

// abortWithServiceError maps the service error taxonomy onto HTTP statuses.
func abortWithServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		abortWithError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrValidationFailed):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrQuotaExceeded),
		errors.Is(err, service.ErrGenerationInFlight):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrAthleteNotFound),
		errors.Is(err, service.ErrPlanNotFound),
		errors.Is(err, service.ErrSessionLogNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrPlanNotGenerated):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrStoreUnavailable):
		abortWithError(c, http.StatusServiceUnavailable, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, err.Error())
	}
}
