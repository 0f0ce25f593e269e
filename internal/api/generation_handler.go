package api

import (
	"net/http"

	"peakform/coaching-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GenerationHandler handles training plan and session log endpoints. Creation
// returns the pending record immediately; the generated document arrives
// later via the event stream or a follow-up fetch.
type GenerationHandler struct {
	generationService service.GenerationService
	exportService     service.ExportService
}

// NewGenerationHandler creates a new GenerationHandler.
func NewGenerationHandler(generationService service.GenerationService, exportService service.ExportService) *GenerationHandler {
	return &GenerationHandler{
		generationService: generationService,
		exportService:     exportService,
	}
}

// CreateTrainingPlan handles POST /athletes/:athleteId/plans. Responds 202
// with the pending plan record; the document arrives asynchronously.
func (h *GenerationHandler) CreateTrainingPlan(c *gin.Context) {
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

	var req service.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	req.AthleteID = athleteID

	plan, err := h.generationService.CreateTrainingPlan(c.Request.Context(), coachID, req)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, plan)
}

// CreateSessionLog handles POST /athletes/:athleteId/logs. Responds 202 with
// the pending log record.
func (h *GenerationHandler) CreateSessionLog(c *gin.Context) {
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

	var req service.CreateSessionLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	req.AthleteID = athleteID

	sessionLog, err := h.generationService.CreateSessionLog(c.Request.Context(), coachID, req)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, sessionLog)
}

// RegenerateTrainingPlan handles POST /plans/:planId/regenerate. Returns 409
// if a job for the same plan is already running.
func (h *GenerationHandler) RegenerateTrainingPlan(c *gin.Context) {
	coachID, err := getCoachIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}
	planID, err := primitive.ObjectIDFromHex(c.Param("planId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid plan ID format")
		return
	}

	plan, err := h.generationService.RegenerateTrainingPlan(c.Request.Context(), coachID, planID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, plan)
}

// GetTrainingPlans handles GET /athletes/:athleteId/plans.
func (h *GenerationHandler) GetTrainingPlans(c *gin.Context) {
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

	plans, err := h.generationService.GetPlansForAthlete(c.Request.Context(), coachID, athleteID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

// GetSessionLogs handles GET /athletes/:athleteId/logs.
func (h *GenerationHandler) GetSessionLogs(c *gin.Context) {
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

	logs, err := h.generationService.GetLogsForAthlete(c.Request.Context(), coachID, athleteID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// DeleteTrainingPlan handles DELETE /plans/:planId.
func (h *GenerationHandler) DeleteTrainingPlan(c *gin.Context) {
	coachID, err := getCoachIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}
	planID, err := primitive.ObjectIDFromHex(c.Param("planId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid plan ID format")
		return
	}

	if err := h.generationService.DeletePlan(c.Request.Context(), coachID, planID); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteSessionLog handles DELETE /logs/:logId.
func (h *GenerationHandler) DeleteSessionLog(c *gin.Context) {
	coachID, err := getCoachIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}
	logID, err := primitive.ObjectIDFromHex(c.Param("logId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid log ID format")
		return
	}

	if err := h.generationService.DeleteSessionLog(c.Request.Context(), coachID, logID); err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportTrainingPlan handles GET /plans/:planId/export. Uploads the generated
// document to object storage and returns a presigned download URL.
func (h *GenerationHandler) ExportTrainingPlan(c *gin.Context) {
	coachID, err := getCoachIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}
	planID, err := primitive.ObjectIDFromHex(c.Param("planId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid plan ID format")
		return
	}

	downloadURL, err := h.exportService.ExportPlanDocument(c.Request.Context(), coachID, planID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"downloadUrl": downloadURL})
}
