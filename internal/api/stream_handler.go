package api

import (
	"io"
	"net/http"

	"peakform/coaching-app/internal/domain"
	"peakform/coaching-app/internal/events"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StreamHandler exposes generation completion events over SSE. Subscriptions
// are live-only: a client that connects after a job finished sees nothing and
// should fetch the record instead.
type StreamHandler struct {
	bus *events.Bus
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(bus *events.Bus) *StreamHandler {
	return &StreamHandler{bus: bus}
}

// Stream handles GET /generation/stream?kind=training_plans&athleteId=...
// Events are scoped to the authenticated coach; athleteId optionally narrows
// the stream to one athlete.
func (h *StreamHandler) Stream(c *gin.Context) {
	coachID, err := getCoachIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}

	kind := domain.EntityKind(c.Query("kind"))
	switch kind {
	case domain.KindTrainingPlan, domain.KindSessionLog:
	default:
		abortWithError(c, http.StatusBadRequest, "kind must be training_plans or session_logs")
		return
	}

	var athleteID primitive.ObjectID
	if raw := c.Query("athleteId"); raw != "" {
		athleteID, err = primitive.ObjectIDFromHex(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid athlete ID format")
			return
		}
	}

	filter := func(ev domain.GenerationEvent) bool {
		if ev.CoachID != coachID {
			return false
		}
		if !athleteID.IsZero() && ev.AthleteID != athleteID {
			return false
		}
		return true
	}

	sub := h.bus.Subscribe(events.Topic(kind), filter)
	defer sub.Close()

	log.WithFields(log.Fields{"coachID": coachID.Hex(), "kind": kind}).Debug("SSE stream opened")

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return false
			}
			c.SSEvent("generation", ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
