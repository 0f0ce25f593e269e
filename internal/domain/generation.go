package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GenerationStatus is the externally observable lifecycle of a generated
// entity's content. Internal orchestration states (fetching, generating,
// persisting) are not stored on the record.
type GenerationStatus string

const (
	GenerationPending   GenerationStatus = "pending"
	GenerationCompleted GenerationStatus = "completed"
	GenerationFailed    GenerationStatus = "failed"
)

// EntityKind names a storable entity type. Used as the batching-cache key
// space and as the event bus topic for generated kinds.
type EntityKind string

const (
	KindCoach        EntityKind = "coaches"
	KindAthlete      EntityKind = "athletes"
	KindGoal         EntityKind = "goals"
	KindSessionLog   EntityKind = "session_logs"
	KindTrainingPlan EntityKind = "training_plans"
)

// EventStatus is the terminal outcome carried by a GenerationEvent.
type EventStatus string

const (
	EventSucceeded EventStatus = "succeeded"
	EventFailed    EventStatus = "failed"
)

// GenerationEvent is the terminal notification published on the event bus
// when a generation job finishes, one per job. Entity is set on success,
// Error on failure; never both.
type GenerationEvent struct {
	TargetID   primitive.ObjectID `json:"targetId"`
	Kind       EntityKind         `json:"kind"`
	CoachID    primitive.ObjectID `json:"coachId"`
	AthleteID  primitive.ObjectID `json:"athleteId"`
	Status     EventStatus        `json:"status"`
	Entity     any                `json:"entity,omitempty"`
	Error      string             `json:"error,omitempty"`
	OccurredAt time.Time          `json:"occurredAt"`
}
