package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TrainingPlan is a generated entity: the coach creates it with references to
// an athlete and goals, and the plan document itself is filled in by an
// asynchronous generation job. A plan with a nil Document is always pending
// or failed, never intentionally empty.
type TrainingPlan struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	CoachID   primitive.ObjectID   `bson:"coachId" json:"coachId"` // Owning coach
	AthleteID primitive.ObjectID   `bson:"athleteId" json:"athleteId"`
	GoalIDs   []primitive.ObjectID `bson:"goalIds,omitempty" json:"goalIds,omitempty"`
	Title     string               `bson:"title" json:"title"` // e.g., "Spring base block"
	Focus     string               `bson:"focus,omitempty" json:"focus,omitempty"`
	WeekCount int                  `bson:"weekCount" json:"weekCount"`

	Document         *TrainingPlanDocument `bson:"document,omitempty" json:"document,omitempty"`
	GenerationStatus GenerationStatus      `bson:"generationStatus" json:"generationStatus"`
	GenerationError  string                `bson:"generationError,omitempty" json:"generationError,omitempty"`

	CreatedAt time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updatedAt" json:"updatedAt"`
	DeletedAt *time.Time `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"` // Soft delete
}
