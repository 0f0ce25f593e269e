package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionLog records one training session for an athlete. The coach supplies
// the raw notes; the Summary document is produced by an asynchronous
// generation job, so a log with a nil Summary is pending or failed.
type SessionLog struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	CoachID   primitive.ObjectID   `bson:"coachId" json:"coachId"` // Owning coach
	AthleteID primitive.ObjectID   `bson:"athleteId" json:"athleteId"`
	GoalIDs   []primitive.ObjectID `bson:"goalIds,omitempty" json:"goalIds,omitempty"`
	Notes     string               `bson:"notes" json:"notes"` // Raw coach input
	LoggedAt  time.Time            `bson:"loggedAt" json:"loggedAt"`

	Summary          *SessionSummaryDocument `bson:"summary,omitempty" json:"summary,omitempty"`
	GenerationStatus GenerationStatus        `bson:"generationStatus" json:"generationStatus"`
	GenerationError  string                  `bson:"generationError,omitempty" json:"generationError,omitempty"`

	CreatedAt time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updatedAt" json:"updatedAt"`
	DeletedAt *time.Time `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"` // Soft delete
}
