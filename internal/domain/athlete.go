package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Athlete represents an athlete coached by a coach. Athlete creation is
// quota-bound: the owning coach's role caps how many athletes they may have.
type Athlete struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CoachID   primitive.ObjectID `bson:"coachId" json:"coachId"` // Owning coach
	Name      string             `bson:"name" json:"name"`
	Sport     string             `bson:"sport,omitempty" json:"sport,omitempty"`         // e.g., "running", "cycling"
	Level     string             `bson:"level,omitempty" json:"level,omitempty"`         // e.g., "beginner", "elite"
	Notes     string             `bson:"notes,omitempty" json:"notes,omitempty"`         // Free-form coach notes, fed into generation
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
