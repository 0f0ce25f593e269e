package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Goal represents a target an athlete is working toward. Goals are referenced
// by generated training plans and session summaries as generation inputs.
type Goal struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CoachID     primitive.ObjectID `bson:"coachId" json:"coachId"`
	AthleteID   primitive.ObjectID `bson:"athleteId" json:"athleteId"`
	Title       string             `bson:"title" json:"title"` // e.g., "Sub-3h marathon"
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	TargetDate  *time.Time         `bson:"targetDate,omitempty" json:"targetDate,omitempty"`
	Achieved    bool               `bson:"achieved" json:"achieved"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
