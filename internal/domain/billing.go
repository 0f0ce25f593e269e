package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UnlimitedQuota marks a counter that is not capped for the coach's tier.
const UnlimitedQuota = -1

// CoachBilling tracks the per-coach usage counters that the quota policy is
// enforced against. Invariant: CurrentAthleteCount never exceeds
// MonthlyAthleteLimit after a completed athlete-creation transaction (a
// negative limit means unlimited).
type CoachBilling struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CoachID primitive.ObjectID `bson:"coachId" json:"coachId"` // One billing record per coach

	CurrentAthleteCount int `bson:"currentAthleteCount" json:"currentAthleteCount"`
	MonthlyAthleteLimit int `bson:"monthlyAthleteLimit" json:"monthlyAthleteLimit"`

	CurrentSessionLogCount int `bson:"currentSessionLogCount" json:"currentSessionLogCount"`
	MonthlySessionLogLimit int `bson:"monthlySessionLogLimit" json:"monthlySessionLogLimit"`

	AICreditsUsed        int `bson:"aiCreditsUsed" json:"aiCreditsUsed"`
	MonthlyAICreditLimit int `bson:"monthlyAiCreditLimit" json:"monthlyAiCreditLimit"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
