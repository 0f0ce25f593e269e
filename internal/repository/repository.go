package repository

import (
	"context"

	"peakform/coaching-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrLimitReached = RepositoryError("counter limit reached")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// CoachRepository defines the interface for interacting with coach accounts.
type CoachRepository interface {
	Create(ctx context.Context, coach *domain.Coach) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.Coach, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Coach, error)
	// GetByIDs returns the coaches that exist among ids; missing ids are
	// simply absent from the result, never an error.
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Coach, error)
}

// BillingRepository manages the per-coach usage counters.
type BillingRepository interface {
	Create(ctx context.Context, billing *domain.CoachBilling) (primitive.ObjectID, error)
	GetByCoachID(ctx context.Context, coachID primitive.ObjectID) (*domain.CoachBilling, error)
	// IncrementAthleteCount bumps the athlete counter iff it is still below
	// the stored limit (negative limit means unlimited). Returns
	// ErrLimitReached when the guard does not match.
	IncrementAthleteCount(ctx context.Context, coachID primitive.ObjectID) error
	// IncrementSessionLogCount behaves like IncrementAthleteCount for the
	// session-log counter.
	IncrementSessionLogCount(ctx context.Context, coachID primitive.ObjectID) error
	// AddAICreditsUsed records generator usage; never capped at this layer.
	AddAICreditsUsed(ctx context.Context, coachID primitive.ObjectID, credits int) error
}

// AthleteRepository defines the interface for interacting with athlete data.
type AthleteRepository interface {
	Create(ctx context.Context, athlete *domain.Athlete) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Athlete, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Athlete, error)
	GetByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.Athlete, error)
}

// GoalRepository defines the interface for interacting with goal data.
type GoalRepository interface {
	Create(ctx context.Context, goal *domain.Goal) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Goal, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Goal, error)
	GetByAthleteID(ctx context.Context, athleteID primitive.ObjectID) ([]domain.Goal, error)
}

// SessionLogRepository defines the interface for interacting with session logs.
type SessionLogRepository interface {
	Create(ctx context.Context, log *domain.SessionLog) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.SessionLog, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.SessionLog, error)
	GetRecentByAthleteID(ctx context.Context, athleteID primitive.ObjectID, limit int) ([]domain.SessionLog, error)
	// UpdateGeneration writes the outcome of a generation job onto the log.
	// A nil summary or empty genErr clears the stored field rather than
	// leaving a stale value. Returns ErrNotFound if the target record no
	// longer exists.
	UpdateGeneration(ctx context.Context, id primitive.ObjectID, summary *domain.SessionSummaryDocument, status domain.GenerationStatus, genErr string) error
	SoftDelete(ctx context.Context, id, coachID primitive.ObjectID) error
}

// TrainingPlanRepository defines the interface for interacting with training plans.
type TrainingPlanRepository interface {
	Create(ctx context.Context, plan *domain.TrainingPlan) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TrainingPlan, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.TrainingPlan, error)
	GetByAthleteID(ctx context.Context, athleteID primitive.ObjectID) ([]domain.TrainingPlan, error)
	// UpdateGeneration writes the outcome of a generation job onto the plan.
	// A nil doc or empty genErr clears the stored field rather than leaving
	// a stale value. Returns ErrNotFound if the target record no longer
	// exists.
	UpdateGeneration(ctx context.Context, id primitive.ObjectID, doc *domain.TrainingPlanDocument, status domain.GenerationStatus, genErr string) error
	SoftDelete(ctx context.Context, id, coachID primitive.ObjectID) error
}
