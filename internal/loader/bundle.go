package loader

import (
	"context"

	"peakform/coaching-app/internal/domain"
	"peakform/coaching-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Bundle carries one loader per entity kind, all scoped to a single inbound
// request or generation job. Construct a fresh Bundle per request and let it
// go out of scope with the request; never reuse one.
type Bundle struct {
	Coaches       *Loader[domain.Coach]
	Athletes      *Loader[domain.Athlete]
	Goals         *Loader[domain.Goal]
	SessionLogs   *Loader[domain.SessionLog]
	TrainingPlans *Loader[domain.TrainingPlan]
}

// Repos lists the repositories a Bundle batches over.
type Repos struct {
	Coaches       repository.CoachRepository
	Athletes      repository.AthleteRepository
	Goals         repository.GoalRepository
	SessionLogs   repository.SessionLogRepository
	TrainingPlans repository.TrainingPlanRepository
}

// NewBundle builds a request-scoped loader bundle over the given
// repositories.
func NewBundle(repos Repos) *Bundle {
	return &Bundle{
		Coaches: New(string(domain.KindCoach), func(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*domain.Coach, error) {
			return keyByID(func() ([]domain.Coach, error) { return repos.Coaches.GetByIDs(ctx, ids) }, func(c *domain.Coach) primitive.ObjectID { return c.ID })
		}),
		Athletes: New(string(domain.KindAthlete), func(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*domain.Athlete, error) {
			return keyByID(func() ([]domain.Athlete, error) { return repos.Athletes.GetByIDs(ctx, ids) }, func(a *domain.Athlete) primitive.ObjectID { return a.ID })
		}),
		Goals: New(string(domain.KindGoal), func(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*domain.Goal, error) {
			return keyByID(func() ([]domain.Goal, error) { return repos.Goals.GetByIDs(ctx, ids) }, func(g *domain.Goal) primitive.ObjectID { return g.ID })
		}),
		SessionLogs: New(string(domain.KindSessionLog), func(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*domain.SessionLog, error) {
			return keyByID(func() ([]domain.SessionLog, error) { return repos.SessionLogs.GetByIDs(ctx, ids) }, func(s *domain.SessionLog) primitive.ObjectID { return s.ID })
		}),
		TrainingPlans: New(string(domain.KindTrainingPlan), func(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*domain.TrainingPlan, error) {
			return keyByID(func() ([]domain.TrainingPlan, error) { return repos.TrainingPlans.GetByIDs(ctx, ids) }, func(p *domain.TrainingPlan) primitive.ObjectID { return p.ID })
		}),
	}
}

// keyByID turns a repository batch result into the id-keyed map the loader
// consumes. The result order from the store does not matter here; the loader
// reorders by requested id.
func keyByID[T any](fetch func() ([]T, error), id func(*T) primitive.ObjectID) (map[primitive.ObjectID]*T, error) {
	items, err := fetch()
	if err != nil {
		return nil, err
	}
	out := make(map[primitive.ObjectID]*T, len(items))
	for i := range items {
		item := &items[i]
		out[id(item)] = item
	}
	return out, nil
}
