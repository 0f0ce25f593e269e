package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"peakform/coaching-app/internal/domain"
	"peakform/coaching-app/internal/generator"
	"peakform/coaching-app/internal/loader"
	"peakform/coaching-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repository stubs. Each one guards its map with a mutex so the
// concurrency tests exercise real interleavings.

type stubCoachRepo struct {
	mu      sync.Mutex
	coaches map[primitive.ObjectID]domain.Coach
}

func newStubCoachRepo() *stubCoachRepo {
	return &stubCoachRepo{coaches: make(map[primitive.ObjectID]domain.Coach)}
}

func (r *stubCoachRepo) Create(_ context.Context, coach *domain.Coach) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := primitive.NewObjectID()
	coach.ID = id
	r.coaches[id] = *coach
	return id, nil
}

func (r *stubCoachRepo) GetByEmail(_ context.Context, email string) (*domain.Coach, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.coaches {
		if c.Email == email {
			out := c
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubCoachRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Coach, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.coaches[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := c
	return &out, nil
}

func (r *stubCoachRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.Coach, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Coach
	for _, id := range ids {
		if c, ok := r.coaches[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

type stubBillingRepo struct {
	mu      sync.Mutex
	records map[primitive.ObjectID]*domain.CoachBilling
}

func newStubBillingRepo() *stubBillingRepo {
	return &stubBillingRepo{records: make(map[primitive.ObjectID]*domain.CoachBilling)}
}

func (r *stubBillingRepo) Create(_ context.Context, billing *domain.CoachBilling) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := primitive.NewObjectID()
	billing.ID = id
	cp := *billing
	r.records[billing.CoachID] = &cp
	return id, nil
}

func (r *stubBillingRepo) GetByCoachID(_ context.Context, coachID primitive.ObjectID) (*domain.CoachBilling, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.records[coachID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *b
	return &out, nil
}

func (r *stubBillingRepo) IncrementAthleteCount(_ context.Context, coachID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.records[coachID]
	if !ok {
		return repository.ErrNotFound
	}
	if b.MonthlyAthleteLimit >= 0 && b.CurrentAthleteCount >= b.MonthlyAthleteLimit {
		return repository.ErrLimitReached
	}
	b.CurrentAthleteCount++
	return nil
}

func (r *stubBillingRepo) IncrementSessionLogCount(_ context.Context, coachID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.records[coachID]
	if !ok {
		return repository.ErrNotFound
	}
	if b.MonthlySessionLogLimit >= 0 && b.CurrentSessionLogCount >= b.MonthlySessionLogLimit {
		return repository.ErrLimitReached
	}
	b.CurrentSessionLogCount++
	return nil
}

func (r *stubBillingRepo) AddAICreditsUsed(_ context.Context, coachID primitive.ObjectID, credits int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.records[coachID]
	if !ok {
		return repository.ErrNotFound
	}
	b.AICreditsUsed += credits
	return nil
}

type stubAthleteRepo struct {
	mu       sync.Mutex
	athletes map[primitive.ObjectID]domain.Athlete
}

func newStubAthleteRepo() *stubAthleteRepo {
	return &stubAthleteRepo{athletes: make(map[primitive.ObjectID]domain.Athlete)}
}

func (r *stubAthleteRepo) Create(_ context.Context, athlete *domain.Athlete) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := primitive.NewObjectID()
	athlete.ID = id
	r.athletes[id] = *athlete
	return id, nil
}

func (r *stubAthleteRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Athlete, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.athletes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := a
	return &out, nil
}

func (r *stubAthleteRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.Athlete, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Athlete
	for _, id := range ids {
		if a, ok := r.athletes[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *stubAthleteRepo) GetByCoachID(_ context.Context, coachID primitive.ObjectID) ([]domain.Athlete, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Athlete
	for _, a := range r.athletes {
		if a.CoachID == coachID {
			out = append(out, a)
		}
	}
	return out, nil
}

type stubGoalRepo struct {
	mu    sync.Mutex
	goals map[primitive.ObjectID]domain.Goal
}

func newStubGoalRepo() *stubGoalRepo {
	return &stubGoalRepo{goals: make(map[primitive.ObjectID]domain.Goal)}
}

func (r *stubGoalRepo) Create(_ context.Context, goal *domain.Goal) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := primitive.NewObjectID()
	goal.ID = id
	r.goals[id] = *goal
	return id, nil
}

func (r *stubGoalRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.goals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := g
	return &out, nil
}

func (r *stubGoalRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Goal
	for _, id := range ids {
		if g, ok := r.goals[id]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *stubGoalRepo) GetByAthleteID(_ context.Context, athleteID primitive.ObjectID) ([]domain.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Goal
	for _, g := range r.goals {
		if g.AthleteID == athleteID {
			out = append(out, g)
		}
	}
	return out, nil
}

type stubSessionLogRepo struct {
	mu   sync.Mutex
	logs map[primitive.ObjectID]domain.SessionLog
}

func newStubSessionLogRepo() *stubSessionLogRepo {
	return &stubSessionLogRepo{logs: make(map[primitive.ObjectID]domain.SessionLog)}
}

func (r *stubSessionLogRepo) Create(_ context.Context, sessionLog *domain.SessionLog) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := primitive.NewObjectID()
	sessionLog.ID = id
	sessionLog.CreatedAt = time.Now()
	r.logs[id] = *sessionLog
	return id, nil
}

func (r *stubSessionLogRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.SessionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[id]
	if !ok || l.DeletedAt != nil {
		return nil, repository.ErrNotFound
	}
	out := l
	return &out, nil
}

func (r *stubSessionLogRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.SessionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SessionLog
	for _, id := range ids {
		if l, ok := r.logs[id]; ok && l.DeletedAt == nil {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *stubSessionLogRepo) GetRecentByAthleteID(_ context.Context, athleteID primitive.ObjectID, limit int) ([]domain.SessionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SessionLog
	for _, l := range r.logs {
		if l.AthleteID == athleteID && l.DeletedAt == nil {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubSessionLogRepo) UpdateGeneration(_ context.Context, id primitive.ObjectID, summary *domain.SessionSummaryDocument, status domain.GenerationStatus, genErr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[id]
	if !ok || l.DeletedAt != nil {
		return repository.ErrNotFound
	}
	l.Summary = summary
	l.GenerationStatus = status
	l.GenerationError = genErr
	l.UpdatedAt = time.Now()
	r.logs[id] = l
	return nil
}

func (r *stubSessionLogRepo) SoftDelete(_ context.Context, id, coachID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[id]
	if !ok || l.CoachID != coachID || l.DeletedAt != nil {
		return repository.ErrNotFound
	}
	now := time.Now()
	l.DeletedAt = &now
	r.logs[id] = l
	return nil
}

type stubPlanRepo struct {
	mu    sync.Mutex
	plans map[primitive.ObjectID]domain.TrainingPlan
}

func newStubPlanRepo() *stubPlanRepo {
	return &stubPlanRepo{plans: make(map[primitive.ObjectID]domain.TrainingPlan)}
}

func (r *stubPlanRepo) Create(_ context.Context, plan *domain.TrainingPlan) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := primitive.NewObjectID()
	plan.ID = id
	plan.CreatedAt = time.Now()
	r.plans[id] = *plan
	return id, nil
}

func (r *stubPlanRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.TrainingPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok || p.DeletedAt != nil {
		return nil, repository.ErrNotFound
	}
	out := p
	return &out, nil
}

func (r *stubPlanRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.TrainingPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TrainingPlan
	for _, id := range ids {
		if p, ok := r.plans[id]; ok && p.DeletedAt == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubPlanRepo) GetByAthleteID(_ context.Context, athleteID primitive.ObjectID) ([]domain.TrainingPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TrainingPlan
	for _, p := range r.plans {
		if p.AthleteID == athleteID && p.DeletedAt == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubPlanRepo) UpdateGeneration(_ context.Context, id primitive.ObjectID, doc *domain.TrainingPlanDocument, status domain.GenerationStatus, genErr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok || p.DeletedAt != nil {
		return repository.ErrNotFound
	}
	p.Document = doc
	p.GenerationStatus = status
	p.GenerationError = genErr
	p.UpdatedAt = time.Now()
	r.plans[id] = p
	return nil
}

func (r *stubPlanRepo) SoftDelete(_ context.Context, id, coachID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok || p.CoachID != coachID || p.DeletedAt != nil {
		return repository.ErrNotFound
	}
	now := time.Now()
	p.DeletedAt = &now
	r.plans[id] = p
	return nil
}

// stubGenerator produces canned documents, optionally failing or blocking
// until released.
type stubGenerator struct {
	mu      sync.Mutex
	err     error
	block   chan struct{}
	bundles []generator.InputBundle
}

func (g *stubGenerator) Generate(ctx context.Context, bundle generator.InputBundle) (domain.GeneratedDocument, error) {
	g.mu.Lock()
	g.bundles = append(g.bundles, bundle)
	block := g.block
	err := g.err
	g.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	switch bundle.Kind {
	case domain.KindTrainingPlan:
		return &domain.TrainingPlanDocument{
			Title:   bundle.Title,
			Summary: "stub plan",
			Weeks:   []domain.PlanWeek{{Number: 1, Focus: bundle.Focus}},
		}, nil
	case domain.KindSessionLog:
		return &domain.SessionSummaryDocument{Headline: "stub", Summary: "stub summary"}, nil
	default:
		return nil, generator.ErrUnsupportedKind
	}
}

func (g *stubGenerator) setBlock(block chan struct{}) {
	g.mu.Lock()
	g.block = block
	g.mu.Unlock()
}

func (g *stubGenerator) setErr(err error) {
	g.mu.Lock()
	g.err = err
	g.mu.Unlock()
}

func (g *stubGenerator) inputs() []generator.InputBundle {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]generator.InputBundle, len(g.bundles))
	copy(out, g.bundles)
	return out
}

// testBundleFactory glues the stub repos into the loader bundle the way main
// wires the real ones.
func testBundleFactory(coaches *stubCoachRepo, athletes *stubAthleteRepo, goals *stubGoalRepo, logs *stubSessionLogRepo, plans *stubPlanRepo) func() *loader.Bundle {
	repos := loader.Repos{
		Coaches:       coaches,
		Athletes:      athletes,
		Goals:         goals,
		SessionLogs:   logs,
		TrainingPlans: plans,
	}
	return func() *loader.Bundle { return loader.NewBundle(repos) }
}
