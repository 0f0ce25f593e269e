package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"peakform/coaching-app/internal/domain"
	"peakform/coaching-app/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type generationFixture struct {
	svc       GenerationService
	gen       *stubGenerator
	bus       *events.Bus
	coaches   *stubCoachRepo
	billing   *stubBillingRepo
	athletes  *stubAthleteRepo
	goals     *stubGoalRepo
	logs      *stubSessionLogRepo
	plans     *stubPlanRepo
	coachID   primitive.ObjectID
	athleteID primitive.ObjectID
}

func newGenerationFixture(t *testing.T) *generationFixture {
	t.Helper()

	f := &generationFixture{
		gen:      &stubGenerator{},
		bus:      events.New(),
		coaches:  newStubCoachRepo(),
		billing:  newStubBillingRepo(),
		athletes: newStubAthleteRepo(),
		goals:    newStubGoalRepo(),
		logs:     newStubSessionLogRepo(),
		plans:    newStubPlanRepo(),
	}
	t.Cleanup(f.bus.Close)

	ctx := context.Background()
	coach := &domain.Coach{Name: "Coach", Email: "coach@example.com", Role: domain.RoleProfessional}
	coachID, err := f.coaches.Create(ctx, coach)
	require.NoError(t, err)
	f.coachID = coachID

	_, err = f.billing.Create(ctx, &domain.CoachBilling{
		CoachID:                coachID,
		MonthlyAthleteLimit:    domain.UnlimitedQuota,
		MonthlySessionLogLimit: domain.UnlimitedQuota,
		MonthlyAICreditLimit:   domain.UnlimitedQuota,
	})
	require.NoError(t, err)

	athleteID, err := f.athletes.Create(ctx, &domain.Athlete{CoachID: coachID, Name: "Runner"})
	require.NoError(t, err)
	f.athleteID = athleteID

	f.svc = NewGenerationService(
		f.plans, f.logs, f.athletes, f.billing, f.gen, f.bus,
		testBundleFactory(f.coaches, f.athletes, f.goals, f.logs, f.plans),
	)
	return f
}

func (f *generationFixture) subscribe(kind domain.EntityKind) *events.Subscription {
	return f.bus.Subscribe(events.Topic(kind), nil)
}

func awaitEvent(t *testing.T, sub *events.Subscription) domain.GenerationEvent {
	t.Helper()
	select {
	case ev := <-sub.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for generation event")
		return domain.GenerationEvent{}
	}
}

func TestCreateTrainingPlanReturnsPendingRecord(t *testing.T) {
	f := newGenerationFixture(t)
	// Hold the generator so we observe the record before the job finishes.
	block := make(chan struct{})
	f.gen.setBlock(block)
	defer close(block)

	plan, err := f.svc.CreateTrainingPlan(context.Background(), f.coachID, CreatePlanRequest{
		AthleteID: f.athleteID,
		Title:     "Spring base block",
		WeekCount: 6,
	})
	require.NoError(t, err)

	assert.False(t, plan.ID.IsZero())
	assert.Equal(t, domain.GenerationPending, plan.GenerationStatus)
	assert.Nil(t, plan.Document)

	stored, err := f.plans.GetByID(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationPending, stored.GenerationStatus)
}

func TestPlanJobCompletesPersistsAndPublishes(t *testing.T) {
	f := newGenerationFixture(t)
	sub := f.subscribe(domain.KindTrainingPlan)
	defer sub.Close()

	plan, err := f.svc.CreateTrainingPlan(context.Background(), f.coachID, CreatePlanRequest{
		AthleteID: f.athleteID,
		Title:     "Spring base block",
		Focus:     "endurance",
	})
	require.NoError(t, err)

	ev := awaitEvent(t, sub)
	assert.Equal(t, plan.ID, ev.TargetID)
	assert.Equal(t, domain.KindTrainingPlan, ev.Kind)
	assert.Equal(t, domain.EventSucceeded, ev.Status)
	assert.Equal(t, f.coachID, ev.CoachID)
	assert.NotNil(t, ev.Entity)
	assert.Empty(t, ev.Error)

	stored, err := f.plans.GetByID(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationCompleted, stored.GenerationStatus)
	require.NotNil(t, stored.Document)
	assert.Equal(t, "Spring base block", stored.Document.Title)

	billing, err := f.billing.GetByCoachID(context.Background(), f.coachID)
	require.NoError(t, err)
	assert.Equal(t, 1, billing.AICreditsUsed)
}

func TestPlanJobFailureKeepsRecordAndPublishesFailure(t *testing.T) {
	f := newGenerationFixture(t)
	f.gen.err = errors.New("generator exploded")
	sub := f.subscribe(domain.KindTrainingPlan)
	defer sub.Close()

	plan, err := f.svc.CreateTrainingPlan(context.Background(), f.coachID, CreatePlanRequest{
		AthleteID: f.athleteID,
		Title:     "Doomed plan",
	})
	require.NoError(t, err)

	ev := awaitEvent(t, sub)
	assert.Equal(t, plan.ID, ev.TargetID)
	assert.Equal(t, domain.EventFailed, ev.Status)
	assert.Nil(t, ev.Entity)
	assert.Contains(t, ev.Error, "generator exploded")

	// The pending record survives with a failed status and no document.
	stored, err := f.plans.GetByID(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationFailed, stored.GenerationStatus)
	assert.Nil(t, stored.Document)
	assert.NotEmpty(t, stored.GenerationError)

	billing, err := f.billing.GetByCoachID(context.Background(), f.coachID)
	require.NoError(t, err)
	assert.Zero(t, billing.AICreditsUsed)
}

func TestMissingGoalReferenceDoesNotAbortJob(t *testing.T) {
	f := newGenerationFixture(t)
	sub := f.subscribe(domain.KindTrainingPlan)
	defer sub.Close()

	goalID, err := f.goals.Create(context.Background(), &domain.Goal{
		CoachID: f.coachID, AthleteID: f.athleteID, Title: "Sub-3h marathon",
	})
	require.NoError(t, err)
	danglingID := primitive.NewObjectID()

	_, err = f.svc.CreateTrainingPlan(context.Background(), f.coachID, CreatePlanRequest{
		AthleteID: f.athleteID,
		GoalIDs:   []primitive.ObjectID{goalID, danglingID},
		Title:     "Marathon build",
	})
	require.NoError(t, err)

	ev := awaitEvent(t, sub)
	assert.Equal(t, domain.EventSucceeded, ev.Status)

	// The generator saw the goal that exists and nothing for the dangling id.
	inputs := f.gen.inputs()
	require.Len(t, inputs, 1)
	require.Len(t, inputs[0].Goals, 1)
	assert.Equal(t, goalID, inputs[0].Goals[0].ID)
	require.NotNil(t, inputs[0].Athlete)
	assert.Equal(t, f.athleteID, inputs[0].Athlete.ID)
}

func TestCreateTrainingPlanValidation(t *testing.T) {
	f := newGenerationFixture(t)

	_, err := f.svc.CreateTrainingPlan(context.Background(), primitive.NilObjectID, CreatePlanRequest{
		AthleteID: f.athleteID, Title: "x",
	})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = f.svc.CreateTrainingPlan(context.Background(), f.coachID, CreatePlanRequest{
		AthleteID: f.athleteID,
	})
	assert.ErrorIs(t, err, ErrValidationFailed)

	// Another coach's athlete is indistinguishable from a missing one.
	otherAthlete, err := f.athletes.Create(context.Background(), &domain.Athlete{
		CoachID: primitive.NewObjectID(), Name: "Not ours",
	})
	require.NoError(t, err)
	_, err = f.svc.CreateTrainingPlan(context.Background(), f.coachID, CreatePlanRequest{
		AthleteID: otherAthlete, Title: "x",
	})
	assert.ErrorIs(t, err, ErrAthleteNotFound)
}

func TestRegenerateRejectedWhileJobInFlight(t *testing.T) {
	f := newGenerationFixture(t)
	sub := f.subscribe(domain.KindTrainingPlan)
	defer sub.Close()

	block := make(chan struct{})
	f.gen.setBlock(block)

	plan, err := f.svc.CreateTrainingPlan(context.Background(), f.coachID, CreatePlanRequest{
		AthleteID: f.athleteID,
		Title:     "Contended plan",
	})
	require.NoError(t, err)

	// First job is parked inside the generator; a second one for the same
	// target must be rejected, not queued.
	_, err = f.svc.RegenerateTrainingPlan(context.Background(), f.coachID, plan.ID)
	assert.ErrorIs(t, err, ErrGenerationInFlight)

	close(block)
	ev := awaitEvent(t, sub)
	assert.Equal(t, domain.EventSucceeded, ev.Status)
	f.gen.setBlock(nil)

	// The in-flight slot is released just after the terminal event, so retry
	// briefly rather than racing the job's teardown.
	var regenerated *domain.TrainingPlan
	require.Eventually(t, func() bool {
		regenerated, err = f.svc.RegenerateTrainingPlan(context.Background(), f.coachID, plan.ID)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, domain.GenerationPending, regenerated.GenerationStatus)

	ev = awaitEvent(t, sub)
	assert.Equal(t, domain.EventSucceeded, ev.Status)
	assert.Equal(t, plan.ID, ev.TargetID)
}

func TestRegenerateClearsPriorOutcome(t *testing.T) {
	f := newGenerationFixture(t)
	sub := f.subscribe(domain.KindTrainingPlan)
	defer sub.Close()

	f.gen.setErr(errors.New("first attempt failed"))
	plan, err := f.svc.CreateTrainingPlan(context.Background(), f.coachID, CreatePlanRequest{
		AthleteID: f.athleteID, Title: "Persistent plan",
	})
	require.NoError(t, err)
	ev := awaitEvent(t, sub)
	require.Equal(t, domain.EventFailed, ev.Status)

	// Failed then regenerated successfully: the completed record must not
	// keep the old error string.
	f.gen.setErr(nil)
	require.Eventually(t, func() bool {
		_, err = f.svc.RegenerateTrainingPlan(context.Background(), f.coachID, plan.ID)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	ev = awaitEvent(t, sub)
	require.Equal(t, domain.EventSucceeded, ev.Status)

	stored, err := f.plans.GetByID(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationCompleted, stored.GenerationStatus)
	require.NotNil(t, stored.Document)
	assert.Empty(t, stored.GenerationError)

	// Completed then regenerated: resetting to pending drops the previous
	// document, so a record without content is always pending or failed.
	block := make(chan struct{})
	f.gen.setBlock(block)
	f.gen.setErr(errors.New("second attempt failed"))
	require.Eventually(t, func() bool {
		_, err = f.svc.RegenerateTrainingPlan(context.Background(), f.coachID, plan.ID)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	stored, err = f.plans.GetByID(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationPending, stored.GenerationStatus)
	assert.Nil(t, stored.Document)
	assert.Empty(t, stored.GenerationError)

	close(block)
	ev = awaitEvent(t, sub)
	require.Equal(t, domain.EventFailed, ev.Status)

	stored, err = f.plans.GetByID(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationFailed, stored.GenerationStatus)
	assert.Nil(t, stored.Document)
	assert.NotEmpty(t, stored.GenerationError)
}

func TestRegenerateUnknownPlan(t *testing.T) {
	f := newGenerationFixture(t)

	_, err := f.svc.RegenerateTrainingPlan(context.Background(), f.coachID, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestCreateSessionLogGeneratesSummary(t *testing.T) {
	f := newGenerationFixture(t)
	sub := f.subscribe(domain.KindSessionLog)
	defer sub.Close()

	sessionLog, err := f.svc.CreateSessionLog(context.Background(), f.coachID, CreateSessionLogRequest{
		AthleteID: f.athleteID,
		Notes:     "3x10min threshold, felt strong",
		LoggedAt:  time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationPending, sessionLog.GenerationStatus)
	assert.Nil(t, sessionLog.Summary)

	ev := awaitEvent(t, sub)
	assert.Equal(t, sessionLog.ID, ev.TargetID)
	assert.Equal(t, domain.KindSessionLog, ev.Kind)
	assert.Equal(t, domain.EventSucceeded, ev.Status)

	stored, err := f.logs.GetByID(context.Background(), sessionLog.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationCompleted, stored.GenerationStatus)
	require.NotNil(t, stored.Summary)
	assert.NotEmpty(t, stored.Summary.Headline)
}

func TestSessionLogInputsExcludeTheLogItself(t *testing.T) {
	f := newGenerationFixture(t)
	sub := f.subscribe(domain.KindSessionLog)
	defer sub.Close()

	// An earlier log for the athlete should show up as recent context.
	earlierID, err := f.logs.Create(context.Background(), &domain.SessionLog{
		CoachID: f.coachID, AthleteID: f.athleteID, Notes: "easy hour",
	})
	require.NoError(t, err)

	created, err := f.svc.CreateSessionLog(context.Background(), f.coachID, CreateSessionLogRequest{
		AthleteID: f.athleteID,
		Notes:     "intervals",
	})
	require.NoError(t, err)
	awaitEvent(t, sub)

	inputs := f.gen.inputs()
	require.Len(t, inputs, 1)
	for _, recent := range inputs[0].Recent {
		assert.NotEqual(t, created.ID, recent.ID, "a log must not be its own generation input")
	}
	require.Len(t, inputs[0].Recent, 1)
	assert.Equal(t, earlierID, inputs[0].Recent[0].ID)
}

func TestDeletePlanEnforcesOwnership(t *testing.T) {
	f := newGenerationFixture(t)
	sub := f.subscribe(domain.KindTrainingPlan)
	defer sub.Close()

	plan, err := f.svc.CreateTrainingPlan(context.Background(), f.coachID, CreatePlanRequest{
		AthleteID: f.athleteID, Title: "To delete",
	})
	require.NoError(t, err)
	awaitEvent(t, sub)

	err = f.svc.DeletePlan(context.Background(), primitive.NewObjectID(), plan.ID)
	assert.ErrorIs(t, err, ErrPlanNotFound)

	require.NoError(t, f.svc.DeletePlan(context.Background(), f.coachID, plan.ID))

	_, err = f.plans.GetByID(context.Background(), plan.ID)
	assert.Error(t, err)

	// Deleting again is a not-found, not a silent success.
	err = f.svc.DeletePlan(context.Background(), f.coachID, plan.ID)
	assert.ErrorIs(t, err, ErrPlanNotFound)
}
