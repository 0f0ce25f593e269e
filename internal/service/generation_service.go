package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"peakform/coaching-app/internal/domain"
	"peakform/coaching-app/internal/events"
	"peakform/coaching-app/internal/generator"
	"peakform/coaching-app/internal/loader"
	"peakform/coaching-app/internal/repository"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// defaultJobTimeout bounds one background generation attempt end to end.
const defaultJobTimeout = 2 * time.Minute

// recentLogWindow is how many recent session logs are snapshotted as
// generation inputs.
const recentLogWindow = 5

// CreatePlanRequest carries the fields for a new generated training plan.
type CreatePlanRequest struct {
	AthleteID primitive.ObjectID   `json:"athleteId"`
	GoalIDs   []primitive.ObjectID `json:"goalIds"`
	Title     string               `json:"title"`
	Focus     string               `json:"focus"`
	WeekCount int                  `json:"weekCount"`
}

// CreateSessionLogRequest carries the fields for a new session log whose
// summary is generated.
type CreateSessionLogRequest struct {
	AthleteID primitive.ObjectID   `json:"athleteId"`
	GoalIDs   []primitive.ObjectID `json:"goalIds"`
	Notes     string               `json:"notes"`
	LoggedAt  time.Time            `json:"loggedAt"`
}

// GenerationService drives the create -> fetch-inputs -> generate -> persist
// -> publish sequence for generated entities. Create operations return the
// pending record immediately; the remaining steps run detached from the
// caller and report only through the event bus and logs.
type GenerationService interface {
	CreateTrainingPlan(ctx context.Context, coachID primitive.ObjectID, req CreatePlanRequest) (*domain.TrainingPlan, error)
	CreateSessionLog(ctx context.Context, coachID primitive.ObjectID, req CreateSessionLogRequest) (*domain.SessionLog, error)

	// Regenerate operations start a fresh job for an existing record. A job
	// already in flight for the target rejects the request.
	RegenerateTrainingPlan(ctx context.Context, coachID, planID primitive.ObjectID) (*domain.TrainingPlan, error)

	GetPlansForAthlete(ctx context.Context, coachID, athleteID primitive.ObjectID) ([]domain.TrainingPlan, error)
	GetLogsForAthlete(ctx context.Context, coachID, athleteID primitive.ObjectID) ([]domain.SessionLog, error)
	DeletePlan(ctx context.Context, coachID, planID primitive.ObjectID) error
	DeleteSessionLog(ctx context.Context, coachID, logID primitive.ObjectID) error
}

type generationService struct {
	planRepo    repository.TrainingPlanRepository
	logRepo     repository.SessionLogRepository
	athleteRepo repository.AthleteRepository
	billingRepo repository.BillingRepository
	gen         generator.ContentGenerator
	bus         *events.Bus

	// newBundle builds a fresh loader bundle per job, so each job's input
	// fetches batch together but never share cache with another job.
	newBundle func() *loader.Bundle

	jobTimeout time.Duration

	// inFlight tracks target ids with a running job. Writes to one target
	// are never interleaved because at most one job holds its id here.
	mu       sync.Mutex
	inFlight map[primitive.ObjectID]struct{}
}

// NewGenerationService creates a new instance of generationService.
func NewGenerationService(
	planRepo repository.TrainingPlanRepository,
	logRepo repository.SessionLogRepository,
	athleteRepo repository.AthleteRepository,
	billingRepo repository.BillingRepository,
	gen generator.ContentGenerator,
	bus *events.Bus,
	newBundle func() *loader.Bundle,
) GenerationService {
	return &generationService{
		planRepo:    planRepo,
		logRepo:     logRepo,
		athleteRepo: athleteRepo,
		billingRepo: billingRepo,
		gen:         gen,
		bus:         bus,
		newBundle:   newBundle,
		jobTimeout:  defaultJobTimeout,
		inFlight:    make(map[primitive.ObjectID]struct{}),
	}
}

// CreateTrainingPlan persists a pending plan synchronously and schedules the
// generation job. The returned plan has no document yet; its id is
// immediately usable as a subscription filter key.
func (s *generationService) CreateTrainingPlan(ctx context.Context, coachID primitive.ObjectID, req CreatePlanRequest) (*domain.TrainingPlan, error) {
	if coachID == primitive.NilObjectID {
		return nil, ErrUnauthenticated
	}
	if req.AthleteID == primitive.NilObjectID || req.Title == "" {
		return nil, fmt.Errorf("%w: athleteId and title are required", ErrValidationFailed)
	}
	if req.WeekCount <= 0 {
		req.WeekCount = 4
	}
	if err := s.checkAthleteOwnership(ctx, coachID, req.AthleteID); err != nil {
		return nil, err
	}

	plan := &domain.TrainingPlan{
		CoachID:          coachID,
		AthleteID:        req.AthleteID,
		GoalIDs:          req.GoalIDs,
		Title:            req.Title,
		Focus:            req.Focus,
		WeekCount:        req.WeekCount,
		GenerationStatus: domain.GenerationPending,
	}
	planID, err := s.planRepo.Create(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	plan.ID = planID

	if err := s.acquire(planID); err != nil {
		// Freshly created id, so this cannot collide; kept for symmetry.
		return nil, err
	}
	go s.runPlanJob(*plan)

	return plan, nil
}

// CreateSessionLog persists a pending session log synchronously and schedules
// summary generation.
func (s *generationService) CreateSessionLog(ctx context.Context, coachID primitive.ObjectID, req CreateSessionLogRequest) (*domain.SessionLog, error) {
	if coachID == primitive.NilObjectID {
		return nil, ErrUnauthenticated
	}
	if req.AthleteID == primitive.NilObjectID || req.Notes == "" {
		return nil, fmt.Errorf("%w: athleteId and notes are required", ErrValidationFailed)
	}
	if err := s.checkAthleteOwnership(ctx, coachID, req.AthleteID); err != nil {
		return nil, err
	}

	sessionLog := &domain.SessionLog{
		CoachID:          coachID,
		AthleteID:        req.AthleteID,
		GoalIDs:          req.GoalIDs,
		Notes:            req.Notes,
		LoggedAt:         req.LoggedAt,
		GenerationStatus: domain.GenerationPending,
	}
	logID, err := s.logRepo.Create(ctx, sessionLog)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	sessionLog.ID = logID

	if err := s.billingRepo.IncrementSessionLogCount(ctx, coachID); err != nil {
		log.WithError(err).WithField("coach", coachID.Hex()).Warn("generation: failed to bump session log counter")
	}

	if err := s.acquire(logID); err != nil {
		return nil, err
	}
	go s.runLogJob(*sessionLog)

	return sessionLog, nil
}

// RegenerateTrainingPlan starts a fresh generation job for an existing plan.
// Rejected if a job for this plan is already in flight.
func (s *generationService) RegenerateTrainingPlan(ctx context.Context, coachID, planID primitive.ObjectID) (*domain.TrainingPlan, error) {
	if coachID == primitive.NilObjectID {
		return nil, ErrUnauthenticated
	}
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if plan.CoachID != coachID {
		return nil, ErrPlanNotFound
	}

	if err := s.acquire(planID); err != nil {
		return nil, err
	}

	if err := s.planRepo.UpdateGeneration(ctx, planID, nil, domain.GenerationPending, ""); err != nil {
		s.release(planID)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	plan.GenerationStatus = domain.GenerationPending
	go s.runPlanJob(*plan)

	return plan, nil
}

// --- Background sequence ---

// generationJob is the ephemeral record of one attempt, owned exclusively by
// the goroutine running it.
type generationJob struct {
	targetID  primitive.ObjectID
	kind      domain.EntityKind
	coachID   primitive.ObjectID
	athleteID primitive.ObjectID
	bundle    generator.InputBundle
}

func (s *generationService) runPlanJob(plan domain.TrainingPlan) {
	defer s.release(plan.ID)

	// The job outlives the triggering request by design: the pending record
	// already exists durably, so a caller disconnect must not cancel it.
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	job := &generationJob{
		targetID:  plan.ID,
		kind:      domain.KindTrainingPlan,
		coachID:   plan.CoachID,
		athleteID: plan.AthleteID,
	}
	job.bundle = s.fetchInputs(ctx, job, plan.GoalIDs)
	job.bundle.Title = plan.Title
	job.bundle.Focus = plan.Focus
	job.bundle.WeekCount = plan.WeekCount

	doc, err := s.gen.Generate(ctx, job.bundle)
	if err != nil {
		s.failPlan(ctx, &plan, fmt.Errorf("%w: %v", ErrGenerationFailed, err))
		return
	}
	planDoc, ok := doc.(*domain.TrainingPlanDocument)
	if !ok {
		s.failPlan(ctx, &plan, fmt.Errorf("%w: generator produced a document of the wrong kind", ErrGenerationFailed))
		return
	}

	if err := s.planRepo.UpdateGeneration(ctx, plan.ID, planDoc, domain.GenerationCompleted, ""); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// The target record itself disappeared. Unlike missing secondary
			// references this is fatal for the job.
			s.failPlan(ctx, &plan, fmt.Errorf("target plan %s vanished before persisting", plan.ID.Hex()))
			return
		}
		s.failPlan(ctx, &plan, fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
		return
	}

	s.chargeCredit(ctx, plan.CoachID)

	plan.Document = planDoc
	plan.GenerationStatus = domain.GenerationCompleted
	plan.UpdatedAt = time.Now().UTC()
	s.publish(job, domain.EventSucceeded, plan, nil)
	log.WithFields(log.Fields{"target": plan.ID.Hex(), "kind": job.kind}).Info("generation: job succeeded")
}

func (s *generationService) runLogJob(sessionLog domain.SessionLog) {
	defer s.release(sessionLog.ID)

	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	job := &generationJob{
		targetID:  sessionLog.ID,
		kind:      domain.KindSessionLog,
		coachID:   sessionLog.CoachID,
		athleteID: sessionLog.AthleteID,
	}
	job.bundle = s.fetchInputs(ctx, job, sessionLog.GoalIDs)
	job.bundle.Notes = sessionLog.Notes

	doc, err := s.gen.Generate(ctx, job.bundle)
	if err != nil {
		s.failLog(ctx, &sessionLog, fmt.Errorf("%w: %v", ErrGenerationFailed, err))
		return
	}
	summary, ok := doc.(*domain.SessionSummaryDocument)
	if !ok {
		s.failLog(ctx, &sessionLog, fmt.Errorf("%w: generator produced a document of the wrong kind", ErrGenerationFailed))
		return
	}

	if err := s.logRepo.UpdateGeneration(ctx, sessionLog.ID, summary, domain.GenerationCompleted, ""); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.failLog(ctx, &sessionLog, fmt.Errorf("target session log %s vanished before persisting", sessionLog.ID.Hex()))
			return
		}
		s.failLog(ctx, &sessionLog, fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
		return
	}

	s.chargeCredit(ctx, sessionLog.CoachID)

	sessionLog.Summary = summary
	sessionLog.GenerationStatus = domain.GenerationCompleted
	sessionLog.UpdatedAt = time.Now().UTC()
	s.publish(job, domain.EventSucceeded, sessionLog, nil)
	log.WithFields(log.Fields{"target": sessionLog.ID.Hex(), "kind": job.kind}).Info("generation: job succeeded")
}

// fetchInputs resolves every referenced entity through a job-scoped loader
// bundle. A missing referenced entity is logged but does not abort the job;
// generation proceeds with whatever inputs were found.
func (s *generationService) fetchInputs(ctx context.Context, job *generationJob, goalIDs []primitive.ObjectID) generator.InputBundle {
	bundle := generator.InputBundle{Kind: job.kind}
	loaders := s.newBundle()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bundle.Athlete = loaders.Athletes.Load(gctx, job.athleteID)
		if bundle.Athlete == nil {
			s.logMissing(job, domain.KindAthlete, job.athleteID)
		}
		return nil
	})
	g.Go(func() error {
		for i, goal := range loaders.Goals.LoadMany(gctx, goalIDs) {
			if goal == nil {
				s.logMissing(job, domain.KindGoal, goalIDs[i])
				continue
			}
			bundle.Goals = append(bundle.Goals, *goal)
		}
		return nil
	})
	g.Go(func() error {
		recent, err := s.logRepo.GetRecentByAthleteID(gctx, job.athleteID, recentLogWindow)
		if err != nil {
			// Transport failure at the fetch layer; treated like missing
			// inputs rather than aborting the job.
			log.WithError(err).WithField("target", job.targetID.Hex()).Error("generation: failed to fetch recent session logs")
			return nil
		}
		for _, r := range recent {
			if r.ID == job.targetID {
				continue
			}
			bundle.Recent = append(bundle.Recent, r)
		}
		return nil
	})
	_ = g.Wait()

	return bundle
}

// logMissing records a NotFound-class entry for a secondary reference. The
// asymmetry with the fatal missing-target case in the persist step is
// intentional.
func (s *generationService) logMissing(job *generationJob, kind domain.EntityKind, id primitive.ObjectID) {
	log.WithFields(log.Fields{
		"target": job.targetID.Hex(),
		"kind":   kind,
		"id":     id.Hex(),
	}).Error("generation: referenced entity not found, continuing with partial inputs")
}

func (s *generationService) failPlan(ctx context.Context, plan *domain.TrainingPlan, jobErr error) {
	log.WithError(jobErr).WithField("target", plan.ID.Hex()).Error("generation: training plan job failed")
	// The pending record is kept with empty content; only status and error
	// are written.
	if err := s.planRepo.UpdateGeneration(ctx, plan.ID, nil, domain.GenerationFailed, jobErr.Error()); err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.WithError(err).WithField("target", plan.ID.Hex()).Error("generation: failed to record failure on plan")
	}
	job := &generationJob{targetID: plan.ID, kind: domain.KindTrainingPlan, coachID: plan.CoachID, athleteID: plan.AthleteID}
	s.publish(job, domain.EventFailed, nil, jobErr)
}

func (s *generationService) failLog(ctx context.Context, sessionLog *domain.SessionLog, jobErr error) {
	log.WithError(jobErr).WithField("target", sessionLog.ID.Hex()).Error("generation: session log job failed")
	if err := s.logRepo.UpdateGeneration(ctx, sessionLog.ID, nil, domain.GenerationFailed, jobErr.Error()); err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.WithError(err).WithField("target", sessionLog.ID.Hex()).Error("generation: failed to record failure on session log")
	}
	job := &generationJob{targetID: sessionLog.ID, kind: domain.KindSessionLog, coachID: sessionLog.CoachID, athleteID: sessionLog.AthleteID}
	s.publish(job, domain.EventFailed, nil, jobErr)
}

// publish emits the single terminal event for a job.
func (s *generationService) publish(job *generationJob, status domain.EventStatus, entity any, jobErr error) {
	ev := domain.GenerationEvent{
		TargetID:   job.targetID,
		Kind:       job.kind,
		CoachID:    job.coachID,
		AthleteID:  job.athleteID,
		Status:     status,
		Entity:     entity,
		OccurredAt: time.Now().UTC(),
	}
	if jobErr != nil {
		ev.Error = jobErr.Error()
	}
	s.bus.Publish(events.Topic(job.kind), ev)
}

func (s *generationService) chargeCredit(ctx context.Context, coachID primitive.ObjectID) {
	if err := s.billingRepo.AddAICreditsUsed(ctx, coachID, 1); err != nil {
		log.WithError(err).WithField("coach", coachID.Hex()).Warn("generation: failed to record AI credit usage")
	}
}

// acquire marks a target as having a job in flight.
func (s *generationService) acquire(targetID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, running := s.inFlight[targetID]; running {
		return ErrGenerationInFlight
	}
	s.inFlight[targetID] = struct{}{}
	return nil
}

func (s *generationService) release(targetID primitive.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, targetID)
}

// --- Reads and deletes ---

func (s *generationService) checkAthleteOwnership(ctx context.Context, coachID, athleteID primitive.ObjectID) error {
	athlete, err := s.athleteRepo.GetByID(ctx, athleteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAthleteNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if athlete.CoachID != coachID {
		return ErrAthleteNotFound
	}
	return nil
}

// GetPlansForAthlete lists an athlete's plans, ownership enforced.
func (s *generationService) GetPlansForAthlete(ctx context.Context, coachID, athleteID primitive.ObjectID) ([]domain.TrainingPlan, error) {
	if err := s.checkAthleteOwnership(ctx, coachID, athleteID); err != nil {
		return nil, err
	}
	return s.planRepo.GetByAthleteID(ctx, athleteID)
}

// GetLogsForAthlete lists an athlete's session logs, ownership enforced.
func (s *generationService) GetLogsForAthlete(ctx context.Context, coachID, athleteID primitive.ObjectID) ([]domain.SessionLog, error) {
	if err := s.checkAthleteOwnership(ctx, coachID, athleteID); err != nil {
		return nil, err
	}
	return s.logRepo.GetRecentByAthleteID(ctx, athleteID, 50)
}

// DeletePlan soft-deletes a plan owned by the coach.
func (s *generationService) DeletePlan(ctx context.Context, coachID, planID primitive.ObjectID) error {
	err := s.planRepo.SoftDelete(ctx, planID, coachID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrPlanNotFound
	}
	return err
}

// DeleteSessionLog soft-deletes a session log owned by the coach.
func (s *generationService) DeleteSessionLog(ctx context.Context, coachID, logID primitive.ObjectID) error {
	err := s.logRepo.SoftDelete(ctx, logID, coachID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrSessionLogNotFound
	}
	return err
}
