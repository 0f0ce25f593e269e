package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"peakform/coaching-app/internal/domain"
	"peakform/coaching-app/internal/quota"
	"peakform/coaching-app/internal/repository"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateAthleteRequest carries the fields for a new athlete.
type CreateAthleteRequest struct {
	Name  string `json:"name"`
	Sport string `json:"sport"`
	Level string `json:"level"`
	Notes string `json:"notes"`
}

// CreateGoalRequest carries the fields for a new goal.
type CreateGoalRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	TargetDate  *time.Time `json:"targetDate"`
}

// RosterService manages the coach's athletes and their goals. Athlete
// creation is quota-bound by the coach's role.
type RosterService interface {
	CreateAthlete(ctx context.Context, coachID primitive.ObjectID, req CreateAthleteRequest) (*domain.Athlete, error)
	GetAthletes(ctx context.Context, coachID primitive.ObjectID) ([]domain.Athlete, error)
	GetAthlete(ctx context.Context, coachID, athleteID primitive.ObjectID) (*domain.Athlete, error)
	CreateGoal(ctx context.Context, coachID, athleteID primitive.ObjectID, req CreateGoalRequest) (*domain.Goal, error)
	GetGoalsForAthlete(ctx context.Context, coachID, athleteID primitive.ObjectID) ([]domain.Goal, error)
}

type rosterService struct {
	coachRepo   repository.CoachRepository
	billingRepo repository.BillingRepository
	athleteRepo repository.AthleteRepository
	goalRepo    repository.GoalRepository
	enforcer    *quota.Enforcer
	coachLocks  *keyedLocks
}

// NewRosterService creates a new instance of rosterService.
func NewRosterService(
	coachRepo repository.CoachRepository,
	billingRepo repository.BillingRepository,
	athleteRepo repository.AthleteRepository,
	goalRepo repository.GoalRepository,
	enforcer *quota.Enforcer,
) RosterService {
	return &rosterService{
		coachRepo:   coachRepo,
		billingRepo: billingRepo,
		athleteRepo: athleteRepo,
		goalRepo:    goalRepo,
		enforcer:    enforcer,
		coachLocks:  newKeyedLocks(),
	}
}

// CreateAthlete creates a new athlete for the coach. The quota check and the
// counter increment run under a per-coach lock so two concurrent creations
// cannot both pass the check and together exceed the limit; the repository's
// guarded increment is a second line of defense.
func (s *rosterService) CreateAthlete(ctx context.Context, coachID primitive.ObjectID, req CreateAthleteRequest) (*domain.Athlete, error) {
	if coachID == primitive.NilObjectID {
		return nil, ErrUnauthenticated
	}
	if req.Name == "" {
		return nil, fmt.Errorf("%w: athlete name is required", ErrValidationFailed)
	}

	coach, err := s.coachRepo.GetByID(ctx, coachID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.coachLocks.Lock(coachID)
	defer s.coachLocks.Unlock(coachID)

	billing, err := s.billingRepo.GetByCoachID(ctx, coachID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// The check must pass strictly before the store mutation that increments
	// the count.
	decision := s.enforcer.CheckLimit(coach.Role, billing.CurrentAthleteCount)
	if !decision.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrQuotaExceeded, decision.Message)
	}

	athlete := &domain.Athlete{
		CoachID: coachID,
		Name:    req.Name,
		Sport:   req.Sport,
		Level:   req.Level,
		Notes:   req.Notes,
	}
	athleteID, err := s.athleteRepo.Create(ctx, athlete)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	athlete.ID = athleteID

	if err := s.billingRepo.IncrementAthleteCount(ctx, coachID); err != nil {
		// The lock should make this unreachable; a guard miss here means the
		// counter raced past its limit anyway.
		log.WithError(err).WithField("coach", coachID.Hex()).Error("roster: failed to increment athlete counter")
		if errors.Is(err, repository.ErrLimitReached) {
			return nil, fmt.Errorf("%w: athlete limit of %d reached", ErrQuotaExceeded, decision.MaxAllowed)
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return athlete, nil
}

// GetAthletes lists the coach's athletes.
func (s *rosterService) GetAthletes(ctx context.Context, coachID primitive.ObjectID) ([]domain.Athlete, error) {
	if coachID == primitive.NilObjectID {
		return nil, ErrUnauthenticated
	}
	return s.athleteRepo.GetByCoachID(ctx, coachID)
}

// GetAthlete fetches one athlete and enforces coach ownership.
func (s *rosterService) GetAthlete(ctx context.Context, coachID, athleteID primitive.ObjectID) (*domain.Athlete, error) {
	athlete, err := s.athleteRepo.GetByID(ctx, athleteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAthleteNotFound
		}
		return nil, err
	}
	if athlete.CoachID != coachID {
		return nil, ErrAthleteNotFound
	}
	return athlete, nil
}

// CreateGoal creates a goal for one of the coach's athletes.
func (s *rosterService) CreateGoal(ctx context.Context, coachID, athleteID primitive.ObjectID, req CreateGoalRequest) (*domain.Goal, error) {
	if coachID == primitive.NilObjectID {
		return nil, ErrUnauthenticated
	}
	if req.Title == "" {
		return nil, fmt.Errorf("%w: goal title is required", ErrValidationFailed)
	}
	if _, err := s.GetAthlete(ctx, coachID, athleteID); err != nil {
		return nil, err
	}

	goal := &domain.Goal{
		CoachID:     coachID,
		AthleteID:   athleteID,
		Title:       req.Title,
		Description: req.Description,
		TargetDate:  req.TargetDate,
	}
	goalID, err := s.goalRepo.Create(ctx, goal)
	if err != nil {
		return nil, err
	}
	goal.ID = goalID
	return goal, nil
}

// GetGoalsForAthlete lists the goals of one of the coach's athletes.
func (s *rosterService) GetGoalsForAthlete(ctx context.Context, coachID, athleteID primitive.ObjectID) ([]domain.Goal, error) {
	if _, err := s.GetAthlete(ctx, coachID, athleteID); err != nil {
		return nil, err
	}
	return s.goalRepo.GetByAthleteID(ctx, athleteID)
}
