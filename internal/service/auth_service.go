package service

import (
	"context"
	"errors"
	"time"

	"peakform/coaching-app/internal/domain"
	"peakform/coaching-app/internal/quota"
	"peakform/coaching-app/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// --- Error Definitions ---
var (
	ErrCoachAlreadyExists   = errors.New("coach with this email already exists")
	ErrAuthenticationFailed = errors.New("authentication failed: invalid email or password")
	ErrHashingFailed        = errors.New("failed to hash password")
	ErrTokenGeneration      = errors.New("failed to generate authentication token")
)

type AuthService interface {
	Register(ctx context.Context, name, email, password string, role domain.Role) (*domain.Coach, error)
	Login(ctx context.Context, email, password string) (token string, coach *domain.Coach, err error)
}

// authService implements the AuthService interface.
type authService struct {
	coachRepo     repository.CoachRepository
	billingRepo   repository.BillingRepository
	enforcer      *quota.Enforcer
	jwtSecret     string
	jwtExpiration time.Duration
}

// NewAuthService creates a new instance of authService.
func NewAuthService(coachRepo repository.CoachRepository, billingRepo repository.BillingRepository, enforcer *quota.Enforcer, jwtSecret string, jwtExpiration time.Duration) AuthService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty")
	}
	if jwtExpiration <= 0 {
		jwtExpiration = time.Hour
	}
	return &authService{
		coachRepo:     coachRepo,
		billingRepo:   billingRepo,
		enforcer:      enforcer,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

// Register creates a coach account together with its billing record, seeded
// with the quota limits for the chosen role.
func (s *authService) Register(ctx context.Context, name, email, password string, role domain.Role) (*domain.Coach, error) {
	if name == "" || email == "" || password == "" {
		return nil, errors.New("name, email, and password cannot be empty")
	}
	if !domain.ValidRole(role) {
		return nil, errors.New("unknown coach role")
	}

	_, err := s.coachRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, ErrCoachAlreadyExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrHashingFailed
	}

	coach := &domain.Coach{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         role,
	}

	coachID, err := s.coachRepo.Create(ctx, coach)
	if err != nil {
		return nil, err
	}
	coach.ID = coachID

	billing := &domain.CoachBilling{
		CoachID:                coachID,
		MonthlyAthleteLimit:    s.enforcer.Limit(role),
		MonthlySessionLogLimit: domain.UnlimitedQuota,
		MonthlyAICreditLimit:   domain.UnlimitedQuota,
	}
	if _, err := s.billingRepo.Create(ctx, billing); err != nil {
		return nil, err
	}

	coach.PasswordHash = ""
	return coach, nil
}

// Login handles coach authentication and JWT generation.
func (s *authService) Login(ctx context.Context, email, password string) (token string, coach *domain.Coach, err error) {
	if email == "" || password == "" {
		err = errors.New("email and password cannot be empty")
		return
	}

	coach, err = s.coachRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = ErrAuthenticationFailed
			return
		}
		return
	}

	err = bcrypt.CompareHashAndPassword([]byte(coach.PasswordHash), []byte(password))
	if err != nil {
		err = ErrAuthenticationFailed
		coach = nil
		return
	}

	token, err = s.generateJWT(coach)
	if err != nil {
		return "", nil, ErrTokenGeneration
	}

	coach.PasswordHash = ""
	return token, coach, nil
}

// --- JWT Helper ---

// jwtClaims defines the structure of the JWT payload.
type jwtClaims struct {
	CoachID string      `json:"uid"`
	Role    domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// generateJWT creates a new JWT token for the given coach.
func (s *authService) generateJWT(coach *domain.Coach) (string, error) {
	expirationTime := time.Now().Add(s.jwtExpiration)
	claims := &jwtClaims{
		CoachID: coach.ID.Hex(),
		Role:    coach.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   coach.ID.Hex(),
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "coaching-app",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", err
	}
	return signedToken, nil
}
