package service

import "errors"

// Error taxonomy shared by the service layer. Unauthenticated, validation and
// quota errors surface synchronously at the mutation boundary; generation and
// store failures in a background job surface only through the terminal event
// bus publication and logging.
var (
	ErrUnauthenticated    = errors.New("unauthenticated: no coach principal")
	ErrValidationFailed   = errors.New("validation failed")
	ErrQuotaExceeded      = errors.New("quota exceeded")
	ErrGenerationFailed   = errors.New("generation failed")
	ErrGenerationInFlight = errors.New("a generation job for this record is already in flight")
	ErrStoreUnavailable   = errors.New("entity store unavailable")
	ErrAthleteNotFound    = errors.New("athlete not found")
	ErrPlanNotFound       = errors.New("training plan not found")
	ErrSessionLogNotFound = errors.New("session log not found")
	ErrPlanNotGenerated   = errors.New("training plan has no generated document yet")
)
