// Package generator wraps the external content-generation capability. The
// rest of the system treats it as a black box that either produces a
// validated document for the requested kind or fails.
package generator

import (
	"context"
	"errors"

	"peakform/coaching-app/internal/domain"
)

var (
	// ErrInvalidOutput marks generator responses that decoded but did not
	// match the document schema for the requested kind.
	ErrInvalidOutput = errors.New("generator returned output that failed schema validation")
	// ErrUnsupportedKind marks requests for a kind the generator has no
	// document shape for.
	ErrUnsupportedKind = errors.New("no generated document shape for entity kind")
)

// InputBundle is the snapshot of referenced entities assembled by the
// orchestrator's fetch step. Missing secondary references leave their slots
// nil/short; the generator works with whatever is present.
type InputBundle struct {
	Kind    domain.EntityKind `json:"kind"`
	Athlete *domain.Athlete   `json:"athlete,omitempty"`
	Goals   []domain.Goal     `json:"goals,omitempty"`
	Recent  []domain.SessionLog `json:"recentLogs,omitempty"`

	// Request parameters captured from the creating mutation.
	Title     string `json:"title,omitempty"`
	Focus     string `json:"focus,omitempty"`
	WeekCount int    `json:"weekCount,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// ContentGenerator produces a document for an input bundle. Implementations
// must validate their output shape; callers treat any error as a failed
// generation attempt.
type ContentGenerator interface {
	Generate(ctx context.Context, bundle InputBundle) (domain.GeneratedDocument, error)
}
