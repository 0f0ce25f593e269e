// Package quota decides whether a coach may create one more quota-bound
// entity. The policy table is fixed configuration loaded at process start;
// CheckLimit itself is pure and does no I/O.
package quota

import (
	"fmt"

	"peakform/coaching-app/internal/config"
	"peakform/coaching-app/internal/domain"
)

// Unlimited marks a role whose creations are not capped.
const Unlimited = -1

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed    bool   `json:"allowed"`
	MaxAllowed int    `json:"maxAllowed"` // Unlimited (-1) for uncapped roles
	Message    string `json:"message,omitempty"`
}

// Enforcer holds the immutable role -> athlete-limit table.
type Enforcer struct {
	limits map[domain.Role]int
}

// NewEnforcer builds an enforcer from the static quota configuration. The
// table is copied once and never mutated afterwards.
func NewEnforcer(cfg config.QuotaConfig) *Enforcer {
	return &Enforcer{
		limits: map[domain.Role]int{
			domain.RoleProfessional: cfg.ProfessionalAthletes,
			domain.RolePersonal:     cfg.PersonalAthletes,
			domain.RoleSelf:         cfg.SelfAthletes,
		},
	}
}

// CheckLimit reports whether a coach with the given role and current athlete
// count may create one more athlete. It must be consulted, and must allow,
// strictly before the store mutation that increments the count.
func (e *Enforcer) CheckLimit(role domain.Role, currentCount int) Decision {
	limit, ok := e.limits[role]
	if !ok {
		return Decision{
			Allowed:    false,
			MaxAllowed: 0,
			Message:    fmt.Sprintf("unknown role %q", role),
		}
	}
	if limit < 0 {
		return Decision{Allowed: true, MaxAllowed: Unlimited}
	}
	if currentCount >= limit {
		return Decision{
			Allowed:    false,
			MaxAllowed: limit,
			Message:    fmt.Sprintf("athlete limit of %d reached for role %q", limit, role),
		}
	}
	return Decision{Allowed: true, MaxAllowed: limit}
}

// Limit returns the raw configured limit for a role, Unlimited for uncapped
// roles. Used to seed new billing records.
func (e *Enforcer) Limit(role domain.Role) int {
	limit, ok := e.limits[role]
	if !ok {
		return 0
	}
	return limit
}
