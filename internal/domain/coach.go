package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between coach subscription tiers
type Role string

// Define constants for roles
const (
	RoleProfessional Role = "professional"
	RolePersonal     Role = "personal"
	RoleSelf         Role = "self"
)

// Coach represents a coach account. Every athlete, goal, session log and
// training plan in the system is owned by exactly one coach.
type Coach struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`    // Should be unique
	PasswordHash string             `bson:"passwordHash" json:"-"` // Never expose this via JSON
	Role         Role               `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (c *Coach) IsProfessional() bool {
	return c.Role == RoleProfessional
}

// ValidRole reports whether the given string names a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleProfessional, RolePersonal, RoleSelf:
		return true
	}
	return false
}
