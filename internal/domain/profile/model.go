// Package profile manages the directory of people known to the system.
// Every account owns exactly one profile carrying the person's display
// identity and their role, which drives all access decisions downstream.
package profile

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrProfileMissing signals an authenticated account with no profile row.
	ErrProfileMissing = errors.New("profile not found")
)

// Role partitions users into the two sides of the document exchange.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// ParseRole validates a raw role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePatient, RoleDoctor:
		return Role(s), nil
	default:
		return "", fmt.Errorf("invalid role: %q", s)
	}
}

// Profile maps to the profiles table. The ID is the owning account's ID.
type Profile struct {
	ID        uuid.UUID `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	Role      Role      `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
