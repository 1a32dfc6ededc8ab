// Package gate decides which surface of the application a caller may enter.
// It folds session state and profile role into one of three view states and
// the redirect path the client should follow.
package gate

import (
	"context"
	"errors"

	"github.com/medrecords/medrecords/internal/domain/profile"
	"github.com/medrecords/medrecords/internal/platform/auth"
)

// State names the view a caller is allowed to see.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StatePatientView     State = "patient_view"
	StateDoctorView      State = "doctor_view"
)

// Well-known client paths.
const (
	PathAuth    = "/auth"
	PathPatient = "/patient"
	PathDoctor  = "/doctor"
)

// Decision is the outcome of a gate check.
type Decision struct {
	State        State  `json:"state"`
	RedirectPath string `json:"redirect_path"`
	Role         string `json:"role,omitempty"`
}

// PathForRole maps a profile role to its home path. Unknown or empty roles
// route back to authentication.
func PathForRole(role profile.Role) string {
	switch role {
	case profile.RolePatient:
		return PathPatient
	case profile.RoleDoctor:
		return PathDoctor
	default:
		return PathAuth
	}
}

// Service resolves gate decisions against the profile directory.
type Service struct {
	profiles *profile.Service
}

func NewService(profiles *profile.Service) *Service {
	return &Service{profiles: profiles}
}

// Resolve computes the caller's view state. A nil principal or a principal
// whose profile has gone missing both route to authentication; a present
// profile routes to its role's home.
func (s *Service) Resolve(ctx context.Context, principal *auth.Principal) (*Decision, error) {
	if principal == nil {
		return &Decision{State: StateUnauthenticated, RedirectPath: PathAuth}, nil
	}

	p, err := s.profiles.Resolve(ctx, principal.ID)
	if err != nil {
		if errors.Is(err, profile.ErrProfileMissing) {
			return &Decision{State: StateUnauthenticated, RedirectPath: PathAuth}, nil
		}
		return nil, err
	}

	switch p.Role {
	case profile.RoleDoctor:
		return &Decision{State: StateDoctorView, RedirectPath: PathDoctor, Role: string(p.Role)}, nil
	default:
		return &Decision{State: StatePatientView, RedirectPath: PathPatient, Role: string(p.Role)}, nil
	}
}
