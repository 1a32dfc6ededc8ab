package profile

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Resolve looks up the profile for an account. A missing row surfaces as
// ErrProfileMissing so callers can distinguish "no profile yet" from a
// storage fault.
func (s *Service) Resolve(ctx context.Context, accountID uuid.UUID) (*Profile, error) {
	return s.repo.GetByID(ctx, accountID)
}

// ListPatients returns every patient profile ordered by full name.
func (s *Service) ListPatients(ctx context.Context) ([]*Profile, error) {
	return s.repo.ListPatients(ctx)
}

// SearchPatients filters an already loaded patient list by a case-insensitive
// substring match over full name or email. An empty query returns the input
// unchanged and the relative order is always preserved.
func SearchPatients(patients []*Profile, query string) []*Profile {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return patients
	}

	var matched []*Profile
	for _, p := range patients {
		if strings.Contains(strings.ToLower(p.FullName), q) ||
			strings.Contains(strings.ToLower(p.Email), q) {
			matched = append(matched, p)
		}
	}
	return matched
}
