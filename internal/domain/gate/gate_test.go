package gate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medrecords/medrecords/internal/domain/profile"
	"github.com/medrecords/medrecords/internal/platform/auth"
)

type mockProfileRepo struct {
	profiles map[uuid.UUID]*profile.Profile
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{profiles: make(map[uuid.UUID]*profile.Profile)}
}

func (m *mockProfileRepo) Create(_ context.Context, p *profile.Profile) error {
	m.profiles[p.ID] = p
	return nil
}

func (m *mockProfileRepo) GetByID(_ context.Context, id uuid.UUID) (*profile.Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, profile.ErrProfileMissing
	}
	return p, nil
}

func (m *mockProfileRepo) ListPatients(_ context.Context) ([]*profile.Profile, error) {
	return nil, nil
}

func TestPathForRole(t *testing.T) {
	if got := PathForRole(profile.RolePatient); got != PathPatient {
		t.Errorf("patient path = %q", got)
	}
	if got := PathForRole(profile.RoleDoctor); got != PathDoctor {
		t.Errorf("doctor path = %q", got)
	}
	if got := PathForRole(""); got != PathAuth {
		t.Errorf("empty role path = %q", got)
	}
}

func TestResolve_Anonymous(t *testing.T) {
	svc := NewService(profile.NewService(newMockProfileRepo()))

	d, err := svc.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.State != StateUnauthenticated || d.RedirectPath != PathAuth {
		t.Errorf("unexpected decision %+v", d)
	}
}

func TestResolve_PatientAndDoctor(t *testing.T) {
	repo := newMockProfileRepo()
	svc := NewService(profile.NewService(repo))

	pat := &profile.Profile{ID: uuid.New(), FullName: "Pat", Email: "p@x.com", Role: profile.RolePatient}
	doc := &profile.Profile{ID: uuid.New(), FullName: "Doc", Email: "d@x.com", Role: profile.RoleDoctor}
	repo.profiles[pat.ID] = pat
	repo.profiles[doc.ID] = doc

	d, err := svc.Resolve(context.Background(), &auth.Principal{ID: pat.ID, Role: "patient"})
	if err != nil {
		t.Fatalf("Resolve patient: %v", err)
	}
	if d.State != StatePatientView || d.RedirectPath != PathPatient {
		t.Errorf("patient decision %+v", d)
	}

	d, err = svc.Resolve(context.Background(), &auth.Principal{ID: doc.ID, Role: "doctor"})
	if err != nil {
		t.Fatalf("Resolve doctor: %v", err)
	}
	if d.State != StateDoctorView || d.RedirectPath != PathDoctor {
		t.Errorf("doctor decision %+v", d)
	}
}

func TestResolve_MissingProfileRoutesToAuth(t *testing.T) {
	svc := NewService(profile.NewService(newMockProfileRepo()))

	d, err := svc.Resolve(context.Background(), &auth.Principal{ID: uuid.New(), Role: "patient"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.State != StateUnauthenticated || d.RedirectPath != PathAuth {
		t.Errorf("unexpected decision %+v", d)
	}
}

func TestResolveGateHandler(t *testing.T) {
	repo := newMockProfileRepo()
	doc := &profile.Profile{ID: uuid.New(), FullName: "Doc", Email: "d@x.com", Role: profile.RoleDoctor}
	repo.profiles[doc.ID] = doc

	e := echo.New()
	NewHandler(NewService(profile.NewService(repo))).RegisterRoutes(e.Group("/v1"))

	// anonymous caller
	req := httptest.NewRequest(http.MethodGet, "/v1/gate", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var d Decision
	if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if d.RedirectPath != PathAuth {
		t.Errorf("anonymous redirect = %q", d.RedirectPath)
	}

	// authenticated doctor
	req = httptest.NewRequest(http.MethodGet, "/v1/gate", nil)
	req = req.WithContext(auth.WithPrincipal(req.Context(), &auth.Principal{ID: doc.ID, Role: "doctor"}))
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if d.State != StateDoctorView || d.RedirectPath != PathDoctor {
		t.Errorf("doctor decision %+v", d)
	}
}
