package profile

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medrecords/medrecords/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/profiles/me", h.GetOwnProfile, auth.RequireSession())
	api.GET("/patients", h.ListPatients, auth.RequireRole(string(RoleDoctor)))
}

// GetOwnProfile returns the caller's profile.
func (h *Handler) GetOwnProfile(c echo.Context) error {
	principal := auth.PrincipalFromContext(c.Request().Context())

	p, err := h.svc.Resolve(c.Request().Context(), principal.ID)
	if err != nil {
		if errors.Is(err, ErrProfileMissing) {
			return echo.NewHTTPError(http.StatusNotFound, "profile not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

// ListPatients returns the patient directory, optionally narrowed by the q
// query parameter. Doctors only.
func (h *Handler) ListPatients(c echo.Context) error {
	patients, err := h.svc.ListPatients(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	patients = SearchPatients(patients, c.QueryParam("q"))
	if patients == nil {
		patients = []*Profile{}
	}
	return c.JSON(http.StatusOK, patients)
}
