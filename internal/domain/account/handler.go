package account

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medrecords/medrecords/internal/domain/profile"
	"github.com/medrecords/medrecords/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/auth/signup", h.SignUp)
	api.POST("/auth/signin", h.SignIn)
	api.POST("/auth/signout", h.SignOut)
	api.GET("/auth/session", h.GetSession)
}

func (h *Handler) SignUp(c echo.Context) error {
	var in SignUpInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	session, err := h.svc.SignUp(c.Request().Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateAccount):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrWeakCredential), errors.Is(err, ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusCreated, session)
}

func (h *Handler) SignIn(c echo.Context) error {
	var in SignInInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	session, err := h.svc.SignIn(c.Request().Context(), in)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, session)
}

// SignOut always succeeds, even without a valid session.
func (h *Handler) SignOut(c echo.Context) error {
	principal := auth.PrincipalFromContext(c.Request().Context())
	h.svc.SignOut(c.Request().Context(), principal)
	return c.NoContent(http.StatusNoContent)
}

type sessionResponse struct {
	Authenticated bool             `json:"authenticated"`
	Profile       *profile.Profile `json:"profile,omitempty"`
}

// GetSession reports whether the caller holds a live session and, when they
// do, the profile behind it.
func (h *Handler) GetSession(c echo.Context) error {
	principal := auth.PrincipalFromContext(c.Request().Context())
	if principal == nil {
		return c.JSON(http.StatusOK, sessionResponse{Authenticated: false})
	}

	prof, err := h.svc.Current(c.Request().Context(), principal)
	if err != nil {
		if errors.Is(err, profile.ErrProfileMissing) {
			return c.JSON(http.StatusOK, sessionResponse{Authenticated: true})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sessionResponse{Authenticated: true, Profile: prof})
}
