package gate

import (
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
	api.GET("/gate", h.ResolveGate)
}

// ResolveGate reports where the caller belongs. The endpoint itself never
// rejects; an anonymous caller simply gets the unauthenticated decision.
func (h *Handler) ResolveGate(c echo.Context) error {
	principal := auth.PrincipalFromContext(c.Request().Context())

	decision, err := h.svc.Resolve(c.Request().Context(), principal)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, decision)
}
