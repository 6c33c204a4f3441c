package dashboard

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/healthmate/healthmate/internal/platform/auth"
	"github.com/healthmate/healthmate/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, authMW echo.MiddlewareFunc) {
	g := api.Group("/dashboard", authMW)
	g.GET("/stats", h.Stats)
}

func (h *Handler) Stats(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())

	stats, err := h.svc.Stats(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, "Dashboard statistics retrieved successfully", stats)
}
