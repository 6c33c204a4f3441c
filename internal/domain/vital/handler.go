package vital

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
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
	g := api.Group("/vitals", authMW)
	g.POST("", h.Add)
	g.GET("", h.List)
	g.GET("/timeline", h.Timeline)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

type vitalRequest struct {
	Date        string   `json:"date"`
	BP          *string  `json:"bp"`
	Sugar       *float64 `json:"sugar"`
	Weight      *float64 `json:"weight"`
	Pulse       *float64 `json:"pulse"`
	Temperature *float64 `json:"temperature"`
	Notes       *string  `json:"notes"`
}

// vitalPatchRequest wraps every field in a Patch so an explicit null in the
// body clears the measurement instead of being ignored.
type vitalPatchRequest struct {
	Date        Patch[string]  `json:"date"`
	BP          Patch[string]  `json:"bp"`
	Sugar       Patch[float64] `json:"sugar"`
	Weight      Patch[float64] `json:"weight"`
	Pulse       Patch[float64] `json:"pulse"`
	Temperature Patch[float64] `json:"temperature"`
	Notes       Patch[string]  `json:"notes"`
}

func (h *Handler) Add(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())

	var req vitalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Date == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Please provide date")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid date format")
	}

	v, err := h.svc.Add(c.Request().Context(), userID, Input{
		Date:        date,
		BP:          req.BP,
		Sugar:       req.Sugar,
		Weight:      req.Weight,
		Pulse:       req.Pulse,
		Temperature: req.Temperature,
		Notes:       req.Notes,
	})
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusCreated, "Vital entry added successfully", v)
}

func (h *Handler) List(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())

	var date *time.Time
	if v := c.QueryParam("date"); v != "" {
		parsed, err := parseDate(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid date format")
		}
		date = &parsed
	}

	vitals, err := h.svc.List(c.Request().Context(), userID, date)
	if err != nil {
		return err
	}
	return response.OKCount(c, http.StatusOK, "Vitals retrieved successfully", vitals, len(vitals))
}

func (h *Handler) Timeline(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())

	var f RangeFilter
	if v := c.QueryParam("startDate"); v != "" {
		start, err := parseDate(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid startDate format")
		}
		f.Start = &start
	}
	if v := c.QueryParam("endDate"); v != "" {
		end, err := parseDate(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid endDate format")
		}
		f.End = &end
	}

	vitals, err := h.svc.Timeline(c.Request().Context(), userID, f)
	if err != nil {
		return err
	}
	return response.OKCount(c, http.StatusOK, "Vitals timeline retrieved successfully", vitals, len(vitals))
}

func (h *Handler) Get(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Vital entry not found")
	}

	v, err := h.svc.Get(c.Request().Context(), userID, id)
	if err != nil {
		return mapVitalError(err)
	}
	return response.OK(c, http.StatusOK, "Vital entry retrieved successfully", v)
}

func (h *Handler) Update(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Vital entry not found")
	}

	var req vitalPatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	patch := Update{
		BP:          req.BP,
		Sugar:       req.Sugar,
		Weight:      req.Weight,
		Pulse:       req.Pulse,
		Temperature: req.Temperature,
		Notes:       req.Notes,
	}
	if req.Date.Set && req.Date.Value != nil && *req.Date.Value != "" {
		date, err := parseDate(*req.Date.Value)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid date format")
		}
		patch.Date = &date
	}

	v, err := h.svc.Update(c.Request().Context(), userID, id, patch)
	if err != nil {
		return mapVitalError(err)
	}
	return response.OK(c, http.StatusOK, "Vital entry updated successfully", v)
}

func (h *Handler) Delete(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Vital entry not found")
	}

	if err := h.svc.Delete(c.Request().Context(), userID, id); err != nil {
		return mapVitalError(err)
	}
	return response.Message(c, http.StatusOK, "Vital entry deleted successfully")
}

func mapVitalError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Vital entry not found")
	}
	return err
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
