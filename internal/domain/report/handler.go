package report

import (
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/healthmate/healthmate/internal/platform/auth"
	"github.com/healthmate/healthmate/internal/platform/storage"
	"github.com/healthmate/healthmate/pkg/response"
)

type Handler struct {
	svc   *Service
	files storage.FileStore
}

func NewHandler(svc *Service, files storage.FileStore) *Handler {
	return &Handler{svc: svc, files: files}
}

func (h *Handler) RegisterRoutes(api *echo.Group, authMW echo.MiddlewareFunc) {
	g := api.Group("/reports", authMW)
	g.POST("/upload", h.Upload)
	g.POST("/manual", h.CreateManual)
	g.GET("", h.List)
	g.GET("/timeline", h.Timeline)
	g.GET("/:id", h.Get)
	g.GET("/:id/download", h.Download)
	g.DELETE("/:id", h.Delete)
}

func (h *Handler) Upload(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())

	reportType := ReportType(c.FormValue("reportType"))
	dateStr := c.FormValue("date")
	if reportType == "" || dateStr == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Please provide reportType and date")
	}
	if !ValidType(reportType) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid report type. Must be one of: "+TypesList())
	}
	date, err := parseDate(dateStr)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid date format")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Please upload a file")
	}
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	fileURL, err := h.files.Save("reports", fh.Filename, fh.Header.Get("Content-Type"), src, storage.MaxReportFileSize)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidContentType):
			return echo.NewHTTPError(http.StatusBadRequest, "Only image files (JPG, PNG) and PDF files are allowed!")
		case errors.Is(err, storage.ErrFileTooLarge):
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "File too large. Maximum size is 10MB")
		}
		return err
	}
	path, err := h.files.Resolve(fileURL)
	if err != nil {
		return err
	}

	rep, err := h.svc.Upload(c.Request().Context(), userID, reportType, date, fileURL, path)
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusCreated, "Report uploaded and processed successfully", rep)
}

func (h *Handler) CreateManual(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())

	var req struct {
		ReportType ReportType             `json:"reportType"`
		Date       string                 `json:"date"`
		ManualData map[string]interface{} `json:"manualData"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ReportType == "" || req.Date == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Please provide reportType and date")
	}
	if len(req.ManualData) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Please provide manualData as an object")
	}
	if !ValidType(req.ReportType) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid report type. Must be one of: "+TypesList())
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid date format")
	}

	rep, err := h.svc.CreateManual(c.Request().Context(), userID, req.ReportType, date, req.ManualData)
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusCreated, "Manual report created successfully", rep)
}

func (h *Handler) List(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())

	var f ListFilter
	if v := c.QueryParam("date"); v != "" {
		date, err := parseDate(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid date format")
		}
		f.Date = &date
	}
	if v := c.QueryParam("reportType"); v != "" {
		rt := ReportType(v)
		f.ReportType = &rt
	}

	reports, err := h.svc.List(c.Request().Context(), userID, f)
	if err != nil {
		return err
	}
	return response.OKCount(c, http.StatusOK, "Reports retrieved successfully", reports, len(reports))
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

	entries, err := h.svc.Timeline(c.Request().Context(), userID, f)
	if err != nil {
		return err
	}
	return response.OKCount(c, http.StatusOK, "Reports timeline retrieved successfully", entries, len(entries))
}

func (h *Handler) Get(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Report not found")
	}

	rep, err := h.svc.Get(c.Request().Context(), userID, id)
	if err != nil {
		return mapReportError(err)
	}
	return response.OK(c, http.StatusOK, "Report retrieved successfully", rep)
}

func (h *Handler) Download(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Report not found")
	}

	path, err := h.svc.Download(c.Request().Context(), userID, id)
	if err != nil {
		return mapReportError(err)
	}
	return c.Attachment(path, filepath.Base(path))
}

func (h *Handler) Delete(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Report not found")
	}

	if err := h.svc.Delete(c.Request().Context(), userID, id); err != nil {
		return mapReportError(err)
	}
	return response.Message(c, http.StatusOK, "Report deleted successfully")
}

func mapReportError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Report not found")
	case errors.Is(err, ErrNoFile):
		return echo.NewHTTPError(http.StatusBadRequest, "No file available for this report")
	case errors.Is(err, ErrFileMissing):
		return echo.NewHTTPError(http.StatusNotFound, "File not found")
	}
	return err
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
