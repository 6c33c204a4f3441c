package chat

import (
	"net/http"
	"strings"

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
	g := api.Group("/chat", authMW)
	g.POST("/message", h.SendMessage)
	g.GET("/history", h.History)
	g.DELETE("/history", h.Clear)
}

func (h *Handler) SendMessage(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())

	var req struct {
		Message string `json:"message"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Please provide a valid message")
	}

	userMsg, aiMsg, err := h.svc.SendMessage(c.Request().Context(), userID, req.Message)
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, "Message sent successfully", echo.Map{
		"userMessage": userMsg,
		"aiMessage":   aiMsg,
	})
}

func (h *Handler) History(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())

	messages, err := h.svc.History(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return response.OK(c, http.StatusOK, "No chat history found", echo.Map{"messages": []Message{}})
	}
	return response.OK(c, http.StatusOK, "Chat history retrieved successfully", echo.Map{
		"messages":      messages,
		"totalMessages": len(messages),
	})
}

func (h *Handler) Clear(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())

	existed, err := h.svc.Clear(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	if !existed {
		return response.Message(c, http.StatusOK, "No chat history to clear")
	}
	return response.Message(c, http.StatusOK, "Chat history cleared successfully")
}
