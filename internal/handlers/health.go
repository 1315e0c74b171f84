package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/session"
)

type HealthHandler struct {
	Sessions *session.Store
	Provider string
}

// NewHealthHandler создает обработчик проверки состояния.
func NewHealthHandler(sessions *session.Store, provider string) *HealthHandler {
	return &HealthHandler{Sessions: sessions, Provider: provider}
}

type HealthResponse struct {
	Status   string `json:"status"`
	Provider string `json:"ai_provider"`
	Sessions int    `json:"active_sessions"`
}

// Health возвращает статус сервиса, AI-провайдера и число открытых сессий.
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:   "ok",
		Provider: h.Provider,
		Sessions: h.Sessions.Len(),
	})
}
