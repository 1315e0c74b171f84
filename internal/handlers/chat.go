package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/auth"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/session"
)

type ChatHandler struct {
	Assistant session.Assistant
}

// NewChatHandler создает обработчик чата с ассистентом.
func NewChatHandler(assistant session.Assistant) *ChatHandler {
	return &ChatHandler{Assistant: assistant}
}

type ChatRequest struct {
	Question string `json:"question"`
}

type ChatResponse struct {
	Reply      *session.ChatTurn  `json:"reply,omitempty"`
	Transcript []session.ChatTurn `json:"transcript"`
}

// Transcript возвращает переписку сессии.
func (h *ChatHandler) Transcript(c echo.Context) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	return c.JSON(http.StatusOK, ChatResponse{Transcript: sess.Transcript()})
}

// Ask задает вопрос ассистенту. При ошибке модели в переписку добавляется извинение.
func (h *ChatHandler) Ask(c echo.Context) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	turn, err := sess.Ask(c.Request().Context(), h.Assistant, req.Question)
	switch {
	case errors.Is(err, session.ErrEmptyQuestion):
		return badRequest(c, err.Error())
	case errors.Is(err, session.ErrBusy):
		return conflict(c, err.Error())
	case err != nil:
		return flowError(c, err)
	}

	return c.JSON(http.StatusOK, ChatResponse{Reply: &turn, Transcript: sess.Transcript()})
}
