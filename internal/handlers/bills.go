package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/auth"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/notifications"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/session"
)

// BillHandler runs the consent variant of bill capture on the user's own session.
type BillHandler struct {
	Capture *BillCapture
}

// NewBillHandler создает обработчик чеков кабинета.
func NewBillHandler(capture *BillCapture) *BillHandler {
	return &BillHandler{Capture: capture}
}

// Get возвращает состояние захвата и сохраненные чеки.
func (h *BillHandler) Get(c echo.Context) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	return h.Capture.show(c, sess)
}

// Upload выбирает фото чека.
func (h *BillHandler) Upload(c echo.Context) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	return h.Capture.upload(c, sess)
}

// Consent фиксирует согласие на анализ чека.
func (h *BillHandler) Consent(c echo.Context) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	return h.Capture.setConsent(c, sess)
}

// Parse распознает выбранный чек.
func (h *BillHandler) Parse(c echo.Context) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	return h.Capture.parse(c, sess)
}

// Confirm сохраняет распознанный чек и уведомляет пользователя.
func (h *BillHandler) Confirm(c echo.Context) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	return h.Capture.confirm(c, sess, userTopics(sess)...)
}

// Cancel сбрасывает выбранный чек.
func (h *BillHandler) Cancel(c echo.Context) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	return h.Capture.cancel(c, sess)
}

func userTopics(sess *session.Session) []string {
	user, ok := sess.User()
	if !ok {
		return nil
	}
	return []string{notifications.UserTopic(user.ID)}
}
