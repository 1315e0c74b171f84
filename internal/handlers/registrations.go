package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/models"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/notifications"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/registration"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/session"
)

type RegistrationHandler struct {
	Sessions *session.Store
	Workflow *registration.Workflow
	Capture  *BillCapture
	Notifier *notifications.Hub
}

// NewRegistrationHandler создает обработчик черновиков регистрации.
func NewRegistrationHandler(sessions *session.Store, workflow *registration.Workflow, capture *BillCapture, notifier *notifications.Hub) *RegistrationHandler {
	return &RegistrationHandler{
		Sessions: sessions,
		Workflow: workflow,
		Capture:  capture,
		Notifier: notifier,
	}
}

type DraftResponse struct {
	ID        uuid.UUID           `json:"id"`
	CreatedAt time.Time           `json:"created_at"`
	Bill      session.CaptureView `json:"bill"`
	Summary   session.BillSummary `json:"summary"`
}

type FormErrorResponse struct {
	Error  string                    `json:"error"`
	Fields []registration.FieldError `json:"fields"`
}

func draftResponse(sess *session.Session) DraftResponse {
	return DraftResponse{
		ID:        sess.ID,
		CreatedAt: sess.CreatedAt,
		Bill:      sess.CaptureView(),
		Summary:   sess.BillSummary(),
	}
}

// Create открывает черновик регистрации.
func (h *RegistrationHandler) Create(c echo.Context) error {
	sess := h.Sessions.Create(session.KindRegistration, nil)
	return c.JSON(http.StatusCreated, draftResponse(sess))
}

// Get возвращает состояние черновика.
func (h *RegistrationHandler) Get(c echo.Context) error {
	sess, err := h.draft(c)
	if err != nil {
		return notFound(c, "registration not found")
	}
	return c.JSON(http.StatusOK, draftResponse(sess))
}

// UploadBill выбирает фото чека для черновика.
func (h *RegistrationHandler) UploadBill(c echo.Context) error {
	sess, err := h.draft(c)
	if err != nil {
		return notFound(c, "registration not found")
	}
	return h.Capture.upload(c, sess)
}

// SetBillCategory задает категорию выбранного чека.
func (h *RegistrationHandler) SetBillCategory(c echo.Context) error {
	sess, err := h.draft(c)
	if err != nil {
		return notFound(c, "registration not found")
	}
	return h.Capture.setCategory(c, sess)
}

// ParseBill распознает выбранный чек.
func (h *RegistrationHandler) ParseBill(c echo.Context) error {
	sess, err := h.draft(c)
	if err != nil {
		return notFound(c, "registration not found")
	}
	return h.Capture.parse(c, sess)
}

// ConfirmBill подтверждает распознанный чек.
func (h *RegistrationHandler) ConfirmBill(c echo.Context) error {
	sess, err := h.draft(c)
	if err != nil {
		return notFound(c, "registration not found")
	}
	return h.Capture.confirm(c, sess)
}

// CancelBill сбрасывает выбранный чек.
func (h *RegistrationHandler) CancelBill(c echo.Context) error {
	sess, err := h.draft(c)
	if err != nil {
		return notFound(c, "registration not found")
	}
	return h.Capture.cancel(c, sess)
}

// Submit регистрирует пользователя по форме черновика.
func (h *RegistrationHandler) Submit(c echo.Context) error {
	sess, err := h.draft(c)
	if err != nil {
		return notFound(c, "registration not found")
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return badRequest(c, "invalid payload")
	}

	form, err := registration.DecodeForm(body)
	if err != nil {
		return formError(c, err)
	}

	result, err := h.Workflow.Submit(c.Request().Context(), sess, form)
	if err != nil {
		return formError(c, err)
	}

	if h.Notifier != nil && result.Beneficiary != nil {
		h.Notifier.Publish(notifications.Event{
			Type: notifications.EventProfileRegistered,
			Data: map[string]interface{}{
				"beneficiary_id": result.Beneficiary.ID.String(),
				"name":           result.Beneficiary.Name,
				"region":         result.Beneficiary.Region,
			},
		}, notifications.RoleTopic(models.RoleOfficer), notifications.RoleTopic(models.RoleAdmin))
	}

	h.Sessions.Delete(sess.ID)
	return c.JSON(http.StatusCreated, result)
}

func (h *RegistrationHandler) draft(c echo.Context) (*session.Session, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, err
	}

	sess, err := h.Sessions.Get(id)
	if err != nil {
		return nil, err
	}
	if sess.Kind != session.KindRegistration {
		return nil, session.ErrNotFound
	}
	return sess, nil
}

func formError(c echo.Context, err error) error {
	var validationErr *registration.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return c.JSON(http.StatusUnprocessableEntity, FormErrorResponse{
			Error:  "validation failed",
			Fields: validationErr.Fields,
		})
	case errors.Is(err, registration.ErrMalformedForm), errors.Is(err, registration.ErrUnknownRole):
		return badRequest(c, err.Error())
	case errors.Is(err, registration.ErrRoleNotAllowed):
		return c.JSON(http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, registration.ErrEmailTaken):
		return conflict(c, err.Error())
	case errors.Is(err, session.ErrBusy):
		return conflict(c, err.Error())
	}
	return flowError(c, err)
}
