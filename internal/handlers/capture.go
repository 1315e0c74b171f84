package handlers

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/datauri"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/notifications"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/session"
)

// BillCapture drives the bill capture cycle of one session over HTTP.
type BillCapture struct {
	Parser        session.BillParser
	MaxImageBytes int64
	Notifier      *notifications.Hub
}

type CaptureResponse struct {
	Bill    session.CaptureView `json:"bill"`
	Summary session.BillSummary `json:"summary"`
}

type ConfirmResponse struct {
	Confirmed session.ConfirmedBill `json:"confirmed"`
	CaptureResponse
}

type CategoryRequest struct {
	Category string `json:"category"`
}

type ConsentRequest struct {
	Consent bool `json:"consent"`
}

func captureResponse(sess *session.Session) CaptureResponse {
	return CaptureResponse{Bill: sess.CaptureView(), Summary: sess.BillSummary()}
}

func (b *BillCapture) show(c echo.Context, sess *session.Session) error {
	return c.JSON(http.StatusOK, captureResponse(sess))
}

// upload принимает multipart-файл. Размер проверяется до чтения файла.
func (b *BillCapture) upload(c echo.Context, sess *session.Session) error {
	header, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file is required")
	}

	if err := datauri.CheckSize(header.Size, b.MaxImageBytes); err != nil {
		return captureError(c, err)
	}

	file, err := header.Open()
	if err != nil {
		return badRequest(c, "cannot read file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return badRequest(c, "cannot read file")
	}

	upload := session.Upload{Name: header.Filename, Size: int64(len(data)), Data: data}
	category := c.FormValue("category")
	if err := sess.WithCapture(func(capture *session.Capture) error {
		return capture.Select(upload, category)
	}); err != nil {
		return captureError(c, err)
	}

	return b.show(c, sess)
}

func (b *BillCapture) setCategory(c echo.Context, sess *session.Session) error {
	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	if err := sess.WithCapture(func(capture *session.Capture) error {
		return capture.SetCategory(req.Category)
	}); err != nil {
		return captureError(c, err)
	}

	return b.show(c, sess)
}

func (b *BillCapture) setConsent(c echo.Context, sess *session.Session) error {
	var req ConsentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	if err := sess.WithCapture(func(capture *session.Capture) error {
		return capture.SetConsent(req.Consent)
	}); err != nil {
		return captureError(c, err)
	}

	return b.show(c, sess)
}

func (b *BillCapture) parse(c echo.Context, sess *session.Session) error {
	if _, err := sess.ParseBill(c.Request().Context(), b.Parser); err != nil {
		return captureError(c, err)
	}

	return b.show(c, sess)
}

func (b *BillCapture) confirm(c echo.Context, sess *session.Session, topics ...string) error {
	var req CategoryRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid payload")
		}
	}

	var confirmed session.ConfirmedBill
	if err := sess.WithCapture(func(capture *session.Capture) error {
		var err error
		confirmed, err = capture.Confirm(req.Category)
		return err
	}); err != nil {
		return captureError(c, err)
	}

	if b.Notifier != nil && len(topics) > 0 {
		b.Notifier.Publish(notifications.Event{
			Type: notifications.EventBillConfirmed,
			Data: map[string]interface{}{
				"bill_id":  confirmed.ID.String(),
				"category": confirmed.Category,
				"total":    confirmed.TotalAmount,
			},
		}, topics...)
	}

	return c.JSON(http.StatusCreated, ConfirmResponse{Confirmed: confirmed, CaptureResponse: captureResponse(sess)})
}

func (b *BillCapture) cancel(c echo.Context, sess *session.Session) error {
	if err := sess.WithCapture(func(capture *session.Capture) error {
		return capture.Cancel()
	}); err != nil {
		return captureError(c, err)
	}

	return b.show(c, sess)
}
