package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/datauri"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/flows"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/schema"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/session"
)

type ErrorResponse struct {
	Error      string             `json:"error"`
	Kind       string             `json:"kind,omitempty"`
	Violations []schema.Violation `json:"violations,omitempty"`
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": message})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
}

func conflict(c echo.Context, message string) error {
	return c.JSON(http.StatusConflict, map[string]string{"error": message})
}

func notFound(c echo.Context, message string) error {
	return c.JSON(http.StatusNotFound, map[string]string{"error": message})
}

func forbidden(c echo.Context) error {
	return c.JSON(http.StatusForbidden, map[string]string{"error": "access denied"})
}

func serverError(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

// flowError отвечает на ошибку флоу: вход 400, ответ модели 502, модель недоступна 503.
func flowError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	response := ErrorResponse{Kind: flows.ErrorKind(err), Violations: flows.Violations(err)}

	switch response.Kind {
	case flows.KindInputValidation:
		status = http.StatusBadRequest
		response.Error = "invalid input"
	case flows.KindOutputValidation:
		status = http.StatusBadGateway
		response.Error = "the model returned an invalid answer, please try again"
	case flows.KindUpstreamUnavailable:
		status = http.StatusServiceUnavailable
		response.Error = "the AI service is unavailable, please try again later"
	default:
		if errors.Is(err, session.ErrBusy) {
			return conflict(c, err.Error())
		}
		return serverError(c)
	}

	return c.JSON(status, response)
}

// captureError отвечает на ошибку автомата захвата чеков или флоу распознавания.
func captureError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, datauri.ErrFileTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
	case errors.Is(err, datauri.ErrUnsupportedMedia):
		return c.JSON(http.StatusUnsupportedMediaType, map[string]string{"error": err.Error()})
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrInvalidTransition):
		return conflict(c, err.Error())
	case errors.Is(err, datauri.ErrEmpty),
		errors.Is(err, session.ErrInvalidCategory),
		errors.Is(err, session.ErrCategoryRequired),
		errors.Is(err, session.ErrConsentRequired):
		return badRequest(c, err.Error())
	}

	if flows.ErrorKind(err) != "" {
		return flowError(c, err)
	}
	return serverError(c)
}
