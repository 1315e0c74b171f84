package flows

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/schema"
)

const (
	KindInputValidation     = "input_validation"
	KindOutputValidation    = "output_validation"
	KindUpstreamUnavailable = "upstream_unavailable"
)

// InputValidationError is returned before any model call when the candidate input
// does not satisfy the flow's input schema.
type InputValidationError struct {
	Flow       string
	Violations []schema.Violation
}

func (e *InputValidationError) Error() string {
	return fmt.Sprintf("%s: invalid input: %s", e.Flow, joinViolations(e.Violations))
}

// OutputValidationError means the model answered, but the answer is empty,
// not JSON, or breaks the output schema.
type OutputValidationError struct {
	Flow       string
	Violations []schema.Violation
	Cause      error
}

func (e *OutputValidationError) Error() string {
	switch {
	case len(e.Violations) > 0:
		return fmt.Sprintf("%s: invalid model output: %s", e.Flow, joinViolations(e.Violations))
	case e.Cause != nil:
		return fmt.Sprintf("%s: invalid model output: %v", e.Flow, e.Cause)
	default:
		return fmt.Sprintf("%s: invalid model output", e.Flow)
	}
}

func (e *OutputValidationError) Unwrap() error {
	return e.Cause
}

// UpstreamUnavailableError wraps transport, timeout and quota failures of the model call.
type UpstreamUnavailableError struct {
	Flow  string
	Cause error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("%s: model unavailable: %v", e.Flow, e.Cause)
}

func (e *UpstreamUnavailableError) Unwrap() error {
	return e.Cause
}

// ErrorKind возвращает тип ошибки флоу для логов и аудита, либо пустую строку.
func ErrorKind(err error) string {
	var inputErr *InputValidationError
	var outputErr *OutputValidationError
	var upstreamErr *UpstreamUnavailableError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &inputErr):
		return KindInputValidation
	case errors.As(err, &outputErr):
		return KindOutputValidation
	case errors.As(err, &upstreamErr):
		return KindUpstreamUnavailable
	default:
		return ""
	}
}

// Violations возвращает нарушения схемы из ошибки валидации входа или выхода.
func Violations(err error) []schema.Violation {
	var inputErr *InputValidationError
	if errors.As(err, &inputErr) {
		return inputErr.Violations
	}
	var outputErr *OutputValidationError
	if errors.As(err, &outputErr) {
		return outputErr.Violations
	}
	return nil
}

func joinViolations(violations []schema.Violation) string {
	parts := make([]string, 0, len(violations))
	for _, v := range violations {
		parts = append(parts, v.String())
	}
	return strings.Join(parts, "; ")
}
