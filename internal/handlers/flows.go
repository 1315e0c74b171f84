package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/flows"
)

type rawInvoker[O any] interface {
	InvokeRaw(ctx context.Context, raw []byte) (O, error)
}

// FlowHandler exposes the three flows at their JSON boundary.
type FlowHandler struct {
	Flows *flows.Set
}

// NewFlowHandler создает обработчик прямого вызова флоу.
func NewFlowHandler(set *flows.Set) *FlowHandler {
	return &FlowHandler{Flows: set}
}

// CreditScore вызывает кредитный скоринг.
func (h *FlowHandler) CreditScore(c echo.Context) error {
	return invokeRaw[flows.CreditScoreResult](c, h.Flows.CreditScoring)
}

// BillParse вызывает распознавание чека.
func (h *FlowHandler) BillParse(c echo.Context) error {
	return invokeRaw[flows.BillParseResult](c, h.Flows.BillParsing)
}

// Literacy вызывает ассистента по финансовой грамотности.
func (h *FlowHandler) Literacy(c echo.Context) error {
	return invokeRaw[flows.LiteracyAnswer](c, h.Flows.FinancialLiteracy)
}

func invokeRaw[O any](c echo.Context, flow rawInvoker[O]) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return badRequest(c, "invalid payload")
	}

	output, err := flow.InvokeRaw(c.Request().Context(), body)
	if err != nil {
		return flowError(c, err)
	}

	return c.JSON(http.StatusOK, output)
}
