package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/auth"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/models"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/notifications"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/repository"
)

type BeneficiaryHandler struct {
	Portfolio *repository.BeneficiaryRepository
	Notifier  *notifications.Hub
}

// NewBeneficiaryHandler создает обработчик портфеля для сотрудников.
func NewBeneficiaryHandler(portfolio *repository.BeneficiaryRepository, notifier *notifications.Hub) *BeneficiaryHandler {
	return &BeneficiaryHandler{Portfolio: portfolio, Notifier: notifier}
}

type BeneficiariesResponse struct {
	Total         int                  `json:"total"`
	Beneficiaries []models.Beneficiary `json:"beneficiaries"`
}

type UpdateStageRequest struct {
	Stage string `json:"stage" validate:"required"`
	Note  string `json:"note" validate:"max=500"`
}

type BeneficiaryResponse struct {
	Beneficiary models.Beneficiary `json:"beneficiary"`
}

// List возвращает заемщиков с фильтром по риску, стадии и поиском.
func (h *BeneficiaryHandler) List(c echo.Context) error {
	filter := repository.BeneficiaryFilter{Query: c.QueryParam("q")}

	if raw := strings.TrimSpace(c.QueryParam("risk")); raw != "" && !strings.EqualFold(raw, "all") {
		risk, ok := parseRisk(raw)
		if !ok {
			return badRequest(c, "invalid risk")
		}
		filter.Risk = &risk
	}

	if raw := strings.TrimSpace(c.QueryParam("stage")); raw != "" {
		stage, ok := parseStage(raw)
		if !ok {
			return badRequest(c, "invalid stage")
		}
		filter.Stage = &stage
	}

	list, err := h.Portfolio.List(c.Request().Context(), filter)
	if err != nil {
		return serverError(c)
	}

	if strings.EqualFold(c.QueryParam("sort"), "score") {
		repository.SortByScore(list)
	}

	return c.JSON(http.StatusOK, BeneficiariesResponse{Total: len(list), Beneficiaries: list})
}

// UpdateStage одобряет, помечает или иначе меняет стадию займа заемщика.
func (h *BeneficiaryHandler) UpdateStage(c echo.Context) error {
	reviewer, ok := auth.UserFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid beneficiary id")
	}

	var req UpdateStageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	stage, ok := parseStage(req.Stage)
	if !ok {
		return badRequest(c, "invalid stage")
	}

	updated, err := h.Portfolio.UpdateStage(c.Request().Context(), id, stage, req.Note, reviewer.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "beneficiary not found")
		}
		return serverError(c)
	}

	publishStageUpdate(h.Notifier, updated)

	return c.JSON(http.StatusOK, BeneficiaryResponse{Beneficiary: updated})
}

func publishStageUpdate(hub *notifications.Hub, b models.Beneficiary) {
	if hub == nil {
		return
	}

	topics := []string{notifications.RoleTopic(models.RoleOfficer), notifications.RoleTopic(models.RoleAdmin)}
	if b.UserID != nil {
		topics = append(topics, notifications.UserTopic(*b.UserID))
	}

	hub.Publish(notifications.Event{
		Type: notifications.EventLoanStageUpdated,
		Data: map[string]interface{}{
			"beneficiary_id": b.ID.String(),
			"stage":          b.LoanStage,
			"note":           b.StageNote,
		},
	}, topics...)
}

func parseRisk(raw string) (models.RiskLevel, bool) {
	for _, risk := range []models.RiskLevel{models.RiskLow, models.RiskMedium, models.RiskHigh} {
		if strings.EqualFold(raw, string(risk)) {
			return risk, true
		}
	}
	return "", false
}

func parseStage(raw string) (models.LoanStage, bool) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "approve":
		return models.LoanStageApproved, true
	case "flag":
		return models.LoanStageFlagged, true
	}
	for _, stage := range []models.LoanStage{
		models.LoanStageRegistered,
		models.LoanStageVerification,
		models.LoanStageApproved,
		models.LoanStageFlagged,
		models.LoanStageActive,
		models.LoanStageDefaulted,
	} {
		if strings.EqualFold(raw, string(stage)) {
			return stage, true
		}
	}
	return "", false
}
