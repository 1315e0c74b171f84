package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/auth"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/models"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/repository"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/session"
)

const usageWindowDays = 7

type DashboardHandler struct {
	Portfolio *repository.BeneficiaryRepository
	AILog     repository.AIRequestLog
}

// NewDashboardHandler создает обработчик кабинетов по ролям.
func NewDashboardHandler(portfolio *repository.BeneficiaryRepository, aiLog repository.AIRequestLog) *DashboardHandler {
	return &DashboardHandler{Portfolio: portfolio, AILog: aiLog}
}

type BeneficiaryDashboard struct {
	Role       models.Role             `json:"role"`
	User       AuthUser                `json:"user"`
	Profile    *models.Beneficiary     `json:"profile,omitempty"`
	Repayments []models.Repayment      `json:"repayments"`
	Advice     []models.Advice         `json:"advice"`
	Bills      []session.ConfirmedBill `json:"bills"`
	Summary    session.BillSummary     `json:"summary"`
}

type OfficerDashboard struct {
	Role          models.Role           `json:"role"`
	User          AuthUser              `json:"user"`
	Beneficiaries []models.Beneficiary  `json:"beneficiaries"`
	Stats         models.PortfolioStats `json:"stats"`
}

type AdminDashboard struct {
	Role      models.Role           `json:"role"`
	User      AuthUser              `json:"user"`
	Portfolio models.PortfolioStats `json:"portfolio"`
	Usage     repository.UsageStats `json:"usage"`
}

// Get возвращает кабинет в зависимости от роли пользователя.
func (h *DashboardHandler) Get(c echo.Context) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	user, ok := auth.UserFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	switch user.Role {
	case models.RoleBeneficiary:
		return h.beneficiary(c, sess, user)
	case models.RoleOfficer:
		return h.officer(c, user)
	case models.RoleAdmin:
		return h.admin(c, user)
	default:
		return forbidden(c)
	}
}

func (h *DashboardHandler) beneficiary(c echo.Context, sess *session.Session, user models.User) error {
	ctx := c.Request().Context()
	response := BeneficiaryDashboard{
		Role:       user.Role,
		User:       toAuthUser(user),
		Repayments: []models.Repayment{},
		Advice:     h.Portfolio.Advice(ctx),
		Bills:      sess.Bills(),
		Summary:    sess.BillSummary(),
	}

	profile, err := h.Portfolio.GetByUserID(ctx, user.ID)
	switch {
	case err == nil:
		response.Profile = &profile
		if len(profile.Repayments) > 0 {
			response.Repayments = profile.Repayments
		}
	case errors.Is(err, repository.ErrNotFound):
	default:
		return serverError(c)
	}

	return c.JSON(http.StatusOK, response)
}

func (h *DashboardHandler) officer(c echo.Context, user models.User) error {
	ctx := c.Request().Context()

	list, err := h.Portfolio.List(ctx, repository.BeneficiaryFilter{})
	if err != nil {
		return serverError(c)
	}
	repository.SortByScore(list)

	stats, err := h.Portfolio.Stats(ctx)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, OfficerDashboard{
		Role:          user.Role,
		User:          toAuthUser(user),
		Beneficiaries: list,
		Stats:         stats,
	})
}

func (h *DashboardHandler) admin(c echo.Context, user models.User) error {
	ctx := c.Request().Context()

	stats, err := h.Portfolio.Stats(ctx)
	if err != nil {
		return serverError(c)
	}

	usage, err := h.AILog.UsageStats(ctx, usageWindowDays)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, AdminDashboard{
		Role:      user.Role,
		User:      toAuthUser(user),
		Portfolio: stats,
		Usage:     usage,
	})
}
