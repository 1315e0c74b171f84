package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/auth"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/flows"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/models"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/repository"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/session"
)

const LoginRedirect = "/login"

var ErrEmailTaken = errors.New("an account with this email already exists")

type Users interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user models.User) (models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Portfolio interface {
	Create(ctx context.Context, b models.Beneficiary) (models.Beneficiary, error)
}

// Scorer is satisfied by *flows.CreditScoring.
type Scorer interface {
	Invoke(ctx context.Context, input flows.CreditScoreRequest) (flows.CreditScoreResult, error)
}

type Options struct {
	// ScoreOnSubmit запускает кредитный скоринг до создания аккаунта заемщика.
	ScoreOnSubmit bool
	Logger        *slog.Logger
}

// Result is what a successful submission hands back to the client.
type Result struct {
	User        models.User              `json:"user"`
	Beneficiary *models.Beneficiary      `json:"beneficiary,omitempty"`
	Score       *flows.CreditScoreResult `json:"score,omitempty"`
	Bills       []session.ConfirmedBill  `json:"bills"`
	Summary     session.BillSummary      `json:"summary"`
	Redirect    string                   `json:"redirect"`
}

type Workflow struct {
	users     Users
	portfolio Portfolio
	scorer    Scorer
	validator *Validator
	opts      Options
	logger    *slog.Logger
}

// NewWorkflow собирает сценарий регистрации.
func NewWorkflow(users Users, portfolio Portfolio, scorer Scorer, opts Options) *Workflow {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		users:     users,
		portfolio: portfolio,
		scorer:    scorer,
		validator: NewValidator(),
		opts:      opts,
		logger:    logger,
	}
}

// Validate проверяет форму без обращения к сети.
func (w *Workflow) Validate(form Form) error {
	return w.validator.Validate(form)
}

// Submit регистрирует пользователя из черновика. При любой ошибке аккаунт не создается,
// а черновик остается доступным для повторной отправки.
func (w *Workflow) Submit(ctx context.Context, draft *session.Session, form Form) (Result, error) {
	if err := w.validator.Validate(form); err != nil {
		return Result{}, err
	}

	exists, err := w.users.EmailExists(ctx, form.email())
	if err != nil {
		return Result{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return Result{}, ErrEmailTaken
	}

	release, err := draft.Acquire()
	if err != nil {
		return Result{}, err
	}
	defer release()

	result := Result{
		Bills:    draft.Bills(),
		Summary:  draft.BillSummary(),
		Redirect: LoginRedirect,
	}

	switch f := form.(type) {
	case OfficerForm:
		user, err := w.createUser(ctx, models.User{
			Name:  strings.TrimSpace(f.Name),
			Email: f.Email,
			Role:  models.RoleOfficer,
		}, f.Password)
		if err != nil {
			return Result{}, err
		}
		result.User = user

	case BeneficiaryForm:
		if w.opts.ScoreOnSubmit {
			score, err := w.scorer.Invoke(flows.WithActor(ctx, draft.ID.String()), creditRequest(f, result.Summary))
			if err != nil {
				return Result{}, err
			}
			result.Score = &score
		}

		user, err := w.createUser(ctx, models.User{
			Name:   strings.TrimSpace(f.Name),
			Email:  f.Email,
			Role:   models.RoleBeneficiary,
			Region: strings.TrimSpace(f.State),
		}, f.Password)
		if err != nil {
			return Result{}, err
		}

		profile, err := w.portfolio.Create(ctx, beneficiaryProfile(user, f, result.Score))
		if err != nil {
			if delErr := w.users.Delete(ctx, user.ID); delErr != nil {
				w.logger.Error("rollback registered user failed",
					slog.String("user_id", user.ID.String()),
					slog.String("error", delErr.Error()),
				)
			}
			return Result{}, fmt.Errorf("create beneficiary profile: %w", err)
		}
		result.User = user
		result.Beneficiary = &profile

	default:
		return Result{}, ErrUnknownRole
	}

	w.logger.Info("user registered",
		slog.String("user_id", result.User.ID.String()),
		slog.String("role", string(result.User.Role)),
		slog.Bool("scored", result.Score != nil),
		slog.Int("bills", len(result.Bills)),
	)

	return result, nil
}

func (w *Workflow) createUser(ctx context.Context, user models.User, password string) (models.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	user.PasswordHash = hash

	created, err := w.users.Create(ctx, user)
	if errors.Is(err, repository.ErrConflict) {
		return models.User{}, ErrEmailTaken
	}
	if err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func creditRequest(f BeneficiaryForm, summary session.BillSummary) flows.CreditScoreRequest {
	return flows.CreditScoreRequest{
		PersonalInfo: flows.PersonalInfo{
			Age:        f.Age,
			Location:   f.Location(),
			Occupation: strings.TrimSpace(f.Occupation),
		},
		FinancialInfo: flows.FinancialInfo{
			Income:          f.MonthlyIncome,
			CreditHistory:   strings.TrimSpace(f.CreditHistory),
			LoanAmount:      f.LoanAmount,
			SpendingSummary: summary.SpendingSummary(),
		},
	}
}

func beneficiaryProfile(user models.User, f BeneficiaryForm, score *flows.CreditScoreResult) models.Beneficiary {
	profile := models.Beneficiary{
		UserID:     &user.ID,
		Name:       user.Name,
		Region:     strings.TrimSpace(f.State),
		Occupation: strings.TrimSpace(f.Occupation),
		LoanAmount: f.LoanAmount,
		LoanStage:  models.LoanStageRegistered,
	}
	if score != nil {
		value := int(math.Round(score.CreditScore))
		risk := models.RiskLevel(score.RiskLevel)
		profile.Score = &value
		profile.Risk = &risk
		profile.Insights = splitInsights(score.Insights)
		profile.ScoredByAI = true
	}
	return profile
}

// splitInsights разбивает текст рекомендаций модели на отдельные пункты.
func splitInsights(text string) []string {
	out := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
