package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/models"
)

// BeneficiaryRepository is the in-memory loan portfolio.
type BeneficiaryRepository struct {
	mu     sync.RWMutex
	items  map[uuid.UUID]models.Beneficiary
	order  []uuid.UUID
	advice []models.Advice
}

type BeneficiaryFilter struct {
	Risk  *models.RiskLevel
	Stage *models.LoanStage
	Query string
}

// NewBeneficiaryRepository создает пустой портфель.
func NewBeneficiaryRepository() *BeneficiaryRepository {
	return &BeneficiaryRepository{items: make(map[uuid.UUID]models.Beneficiary)}
}

// Create добавляет профиль заемщика в портфель.
func (r *BeneficiaryRepository) Create(ctx context.Context, b models.Beneficiary) (models.Beneficiary, error) {
	if strings.TrimSpace(b.Name) == "" {
		return models.Beneficiary{}, ErrInvalid
	}
	if b.Risk != nil && !b.Risk.Valid() {
		return models.Beneficiary{}, ErrInvalid
	}
	if b.LoanStage != "" && !b.LoanStage.Valid() {
		return models.Beneficiary{}, ErrInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if _, ok := r.items[b.ID]; ok {
		return models.Beneficiary{}, ErrConflict
	}
	if b.UserID != nil {
		for _, existing := range r.items {
			if existing.UserID != nil && *existing.UserID == *b.UserID {
				return models.Beneficiary{}, ErrConflict
			}
		}
	}

	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	if b.LoanStage == "" {
		b.LoanStage = models.LoanStageRegistered
	}
	if b.Insights == nil {
		b.Insights = []string{}
	}

	r.items[b.ID] = b
	r.order = append(r.order, b.ID)
	return b, nil
}

// GetByID возвращает профиль по идентификатору.
func (r *BeneficiaryRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Beneficiary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.items[id]
	if !ok {
		return models.Beneficiary{}, ErrNotFound
	}
	return b, nil
}

// GetByUserID возвращает профиль, привязанный к аккаунту.
func (r *BeneficiaryRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (models.Beneficiary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		b := r.items[id]
		if b.UserID != nil && *b.UserID == userID {
			return b, nil
		}
	}
	return models.Beneficiary{}, ErrNotFound
}

// List возвращает профили в порядке добавления с фильтрацией.
func (r *BeneficiaryRepository) List(ctx context.Context, filter BeneficiaryFilter) ([]models.Beneficiary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	out := make([]models.Beneficiary, 0, len(r.order))
	for _, id := range r.order {
		b := r.items[id]
		if filter.Risk != nil && (b.Risk == nil || *b.Risk != *filter.Risk) {
			continue
		}
		if filter.Stage != nil && b.LoanStage != *filter.Stage {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(b.Name), query) && !strings.Contains(strings.ToLower(b.Region), query) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// UpdateStage меняет стадию займа после проверки сотрудником.
func (r *BeneficiaryRepository) UpdateStage(ctx context.Context, id uuid.UUID, stage models.LoanStage, note string, reviewer uuid.UUID) (models.Beneficiary, error) {
	if !stage.Valid() {
		return models.Beneficiary{}, ErrInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.items[id]
	if !ok {
		return models.Beneficiary{}, ErrNotFound
	}

	b.LoanStage = stage
	b.StageNote = strings.TrimSpace(note)
	b.ReviewedBy = &reviewer
	b.UpdatedAt = time.Now().UTC()
	r.items[id] = b
	return b, nil
}

// Advice возвращает советы по финансовой грамотности для кабинета заемщика.
func (r *BeneficiaryRepository) Advice(ctx context.Context) []models.Advice {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Advice, len(r.advice))
	copy(out, r.advice)
	return out
}

// Stats считает статистику портфеля. Суммы считаются в decimal.
func (r *BeneficiaryRepository) Stats(ctx context.Context) (models.PortfolioStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := models.PortfolioStats{LoanStages: make(map[models.LoanStage]int)}
	riskCounts := make(map[models.RiskLevel]int)
	scoreSum := decimal.Zero
	loanSum := decimal.Zero
	scored := 0
	defaulted := 0

	for _, id := range r.order {
		b := r.items[id]
		stats.TotalBeneficiaries++
		stats.LoanStages[b.LoanStage]++
		loanSum = loanSum.Add(decimal.NewFromFloat(b.LoanAmount))

		switch b.LoanStage {
		case models.LoanStageActive:
			stats.ActiveLoans++
		case models.LoanStageDefaulted:
			defaulted++
		}

		if b.Score != nil {
			scoreSum = scoreSum.Add(decimal.NewFromInt(int64(*b.Score)))
			scored++
		}
		if b.Risk != nil {
			riskCounts[*b.Risk]++
		}
	}

	if scored > 0 {
		stats.AverageScore, _ = scoreSum.Div(decimal.NewFromInt(int64(scored))).Round(1).Float64()
	}
	if stats.TotalBeneficiaries > 0 {
		stats.DefaultRate, _ = decimal.NewFromInt(int64(defaulted)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(stats.TotalBeneficiaries))).
			Round(1).
			Float64()
	}
	stats.TotalLoanAmount = loanSum.StringFixed(2)

	riskTotal := 0
	for _, count := range riskCounts {
		riskTotal += count
	}
	for _, risk := range []models.RiskLevel{models.RiskLow, models.RiskMedium, models.RiskHigh} {
		share := models.RiskShare{Risk: risk, Count: riskCounts[risk]}
		if riskTotal > 0 {
			share.Percent, _ = decimal.NewFromInt(int64(share.Count)).
				Mul(decimal.NewFromInt(100)).
				Div(decimal.NewFromInt(int64(riskTotal))).
				Round(1).
				Float64()
		}
		stats.RiskDistribution = append(stats.RiskDistribution, share)
	}

	return stats, nil
}

// SortByScore упорядочивает профили по убыванию оценки, без оценки в конце.
func SortByScore(items []models.Beneficiary) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Score, items[j].Score
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
}
