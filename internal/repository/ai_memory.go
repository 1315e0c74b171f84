package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/models"
)

// MemoryAIRepository keeps the audit log in process memory, newest last.
type MemoryAIRepository struct {
	mu       sync.RWMutex
	requests []models.AIRequest
	now      func() time.Time
}

// NewMemoryAIRepository создает журнал AI-запросов в памяти.
func NewMemoryAIRepository() *MemoryAIRepository {
	return &MemoryAIRepository{now: func() time.Time { return time.Now().UTC() }}
}

// LogRequest сохраняет лог AI-запроса.
func (r *MemoryAIRepository) LogRequest(ctx context.Context, req models.AIRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = r.now()
	}
	r.requests = append(r.requests, req)
	return nil
}

func (r *MemoryAIRepository) matching(filter AIRequestFilter) []models.AIRequest {
	out := make([]models.AIRequest, 0)
	for i := len(r.requests) - 1; i >= 0; i-- {
		req := r.requests[i]
		if filter.UserID != nil && (req.UserID == nil || *req.UserID != *filter.UserID) {
			continue
		}
		if filter.Success != nil && req.Success != *filter.Success {
			continue
		}
		if filter.Flow != nil && req.Flow != *filter.Flow {
			continue
		}
		out = append(out, req)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// ListAIRequests возвращает логи AI-запросов с фильтрацией, новые первыми.
func (r *MemoryAIRepository) ListAIRequests(ctx context.Context, filter AIRequestFilter, limit, offset int, includePayloads bool) ([]models.AIRequest, error) {
	if limit < 0 || offset < 0 {
		return nil, ErrInvalid
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.matching(filter)
	if offset >= len(all) {
		return []models.AIRequest{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	page := make([]models.AIRequest, 0, end-offset)
	for _, req := range all[offset:end] {
		if !includePayloads {
			req.Prompt = ""
			req.RequestPayload = nil
			req.ResponsePayload = nil
			req.RawResponse = nil
		}
		page = append(page, req)
	}
	return page, nil
}

// CountAIRequests возвращает количество AI-запросов по фильтру.
func (r *MemoryAIRepository) CountAIRequests(ctx context.Context, filter AIRequestFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.matching(filter)), nil
}

// UsageStats возвращает агрегированную статистику за N дней.
func (r *MemoryAIRepository) UsageStats(ctx context.Context, days int) (UsageStats, error) {
	stats := UsageStats{}
	if days <= 0 {
		return stats, ErrInvalid
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	start := startOfWindow(r.now(), days)
	byFlow := make(map[string]*models.FlowUsage)
	latency := make(map[string]int64)
	byDay := make(map[time.Time]int)

	for _, req := range r.requests {
		stats.AIRequests++
		if req.Success {
			stats.AISuccess++
		} else {
			stats.AIFail++
		}

		usage, ok := byFlow[req.Flow]
		if !ok {
			usage = &models.FlowUsage{Flow: req.Flow}
			byFlow[req.Flow] = usage
		}
		usage.Requests++
		if !req.Success {
			usage.Failures++
		}
		latency[req.Flow] += req.LatencyMS
		if usage.LastRequest == nil || req.CreatedAt.After(*usage.LastRequest) {
			at := req.CreatedAt
			usage.LastRequest = &at
		}

		if !req.CreatedAt.Before(start) {
			created := req.CreatedAt.UTC()
			byDay[time.Date(created.Year(), created.Month(), created.Day(), 0, 0, 0, 0, time.UTC)]++
		}
	}

	stats.ByFlow = make([]models.FlowUsage, 0, len(byFlow))
	for name, usage := range byFlow {
		usage.AvgLatency = float64(latency[name]) / float64(usage.Requests)
		stats.ByFlow = append(stats.ByFlow, *usage)
	}
	sort.Slice(stats.ByFlow, func(i, j int) bool {
		return stats.ByFlow[i].Flow < stats.ByFlow[j].Flow
	})

	stats.AIRequestsByDay = make([]DailyCount, 0, len(byDay))
	for day, count := range byDay {
		stats.AIRequestsByDay = append(stats.AIRequestsByDay, DailyCount{Day: day, Count: count})
	}
	sort.Slice(stats.AIRequestsByDay, func(i, j int) bool {
		return stats.AIRequestsByDay[i].Day.After(stats.AIRequestsByDay[j].Day)
	})

	return stats, nil
}
