package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/models"
)

// AIRequestLog is the audit log of model calls made by the flows.
type AIRequestLog interface {
	LogRequest(ctx context.Context, req models.AIRequest) error
	ListAIRequests(ctx context.Context, filter AIRequestFilter, limit, offset int, includePayloads bool) ([]models.AIRequest, error)
	CountAIRequests(ctx context.Context, filter AIRequestFilter) (int, error)
	UsageStats(ctx context.Context, days int) (UsageStats, error)
}

type AIRequestFilter struct {
	UserID  *uuid.UUID
	Success *bool
	Flow    *string
}

type DailyCount struct {
	Day   time.Time `json:"day"`
	Count int       `json:"count"`
}

type UsageStats struct {
	AIRequests      int                `json:"ai_requests"`
	AISuccess       int                `json:"ai_success"`
	AIFail          int                `json:"ai_fail"`
	ByFlow          []models.FlowUsage `json:"by_flow"`
	AIRequestsByDay []DailyCount       `json:"ai_requests_by_day"`
}

// AIRepository stores the audit log in Postgres.
type AIRepository struct {
	db *pgxpool.Pool
}

// NewAIRepository создает репозиторий для AI-запросов.
func NewAIRepository(db *pgxpool.Pool) *AIRepository {
	return &AIRepository{db: db}
}

// LogRequest сохраняет лог AI-запроса.
func (r *AIRepository) LogRequest(ctx context.Context, req models.AIRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO ai_requests
		 (id, user_id, flow, provider, model, prompt, request_payload, response_payload, raw_response, success, error_kind, error_message, latency_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::jsonb, NULLIF($8, '')::jsonb, $9, $10, $11, $12, $13, $14)`,
		req.ID,
		req.UserID,
		req.Flow,
		req.Provider,
		req.Model,
		req.Prompt,
		string(req.RequestPayload),
		string(req.ResponsePayload),
		req.RawResponse,
		req.Success,
		req.ErrorKind,
		req.ErrorMessage,
		req.LatencyMS,
		req.CreatedAt,
	)
	return err
}

// ListAIRequests возвращает логи AI-запросов с фильтрацией.
func (r *AIRepository) ListAIRequests(ctx context.Context, filter AIRequestFilter, limit, offset int, includePayloads bool) ([]models.AIRequest, error) {
	where, args := buildAIRequestWhere(filter)

	columns := "id, user_id, flow, provider, model, success, error_kind, error_message, latency_ms, created_at"
	if includePayloads {
		columns = "id, user_id, flow, provider, model, success, error_kind, error_message, latency_ms, created_at, prompt, request_payload, response_payload, raw_response"
	}

	limitParam := len(args) + 1
	offsetParam := len(args) + 2
	query := fmt.Sprintf("SELECT %s FROM ai_requests%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d", columns, where, limitParam, offsetParam)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]models.AIRequest, 0)
	for rows.Next() {
		var record models.AIRequest
		dest := []any{
			&record.ID,
			&record.UserID,
			&record.Flow,
			&record.Provider,
			&record.Model,
			&record.Success,
			&record.ErrorKind,
			&record.ErrorMessage,
			&record.LatencyMS,
			&record.CreatedAt,
		}
		var requestPayload, responsePayload []byte
		if includePayloads {
			dest = append(dest, &record.Prompt, &requestPayload, &responsePayload, &record.RawResponse)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		record.RequestPayload = requestPayload
		record.ResponsePayload = responsePayload
		requests = append(requests, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return requests, nil
}

// CountAIRequests возвращает количество AI-запросов по фильтру.
func (r *AIRepository) CountAIRequests(ctx context.Context, filter AIRequestFilter) (int, error) {
	where, args := buildAIRequestWhere(filter)

	query := fmt.Sprintf("SELECT COUNT(*) FROM ai_requests%s", where)
	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// UsageStats возвращает агрегированную статистику за N дней.
func (r *AIRepository) UsageStats(ctx context.Context, days int) (UsageStats, error) {
	stats := UsageStats{}
	if days <= 0 {
		return stats, ErrInvalid
	}

	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE success),
		        COUNT(*) FILTER (WHERE NOT success)
		 FROM ai_requests`,
	).Scan(&stats.AIRequests, &stats.AISuccess, &stats.AIFail); err != nil {
		return stats, err
	}

	flowRows, err := r.db.Query(ctx,
		`SELECT flow,
		        COUNT(*),
		        COUNT(*) FILTER (WHERE NOT success),
		        COALESCE(AVG(latency_ms), 0)::float8,
		        MAX(created_at)
		 FROM ai_requests
		 GROUP BY flow
		 ORDER BY flow`,
	)
	if err != nil {
		return stats, err
	}
	defer flowRows.Close()

	stats.ByFlow = make([]models.FlowUsage, 0)
	for flowRows.Next() {
		var row models.FlowUsage
		if err := flowRows.Scan(&row.Flow, &row.Requests, &row.Failures, &row.AvgLatency, &row.LastRequest); err != nil {
			return stats, err
		}
		stats.ByFlow = append(stats.ByFlow, row)
	}
	if err := flowRows.Err(); err != nil {
		return stats, err
	}

	start := startOfWindow(time.Now().UTC(), days)
	rows, err := r.db.Query(ctx,
		`SELECT date_trunc('day', created_at)::date AS day,
		        COUNT(*)
		 FROM ai_requests
		 WHERE created_at >= $1
		 GROUP BY day
		 ORDER BY day DESC`,
		start,
	)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	stats.AIRequestsByDay = make([]DailyCount, 0)
	for rows.Next() {
		var row DailyCount
		if err := rows.Scan(&row.Day, &row.Count); err != nil {
			return stats, err
		}
		stats.AIRequestsByDay = append(stats.AIRequestsByDay, row)
	}

	if err := rows.Err(); err != nil {
		return stats, err
	}

	return stats, nil
}

func buildAIRequestWhere(filter AIRequestFilter) (string, []any) {
	clauses := make([]string, 0)
	args := make([]any, 0)

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id = $%d", len(args)))
	}

	if filter.Success != nil {
		args = append(args, *filter.Success)
		clauses = append(clauses, fmt.Sprintf("success = $%d", len(args)))
	}

	if filter.Flow != nil {
		args = append(args, *filter.Flow)
		clauses = append(clauses, fmt.Sprintf("flow = $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

func startOfWindow(now time.Time, days int) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -days+1)
}
