package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/flows"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/models"
)

type flowRecorder struct {
	log   AIRequestLog
	model string
}

// NewFlowRecorder пишет трассы флоу в журнал AI-запросов.
func NewFlowRecorder(log AIRequestLog, model string) flows.Recorder {
	return &flowRecorder{log: log, model: model}
}

func (r *flowRecorder) Record(ctx context.Context, trace flows.Trace) error {
	req := models.AIRequest{
		Flow:            trace.Flow,
		Provider:        trace.Provider,
		Model:           r.model,
		Prompt:          trace.Prompt,
		RequestPayload:  trace.Input,
		ResponsePayload: trace.Output,
		Success:         trace.ErrorKind == "",
		LatencyMS:       trace.Latency.Milliseconds(),
		CreatedAt:       trace.StartedAt.UTC(),
	}

	if !json.Valid(req.ResponsePayload) {
		req.ResponsePayload = nil
	}
	if id, err := uuid.Parse(trace.Actor); err == nil {
		req.UserID = &id
	}
	if len(trace.Raw) > 0 {
		raw := string(trace.Raw)
		req.RawResponse = &raw
	}
	if trace.ErrorKind != "" {
		kind := trace.ErrorKind
		req.ErrorKind = &kind
	}
	if trace.Error != "" {
		msg := trace.Error
		req.ErrorMessage = &msg
	}

	return r.log.LogRequest(ctx, req)
}
