// Package flows runs schema-checked model invocations: validate input, render
// the prompt, call the model, validate and decode the answer.
package flows

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/ai"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/schema"
)

const systemPrompt = "Respond with a single JSON object only, without code fences or extra text."

// Definition describes one flow: its schemas, prompt template and media extraction.
type Definition[I, O any] struct {
	Name   string
	Input  *schema.Schema
	Output *schema.Schema
	// Template получает promptData{Input, OutputSchema}.
	Template *template.Template
	// Media достает вложения (фото чека) из проверенного входа.
	Media func(I) ([]ai.Media, error)
	// Redact убирает тяжелые поля из входа перед записью в аудит.
	Redact func(I) I
}

// Trace is the audit record of one model call.
type Trace struct {
	Flow      string
	Provider  string
	Actor     string
	Prompt    string
	Input     json.RawMessage
	Output    json.RawMessage
	Raw       []byte
	StartedAt time.Time
	Latency   time.Duration
	ErrorKind string
	Error     string
}

// Recorder stores traces, e.g. the AI request audit log.
type Recorder interface {
	Record(ctx context.Context, trace Trace) error
}

type Options struct {
	Provider string
	Recorder Recorder
	Logger   *slog.Logger
}

type Flow[I, O any] struct {
	def      Definition[I, O]
	client   ai.Client
	provider string
	recorder Recorder
	logger   *slog.Logger
}

type promptData[I any] struct {
	Input        I
	OutputSchema string
}

// New создает флоу поверх клиента модели.
func New[I, O any](def Definition[I, O], client ai.Client, opts Options) *Flow[I, O] {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Flow[I, O]{
		def:      def,
		client:   client,
		provider: opts.Provider,
		recorder: opts.Recorder,
		logger:   logger,
	}
}

// Name возвращает имя флоу.
func (f *Flow[I, O]) Name() string {
	return f.def.Name
}

// Invoke проверяет типизированный вход и вызывает модель.
func (f *Flow[I, O]) Invoke(ctx context.Context, input I) (O, error) {
	var zero O

	payload, err := json.Marshal(input)
	if err != nil {
		return zero, fmt.Errorf("%s: encode input: %w", f.def.Name, err)
	}

	return f.InvokeRaw(ctx, payload)
}

// InvokeRaw проверяет сырой JSON-кандидат по входной схеме и вызывает модель.
// Невалидный вход возвращает InputValidationError без обращения к модели.
func (f *Flow[I, O]) InvokeRaw(ctx context.Context, raw []byte) (O, error) {
	var zero O

	var candidate any
	if err := json.Unmarshal(raw, &candidate); err != nil {
		return zero, &InputValidationError{
			Flow:       f.def.Name,
			Violations: []schema.Violation{{Constraint: schema.ConstraintType, Message: "input must be a JSON object"}},
		}
	}

	if violations := f.def.Input.Validate(candidate); len(violations) > 0 {
		return zero, &InputValidationError{Flow: f.def.Name, Violations: violations}
	}

	var input I
	if err := json.Unmarshal(raw, &input); err != nil {
		return zero, &InputValidationError{
			Flow:       f.def.Name,
			Violations: []schema.Violation{{Constraint: schema.ConstraintType, Message: err.Error()}},
		}
	}

	return f.call(ctx, input)
}

func (f *Flow[I, O]) call(ctx context.Context, input I) (O, error) {
	var zero O

	prompt, err := f.render(input)
	if err != nil {
		return zero, err
	}

	var media []ai.Media
	if f.def.Media != nil {
		media, err = f.def.Media(input)
		if err != nil {
			return zero, &InputValidationError{
				Flow:       f.def.Name,
				Violations: []schema.Violation{{Constraint: schema.ConstraintFormat, Message: err.Error()}},
			}
		}
	}

	trace := Trace{
		Flow:      f.def.Name,
		Provider:  f.provider,
		Actor:     ActorFromContext(ctx),
		Prompt:    prompt,
		Input:     f.traceInput(input),
		StartedAt: time.Now().UTC(),
	}

	content, raw, err := f.client.Chat(ctx, ai.Request{
		System: systemPrompt,
		Prompt: prompt,
		Media:  media,
		Schema: f.def.Output,
	})
	trace.Raw = raw
	trace.Latency = time.Since(trace.StartedAt)

	var output O
	if err != nil {
		if errors.Is(err, ai.ErrEmptyResponse) {
			err = &OutputValidationError{Flow: f.def.Name, Cause: err}
		} else {
			err = &UpstreamUnavailableError{Flow: f.def.Name, Cause: err}
		}
	} else {
		output, err = f.decode(content, &trace)
	}

	f.finish(ctx, &trace, err)
	if err != nil {
		return zero, err
	}

	return output, nil
}

func (f *Flow[I, O]) render(input I) (string, error) {
	var buf bytes.Buffer
	data := promptData[I]{Input: input, OutputSchema: f.def.Output.Describe()}
	if err := f.def.Template.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%s: render prompt: %w", f.def.Name, err)
	}

	return strings.TrimSpace(buf.String()), nil
}

func (f *Flow[I, O]) decode(content string, trace *Trace) (O, error) {
	var zero O

	payload := ai.ExtractJSON(content)
	if payload == "" {
		return zero, &OutputValidationError{Flow: f.def.Name, Cause: errors.New("response does not contain json")}
	}
	trace.Output = json.RawMessage(payload)

	var candidate any
	if err := json.Unmarshal([]byte(payload), &candidate); err != nil {
		return zero, &OutputValidationError{Flow: f.def.Name, Cause: err}
	}

	if violations := f.def.Output.Validate(candidate); len(violations) > 0 {
		return zero, &OutputValidationError{Flow: f.def.Name, Violations: violations}
	}

	var output O
	if err := json.Unmarshal([]byte(payload), &output); err != nil {
		return zero, &OutputValidationError{Flow: f.def.Name, Cause: err}
	}

	return output, nil
}

func (f *Flow[I, O]) traceInput(input I) json.RawMessage {
	if f.def.Redact != nil {
		input = f.def.Redact(input)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(input); err != nil {
		return nil
	}
	return bytes.TrimRight(buf.Bytes(), "\n")
}

func (f *Flow[I, O]) finish(ctx context.Context, trace *Trace, err error) {
	attrs := []slog.Attr{
		slog.String("flow", trace.Flow),
		slog.String("provider", trace.Provider),
		slog.Duration("latency", trace.Latency),
		slog.Bool("success", err == nil),
	}
	if trace.Actor != "" {
		attrs = append(attrs, slog.String("actor", trace.Actor))
	}

	if err != nil {
		trace.ErrorKind = ErrorKind(err)
		trace.Error = err.Error()
		attrs = append(attrs, slog.String("error_kind", trace.ErrorKind), slog.String("error", trace.Error))
		f.logger.LogAttrs(ctx, slog.LevelWarn, "ai flow failed", attrs...)
	} else {
		f.logger.LogAttrs(ctx, slog.LevelInfo, "ai flow completed", attrs...)
	}

	if f.recorder == nil {
		return
	}
	if recErr := f.recorder.Record(context.WithoutCancel(ctx), *trace); recErr != nil {
		f.logger.Warn("ai trace not recorded", slog.String("flow", trace.Flow), slog.String("error", recErr.Error()))
	}
}

type actorKey struct{}

// WithActor помечает контекст идентификатором пользователя для аудита.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext возвращает идентификатор пользователя из контекста.
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}
