package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/schema"
)

// GenAIClient calls Gemini through the official Google GenAI SDK.
type GenAIClient struct {
	client    *genai.Client
	model     string
	timeout   time.Duration
	maxTokens int
}

// NewGenAIClient создает клиент SDK. Без ключа клиент создается, но каждый вызов завершится ошибкой.
func NewGenAIClient(ctx context.Context, apiKey, baseURL, model string, timeout time.Duration, maxTokens int) (*GenAIClient, error) {
	out := &GenAIClient{model: model, timeout: timeout, maxTokens: maxTokens}
	if strings.TrimSpace(apiKey) == "" {
		return out, nil
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	out.client = client

	return out, nil
}

// Chat отправляет промпт и изображения через SDK и возвращает текст ответа и сериализованный ответ.
func (c *GenAIClient) Chat(ctx context.Context, req Request) (string, []byte, error) {
	if c.client == nil {
		return "", nil, errors.New("genai api key is missing")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	parts := make([]*genai.Part, 0, len(req.Media)+1)
	if text := strings.TrimSpace(req.Prompt); text != "" {
		parts = append(parts, genai.NewPartFromText(text))
	}
	for _, media := range req.Media {
		parts = append(parts, genai.NewPartFromBytes(media.Data, media.MIMEType))
	}

	if len(parts) == 0 {
		return "", nil, errors.New("genai request has no user content")
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.2),
		MaxOutputTokens:  int32(resolveMaxTokens(c.maxTokens)),
		ResponseMIMEType: "application/json",
	}
	if system := strings.TrimSpace(req.System); system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.Schema != nil {
		config.ResponseSchema = toGenAISchema(req.Schema.Root())
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", nil, fmt.Errorf("genai generate content: %w", err)
	}

	raw, _ := json.Marshal(result)

	if len(result.Candidates) == 0 {
		return "", raw, fmt.Errorf("genai response missing candidates: %w", ErrEmptyResponse)
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", raw, fmt.Errorf("genai response missing content: %w", ErrEmptyResponse)
	}

	return text, raw, nil
}

func toGenAISchema(field schema.Field) *genai.Schema {
	out := &genai.Schema{Description: field.Description}

	switch field.Kind {
	case schema.KindString:
		out.Type = genai.TypeString
	case schema.KindEnum:
		out.Type = genai.TypeString
		out.Format = "enum"
		out.Enum = field.Enum
	case schema.KindNumber:
		out.Type = genai.TypeNumber
		out.Minimum = field.Min
		out.Maximum = field.Max
	case schema.KindInteger:
		out.Type = genai.TypeInteger
		out.Minimum = field.Min
		out.Maximum = field.Max
	case schema.KindArray:
		out.Type = genai.TypeArray
		if field.Items != nil {
			out.Items = toGenAISchema(*field.Items)
		}
	case schema.KindObject:
		out.Type = genai.TypeObject
		out.Properties = make(map[string]*genai.Schema, len(field.Fields))
		for _, child := range field.Fields {
			out.Properties[child.Name] = toGenAISchema(child)
			out.PropertyOrdering = append(out.PropertyOrdering, child.Name)
			if child.Required {
				out.Required = append(out.Required, child.Name)
			}
		}
	}

	return out
}
