package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/schema"
)

// GeminiClient calls the Google Generative Language REST API (Gemini).
type GeminiClient struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  *geminiConfig   `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiConfig struct {
	Temperature      float64       `json:"temperature,omitempty"`
	MaxOutputTokens  int           `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string        `json:"responseMimeType,omitempty"`
	ResponseSchema   *geminiSchema `json:"responseSchema,omitempty"`
}

type geminiSchema struct {
	Type        string                   `json:"type"`
	Description string                   `json:"description,omitempty"`
	Enum        []string                 `json:"enum,omitempty"`
	Format      string                   `json:"format,omitempty"`
	Properties  map[string]*geminiSchema `json:"properties,omitempty"`
	Required    []string                 `json:"required,omitempty"`
	Items       *geminiSchema            `json:"items,omitempty"`
	Minimum     *float64                 `json:"minimum,omitempty"`
	Maximum     *float64                 `json:"maximum,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewGeminiClient создает клиент Gemini с заданными параметрами.
func NewGeminiClient(apiKey, baseURL, model string, timeout time.Duration, maxTokens int) *GeminiClient {
	trimmedURL := strings.TrimRight(baseURL, "/")
	return &GeminiClient{
		apiKey:    apiKey,
		baseURL:   trimmedURL,
		model:     model,
		maxTokens: maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Chat отправляет промпт и вложения в Gemini и возвращает текст ответа и сырой ответ API.
func (c *GeminiClient) Chat(ctx context.Context, req Request) (string, []byte, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", nil, errors.New("gemini api key is missing")
	}

	parts := make([]geminiPart, 0, len(req.Media)+1)
	if text := strings.TrimSpace(req.Prompt); text != "" {
		parts = append(parts, geminiPart{Text: text})
	}
	for _, media := range req.Media {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: media.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(media.Data),
		}})
	}

	if len(parts) == 0 {
		return "", nil, errors.New("gemini request has no user content")
	}

	request := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiConfig{
			Temperature:      0.2,
			MaxOutputTokens:  resolveMaxTokens(c.maxTokens),
			ResponseMimeType: "application/json",
		},
	}

	if req.Schema != nil {
		request.GenerationConfig.ResponseSchema = toGeminiSchema(req.Schema.Root())
	}

	if system := strings.TrimSpace(req.System); system != "" {
		request.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return "", nil, err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	response, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", nil, err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", nil, err
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		var apiErr geminiResponse
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != nil {
			return "", body, fmt.Errorf("gemini api error (%d): %s", response.StatusCode, apiErr.Error.Message)
		}
		return "", body, fmt.Errorf("gemini api error (%d): %s", response.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", body, err
	}

	if len(parsed.Candidates) == 0 {
		return "", body, fmt.Errorf("gemini response missing candidates: %w", ErrEmptyResponse)
	}

	var builder strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		builder.WriteString(part.Text)
	}

	if strings.TrimSpace(builder.String()) == "" {
		return "", body, fmt.Errorf("gemini response missing content: %w", ErrEmptyResponse)
	}

	return builder.String(), body, nil
}

func toGeminiSchema(field schema.Field) *geminiSchema {
	out := &geminiSchema{Description: field.Description}

	switch field.Kind {
	case schema.KindString:
		out.Type = "STRING"
	case schema.KindEnum:
		out.Type = "STRING"
		out.Format = "enum"
		out.Enum = field.Enum
	case schema.KindNumber:
		out.Type = "NUMBER"
		out.Minimum = field.Min
		out.Maximum = field.Max
	case schema.KindInteger:
		out.Type = "INTEGER"
		out.Minimum = field.Min
		out.Maximum = field.Max
	case schema.KindArray:
		out.Type = "ARRAY"
		if field.Items != nil {
			out.Items = toGeminiSchema(*field.Items)
		}
	case schema.KindObject:
		out.Type = "OBJECT"
		out.Properties = make(map[string]*geminiSchema, len(field.Fields))
		for _, child := range field.Fields {
			out.Properties[child.Name] = toGeminiSchema(child)
			if child.Required {
				out.Required = append(out.Required, child.Name)
			}
		}
	}

	return out
}
