package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// GroqClient calls the Groq OpenAI-compatible chat completions API.
type GroqClient struct {
	apiKey    string
	model     string
	maxTokens int
	client    *resty.Client
}

type groqChatRequest struct {
	Model          string              `json:"model"`
	Messages       []groqMessage       `json:"messages"`
	Temperature    float64             `json:"temperature,omitempty"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	ResponseFormat *groqResponseFormat `json:"response_format,omitempty"`
}

// groqMessage.Content is either a plain string or a list of groqContentPart.
type groqMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type groqContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *groqImageURL `json:"image_url,omitempty"`
}

type groqImageURL struct {
	URL string `json:"url"`
}

type groqResponseFormat struct {
	Type string `json:"type"`
}

type groqChatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type groqErrorResponse struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewGroqClient создает клиент Groq с заданными параметрами.
func NewGroqClient(apiKey, baseURL, model string, timeout time.Duration, maxTokens int) *GroqClient {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")

	return &GroqClient{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		client:    client,
	}
}

// Chat отправляет промпт в Groq и возвращает текст ответа и сырой ответ API.
func (c *GroqClient) Chat(ctx context.Context, req Request) (string, []byte, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", nil, errors.New("groq api key is missing")
	}

	messages := make([]groqMessage, 0, 2)
	if system := strings.TrimSpace(req.System); system != "" {
		messages = append(messages, groqMessage{Role: "system", Content: system})
	}

	if len(req.Media) == 0 {
		messages = append(messages, groqMessage{Role: "user", Content: req.Prompt})
	} else {
		parts := []groqContentPart{{Type: "text", Text: req.Prompt}}
		for _, media := range req.Media {
			parts = append(parts, groqContentPart{
				Type:     "image_url",
				ImageURL: &groqImageURL{URL: "data:" + media.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(media.Data)},
			})
		}
		messages = append(messages, groqMessage{Role: "user", Content: parts})
	}

	reqBody := groqChatRequest{
		Model:          c.model,
		Messages:       messages,
		Temperature:    0.2,
		MaxTokens:      resolveMaxTokens(c.maxTokens),
		ResponseFormat: &groqResponseFormat{Type: "json_object"},
	}

	var parsed groqChatResponse
	var apiErr groqErrorResponse
	response, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetBody(reqBody).
		SetResult(&parsed).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		return "", nil, err
	}

	body := response.Body()
	if response.IsError() {
		if apiErr.Error != nil {
			return "", body, fmt.Errorf("groq api error (%d): %s", response.StatusCode(), apiErr.Error.Message)
		}
		return "", body, fmt.Errorf("groq api error (%d): %s", response.StatusCode(), strings.TrimSpace(string(body)))
	}

	if len(parsed.Choices) == 0 {
		return "", body, fmt.Errorf("groq response missing choices: %w", ErrEmptyResponse)
	}

	content := parsed.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", body, fmt.Errorf("groq response missing content: %w", ErrEmptyResponse)
	}

	return content, body, nil
}
