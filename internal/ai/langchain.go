package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChainClient calls OpenAI-compatible chat models through LangChainGo.
type LangChainClient struct {
	llm       llms.Model
	timeout   time.Duration
	maxTokens int
}

// NewLangChainClient создает клиент LangChainGo поверх OpenAI API.
func NewLangChainClient(apiKey, baseURL, model string, timeout time.Duration, maxTokens int) (*LangChainClient, error) {
	out := &LangChainClient{timeout: timeout, maxTokens: maxTokens}
	if strings.TrimSpace(apiKey) == "" {
		return out, nil
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai llm: %w", err)
	}
	out.llm = llm

	return out, nil
}

// Chat отправляет промпт и изображения через LangChainGo.
func (c *LangChainClient) Chat(ctx context.Context, req Request) (string, []byte, error) {
	if c.llm == nil {
		return "", nil, errors.New("openai api key is missing")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	messages := make([]llms.MessageContent, 0, 2)
	if system := strings.TrimSpace(req.System); system != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}

	parts := []llms.ContentPart{llms.TextContent{Text: req.Prompt}}
	for _, media := range req.Media {
		uri := "data:" + media.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(media.Data)
		parts = append(parts, llms.ImageURLContent{URL: uri})
	}
	messages = append(messages, llms.MessageContent{Role: llms.ChatMessageTypeHuman, Parts: parts})

	response, err := c.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(0.2),
		llms.WithMaxTokens(resolveMaxTokens(c.maxTokens)),
		llms.WithJSONMode(),
	)
	if err != nil {
		return "", nil, fmt.Errorf("openai generate content: %w", err)
	}

	raw, _ := json.Marshal(response)

	if len(response.Choices) == 0 {
		return "", raw, fmt.Errorf("openai response missing choices: %w", ErrEmptyResponse)
	}

	content := response.Choices[0].Content
	if strings.TrimSpace(content) == "" {
		return "", raw, fmt.Errorf("openai response missing content: %w", ErrEmptyResponse)
	}

	return content, raw, nil
}
