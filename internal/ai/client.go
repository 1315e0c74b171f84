package ai

import (
	"context"
	"errors"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/schema"
)

const defaultMaxTokens = 2048

// ErrEmptyResponse means the model answered without any content.
var ErrEmptyResponse = errors.New("model returned an empty response")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Media is inline binary content attached to the user turn (bill photos).
type Media struct {
	MIMEType string
	Data     []byte
}

type Request struct {
	System string
	Prompt string
	Media  []Media
	// Schema, если задана, передается провайдеру как ограничение ответа.
	Schema *schema.Schema
}

// Client возвращает текст ответа модели и сырой ответ API.
type Client interface {
	Chat(ctx context.Context, req Request) (string, []byte, error)
}

func resolveMaxTokens(value int) int {
	if value > 0 {
		return value
	}

	return defaultMaxTokens
}
