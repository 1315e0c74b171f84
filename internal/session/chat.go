package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/flows"
)

type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

const (
	Greeting = "Hello! I'm Nidhi, your financial literacy assistant. How can I help you today?"
	Apology  = "Sorry, I encountered an error. Please try again later."
)

var ErrEmptyQuestion = errors.New("question must not be empty")

type ChatTurn struct {
	Role    ChatRole  `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Assistant is satisfied by *flows.FinancialLiteracy.
type Assistant interface {
	Invoke(ctx context.Context, input flows.LiteracyQuestion) (flows.LiteracyAnswer, error)
}

// Transcript возвращает копию переписки с ассистентом.
func (s *Session) Transcript() []ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatTurn, len(s.chat))
	copy(out, s.chat)
	return out
}

// Ask добавляет вопрос в переписку и ответ ассистента либо извинение при ошибке.
// Модели передается только текущий вопрос.
func (s *Session) Ask(ctx context.Context, assistant Assistant, question string) (ChatTurn, error) {
	if strings.TrimSpace(question) == "" {
		return ChatTurn{}, ErrEmptyQuestion
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ChatTurn{}, ErrBusy
	}
	s.busy = true
	s.chat = append(s.chat, ChatTurn{Role: RoleUser, Content: question, At: s.now().UTC()})
	s.mu.Unlock()

	answer, err := assistant.Invoke(ctx, flows.LiteracyQuestion{Question: question})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false

	turn := ChatTurn{Role: RoleAssistant, Content: answer.Answer, At: s.now().UTC()}
	if err != nil {
		turn.Content = Apology
	}
	s.chat = append(s.chat, turn)
	return turn, err
}
