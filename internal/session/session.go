// Package session holds per-user interaction state: the bill capture cycle,
// confirmed bills and the assistant chat transcript.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/flows"
	"github.com/Kartikeya-G121/SIH-CreditScore/internal/models"
)

type Kind string

const (
	KindRegistration Kind = "registration"
	KindUser         Kind = "user"
)

// ErrBusy is returned while another model call of the same session is in flight.
var ErrBusy = errors.New("another request is still in progress")

// BillParser is satisfied by *flows.BillParsing.
type BillParser interface {
	Invoke(ctx context.Context, input flows.BillParseRequest) (flows.BillParseResult, error)
}

type Session struct {
	ID        uuid.UUID
	Kind      Kind
	CreatedAt time.Time

	mu        sync.Mutex
	user      *models.User
	capture   *Capture
	chat      []ChatTurn
	busy      bool
	expiresAt time.Time
	now       func() time.Time
}

func newSession(kind Kind, user *models.User, capture CaptureOptions, now func() time.Time) *Session {
	created := now().UTC()
	s := &Session{
		ID:        uuid.New(),
		Kind:      kind,
		CreatedAt: created,
		capture:   NewCapture(capture),
		chat:      []ChatTurn{{Role: RoleAssistant, Content: Greeting, At: created}},
		now:       now,
	}
	s.capture.now = now
	if user != nil {
		snapshot := *user
		s.user = &snapshot
	}
	return s
}

// User возвращает снимок пользователя сессии.
func (s *Session) User() (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

// SetUser привязывает сессию к пользователю, например после регистрации.
func (s *Session) SetUser(user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &user
}

// Acquire занимает слот вызова модели. Вызывающий обязан вызвать release.
func (s *Session) Acquire() (release func(), err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return nil, ErrBusy
	}
	s.busy = true
	return func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}, nil
}

// WithCapture выполняет fn над автоматом захвата чеков под блокировкой сессии.
func (s *Session) WithCapture(fn func(c *Capture) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.capture)
}

// CaptureView возвращает снимок автомата захвата чеков.
func (s *Session) CaptureView() CaptureView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capture.View()
}

// Bills возвращает подтвержденные чеки сессии.
func (s *Session) Bills() []ConfirmedBill {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capture.Bills()
}

// BillSummary суммирует подтвержденные чеки по категориям.
func (s *Session) BillSummary() BillSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capture.Summary()
}

// ParseBill запускает распознавание выбранного чека. Пока вызов идет, сессия занята;
// при ошибке изображение и категория остаются выбранными.
func (s *Session) ParseBill(ctx context.Context, parser BillParser) (flows.BillParseResult, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return flows.BillParseResult{}, ErrBusy
	}
	uri, err := s.capture.BeginParse()
	if err != nil {
		s.mu.Unlock()
		return flows.BillParseResult{}, err
	}
	s.busy = true
	s.mu.Unlock()

	result, parseErr := parser.Invoke(ctx, flows.BillParseRequest{PhotoDataURI: uri})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if parseErr != nil {
		_ = s.capture.FailParse(parseErr)
		return flows.BillParseResult{}, parseErr
	}
	if err := s.capture.CompleteParse(result); err != nil {
		return flows.BillParseResult{}, err
	}
	return result, nil
}

func (s *Session) touch(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiresAt = s.now().Add(ttl)
}

func (s *Session) expired(at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.busy && !s.expiresAt.IsZero() && at.After(s.expiresAt)
}
