package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/models"
)

var ErrNotFound = errors.New("session not found")

type StoreOptions struct {
	TTL           time.Duration
	MaxImageBytes int64
}

// Store keeps sessions in memory until logout or idle expiry.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	opts     StoreOptions
	now      func() time.Time
}

// NewStore создает хранилище сессий.
func NewStore(opts StoreOptions) *Store {
	if opts.TTL <= 0 {
		opts.TTL = 12 * time.Hour
	}
	return &Store{
		sessions: make(map[uuid.UUID]*Session),
		opts:     opts,
		now:      time.Now,
	}
}

// Create открывает сессию. Черновик регистрации требует категорию перед распознаванием,
// сессия пользователя требует согласие на анализ чека.
func (s *Store) Create(kind Kind, user *models.User) *Session {
	capture := CaptureOptions{MaxImageBytes: s.opts.MaxImageBytes}
	switch kind {
	case KindRegistration:
		capture.RequireCategory = true
	case KindUser:
		capture.RequireConsent = true
	}

	sess := newSession(kind, user, capture, s.now)
	sess.touch(s.opts.TTL)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return sess
}

// Get возвращает сессию и продлевает ее срок. Истекшая сессия удаляется.
func (s *Store) Get(id uuid.UUID) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	if sess.expired(s.now()) {
		s.Delete(id)
		return nil, ErrNotFound
	}

	sess.touch(s.opts.TTL)
	return sess, nil
}

// Delete удаляет сессию, например при выходе.
func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Sweep удаляет истекшие сессии и возвращает их число.
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.expired(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len возвращает число открытых сессий.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// TTL возвращает время жизни сессии без активности.
func (s *Store) TTL() time.Duration {
	return s.opts.TTL
}
