// Package notifications fans portfolio and account events out to SSE subscribers.
package notifications

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/models"
)

const (
	EventConnected         = "connected"
	EventProfileRegistered = "profile_registered"
	EventLoanStageUpdated  = "loan_stage_updated"
	EventBillConfirmed     = "bill_confirmed"
)

type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// UserTopic адресует события одному пользователю.
func UserTopic(userID uuid.UUID) string {
	return "user:" + userID.String()
}

// RoleTopic адресует события всем пользователям роли.
func RoleTopic(role models.Role) string {
	return "role:" + string(role)
}

type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
}

// NewHub создает хаб для SSE-подписок.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe подписывает один канал на несколько топиков и возвращает функцию отписки.
func (h *Hub) Subscribe(topics ...string) (<-chan Event, func()) {
	ch := make(chan Event, 10)

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, topic := range topics {
		subs, ok := h.subscribers[topic]
		if !ok {
			subs = make(map[chan Event]struct{})
			h.subscribers[topic] = subs
		}
		subs[ch] = struct{}{}
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			for _, topic := range topics {
				if subs, exists := h.subscribers[topic]; exists {
					delete(subs, ch)
					if len(subs) == 0 {
						delete(h.subscribers, topic)
					}
				}
			}
			close(ch)
		})
	}
}

// Publish отправляет событие подписчикам топиков. Канал, подписанный на несколько
// топиков, получает событие один раз; медленные подписчики пропускают событие.
func (h *Hub) Publish(event Event, topics ...string) {
	event.Timestamp = time.Now().UTC()

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := make(map[chan Event]struct{})
	for _, topic := range topics {
		for ch := range h.subscribers[topic] {
			if _, done := sent[ch]; done {
				continue
			}
			sent[ch] = struct{}{}
			select {
			case ch <- event:
			default:
			}
		}
	}
}

// Subscribers возвращает число подписчиков топика.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[topic])
}
