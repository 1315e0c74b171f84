package notifications

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected event to be delivered")
		return Event{}
	}
}

// TestHubPublishSubscribe проверяет доставку событий подписчику.
func TestHubPublishSubscribe(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()

	ch, unsubscribe := hub.Subscribe(UserTopic(userID))
	defer unsubscribe()

	hub.Publish(Event{Type: EventLoanStageUpdated}, UserTopic(userID))

	event := receive(t, ch)
	assert.Equal(t, EventLoanStageUpdated, event.Type)
	assert.False(t, event.Timestamp.IsZero())
}

// TestHubDeliversOncePerChannel проверяет, что канал на двух топиках получает событие один раз.
func TestHubDeliversOncePerChannel(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()

	ch, unsubscribe := hub.Subscribe(UserTopic(userID), RoleTopic(models.RoleOfficer))
	defer unsubscribe()

	hub.Publish(Event{Type: EventProfileRegistered}, UserTopic(userID), RoleTopic(models.RoleOfficer))

	receive(t, ch)
	select {
	case event := <-ch:
		t.Fatalf("unexpected duplicate event %s", event.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestHubTopicsAreIsolated проверяет, что события роли не уходят другим ролям.
func TestHubTopicsAreIsolated(t *testing.T) {
	hub := NewHub()

	officers, unsubOfficers := hub.Subscribe(RoleTopic(models.RoleOfficer))
	defer unsubOfficers()
	beneficiaries, unsubBeneficiaries := hub.Subscribe(RoleTopic(models.RoleBeneficiary))
	defer unsubBeneficiaries()

	hub.Publish(Event{Type: EventProfileRegistered}, RoleTopic(models.RoleOfficer))

	assert.Equal(t, EventProfileRegistered, receive(t, officers).Type)
	select {
	case <-beneficiaries:
		t.Fatal("beneficiary topic must not receive officer events")
	case <-time.After(50 * time.Millisecond):
	}
}

// TestHubUnsubscribe проверяет закрытие канала и очистку топиков после отписки.
func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()

	ch, unsubscribe := hub.Subscribe(UserTopic(userID), RoleTopic(models.RoleAdmin))
	require.Equal(t, 1, hub.Subscribers(UserTopic(userID)))

	unsubscribe()
	unsubscribe()

	_, ok := <-ch
	assert.False(t, ok, "expected channel to be closed")
	assert.Zero(t, hub.Subscribers(UserTopic(userID)))
	assert.Zero(t, hub.Subscribers(RoleTopic(models.RoleAdmin)))

	hub.Publish(Event{Type: EventLoanStageUpdated}, UserTopic(userID))
}
