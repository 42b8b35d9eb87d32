package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamermarket/kamermarket-backend/internal/services"
	"github.com/kamermarket/kamermarket-backend/internal/storage"
)

func newTestWhatsAppHandler(t *testing.T) *WhatsAppHandler {
	t.Helper()

	store := storage.NewMemoryStore()
	sessions := services.NewSessionManager(store)
	t.Cleanup(sessions.Stop)

	payments := services.NewPaymentService(store, nil)
	responder := services.NewResponder(store, payments)
	conversation := services.NewConversationService(store, sessions, responder, nil)
	registration := services.NewRegistrationService(store)
	commands := services.NewCommandRouter(
		services.NewSubscriptionService(store, payments),
		services.NewBoostService(store, payments),
		payments,
	)

	h := NewWhatsAppHandler(conversation, registration, commands, nil)
	t.Cleanup(h.Shutdown)
	return h
}

func queueCount(h *WhatsAppHandler) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queues)
}

func TestEnqueueProcessesInOrderPerUser(t *testing.T) {
	h := newTestWhatsAppHandler(t)
	user := "+237670000001"

	h.enqueue(user, "hello")
	h.enqueue(user, "find me a TV")

	require.Eventually(t, func() bool {
		h.mu.Lock()
		queue, ok := h.queues[user]
		h.mu.Unlock()
		return ok && len(queue) == 0
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, queueCount(h))
}

func TestIdleQueuesAreRetired(t *testing.T) {
	h := newTestWhatsAppHandler(t)
	h.idleTimeout = 20 * time.Millisecond

	h.enqueue("+237670000001", "hello")
	h.enqueue("+237670000002", "hello")
	assert.Equal(t, 2, queueCount(h))

	// Both drainers fall idle and withdraw from the map
	require.Eventually(t, func() bool {
		return queueCount(h) == 0
	}, time.Second, 5*time.Millisecond)

	// A retired user gets a fresh queue on next contact
	h.enqueue("+237670000001", "hello again")
	assert.Equal(t, 1, queueCount(h))
}
