package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamermarket/kamermarket-backend/internal/models"
	"github.com/kamermarket/kamermarket-backend/internal/storage"
)

func newTestConversation(t *testing.T, store storage.Store) (*ConversationService, *SessionManager) {
	t.Helper()
	sessions := NewSessionManager(store)
	t.Cleanup(sessions.Stop)
	responder := NewResponder(store, nil)
	return NewConversationService(store, sessions, responder, nil), sessions
}

func TestProcessSearchTurn(t *testing.T) {
	store := storage.NewMemoryStore()
	seedListing(t, store, "Samsung TV 40 inch", 45000)
	conv, _ := newTestConversation(t, store)

	resp, err := conv.Process(context.Background(), "+237670000001", "TVs under 50000 FCFA in Douala")
	require.NoError(t, err)

	assert.Equal(t, IntentSearch, resp.Intent)
	assert.Equal(t, StateSearching, resp.State)
	assert.Contains(t, resp.Text, "Samsung TV 40 inch")
	assert.Equal(t, float64(50000), resp.Entities["maxPrice"])
}

func TestProcessFullPurchaseFlow(t *testing.T) {
	store := storage.NewMemoryStore()
	listing := seedListing(t, store, "Samsung TV 40 inch", 100000)
	conv, _ := newTestConversation(t, store)
	ctx := context.Background()
	user := "+237670000001"

	resp, err := conv.Process(ctx, user, "I want a TV")
	require.NoError(t, err)
	assert.Equal(t, StateSearching, resp.State)

	resp, err = conv.Process(ctx, user, "product "+listing.ID)
	require.NoError(t, err)
	assert.Equal(t, StateViewingProduct, resp.State)
	assert.Contains(t, resp.Text, "Samsung TV 40 inch")

	resp, err = conv.Process(ctx, user, "buy it")
	require.NoError(t, err)
	assert.Equal(t, StateCheckout, resp.State)
	assert.Contains(t, resp.Text, "5000 FCFA")
	assert.Contains(t, resp.Text, "105000 FCFA")

	// Cancel from checkout steps back to the product, not to INITIAL
	resp, err = conv.Process(ctx, user, "cancel")
	require.NoError(t, err)
	assert.Equal(t, StateViewingProduct, resp.State)
}

func TestProcessCancelFromSearchClearsContext(t *testing.T) {
	store := storage.NewMemoryStore()
	conv, sessions := newTestConversation(t, store)
	ctx := context.Background()
	user := "+237670000001"

	_, err := conv.Process(ctx, user, "phones under 20000 FCFA")
	require.NoError(t, err)

	resp, err := conv.Process(ctx, user, "cancel")
	require.NoError(t, err)
	assert.Equal(t, StateInitial, resp.State)

	require.NoError(t, sessions.WithSession(user, func(s *Session) error {
		assert.NotContains(t, s.Context, "query")
		assert.NotContains(t, s.Context, "maxPrice")
		return nil
	}))
}

func TestProcessRefinementMergesContext(t *testing.T) {
	store := storage.NewMemoryStore()
	seedListing(t, store, "LG TV 32 inch", 40000)
	conv, sessions := newTestConversation(t, store)
	ctx := context.Background()
	user := "+237670000001"

	_, err := conv.Process(ctx, user, "TVs in Douala")
	require.NoError(t, err)

	_, err = conv.Process(ctx, user, "under 50000 FCFA")
	require.NoError(t, err)

	require.NoError(t, sessions.WithSession(user, func(s *Session) error {
		assert.Equal(t, "TVs", s.Context["query"])
		assert.Equal(t, "Douala", s.Context["location"])
		assert.Equal(t, float64(50000), s.Context["maxPrice"])
		return nil
	}))
}

func TestProcessUnknownFromInitialRendersWelcome(t *testing.T) {
	store := storage.NewMemoryStore()
	conv, _ := newTestConversation(t, store)

	resp, err := conv.Process(context.Background(), "+237670000001", "ok")
	require.NoError(t, err)

	assert.Equal(t, StateInitial, resp.State)
	assert.Contains(t, resp.Text, "KamerMarket")
}

func TestProcessRecordsHistory(t *testing.T) {
	store := storage.NewMemoryStore()
	conv, sessions := newTestConversation(t, store)
	ctx := context.Background()
	user := "+237670000001"

	_, err := conv.Process(ctx, user, "hello")
	require.NoError(t, err)

	require.NoError(t, sessions.WithSession(user, func(s *Session) error {
		require.Len(t, s.History, 2)
		assert.Equal(t, "user", s.History[0].Role)
		assert.Equal(t, "hello", s.History[0].Content)
		assert.Equal(t, "assistant", s.History[1].Role)
		return nil
	}))
}

func TestProcessTwoUsersStayIsolated(t *testing.T) {
	store := storage.NewMemoryStore()
	seedListing(t, store, "Canon camera", 90000)
	conv, sessions := newTestConversation(t, store)
	ctx := context.Background()

	_, err := conv.Process(ctx, "+237670000001", "cameras in Douala")
	require.NoError(t, err)
	_, err = conv.Process(ctx, "+237670000002", "shoes in Yaoundé")
	require.NoError(t, err)

	require.NoError(t, sessions.WithSession("+237670000001", func(s *Session) error {
		assert.Equal(t, "Douala", s.Context["location"])
		return nil
	}))
	require.NoError(t, sessions.WithSession("+237670000002", func(s *Session) error {
		assert.Equal(t, "Yaoundé", s.Context["location"])
		return nil
	}))
}

func TestProcessDeliveryConfirmationLeadsToRating(t *testing.T) {
	store := storage.NewMemoryStore()
	listing := seedListing(t, store, "Samsung TV 40 inch", 100000)
	conv, _ := newTestConversation(t, store)
	ctx := context.Background()
	user := "+237670000001"

	_, err := store.CreateOrder(&models.Order{
		Reference:  "MP-" + listing.ID,
		ListingID:  listing.ID,
		BuyerPhone: user,
		Amount:     100000,
		Fee:        5000,
		Total:      105000,
		Currency:   CurrencyFCFA,
		Status:     models.OrderStatusPaid,
	})
	require.NoError(t, err)

	resp, err := conv.Process(ctx, user, "delivered MP-"+listing.ID)
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "Delivery Confirmed")
	assert.Equal(t, StateRating, resp.State)

	order, err := store.GetOrder("MP-" + listing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, order.Status)

	// The next turn rates the seller and closes the loop
	resp, err = conv.Process(ctx, user, "4 stars")
	require.NoError(t, err)
	assert.Equal(t, StateInitial, resp.State)
	assert.Contains(t, resp.Text, "Thanks for your rating")

	seller, err := store.GetSeller(listing.SellerID)
	require.NoError(t, err)
	assert.Equal(t, 1, seller.RatingCount)
}

func TestProcessDeliveryConfirmationRejectsForeignOrder(t *testing.T) {
	store := storage.NewMemoryStore()
	conv, _ := newTestConversation(t, store)

	resp, err := conv.Process(context.Background(), "+237670000001", "delivered MP-77")
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "not found")
}
