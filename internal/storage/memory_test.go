package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamermarket/kamermarket-backend/internal/models"
)

func TestGroupRoundTripByInviteCode(t *testing.T) {
	store := NewMemoryStore()

	created, err := store.CreateGroup(&models.Group{
		Name:       "Douala Deals",
		InviteCode: "ABC123",
		Category:   "electronics",
		OwnerPhone: "+237670000001",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	found, err := store.GetGroupByInviteCode("ABC123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "Douala Deals", found.Name)

	_, err = store.CreateGroup(&models.Group{Name: "Copycat", InviteCode: "ABC123"})
	assert.Error(t, err)
}

func TestSearchListingsFilters(t *testing.T) {
	store := NewMemoryStore()
	seller, err := store.CreateSeller(&models.Seller{Name: "Marie", Phone: "+237670000009"})
	require.NoError(t, err)

	mk := func(title, location string, price float64) *models.Listing {
		l, err := store.CreateListing(&models.Listing{
			Title:    title,
			Price:    price,
			Currency: "FCFA",
			Location: location,
			SellerID: seller.ID,
		})
		require.NoError(t, err)
		return l
	}

	mk("Samsung TV 40 inch", "Douala", 45000)
	mk("LG TV 55 inch", "Yaoundé", 120000)
	mk("Office chair", "Douala", 30000)

	results, err := store.SearchListings(&models.ListingSearch{
		Query:    "TVs",
		Location: "Douala",
		MaxPrice: 50000,
		Limit:    10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Samsung TV 40 inch", results[0].Title)
}

func TestSearchListingsBoostedFirst(t *testing.T) {
	store := NewMemoryStore()
	seller, err := store.CreateSeller(&models.Seller{Name: "Marie", Phone: "+237670000009"})
	require.NoError(t, err)

	plain, err := store.CreateListing(&models.Listing{
		Title: "Plain phone", Price: 50000, SellerID: seller.ID,
	})
	require.NoError(t, err)

	boosted, err := store.CreateListing(&models.Listing{
		Title: "Boosted phone", Price: 60000, SellerID: seller.ID, IsBoosted: true,
	})
	require.NoError(t, err)

	results, err := store.SearchListings(&models.ListingSearch{Query: "phone", Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, boosted.ID, results[0].ID)
	assert.Equal(t, plain.ID, results[1].ID)
}

func TestIncrementListingViews(t *testing.T) {
	store := NewMemoryStore()
	seller, err := store.CreateSeller(&models.Seller{Name: "Marie", Phone: "+237670000009"})
	require.NoError(t, err)
	listing, err := store.CreateListing(&models.Listing{Title: "Fan", Price: 10000, SellerID: seller.ID})
	require.NoError(t, err)

	require.NoError(t, store.IncrementListingViews(listing.ID))
	require.NoError(t, store.IncrementListingViews(listing.ID))

	fresh, err := store.GetListing(listing.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Views)
}

func TestOrderLifecycle(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.CreateOrder(&models.Order{
		Reference:  "MP-1",
		ListingID:  "1",
		BuyerPhone: "+237670000001",
		Amount:     100000,
		Fee:        5000,
		Total:      105000,
		Currency:   "FCFA",
		Status:     models.OrderStatusPending,
	})
	require.NoError(t, err)

	order, err := store.GetOrder("MP-1")
	require.NoError(t, err)

	order.Status = models.OrderStatusAwaiting
	order.PaymentRef = "PROV-42"
	require.NoError(t, store.UpdateOrder(order))

	byRef, err := store.GetOrderByPaymentRef("PROV-42")
	require.NoError(t, err)
	assert.Equal(t, "MP-1", byRef.Reference)

	awaiting, err := store.GetOrdersByStatus(models.OrderStatusAwaiting)
	require.NoError(t, err)
	assert.Len(t, awaiting, 1)
}

func TestConversationStatePersistence(t *testing.T) {
	store := NewMemoryStore()

	state := &models.ConversationState{
		UserID:          "+237670000001",
		State:           "SEARCHING",
		Context:         `{"query":"TVs"}`,
		History:         `[]`,
		LastInteraction: time.Now(),
	}
	require.NoError(t, store.SaveConversationState(state))

	// Upsert by user, not append
	state.State = "VIEWING_PRODUCT"
	require.NoError(t, store.SaveConversationState(state))

	loaded, err := store.GetConversationState("+237670000001")
	require.NoError(t, err)
	assert.Equal(t, "VIEWING_PRODUCT", loaded.State)

	require.NoError(t, store.DeleteConversationState("+237670000001"))
	_, err = store.GetConversationState("+237670000001")
	assert.Error(t, err)
}

func TestGetExpiredBoosts(t *testing.T) {
	store := NewMemoryStore()
	seller, err := store.CreateSeller(&models.Seller{Name: "Marie", Phone: "+237670000009"})
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	expired, err := store.CreateListing(&models.Listing{
		Title: "Old boost", Price: 1000, SellerID: seller.ID,
		IsBoosted: true, BoostExpiresAt: &past,
	})
	require.NoError(t, err)
	_, err = store.CreateListing(&models.Listing{
		Title: "Fresh boost", Price: 1000, SellerID: seller.ID,
		IsBoosted: true, BoostExpiresAt: &future,
	})
	require.NoError(t, err)

	got, err := store.GetExpiredBoosts()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, expired.ID, got[0].ID)
}
