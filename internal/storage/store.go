package storage

import (
	"sync"

	"github.com/kamermarket/kamermarket-backend/internal/models"
)

var (
	storeInstance Store
	storeOnce     sync.Once
)

// SetStore sets the global store instance (call from main.go)
func SetStore(s Store) {
	storeInstance = s
}

// GetStore returns the global store instance
func GetStore() Store {
	return storeInstance
}

// Store defines the interface for storage operations
type Store interface {
	// Seller operations
	CreateSeller(seller *models.Seller) (*models.Seller, error)
	GetSeller(id string) (*models.Seller, error)
	GetSellerByPhone(phone string) (*models.Seller, error)
	UpdateSeller(seller *models.Seller) error

	// Listing operations
	CreateListing(listing *models.Listing) (*models.Listing, error)
	GetListing(id string) (*models.Listing, error)
	SearchListings(search *models.ListingSearch) ([]*models.Listing, error)
	GetListingsBySeller(sellerID string) ([]*models.Listing, error)
	UpdateListing(listing *models.Listing) error
	IncrementListingViews(id string) error
	GetExpiredBoosts() ([]*models.Listing, error)

	// Group operations
	CreateGroup(group *models.Group) (*models.Group, error)
	GetGroup(id string) (*models.Group, error)
	GetGroupByInviteCode(code string) (*models.Group, error)
	GetAllGroups() ([]*models.Group, error)

	// Order operations
	CreateOrder(order *models.Order) (*models.Order, error)
	GetOrder(reference string) (*models.Order, error)
	GetOrderByPaymentRef(paymentRef string) (*models.Order, error)
	GetOrdersByBuyer(phone string) ([]*models.Order, error)
	GetOrdersByStatus(status string) ([]*models.Order, error)
	UpdateOrder(order *models.Order) error

	// Rating operations
	CreateRating(rating *models.Rating) (*models.Rating, error)
	GetRatingsBySeller(sellerID string) ([]*models.Rating, error)

	// Subscription operations
	CreateSubscription(sub *models.Subscription) (*models.Subscription, error)
	GetActiveSubscription(sellerPhone string) (*models.Subscription, error)
	GetSubscriptionByPaymentRef(paymentRef string) (*models.Subscription, error)
	UpdateSubscription(sub *models.Subscription) error
	GetExpiredSubscriptions() ([]*models.Subscription, error)

	// Conversation state persistence (multi-instance session sharing)
	SaveConversationState(state *models.ConversationState) error
	GetConversationState(userID string) (*models.ConversationState, error)
	DeleteConversationState(userID string) error
}
