package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kamermarket/kamermarket-backend/internal/models"
)

// MemoryStore holds all data in memory for tests and small deployments
type MemoryStore struct {
	sellers  map[string]*models.Seller
	listings map[string]*models.Listing
	groups   map[string]*models.Group
	orders   map[string]*models.Order
	ratings  []*models.Rating
	subs     map[uint]*models.Subscription
	states   map[string]*models.ConversationState

	// Mutexes for thread safety
	sellerMu  sync.RWMutex
	listingMu sync.RWMutex
	groupMu   sync.RWMutex
	orderMu   sync.RWMutex
	ratingMu  sync.RWMutex
	subMu     sync.RWMutex
	stateMu   sync.RWMutex

	// Counters for ID generation
	sellerCounter  int
	listingCounter int
	groupCounter   int
	subCounter     uint
	ratingCounter  uint
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sellers:  make(map[string]*models.Seller),
		listings: make(map[string]*models.Listing),
		groups:   make(map[string]*models.Group),
		orders:   make(map[string]*models.Order),
		subs:     make(map[uint]*models.Subscription),
		states:   make(map[string]*models.ConversationState),
	}
}

// Seller operations

func (m *MemoryStore) CreateSeller(seller *models.Seller) (*models.Seller, error) {
	m.sellerMu.Lock()
	defer m.sellerMu.Unlock()

	for _, s := range m.sellers {
		if s.Phone == seller.Phone {
			return nil, fmt.Errorf("phone number already registered")
		}
	}

	m.sellerCounter++
	seller.ID = fmt.Sprintf("SEL%05d", m.sellerCounter)
	seller.CreatedAt = time.Now()
	seller.UpdatedAt = time.Now()

	m.sellers[seller.ID] = seller
	return seller, nil
}

func (m *MemoryStore) GetSeller(id string) (*models.Seller, error) {
	m.sellerMu.RLock()
	defer m.sellerMu.RUnlock()

	seller, exists := m.sellers[id]
	if !exists {
		return nil, fmt.Errorf("seller not found")
	}
	return seller, nil
}

func (m *MemoryStore) GetSellerByPhone(phone string) (*models.Seller, error) {
	m.sellerMu.RLock()
	defer m.sellerMu.RUnlock()

	for _, seller := range m.sellers {
		if seller.Phone == phone {
			return seller, nil
		}
	}
	return nil, fmt.Errorf("seller not found")
}

func (m *MemoryStore) UpdateSeller(seller *models.Seller) error {
	m.sellerMu.Lock()
	defer m.sellerMu.Unlock()

	if _, exists := m.sellers[seller.ID]; !exists {
		return fmt.Errorf("seller not found")
	}
	seller.UpdatedAt = time.Now()
	m.sellers[seller.ID] = seller
	return nil
}

// Listing operations

func (m *MemoryStore) CreateListing(listing *models.Listing) (*models.Listing, error) {
	m.listingMu.Lock()
	defer m.listingMu.Unlock()

	m.listingCounter++
	if listing.ID == "" {
		listing.ID = fmt.Sprintf("%d", m.listingCounter)
	}
	if listing.Status == "" {
		listing.Status = "active"
	}
	listing.CreatedAt = time.Now()
	listing.UpdatedAt = time.Now()

	m.listings[listing.ID] = listing
	return listing, nil
}

func (m *MemoryStore) GetListing(id string) (*models.Listing, error) {
	m.listingMu.RLock()
	defer m.listingMu.RUnlock()

	listing, exists := m.listings[id]
	if !exists {
		return nil, fmt.Errorf("listing not found")
	}
	return listing, nil
}

func (m *MemoryStore) SearchListings(search *models.ListingSearch) ([]*models.Listing, error) {
	m.listingMu.RLock()
	defer m.listingMu.RUnlock()

	var results []*models.Listing
	for _, listing := range m.listings {
		if listing.Status != "active" {
			continue
		}
		if !matchesSearch(listing, search) {
			continue
		}
		results = append(results, listing)
	}

	// Boosted listings rank first, then newest
	sort.Slice(results, func(i, j int) bool {
		if results[i].IsBoosted != results[j].IsBoosted {
			return results[i].IsBoosted
		}
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	if search.Limit > 0 && len(results) > search.Limit {
		results = results[:search.Limit]
	}
	return results, nil
}

func matchesSearch(listing *models.Listing, search *models.ListingSearch) bool {
	if search.Query != "" {
		q := strings.ToLower(search.Query)
		haystack := strings.ToLower(listing.Title + " " + listing.Description + " " + listing.Category)
		matched := false
		for _, word := range strings.Fields(q) {
			word = strings.TrimSuffix(word, "s") // crude singularisation
			if word != "" && strings.Contains(haystack, word) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if search.Category != "" && !strings.EqualFold(listing.Category, search.Category) {
		return false
	}
	if search.Location != "" && !strings.Contains(strings.ToLower(listing.Location), strings.ToLower(search.Location)) {
		return false
	}
	if search.MinPrice > 0 && listing.Price < search.MinPrice {
		return false
	}
	if search.MaxPrice > 0 && listing.Price > search.MaxPrice {
		return false
	}
	return true
}

func (m *MemoryStore) GetListingsBySeller(sellerID string) ([]*models.Listing, error) {
	m.listingMu.RLock()
	defer m.listingMu.RUnlock()

	var results []*models.Listing
	for _, listing := range m.listings {
		if listing.SellerID == sellerID {
			results = append(results, listing)
		}
	}
	return results, nil
}

func (m *MemoryStore) UpdateListing(listing *models.Listing) error {
	m.listingMu.Lock()
	defer m.listingMu.Unlock()

	if _, exists := m.listings[listing.ID]; !exists {
		return fmt.Errorf("listing not found")
	}
	listing.UpdatedAt = time.Now()
	m.listings[listing.ID] = listing
	return nil
}

func (m *MemoryStore) IncrementListingViews(id string) error {
	m.listingMu.Lock()
	defer m.listingMu.Unlock()

	listing, exists := m.listings[id]
	if !exists {
		return fmt.Errorf("listing not found")
	}
	listing.Views++
	return nil
}

func (m *MemoryStore) GetExpiredBoosts() ([]*models.Listing, error) {
	m.listingMu.RLock()
	defer m.listingMu.RUnlock()

	var results []*models.Listing
	now := time.Now()
	for _, listing := range m.listings {
		if listing.IsBoosted && listing.BoostExpiresAt != nil && listing.BoostExpiresAt.Before(now) {
			results = append(results, listing)
		}
	}
	return results, nil
}

// Group operations

func (m *MemoryStore) CreateGroup(group *models.Group) (*models.Group, error) {
	m.groupMu.Lock()
	defer m.groupMu.Unlock()

	for _, g := range m.groups {
		if g.InviteCode == group.InviteCode {
			return nil, fmt.Errorf("invite code already registered")
		}
	}

	m.groupCounter++
	group.ID = fmt.Sprintf("GRP%05d", m.groupCounter)
	group.Active = true
	group.CreatedAt = time.Now()
	group.UpdatedAt = time.Now()

	m.groups[group.ID] = group
	return group, nil
}

func (m *MemoryStore) GetGroup(id string) (*models.Group, error) {
	m.groupMu.RLock()
	defer m.groupMu.RUnlock()

	group, exists := m.groups[id]
	if !exists {
		return nil, fmt.Errorf("group not found")
	}
	return group, nil
}

func (m *MemoryStore) GetGroupByInviteCode(code string) (*models.Group, error) {
	m.groupMu.RLock()
	defer m.groupMu.RUnlock()

	for _, group := range m.groups {
		if group.InviteCode == code {
			return group, nil
		}
	}
	return nil, fmt.Errorf("group not found")
}

func (m *MemoryStore) GetAllGroups() ([]*models.Group, error) {
	m.groupMu.RLock()
	defer m.groupMu.RUnlock()

	var results []*models.Group
	for _, group := range m.groups {
		results = append(results, group)
	}
	return results, nil
}

// Order operations

func (m *MemoryStore) CreateOrder(order *models.Order) (*models.Order, error) {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()

	if order.Reference == "" {
		return nil, fmt.Errorf("order reference required")
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()

	m.orders[order.Reference] = order
	return order, nil
}

func (m *MemoryStore) GetOrder(reference string) (*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	order, exists := m.orders[reference]
	if !exists {
		return nil, fmt.Errorf("order not found")
	}
	return order, nil
}

func (m *MemoryStore) GetOrderByPaymentRef(paymentRef string) (*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	for _, order := range m.orders {
		if order.PaymentRef == paymentRef {
			return order, nil
		}
	}
	return nil, fmt.Errorf("order not found")
}

func (m *MemoryStore) GetOrdersByBuyer(phone string) ([]*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	var results []*models.Order
	for _, order := range m.orders {
		if order.BuyerPhone == phone {
			results = append(results, order)
		}
	}
	return results, nil
}

func (m *MemoryStore) GetOrdersByStatus(status string) ([]*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	var results []*models.Order
	for _, order := range m.orders {
		if order.Status == status {
			results = append(results, order)
		}
	}
	return results, nil
}

func (m *MemoryStore) UpdateOrder(order *models.Order) error {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()

	if _, exists := m.orders[order.Reference]; !exists {
		return fmt.Errorf("order not found")
	}
	order.UpdatedAt = time.Now()
	m.orders[order.Reference] = order
	return nil
}

// Rating operations

func (m *MemoryStore) CreateRating(rating *models.Rating) (*models.Rating, error) {
	m.ratingMu.Lock()
	defer m.ratingMu.Unlock()

	m.ratingCounter++
	rating.ID = m.ratingCounter
	rating.CreatedAt = time.Now()
	m.ratings = append(m.ratings, rating)
	return rating, nil
}

func (m *MemoryStore) GetRatingsBySeller(sellerID string) ([]*models.Rating, error) {
	m.ratingMu.RLock()
	defer m.ratingMu.RUnlock()

	var results []*models.Rating
	for _, rating := range m.ratings {
		if rating.SellerID == sellerID {
			results = append(results, rating)
		}
	}
	return results, nil
}

// Subscription operations

func (m *MemoryStore) CreateSubscription(sub *models.Subscription) (*models.Subscription, error) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	m.subCounter++
	sub.ID = m.subCounter
	sub.CreatedAt = time.Now()
	sub.UpdatedAt = time.Now()
	m.subs[sub.ID] = sub
	return sub, nil
}

func (m *MemoryStore) GetActiveSubscription(sellerPhone string) (*models.Subscription, error) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	now := time.Now()
	for _, sub := range m.subs {
		if sub.SellerPhone == sellerPhone && sub.Status == "active" &&
			sub.ExpiresAt != nil && sub.ExpiresAt.After(now) {
			return sub, nil
		}
	}
	return nil, fmt.Errorf("subscription not found")
}

func (m *MemoryStore) GetSubscriptionByPaymentRef(paymentRef string) (*models.Subscription, error) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for _, sub := range m.subs {
		if sub.PaymentRef == paymentRef {
			return sub, nil
		}
	}
	return nil, fmt.Errorf("subscription not found")
}

func (m *MemoryStore) UpdateSubscription(sub *models.Subscription) error {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	if _, exists := m.subs[sub.ID]; !exists {
		return fmt.Errorf("subscription not found")
	}
	sub.UpdatedAt = time.Now()
	m.subs[sub.ID] = sub
	return nil
}

func (m *MemoryStore) GetExpiredSubscriptions() ([]*models.Subscription, error) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	var results []*models.Subscription
	now := time.Now()
	for _, sub := range m.subs {
		if sub.Status == "active" && sub.ExpiresAt != nil && sub.ExpiresAt.Before(now) {
			results = append(results, sub)
		}
	}
	return results, nil
}

// Conversation state persistence

func (m *MemoryStore) SaveConversationState(state *models.ConversationState) error {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	m.states[state.UserID] = state
	return nil
}

func (m *MemoryStore) GetConversationState(userID string) (*models.ConversationState, error) {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()

	state, exists := m.states[userID]
	if !exists {
		return nil, fmt.Errorf("conversation state not found")
	}
	return state, nil
}

func (m *MemoryStore) DeleteConversationState(userID string) error {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	delete(m.states, userID)
	return nil
}
