package storage

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/kamermarket/kamermarket-backend/internal/models"
)

// DatabaseStore implements Store backed by PostgreSQL via GORM
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a new database-backed store
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// Seller operations

func (d *DatabaseStore) CreateSeller(seller *models.Seller) (*models.Seller, error) {
	var count int64
	d.db.Model(&models.Seller{}).Count(&count)
	seller.ID = fmt.Sprintf("SEL%05d", count+1)

	if err := d.db.Create(seller).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate") {
			return nil, fmt.Errorf("phone number already registered")
		}
		return nil, err
	}
	return seller, nil
}

func (d *DatabaseStore) GetSeller(id string) (*models.Seller, error) {
	var seller models.Seller
	if err := d.db.Where("id = ?", id).First(&seller).Error; err != nil {
		return nil, fmt.Errorf("seller not found")
	}
	return &seller, nil
}

func (d *DatabaseStore) GetSellerByPhone(phone string) (*models.Seller, error) {
	var seller models.Seller
	if err := d.db.Where("phone = ?", phone).First(&seller).Error; err != nil {
		return nil, fmt.Errorf("seller not found")
	}
	return &seller, nil
}

func (d *DatabaseStore) UpdateSeller(seller *models.Seller) error {
	return d.db.Save(seller).Error
}

// Listing operations

func (d *DatabaseStore) CreateListing(listing *models.Listing) (*models.Listing, error) {
	if listing.ID == "" {
		var count int64
		d.db.Model(&models.Listing{}).Count(&count)
		listing.ID = fmt.Sprintf("%d", count+1)
	}
	if listing.Status == "" {
		listing.Status = "active"
	}
	if err := d.db.Create(listing).Error; err != nil {
		return nil, err
	}
	return listing, nil
}

func (d *DatabaseStore) GetListing(id string) (*models.Listing, error) {
	var listing models.Listing
	if err := d.db.Where("id = ?", id).First(&listing).Error; err != nil {
		return nil, fmt.Errorf("listing not found")
	}
	return &listing, nil
}

func (d *DatabaseStore) SearchListings(search *models.ListingSearch) ([]*models.Listing, error) {
	query := d.db.Where("status = ?", "active")

	if search.Query != "" {
		pattern := "%" + strings.ToLower(strings.TrimSuffix(search.Query, "s")) + "%"
		query = query.Where(
			"LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(category) LIKE ?",
			pattern, pattern, pattern)
	}
	if search.Category != "" {
		query = query.Where("LOWER(category) = ?", strings.ToLower(search.Category))
	}
	if search.Location != "" {
		query = query.Where("LOWER(location) LIKE ?", "%"+strings.ToLower(search.Location)+"%")
	}
	if search.MinPrice > 0 {
		query = query.Where("price >= ?", search.MinPrice)
	}
	if search.MaxPrice > 0 {
		query = query.Where("price <= ?", search.MaxPrice)
	}

	query = query.Order("is_boosted DESC, created_at DESC")
	if search.Limit > 0 {
		query = query.Limit(search.Limit)
	}

	var listings []*models.Listing
	if err := query.Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

func (d *DatabaseStore) GetListingsBySeller(sellerID string) ([]*models.Listing, error) {
	var listings []*models.Listing
	if err := d.db.Where("seller_id = ?", sellerID).Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

func (d *DatabaseStore) UpdateListing(listing *models.Listing) error {
	return d.db.Save(listing).Error
}

func (d *DatabaseStore) IncrementListingViews(id string) error {
	return d.db.Model(&models.Listing{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1")).Error
}

func (d *DatabaseStore) GetExpiredBoosts() ([]*models.Listing, error) {
	var listings []*models.Listing
	err := d.db.Where("is_boosted = ? AND boost_expires_at < ?", true, time.Now()).
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

// Group operations

func (d *DatabaseStore) CreateGroup(group *models.Group) (*models.Group, error) {
	var count int64
	d.db.Model(&models.Group{}).Count(&count)
	group.ID = fmt.Sprintf("GRP%05d", count+1)
	group.Active = true

	if err := d.db.Create(group).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate") {
			return nil, fmt.Errorf("invite code already registered")
		}
		return nil, err
	}
	return group, nil
}

func (d *DatabaseStore) GetGroup(id string) (*models.Group, error) {
	var group models.Group
	if err := d.db.Where("id = ?", id).First(&group).Error; err != nil {
		return nil, fmt.Errorf("group not found")
	}
	return &group, nil
}

func (d *DatabaseStore) GetGroupByInviteCode(code string) (*models.Group, error) {
	var group models.Group
	if err := d.db.Where("invite_code = ?", code).First(&group).Error; err != nil {
		return nil, fmt.Errorf("group not found")
	}
	return &group, nil
}

func (d *DatabaseStore) GetAllGroups() ([]*models.Group, error) {
	var groups []*models.Group
	if err := d.db.Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

// Order operations

func (d *DatabaseStore) CreateOrder(order *models.Order) (*models.Order, error) {
	if order.Reference == "" {
		return nil, fmt.Errorf("order reference required")
	}
	if err := d.db.Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (d *DatabaseStore) GetOrder(reference string) (*models.Order, error) {
	var order models.Order
	if err := d.db.Where("reference = ?", reference).First(&order).Error; err != nil {
		return nil, fmt.Errorf("order not found")
	}
	return &order, nil
}

func (d *DatabaseStore) GetOrderByPaymentRef(paymentRef string) (*models.Order, error) {
	var order models.Order
	if err := d.db.Where("payment_ref = ?", paymentRef).First(&order).Error; err != nil {
		return nil, fmt.Errorf("order not found")
	}
	return &order, nil
}

func (d *DatabaseStore) GetOrdersByBuyer(phone string) ([]*models.Order, error) {
	var orders []*models.Order
	if err := d.db.Where("buyer_phone = ?", phone).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (d *DatabaseStore) GetOrdersByStatus(status string) ([]*models.Order, error) {
	var orders []*models.Order
	if err := d.db.Where("status = ?", status).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (d *DatabaseStore) UpdateOrder(order *models.Order) error {
	return d.db.Save(order).Error
}

// Rating operations

func (d *DatabaseStore) CreateRating(rating *models.Rating) (*models.Rating, error) {
	if err := d.db.Create(rating).Error; err != nil {
		return nil, err
	}
	return rating, nil
}

func (d *DatabaseStore) GetRatingsBySeller(sellerID string) ([]*models.Rating, error) {
	var ratings []*models.Rating
	if err := d.db.Where("seller_id = ?", sellerID).Find(&ratings).Error; err != nil {
		return nil, err
	}
	return ratings, nil
}

// Subscription operations

func (d *DatabaseStore) CreateSubscription(sub *models.Subscription) (*models.Subscription, error) {
	if err := d.db.Create(sub).Error; err != nil {
		return nil, err
	}
	return sub, nil
}

func (d *DatabaseStore) GetActiveSubscription(sellerPhone string) (*models.Subscription, error) {
	var sub models.Subscription
	err := d.db.Where("seller_phone = ? AND status = ? AND expires_at > ?",
		sellerPhone, "active", time.Now()).First(&sub).Error
	if err != nil {
		return nil, fmt.Errorf("subscription not found")
	}
	return &sub, nil
}

func (d *DatabaseStore) GetSubscriptionByPaymentRef(paymentRef string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := d.db.Where("payment_ref = ?", paymentRef).First(&sub).Error; err != nil {
		return nil, fmt.Errorf("subscription not found")
	}
	return &sub, nil
}

func (d *DatabaseStore) UpdateSubscription(sub *models.Subscription) error {
	return d.db.Save(sub).Error
}

func (d *DatabaseStore) GetExpiredSubscriptions() ([]*models.Subscription, error) {
	var subs []*models.Subscription
	err := d.db.Where("status = ? AND expires_at < ?", "active", time.Now()).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

// Conversation state persistence

func (d *DatabaseStore) SaveConversationState(state *models.ConversationState) error {
	var existing models.ConversationState
	err := d.db.Where("user_id = ?", state.UserID).First(&existing).Error
	if err == nil {
		state.ID = existing.ID
		return d.db.Save(state).Error
	}
	return d.db.Create(state).Error
}

func (d *DatabaseStore) GetConversationState(userID string) (*models.ConversationState, error) {
	var state models.ConversationState
	if err := d.db.Where("user_id = ?", userID).First(&state).Error; err != nil {
		return nil, fmt.Errorf("conversation state not found")
	}
	return &state, nil
}

func (d *DatabaseStore) DeleteConversationState(userID string) error {
	return d.db.Where("user_id = ?", userID).
		Delete(&models.ConversationState{}).Error
}
