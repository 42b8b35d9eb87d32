package models

import "time"

// Order statuses
const (
	OrderStatusPending   = "pending"   // checkout rendered, payment not initiated
	OrderStatusAwaiting  = "awaiting"  // payment initiated with provider
	OrderStatusPaid      = "paid"      // provider confirmed payment
	OrderStatusFailed    = "failed"    // provider rejected payment
	OrderStatusDelivered = "delivered" // buyer confirmed receipt, escrow released
	OrderStatusCancelled = "cancelled"
)

// Order represents a buyer checkout with escrow held until delivery
type Order struct {
	Reference  string `json:"reference" gorm:"primaryKey"` // "MP-<listingId>"
	ListingID  string `json:"listing_id" gorm:"index"`
	BuyerPhone string `json:"buyer_phone" gorm:"index"`

	// Amounts: price + escrow fee = total, all in Currency
	Amount   float64 `json:"amount"`
	Fee      float64 `json:"fee"`
	Total    float64 `json:"total"`
	Currency string  `json:"currency"`

	Status     string `json:"status"`
	PaymentRef string `json:"payment_ref" gorm:"index"` // provider-side reference
	PaymentURL string `json:"payment_url"`

	PaidAt    *time.Time `json:"paid_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
