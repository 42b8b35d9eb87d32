package models

import "time"

// Subscription plans
const (
	PlanWeekly    = "weekly"
	PlanMonthly   = "monthly"
	PlanQuarterly = "quarterly"
)

// Subscription is a paid seller plan giving posting privileges
type Subscription struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	SellerPhone string `json:"seller_phone" gorm:"index"`
	Plan        string `json:"plan"`

	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`

	Status     string     `json:"status"` // "pending", "active", "expired"
	PaymentRef string     `json:"payment_ref"`
	StartsAt   *time.Time `json:"starts_at"`
	ExpiresAt  *time.Time `json:"expires_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
