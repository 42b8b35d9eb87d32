package models

import "time"

// Listing represents an item posted for sale in the marketplace
type Listing struct {
	ID          string `json:"id" gorm:"primaryKey"`
	Title       string `json:"title"`
	Description string `json:"description"`

	// Pricing
	Price    float64 `json:"price"`
	Currency string  `json:"currency"` // "FCFA", "USD", "EUR"

	// Classification
	Category string `json:"category"` // canonical slug, e.g. "electronics"
	Location string `json:"location"` // city or neighbourhood, e.g. "Douala"

	// Seller
	SellerID string `json:"seller_id"`

	// Source group the listing was extracted from (if any)
	GroupID string `json:"group_id"`

	// Visibility
	Views          int        `json:"views"`
	IsBoosted      bool       `json:"is_boosted"`
	BoostExpiresAt *time.Time `json:"boost_expires_at"`

	Status string `json:"status"` // "active", "sold", "removed"

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListingSearch parameters for searching listings
type ListingSearch struct {
	Query    string  `json:"query"`
	Category string  `json:"category"`
	Location string  `json:"location"`
	MinPrice float64 `json:"min_price"`
	MaxPrice float64 `json:"max_price"`
	Currency string  `json:"currency"`
	Limit    int     `json:"limit"`
}
