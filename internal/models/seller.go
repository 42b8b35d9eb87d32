package models

import "time"

// Seller represents a marketplace seller reachable on WhatsApp
type Seller struct {
	ID    string `json:"id" gorm:"primaryKey"`
	Name  string `json:"name"`
	Phone string `json:"phone" gorm:"uniqueIndex"`

	// Reputation
	Rating      float64 `json:"rating"` // average stars, 0 when unrated
	RatingCount int     `json:"rating_count"`

	TotalListings int  `json:"total_listings"`
	Verified      bool `json:"verified"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Rating is a single buyer review of a seller for a listing
type Rating struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	SellerID   string    `json:"seller_id" gorm:"index"`
	ListingID  string    `json:"listing_id"`
	BuyerPhone string    `json:"buyer_phone"`
	Stars      int       `json:"stars"` // 1-5
	CreatedAt  time.Time `json:"created_at"`
}
