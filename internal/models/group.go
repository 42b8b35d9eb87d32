package models

import "time"

// Group represents a WhatsApp seller group onboarded into the marketplace
type Group struct {
	ID         string `json:"id" gorm:"primaryKey"`
	Name       string `json:"name"`
	InviteCode string `json:"invite_code" gorm:"uniqueIndex"`
	Category   string `json:"category"` // canonical slug
	OwnerPhone string `json:"owner_phone"`

	ListingCount int  `json:"listing_count"`
	Active       bool `json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
