package models

import (
	"time"

	"gorm.io/gorm"
)

// ConversationState stores a snapshot of a user's conversation session so
// another instance can resume it after an eviction or restart
type ConversationState struct {
	gorm.Model
	UserID          string    `json:"user_id" gorm:"uniqueIndex"`
	State           string    `json:"state"`   // "INITIAL", "SEARCHING", ...
	Context         string    `json:"context"` // JSON-encoded entity context
	History         string    `json:"history"` // JSON-encoded bounded turn history
	LastInteraction time.Time `json:"last_interaction"`
}
