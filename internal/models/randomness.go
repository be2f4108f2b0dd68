package models

import (
	"time"

	"github.com/google/uuid"
)

// RandomnessRequest is the two-phase commit/reveal record for the external
// VRF provider. Phase 1 (oracle) creates the row; phase 2 (provider) writes
// the value exactly once. An unfulfilled request leaves the market observably
// unable to settle.
type RandomnessRequest struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	MarketID    uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"market_id"`
	Address     string     `gorm:"uniqueIndex;size:64;not null" json:"address"`
	RequestedBy string     `gorm:"size:64;not null" json:"requested_by"`
	Fulfilled   bool       `gorm:"not null;default:false;index" json:"fulfilled"`
	Value       string     `gorm:"size:64" json:"value,omitempty"` // base58 of 32 bytes, write-once
	RequestedAt time.Time  `gorm:"not null" json:"requested_at"`
	FulfilledAt *time.Time `json:"fulfilled_at,omitempty"`
}

func (RandomnessRequest) TableName() string {
	return "randomness_requests"
}
