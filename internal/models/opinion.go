package models

import (
	"time"

	"github.com/google/uuid"
)

// Opinion is a participant's staked prediction on a market. At most one per
// (market, staker); immutable after creation except for the reaction tallies
// and the settlement-written weight/payout fields.
type Opinion struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Address  string    `gorm:"uniqueIndex;size:64;not null" json:"address"`
	MarketID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_opinion_market_staker,priority:1;uniqueIndex:idx_opinion_market_seq,priority:1" json:"market_id"`
	Staker   string    `gorm:"size:64;not null;uniqueIndex:idx_opinion_market_staker,priority:2" json:"staker"`

	// Seq is the 1-based stake order within the market; settlement cursors
	// walk opinions in seq order.
	Seq int64 `gorm:"not null;uniqueIndex:idx_opinion_market_seq,priority:2" json:"seq"`

	StakeAmount    int64  `gorm:"not null" json:"stake_amount"`
	TextHash       string `gorm:"size:64;not null" json:"text_hash"`
	ContentLocator string `gorm:"size:64" json:"content_locator"`
	Prediction     *int16 `json:"prediction,omitempty"`

	// Credibility tallies accumulated from other participants' reactions.
	BackedAmount  int64 `gorm:"not null;default:0" json:"backed_amount"`
	SlashedAmount int64 `gorm:"not null;default:0" json:"slashed_amount"`

	// Written once by settlement.
	Weight int64      `gorm:"not null;default:0" json:"weight"`
	Payout *int64     `json:"payout,omitempty"`
	PaidAt *time.Time `json:"paid_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Opinion) TableName() string {
	return "opinions"
}

type ReactionType string

const (
	ReactionBack  ReactionType = "BACK"
	ReactionSlash ReactionType = "SLASH"
)

// Reaction is a credibility signal one participant applies to another's
// opinion. Signal-only: no funds move. One active reaction per
// (opinion, reactor).
type Reaction struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	OpinionID uint         `gorm:"not null;index;uniqueIndex:idx_reaction_opinion_reactor,priority:1" json:"opinion_id"`
	Reactor   string       `gorm:"size:64;not null;uniqueIndex:idx_reaction_opinion_reactor,priority:2" json:"reactor"`
	Type      ReactionType `gorm:"size:10;not null" json:"type"`
	Amount    int64        `gorm:"not null" json:"amount"`
	CreatedAt time.Time    `json:"created_at"`
}

func (Reaction) TableName() string {
	return "reactions"
}
