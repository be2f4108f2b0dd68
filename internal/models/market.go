package models

import (
	"time"

	"github.com/google/uuid"
)

type MarketState string

const (
	MarketStateActive  MarketState = "ACTIVE"
	MarketStateClosed  MarketState = "CLOSED"
	MarketStateSettled MarketState = "SETTLED"
)

type ConfidenceTier string

const (
	ConfidenceLow    ConfidenceTier = "LOW"
	ConfidenceMedium ConfidenceTier = "MEDIUM"
	ConfidenceHigh   ConfidenceTier = "HIGH"
)

// ValidConfidence reports whether c is a known confidence tier.
func ValidConfidence(c ConfidenceTier) bool {
	switch c {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return true
	}
	return false
}

type SettlementPhase string

const (
	SettlementPhaseNone     SettlementPhase = ""
	SettlementPhaseWeighing SettlementPhase = "WEIGHING"
	SettlementPhasePaying   SettlementPhase = "PAYING"
)

// Market is one staked-opinion prediction instance. The market exclusively
// owns its escrow holding and all of its opinions; state only ever moves
// forward through ACTIVE -> CLOSED -> SETTLED.
type Market struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	MarketID      uuid.UUID   `gorm:"type:uuid;uniqueIndex;not null" json:"market_id"`
	Address       string      `gorm:"uniqueIndex;size:64;not null" json:"address"`
	EscrowAddress string      `gorm:"uniqueIndex;size:64;not null" json:"escrow_address"`
	Statement     string      `gorm:"size:280;not null" json:"statement"`
	Creator       string      `gorm:"size:64;not null;index" json:"creator"`
	State         MarketState `gorm:"size:20;not null;default:ACTIVE;index" json:"state"`
	DurationSecs  int64       `gorm:"not null" json:"duration_secs"`
	ClosesAt      time.Time   `gorm:"not null" json:"closes_at"`
	StakerCount   int64       `gorm:"not null;default:0" json:"staker_count"`
	TotalStake    int64       `gorm:"not null;default:0" json:"total_stake"`

	// Oracle attestation, write-once after close. Nil until recorded.
	SentimentScore   *int16          `json:"sentiment_score,omitempty"`
	Confidence       *ConfidenceTier `gorm:"size:10" json:"confidence,omitempty"`
	AttestationProof string          `gorm:"size:128" json:"attestation_proof,omitempty"`
	ScoredAt         *time.Time      `json:"scored_at,omitempty"`

	// Settlement progress. Cursors are the highest opinion seq already
	// processed in each phase; durable so a restarted settlement resumes
	// without reprocessing a paid opinion.
	SettlementPhase SettlementPhase `gorm:"size:20;not null;default:''" json:"settlement_phase"`
	WeighCursor     int64           `gorm:"not null;default:0" json:"weigh_cursor"`
	PayCursor       int64           `gorm:"not null;default:0" json:"pay_cursor"`
	TotalWeight     int64           `gorm:"not null;default:0" json:"total_weight"`
	PrizePool       int64           `gorm:"not null;default:0" json:"prize_pool"`
	TotalPaid       int64           `gorm:"not null;default:0" json:"total_paid"`
	CumulativeWeight int64          `gorm:"not null;default:0" json:"-"`
	BonusThreshold  int64           `gorm:"not null;default:0" json:"-"`
	BonusWinner     *string         `gorm:"size:64" json:"bonus_winner,omitempty"`
	BonusAmount     int64           `gorm:"not null;default:0" json:"bonus_amount"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	SettledAt *time.Time `json:"settled_at,omitempty"`
}

func (Market) TableName() string {
	return "markets"
}

// Expired reports whether the market's deadline has passed at t.
func (m *Market) Expired(t time.Time) bool {
	return !t.Before(m.ClosesAt)
}

// Attested reports whether the oracle has recorded a sentiment score.
func (m *Market) Attested() bool {
	return m.SentimentScore != nil
}
