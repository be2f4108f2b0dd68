package models

import (
	"time"

	"github.com/google/uuid"
)

// Holding is a funds container in the settlement currency. User holdings are
// keyed by the owner's wallet address; market escrows and the treasury use
// derived addresses. Balances are micro-units and only change through the
// repository's atomic Transfer/Credit.
type Holding struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Address      string    `gorm:"uniqueIndex;size:64;not null" json:"address"`
	Owner        string    `gorm:"size:64;not null;index" json:"owner"`
	CurrencyMint string    `gorm:"size:64;not null" json:"currency_mint"`
	Balance      int64     `gorm:"not null;default:0" json:"balance"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Holding) TableName() string {
	return "holdings"
}

type LedgerEntryKind string

const (
	LedgerKindDeposit     LedgerEntryKind = "DEPOSIT"
	LedgerKindCreateFee   LedgerEntryKind = "CREATE_FEE"
	LedgerKindStake       LedgerEntryKind = "STAKE"
	LedgerKindPayout      LedgerEntryKind = "PAYOUT"
	LedgerKindBonus       LedgerEntryKind = "BONUS"
	LedgerKindProtocolFee LedgerEntryKind = "PROTOCOL_FEE"
)

// LedgerEntry is the audit row written alongside every transfer. Deposit
// entries carry the on-chain signature and are unique on it, which is what
// makes deposit crediting idempotent.
type LedgerEntry struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	MarketID    *uuid.UUID      `gorm:"type:uuid;index" json:"market_id,omitempty"`
	Kind        LedgerEntryKind `gorm:"size:20;not null;index" json:"kind"`
	FromAddress string          `gorm:"size:64;not null" json:"from_address"`
	ToAddress   string          `gorm:"size:64;not null" json:"to_address"`
	Amount      int64           `gorm:"not null" json:"amount"`
	TxSignature *string         `gorm:"size:128;uniqueIndex" json:"tx_signature,omitempty"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
