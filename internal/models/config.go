package models

import (
	"time"
)

// ProgramConfig is the singleton trust anchor: every authorization check in
// the ledger resolves against this row. Created once by initialize, mutated
// only by the authority-gated rotation, never deleted.
type ProgramConfig struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Address         string    `gorm:"uniqueIndex;size:64;not null" json:"address"`
	Authority       string    `gorm:"size:64;not null" json:"authority"`
	OracleAuthority string    `gorm:"size:64;not null" json:"oracle_authority"`
	VRFAuthority    string    `gorm:"size:64;not null" json:"vrf_authority"`
	Treasury        string    `gorm:"size:64;not null" json:"treasury"`
	CurrencyMint    string    `gorm:"size:64;not null" json:"currency_mint"`
	CreateFee       int64     `gorm:"not null" json:"create_fee"`
	MinStake        int64     `gorm:"not null" json:"min_stake"`
	MaxStake        int64     `gorm:"not null" json:"max_stake"`
	ProtocolFeeBps  int64     `gorm:"not null" json:"protocol_fee_bps"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (ProgramConfig) TableName() string {
	return "program_config"
}
