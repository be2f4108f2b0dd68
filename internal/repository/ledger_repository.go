package repository

import (
	"context"
	"errors"
	"fmt"
	"math"

	"opinion-market/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetHolding loads a holding by address with a row lock.
func (r *Repository) GetHolding(tx *gorm.DB, address string) (*models.Holding, error) {
	var holding models.Holding
	err := withRowLock(tx).Where("address = ?", address).First(&holding).Error
	if err != nil {
		return nil, err
	}
	return &holding, nil
}

// GetHoldingByOwner loads the holding owned by a wallet address (read paths).
func (r *Repository) GetHoldingByOwner(ctx context.Context, owner string) (*models.Holding, error) {
	var holding models.Holding
	err := r.db.WithContext(ctx).Where("owner = ?", owner).First(&holding).Error
	if err != nil {
		return nil, err
	}
	return &holding, nil
}

// CreateHolding opens a new zero-balance holding.
func (r *Repository) CreateHolding(tx *gorm.DB, holding *models.Holding) error {
	return tx.Create(holding).Error
}

// GetOrCreateHolding returns the holding at address, opening it with a zero
// balance if it does not exist yet.
func (r *Repository) GetOrCreateHolding(tx *gorm.DB, address, owner, currencyMint string) (*models.Holding, error) {
	holding, err := r.GetHolding(tx, address)
	if err == nil {
		return holding, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	holding = &models.Holding{
		Address:      address,
		Owner:        owner,
		CurrencyMint: currencyMint,
		Balance:      0,
	}
	if err := tx.Create(holding).Error; err != nil {
		return nil, err
	}
	return holding, nil
}

// Transfer atomically moves amount micro-units between two holdings and
// writes the audit entry. Both holdings must carry the registered currency;
// the debit fails on insufficient balance and the credit on overflow. Runs
// inside the caller's transaction so a failed transfer leaves no trace.
func (r *Repository) Transfer(
	tx *gorm.DB,
	from, to string,
	amount int64,
	currencyMint string,
	kind models.LedgerEntryKind,
	marketID *uuid.UUID,
) error {
	if amount < 0 {
		return fmt.Errorf("negative transfer amount %d", amount)
	}
	if amount == 0 {
		return nil
	}

	source, err := r.GetHolding(tx, from)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("source holding %s: %w", from, models.ErrInsufficientFunds)
		}
		return err
	}
	dest, err := r.GetHolding(tx, to)
	if err != nil {
		return fmt.Errorf("destination holding %s: %w", to, err)
	}

	if source.CurrencyMint != currencyMint || dest.CurrencyMint != currencyMint {
		return models.ErrCurrencyMismatch
	}
	if source.Balance < amount {
		return models.ErrInsufficientFunds
	}
	if dest.Balance > math.MaxInt64-amount {
		return models.ErrArithmeticOverflow
	}

	source.Balance -= amount
	dest.Balance += amount

	if err := tx.Save(source).Error; err != nil {
		return err
	}
	if err := tx.Save(dest).Error; err != nil {
		return err
	}

	entry := &models.LedgerEntry{
		MarketID:    marketID,
		Kind:        kind,
		FromAddress: from,
		ToAddress:   to,
		Amount:      amount,
	}
	return tx.Create(entry).Error
}

// Credit mints amount into a holding against a verified external deposit.
// The deposit signature is unique in the ledger, so replaying the same
// transaction cannot credit twice.
func (r *Repository) Credit(
	tx *gorm.DB,
	address string,
	amount int64,
	txSignature string,
) error {
	if amount <= 0 {
		return fmt.Errorf("deposit amount must be positive, got %d", amount)
	}

	holding, err := r.GetHolding(tx, address)
	if err != nil {
		return err
	}
	if holding.Balance > math.MaxInt64-amount {
		return models.ErrArithmeticOverflow
	}

	holding.Balance += amount
	if err := tx.Save(holding).Error; err != nil {
		return err
	}

	entry := &models.LedgerEntry{
		Kind:        models.LedgerKindDeposit,
		FromAddress: "external",
		ToAddress:   address,
		Amount:      amount,
		TxSignature: &txSignature,
	}
	return tx.Create(entry).Error
}

// DepositRecorded reports whether a deposit with this signature was already
// credited.
func (r *Repository) DepositRecorded(tx *gorm.DB, txSignature string) (bool, error) {
	var count int64
	err := tx.Model(&models.LedgerEntry{}).
		Where("tx_signature = ?", txSignature).
		Count(&count).Error
	return count > 0, err
}

// ListLedgerEntries returns a market's audit trail, oldest first.
func (r *Repository) ListLedgerEntries(ctx context.Context, marketID uuid.UUID, limit, offset int) ([]*models.LedgerEntry, error) {
	var entries []*models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
