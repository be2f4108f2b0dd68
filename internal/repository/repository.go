package repository

import (
	"context"
	"errors"

	"opinion-market/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transaction runs fn in a single database transaction. Every mutating ledger
// operation goes through here so each call is all-or-nothing.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// withRowLock adds SELECT ... FOR UPDATE on backends that support it. SQLite
// (tests) serializes writers on its own, so the clause is skipped there.
func withRowLock(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// Program config

// GetConfig returns the singleton program config.
func (r *Repository) GetConfig(ctx context.Context) (*models.ProgramConfig, error) {
	var cfg models.ProgramConfig
	err := r.db.WithContext(ctx).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrConfigNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetConfigTx returns the singleton config inside a transaction.
func (r *Repository) GetConfigTx(tx *gorm.DB) (*models.ProgramConfig, error) {
	var cfg models.ProgramConfig
	err := tx.First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrConfigNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// CreateConfig inserts the singleton config row.
func (r *Repository) CreateConfig(tx *gorm.DB, cfg *models.ProgramConfig) error {
	return tx.Create(cfg).Error
}

// SaveConfig persists a rotated config.
func (r *Repository) SaveConfig(tx *gorm.DB, cfg *models.ProgramConfig) error {
	return tx.Save(cfg).Error
}

// Markets

// LockMarket loads a market by its 128-bit id and locks the row for the
// remainder of the transaction, serializing all mutations per market.
func (r *Repository) LockMarket(tx *gorm.DB, marketID uuid.UUID) (*models.Market, error) {
	var market models.Market
	err := withRowLock(tx).Where("market_id = ?", marketID).First(&market).Error
	if err != nil {
		return nil, err
	}
	return &market, nil
}

func (r *Repository) CreateMarket(tx *gorm.DB, market *models.Market) error {
	return tx.Create(market).Error
}

func (r *Repository) SaveMarket(tx *gorm.DB, market *models.Market) error {
	return tx.Save(market).Error
}

// MarketExists reports whether a market with this id already exists.
func (r *Repository) MarketExists(tx *gorm.DB, marketID uuid.UUID) (bool, error) {
	var count int64
	err := tx.Model(&models.Market{}).Where("market_id = ?", marketID).Count(&count).Error
	return count > 0, err
}

// GetMarketByUUID retrieves a market outside a transaction (read paths).
func (r *Repository) GetMarketByUUID(ctx context.Context, marketID uuid.UUID) (*models.Market, error) {
	var market models.Market
	err := r.db.WithContext(ctx).Where("market_id = ?", marketID).First(&market).Error
	if err != nil {
		return nil, err
	}
	return &market, nil
}

// ListMarkets returns markets filtered by state, newest first.
func (r *Repository) ListMarkets(ctx context.Context, state models.MarketState, limit, offset int) ([]*models.Market, error) {
	var markets []*models.Market
	query := r.db.WithContext(ctx)
	if state != "" {
		query = query.Where("state = ?", state)
	}
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&markets).Error
	if err != nil {
		return nil, err
	}
	return markets, nil
}

// ListExpiredActiveMarkets returns ACTIVE markets whose deadline has passed,
// oldest first, for the closer job.
func (r *Repository) ListExpiredActiveMarkets(ctx context.Context, limit int) ([]*models.Market, error) {
	var markets []*models.Market
	err := r.db.WithContext(ctx).
		Where("state = ? AND closes_at <= CURRENT_TIMESTAMP", models.MarketStateActive).
		Order("closes_at ASC").
		Limit(limit).
		Find(&markets).Error
	if err != nil {
		return nil, err
	}
	return markets, nil
}

// Opinions and reactions

func (r *Repository) CreateOpinion(tx *gorm.DB, opinion *models.Opinion) error {
	return tx.Create(opinion).Error
}

func (r *Repository) SaveOpinion(tx *gorm.DB, opinion *models.Opinion) error {
	return tx.Save(opinion).Error
}

// OpinionExists reports whether the staker already holds an opinion in the
// market.
func (r *Repository) OpinionExists(tx *gorm.DB, marketID uuid.UUID, staker string) (bool, error) {
	var count int64
	err := tx.Model(&models.Opinion{}).
		Where("market_id = ? AND staker = ?", marketID, staker).
		Count(&count).Error
	return count > 0, err
}

// GetOpinionByAddress loads an opinion by its derived address.
func (r *Repository) GetOpinionByAddress(tx *gorm.DB, address string) (*models.Opinion, error) {
	var opinion models.Opinion
	err := withRowLock(tx).Where("address = ?", address).First(&opinion).Error
	if err != nil {
		return nil, err
	}
	return &opinion, nil
}

// OpinionsAfterSeq returns up to limit opinions with seq > afterSeq in seq
// order: the settlement batch slice.
func (r *Repository) OpinionsAfterSeq(tx *gorm.DB, marketID uuid.UUID, afterSeq int64, limit int) ([]*models.Opinion, error) {
	var opinions []*models.Opinion
	err := tx.Where("market_id = ? AND seq > ?", marketID, afterSeq).
		Order("seq ASC").
		Limit(limit).
		Find(&opinions).Error
	if err != nil {
		return nil, err
	}
	return opinions, nil
}

// ListOpinions returns a market's opinions in stake order (read paths).
func (r *Repository) ListOpinions(ctx context.Context, marketID uuid.UUID, limit, offset int) ([]*models.Opinion, error) {
	var opinions []*models.Opinion
	err := r.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("seq ASC").
		Limit(limit).
		Offset(offset).
		Find(&opinions).Error
	if err != nil {
		return nil, err
	}
	return opinions, nil
}

// SumStakes returns the sum of recorded stakes for a market, for the escrow
// conservation check.
func (r *Repository) SumStakes(tx *gorm.DB, marketID uuid.UUID) (int64, error) {
	var total int64
	err := tx.Model(&models.Opinion{}).
		Where("market_id = ?", marketID).
		Select("COALESCE(SUM(stake_amount), 0)").
		Scan(&total).Error
	return total, err
}

func (r *Repository) CreateReaction(tx *gorm.DB, reaction *models.Reaction) error {
	return tx.Create(reaction).Error
}

// ReactionExists reports whether the reactor already reacted to the opinion.
func (r *Repository) ReactionExists(tx *gorm.DB, opinionID uint, reactor string) (bool, error) {
	var count int64
	err := tx.Model(&models.Reaction{}).
		Where("opinion_id = ? AND reactor = ?", opinionID, reactor).
		Count(&count).Error
	return count > 0, err
}

// Randomness requests

func (r *Repository) CreateRandomnessRequest(tx *gorm.DB, req *models.RandomnessRequest) error {
	return tx.Create(req).Error
}

func (r *Repository) SaveRandomnessRequest(tx *gorm.DB, req *models.RandomnessRequest) error {
	return tx.Save(req).Error
}

// GetRandomnessRequest returns the market's randomness request or nil when
// none has been made yet.
func (r *Repository) GetRandomnessRequest(tx *gorm.DB, marketID uuid.UUID) (*models.RandomnessRequest, error) {
	var req models.RandomnessRequest
	err := withRowLock(tx).Where("market_id = ?", marketID).First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}
