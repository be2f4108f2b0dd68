package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"opinion-market/internal/addressing"
	"opinion-market/internal/models"
	"opinion-market/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MarketService owns the market lifecycle: creation (with fee collection)
// and the permissionless expiry close.
type MarketService struct {
	repo    *repository.Repository
	deriver *addressing.Deriver
}

func NewMarketService(repo *repository.Repository, deriver *addressing.Deriver) *MarketService {
	return &MarketService{repo: repo, deriver: deriver}
}

// CreateMarketParams are the caller-supplied creation inputs. MarketID is a
// client-generated 128-bit id; a collision is a creation failure, never an
// overwrite.
type CreateMarketParams struct {
	MarketID     uuid.UUID
	Statement    string
	DurationSecs int64
}

// CreateMarket debits the fixed creation fee from the creator to the
// treasury (the fee never enters escrow), opens the market's escrow holding
// and creates the market in ACTIVE state.
func (s *MarketService) CreateMarket(ctx context.Context, creator string, p CreateMarketParams) (*models.Market, error) {
	if p.Statement == "" {
		return nil, models.ErrStatementEmpty
	}
	if len(p.Statement) > models.MaxStatementLen {
		return nil, models.ErrStatementTooLong
	}
	if !models.ValidDuration(p.DurationSecs) {
		return nil, models.ErrInvalidDuration
	}

	marketAddress, err := s.deriver.MarketAddress(p.MarketID)
	if err != nil {
		return nil, err
	}
	escrowAddress, err := s.deriver.EscrowAddress(marketAddress)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	market := &models.Market{
		MarketID:      p.MarketID,
		Address:       marketAddress,
		EscrowAddress: escrowAddress,
		Statement:     p.Statement,
		Creator:       creator,
		State:         models.MarketStateActive,
		DurationSecs:  p.DurationSecs,
		ClosesAt:      now.Add(time.Duration(p.DurationSecs) * time.Second),
		CreatedAt:     now,
	}

	err = s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		cfg, err := s.repo.GetConfigTx(tx)
		if err != nil {
			return err
		}

		exists, err := s.repo.MarketExists(tx, p.MarketID)
		if err != nil {
			return err
		}
		if exists {
			return models.ErrDuplicateMarket
		}

		// Creation fee: creator -> treasury. It is not part of the pool.
		marketID := p.MarketID
		if err := s.repo.Transfer(tx, creator, cfg.Treasury, cfg.CreateFee, cfg.CurrencyMint, models.LedgerKindCreateFee, &marketID); err != nil {
			return fmt.Errorf("creation fee transfer failed: %w", err)
		}

		if _, err := s.repo.GetOrCreateHolding(tx, escrowAddress, marketAddress, cfg.CurrencyMint); err != nil {
			return fmt.Errorf("failed to open escrow holding: %w", err)
		}

		return s.repo.CreateMarket(tx, market)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Market created: id=%s closes_at=%s", p.MarketID, market.ClosesAt.Format(time.RFC3339))
	return market, nil
}

// CloseMarket transitions an expired ACTIVE market to CLOSED. Permissionless:
// it only certifies a timing fact.
func (s *MarketService) CloseMarket(ctx context.Context, marketID uuid.UUID) (*models.Market, error) {
	var market *models.Market
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		market, err = s.repo.LockMarket(tx, marketID)
		if err != nil {
			return err
		}

		if market.State != models.MarketStateActive {
			return models.ErrInvalidState
		}
		if !market.Expired(time.Now()) {
			return models.ErrMarketNotExpired
		}

		market.State = models.MarketStateClosed
		return s.repo.SaveMarket(tx, market)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Market closed: id=%s", marketID)
	return market, nil
}

// GetMarket retrieves a market by id.
func (s *MarketService) GetMarket(ctx context.Context, marketID uuid.UUID) (*models.Market, error) {
	return s.repo.GetMarketByUUID(ctx, marketID)
}

// ListMarkets returns markets filtered by state.
func (s *MarketService) ListMarkets(ctx context.Context, state models.MarketState, limit, offset int) ([]*models.Market, error) {
	return s.repo.ListMarkets(ctx, state, limit, offset)
}

// ListExpired returns ACTIVE markets past their deadline (used by the closer
// job).
func (s *MarketService) ListExpired(ctx context.Context, limit int) ([]*models.Market, error) {
	return s.repo.ListExpiredActiveMarkets(ctx, limit)
}
