package services

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"opinion-market/internal/addressing"
	"opinion-market/internal/models"
	"opinion-market/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StakingService records staked opinions and credibility reactions.
type StakingService struct {
	repo    *repository.Repository
	deriver *addressing.Deriver
}

func NewStakingService(repo *repository.Repository, deriver *addressing.Deriver) *StakingService {
	return &StakingService{repo: repo, deriver: deriver}
}

type StakeOpinionParams struct {
	MarketID       uuid.UUID
	StakeAmount    int64
	TextHash       string
	ContentLocator string
	Prediction     *int16
}

// StakeOpinion moves the stake into the market's escrow and records the
// opinion in the same transaction. One opinion per staker per market; the
// stake and the recorded text hash are immutable afterwards.
func (s *StakingService) StakeOpinion(ctx context.Context, staker string, p StakeOpinionParams) (*models.Opinion, error) {
	if raw, err := hex.DecodeString(p.TextHash); err != nil || len(raw) != 32 {
		return nil, models.ErrInvalidTextHash
	}
	if len(p.ContentLocator) > models.MaxLocatorLen {
		return nil, models.ErrLocatorTooLong
	}
	if p.Prediction != nil && (*p.Prediction < 0 || *p.Prediction > 100) {
		return nil, models.ErrInvalidPrediction
	}

	var opinion *models.Opinion
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		cfg, err := s.repo.GetConfigTx(tx)
		if err != nil {
			return err
		}
		if p.StakeAmount < cfg.MinStake {
			return models.ErrStakeTooSmall
		}
		if p.StakeAmount > cfg.MaxStake {
			return models.ErrStakeTooLarge
		}

		market, err := s.repo.LockMarket(tx, p.MarketID)
		if err != nil {
			return err
		}
		if market.State != models.MarketStateActive || market.Expired(time.Now()) {
			return models.ErrMarketNotActive
		}

		exists, err := s.repo.OpinionExists(tx, p.MarketID, staker)
		if err != nil {
			return err
		}
		if exists {
			return models.ErrDuplicateOpinion
		}

		if err := s.repo.Transfer(tx, staker, market.EscrowAddress, p.StakeAmount, cfg.CurrencyMint, models.LedgerKindStake, &market.MarketID); err != nil {
			return fmt.Errorf("stake transfer failed: %w", err)
		}

		address, err := s.deriver.OpinionAddress(market.Address, staker)
		if err != nil {
			return err
		}

		opinion = &models.Opinion{
			Address:        address,
			MarketID:       p.MarketID,
			Staker:         staker,
			Seq:            market.StakerCount + 1,
			StakeAmount:    p.StakeAmount,
			TextHash:       p.TextHash,
			ContentLocator: p.ContentLocator,
			Prediction:     p.Prediction,
		}
		if err := s.repo.CreateOpinion(tx, opinion); err != nil {
			return err
		}

		market.StakerCount++
		market.TotalStake, err = checkedAdd(market.TotalStake, p.StakeAmount)
		if err != nil {
			return err
		}
		if err := s.repo.SaveMarket(tx, market); err != nil {
			return err
		}

		// The escrow holding must always equal the sum of recorded stakes.
		escrow, err := s.repo.GetHolding(tx, market.EscrowAddress)
		if err != nil {
			return err
		}
		sum, err := s.repo.SumStakes(tx, p.MarketID)
		if err != nil {
			return err
		}
		if escrow.Balance != sum {
			return fmt.Errorf("escrow balance %d does not match staked total %d", escrow.Balance, sum)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Opinion staked: market=%s staker=%s amount=%d seq=%d", p.MarketID, staker, p.StakeAmount, opinion.Seq)
	return opinion, nil
}

type ReactParams struct {
	OpinionAddress string
	Type           models.ReactionType
	Amount         int64
}

// ReactToOpinion records a BACK or SLASH credibility signal against another
// participant's opinion. Reactions adjust the opinion's tallies only; no
// funds move. Reactions stay open through ACTIVE and CLOSED and are cut off
// once settlement begins, so recorded weights cannot shift mid-weighing.
func (s *StakingService) ReactToOpinion(ctx context.Context, reactor string, p ReactParams) (*models.Reaction, error) {
	if p.Type != models.ReactionBack && p.Type != models.ReactionSlash {
		return nil, models.ErrInvalidReactionType
	}
	if p.Amount <= 0 {
		return nil, models.ErrInvalidReactionAmount
	}

	var reaction *models.Reaction
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		opinion, err := s.repo.GetOpinionByAddress(tx, p.OpinionAddress)
		if err != nil {
			return err
		}
		if opinion.Staker == reactor {
			return models.ErrSelfReaction
		}

		market, err := s.repo.LockMarket(tx, opinion.MarketID)
		if err != nil {
			return err
		}
		if market.State == models.MarketStateSettled || market.SettlementPhase != models.SettlementPhaseNone {
			return models.ErrInvalidState
		}

		exists, err := s.repo.ReactionExists(tx, opinion.ID, reactor)
		if err != nil {
			return err
		}
		if exists {
			return models.ErrDuplicateReaction
		}

		reaction = &models.Reaction{
			OpinionID: opinion.ID,
			Reactor:   reactor,
			Type:      p.Type,
			Amount:    p.Amount,
		}
		if err := s.repo.CreateReaction(tx, reaction); err != nil {
			return err
		}

		switch p.Type {
		case models.ReactionBack:
			opinion.BackedAmount, err = checkedAdd(opinion.BackedAmount, p.Amount)
		case models.ReactionSlash:
			opinion.SlashedAmount, err = checkedAdd(opinion.SlashedAmount, p.Amount)
		}
		if err != nil {
			return err
		}
		return s.repo.SaveOpinion(tx, opinion)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Reaction recorded: opinion=%s reactor=%s type=%s amount=%d", p.OpinionAddress, reactor, p.Type, p.Amount)
	return reaction, nil
}

// ListOpinions returns a market's opinions in stake order.
func (s *StakingService) ListOpinions(ctx context.Context, marketID uuid.UUID, limit, offset int) ([]*models.Opinion, error) {
	return s.repo.ListOpinions(ctx, marketID, limit, offset)
}
