package services

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"time"

	"opinion-market/internal/locks"
	"opinion-market/internal/models"
	"opinion-market/internal/repository"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"gorm.io/gorm"
)

const (
	DefaultSettlementBatchSize = 100

	settlementLockTTL = 30 * time.Second
)

// SettlementService runs the batched, resumable payout engine. Each Settle
// call processes at most one batch of opinions; callers re-invoke until the
// returned progress reports Settled. All progress is durable on the market
// row, so a crashed run resumes exactly where it stopped and never pays an
// opinion twice.
type SettlementService struct {
	repo    *repository.Repository
	locks   locks.Manager
	scoring ScoringPolicy
}

func NewSettlementService(repo *repository.Repository, lockMgr locks.Manager, scoring ScoringPolicy) *SettlementService {
	if scoring == nil {
		scoring = ProximityScoring{}
	}
	return &SettlementService{repo: repo, locks: lockMgr, scoring: scoring}
}

// SettlementProgress reports how far settlement has advanced after one
// batch.
type SettlementProgress struct {
	Phase       models.SettlementPhase `json:"phase"`
	WeighCursor int64                  `json:"weigh_cursor"`
	PayCursor   int64                  `json:"pay_cursor"`
	TotalWeight int64                  `json:"total_weight"`
	PrizePool   int64                  `json:"prize_pool"`
	TotalPaid   int64                  `json:"total_paid"`
	BonusWinner *string                `json:"bonus_winner,omitempty"`
	BonusAmount int64                  `json:"bonus_amount,omitempty"`
	Settled     bool                   `json:"settled"`
}

// Settle advances a market's settlement by one batch. The market must be
// CLOSED with sentiment attested and randomness fulfilled. Concurrent calls
// for the same market are rejected with ErrSettlementInProgress rather than
// queued.
func (s *SettlementService) Settle(ctx context.Context, marketID uuid.UUID, batchSize int) (*SettlementProgress, error) {
	if batchSize <= 0 {
		batchSize = DefaultSettlementBatchSize
	}

	release, err := s.locks.Acquire(ctx, "settle:"+marketID.String(), settlementLockTTL)
	if err != nil {
		if err == locks.ErrHeld {
			return nil, models.ErrSettlementInProgress
		}
		return nil, err
	}
	defer release()

	var progress *SettlementProgress
	err = s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		market, err := s.repo.LockMarket(tx, marketID)
		if err != nil {
			return err
		}
		if market.State == models.MarketStateSettled {
			return models.ErrAlreadySettled
		}
		if market.State != models.MarketStateClosed {
			return models.ErrInvalidState
		}

		request, err := s.repo.GetRandomnessRequest(tx, marketID)
		if err != nil {
			return err
		}
		if !market.Attested() || request == nil || !request.Fulfilled {
			return models.ErrNotReadyForSettlement
		}

		cfg, err := s.repo.GetConfigTx(tx)
		if err != nil {
			return err
		}

		if market.SettlementPhase == models.SettlementPhaseNone {
			escrow, err := s.repo.GetHolding(tx, market.EscrowAddress)
			if err != nil {
				return err
			}
			// The pool must still hold exactly the recorded stakes.
			if escrow.Balance != market.TotalStake {
				return fmt.Errorf("escrow balance %d does not match staked total %d", escrow.Balance, market.TotalStake)
			}
			market.SettlementPhase = models.SettlementPhaseWeighing
			market.PrizePool = escrow.Balance
		}

		switch market.SettlementPhase {
		case models.SettlementPhaseWeighing:
			err = s.weighBatch(tx, market, request, batchSize)
		case models.SettlementPhasePaying:
			err = s.payBatch(tx, market, cfg, batchSize)
		}
		if err != nil {
			return err
		}

		if err := s.repo.SaveMarket(tx, market); err != nil {
			return err
		}

		progress = &SettlementProgress{
			Phase:       market.SettlementPhase,
			WeighCursor: market.WeighCursor,
			PayCursor:   market.PayCursor,
			TotalWeight: market.TotalWeight,
			PrizePool:   market.PrizePool,
			TotalPaid:   market.TotalPaid,
			BonusWinner: market.BonusWinner,
			BonusAmount: market.BonusAmount,
			Settled:     market.State == models.MarketStateSettled,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Settlement batch done: market=%s phase=%s weigh=%d pay=%d settled=%t",
		marketID, progress.Phase, progress.WeighCursor, progress.PayCursor, progress.Settled)
	return progress, nil
}

// weighBatch scores the next batch of opinions and accumulates the market's
// total weight. When the scan runs out of opinions it fixes the bonus
// threshold from the random value and advances to the paying phase.
func (s *SettlementService) weighBatch(tx *gorm.DB, market *models.Market, request *models.RandomnessRequest, batchSize int) error {
	opinions, err := s.repo.OpinionsAfterSeq(tx, market.MarketID, market.WeighCursor, batchSize)
	if err != nil {
		return err
	}

	for _, opinion := range opinions {
		weight, err := s.scoring.Weight(opinion, *market.SentimentScore)
		if err != nil {
			return fmt.Errorf("weighing opinion %s: %w", opinion.Address, err)
		}
		opinion.Weight = weight
		if err := s.repo.SaveOpinion(tx, opinion); err != nil {
			return err
		}
		market.TotalWeight, err = checkedAdd(market.TotalWeight, weight)
		if err != nil {
			return err
		}
		market.WeighCursor = opinion.Seq
	}

	if len(opinions) < batchSize {
		threshold, err := bonusThreshold(request.Value, market.TotalWeight)
		if err != nil {
			return err
		}
		market.BonusThreshold = threshold
		market.SettlementPhase = models.SettlementPhasePaying
	}
	return nil
}

// payBatch pays the next batch of opinions their proportional share of the
// pool and, on the final batch, collects the protocol fee, sweeps the
// remainder to the bonus winner and marks the market SETTLED.
func (s *SettlementService) payBatch(tx *gorm.DB, market *models.Market, cfg *models.ProgramConfig, batchSize int) error {
	protocolFee, err := mulDiv(market.PrizePool, int64(cfg.ProtocolFeeBps), 10000)
	if err != nil {
		return err
	}
	payoutPool := market.PrizePool - protocolFee

	opinions, err := s.repo.OpinionsAfterSeq(tx, market.MarketID, market.PayCursor, batchSize)
	if err != nil {
		return err
	}

	for _, opinion := range opinions {
		// A replayed batch skips opinions it already paid.
		if opinion.PaidAt == nil {
			payout := int64(0)
			if market.TotalWeight > 0 {
				payout, err = mulDiv(payoutPool, opinion.Weight, market.TotalWeight)
				if err != nil {
					return err
				}
			}

			if market.BonusWinner == nil && market.TotalWeight > 0 &&
				market.CumulativeWeight+opinion.Weight > market.BonusThreshold {
				staker := opinion.Staker
				market.BonusWinner = &staker
			}
			market.CumulativeWeight, err = checkedAdd(market.CumulativeWeight, opinion.Weight)
			if err != nil {
				return err
			}

			if payout > 0 {
				if err := s.repo.Transfer(tx, market.EscrowAddress, opinion.Staker, payout, cfg.CurrencyMint, models.LedgerKindPayout, &market.MarketID); err != nil {
					return fmt.Errorf("paying opinion %s: %w", opinion.Address, err)
				}
			}

			now := time.Now()
			opinion.Payout = &payout
			opinion.PaidAt = &now
			if err := s.repo.SaveOpinion(tx, opinion); err != nil {
				return err
			}
			market.TotalPaid, err = checkedAdd(market.TotalPaid, payout)
			if err != nil {
				return err
			}
		}
		market.PayCursor = opinion.Seq
	}

	if len(opinions) < batchSize {
		return s.finalize(tx, market, cfg, protocolFee)
	}
	return nil
}

// finalize collects the protocol fee, sweeps the rounding remainder to the
// bonus winner (or to the treasury when the market had no weight) and marks
// the market SETTLED. After it runs the escrow is exactly empty.
func (s *SettlementService) finalize(tx *gorm.DB, market *models.Market, cfg *models.ProgramConfig, protocolFee int64) error {
	if protocolFee > 0 {
		if err := s.repo.Transfer(tx, market.EscrowAddress, cfg.Treasury, protocolFee, cfg.CurrencyMint, models.LedgerKindProtocolFee, &market.MarketID); err != nil {
			return fmt.Errorf("protocol fee transfer failed: %w", err)
		}
	}

	escrow, err := s.repo.GetHolding(tx, market.EscrowAddress)
	if err != nil {
		return err
	}
	if escrow.Balance > 0 {
		recipient := cfg.Treasury
		kind := models.LedgerKindProtocolFee
		if market.BonusWinner != nil {
			recipient = *market.BonusWinner
			kind = models.LedgerKindBonus
			market.BonusAmount = escrow.Balance
		}
		if err := s.repo.Transfer(tx, market.EscrowAddress, recipient, escrow.Balance, cfg.CurrencyMint, kind, &market.MarketID); err != nil {
			return fmt.Errorf("remainder sweep failed: %w", err)
		}
	}

	escrow, err = s.repo.GetHolding(tx, market.EscrowAddress)
	if err != nil {
		return err
	}
	if escrow.Balance != 0 {
		return fmt.Errorf("escrow not empty after settlement: %d remaining", escrow.Balance)
	}

	now := time.Now()
	market.State = models.MarketStateSettled
	market.SettledAt = &now
	return nil
}

// bonusThreshold maps the 32-byte random value onto [0, totalWeight). The
// bonus winner is the opinion whose cumulative weight first exceeds the
// threshold, so each opinion wins with probability proportional to its
// weight.
func bonusThreshold(value string, totalWeight int64) (int64, error) {
	if totalWeight <= 0 {
		return 0, nil
	}
	raw, err := base58.Decode(value)
	if err != nil || len(raw) < 8 {
		return 0, models.ErrInvalidRandomValue
	}
	return int64(binary.BigEndian.Uint64(raw[:8]) % uint64(totalWeight)), nil
}
