package services

import (
	"context"
	"log"
	"time"

	"opinion-market/internal/addressing"
	"opinion-market/internal/models"
	"opinion-market/internal/repository"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"gorm.io/gorm"
)

// OracleService handles the post-close attestation flow: the oracle records
// the aggregated sentiment score and requests randomness, and the VRF
// provider fulfills the request. All three writes are write-once.
type OracleService struct {
	repo    *repository.Repository
	deriver *addressing.Deriver
}

func NewOracleService(repo *repository.Repository, deriver *addressing.Deriver) *OracleService {
	return &OracleService{repo: repo, deriver: deriver}
}

type RecordSentimentParams struct {
	MarketID   uuid.UUID
	Score      int16
	Confidence models.ConfidenceTier
	Proof      string
}

// RecordSentiment writes the oracle's aggregated sentiment score onto a
// CLOSED market. Only the configured oracle authority may call it, and only
// once per market.
func (s *OracleService) RecordSentiment(ctx context.Context, caller string, p RecordSentimentParams) (*models.Market, error) {
	if p.Score < 0 || p.Score > 100 {
		return nil, models.ErrInvalidScore
	}
	if !models.ValidConfidence(p.Confidence) {
		return nil, models.ErrInvalidConfidence
	}

	var market *models.Market
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		cfg, err := s.repo.GetConfigTx(tx)
		if err != nil {
			return err
		}
		if caller != cfg.OracleAuthority {
			return models.ErrUnauthorized
		}

		market, err = s.repo.LockMarket(tx, p.MarketID)
		if err != nil {
			return err
		}
		if market.State != models.MarketStateClosed {
			return models.ErrInvalidState
		}
		if market.Attested() {
			return models.ErrAlreadyAttested
		}

		now := time.Now()
		score := p.Score
		confidence := p.Confidence
		market.SentimentScore = &score
		market.Confidence = &confidence
		market.AttestationProof = p.Proof
		market.ScoredAt = &now
		return s.repo.SaveMarket(tx, market)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Sentiment recorded: market=%s score=%d confidence=%s", p.MarketID, p.Score, p.Confidence)
	return market, nil
}

// RequestRandomness opens the commit phase of the randomness handshake for a
// CLOSED market. Oracle-only; at most one request per market.
func (s *OracleService) RequestRandomness(ctx context.Context, caller string, marketID uuid.UUID) (*models.RandomnessRequest, error) {
	var request *models.RandomnessRequest
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		cfg, err := s.repo.GetConfigTx(tx)
		if err != nil {
			return err
		}
		if caller != cfg.OracleAuthority {
			return models.ErrUnauthorized
		}

		market, err := s.repo.LockMarket(tx, marketID)
		if err != nil {
			return err
		}
		if market.State != models.MarketStateClosed {
			return models.ErrInvalidState
		}

		existing, err := s.repo.GetRandomnessRequest(tx, marketID)
		if err != nil {
			return err
		}
		if existing != nil {
			return models.ErrRandomnessRequested
		}

		address, err := s.deriver.VRFRequestAddress(market.Address)
		if err != nil {
			return err
		}
		request = &models.RandomnessRequest{
			MarketID:    marketID,
			Address:     address,
			RequestedBy: caller,
			RequestedAt: time.Now(),
		}
		return s.repo.CreateRandomnessRequest(tx, request)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Randomness requested: market=%s", marketID)
	return request, nil
}

// FulfillRandomness writes the provider's 32-byte value onto an open
// request. Only the configured VRF authority may call it; a fulfilled
// request is immutable.
func (s *OracleService) FulfillRandomness(ctx context.Context, caller string, marketID uuid.UUID, value string) (*models.RandomnessRequest, error) {
	if raw, err := base58.Decode(value); err != nil || len(raw) != 32 {
		return nil, models.ErrInvalidRandomValue
	}

	var request *models.RandomnessRequest
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		cfg, err := s.repo.GetConfigTx(tx)
		if err != nil {
			return err
		}
		if caller != cfg.VRFAuthority {
			return models.ErrUnauthorized
		}

		request, err = s.repo.GetRandomnessRequest(tx, marketID)
		if err != nil {
			return err
		}
		if request == nil {
			return models.ErrRandomnessNotFound
		}
		if request.Fulfilled {
			return models.ErrAlreadyFulfilled
		}

		now := time.Now()
		request.Fulfilled = true
		request.Value = value
		request.FulfilledAt = &now
		return s.repo.SaveRandomnessRequest(tx, request)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Randomness fulfilled: market=%s", marketID)
	return request, nil
}

// GetRandomness returns the request for a market, or nil if none exists.
func (s *OracleService) GetRandomness(ctx context.Context, marketID uuid.UUID) (*models.RandomnessRequest, error) {
	var request *models.RandomnessRequest
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		request, err = s.repo.GetRandomnessRequest(tx, marketID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}
