package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"opinion-market/internal/addressing"
	"opinion-market/internal/models"
	"opinion-market/internal/repository"

	"gorm.io/gorm"
)

// ConfigService manages the singleton program configuration: the trust
// anchor holding the oracle, VRF and treasury identities and the accepted
// settlement currency.
type ConfigService struct {
	repo    *repository.Repository
	deriver *addressing.Deriver
}

func NewConfigService(repo *repository.Repository, deriver *addressing.Deriver) *ConfigService {
	return &ConfigService{repo: repo, deriver: deriver}
}

// InitializeParams are the genesis identities for the ledger.
type InitializeParams struct {
	Authority       string
	OracleAuthority string
	VRFAuthority    string
	Treasury        string
	CurrencyMint    string
}

// Initialize creates the singleton config and opens the treasury holding.
// Fails with ErrConfigExists if called more than once.
func (s *ConfigService) Initialize(ctx context.Context, p InitializeParams) (*models.ProgramConfig, error) {
	for _, id := range []string{p.Authority, p.OracleAuthority, p.VRFAuthority, p.Treasury, p.CurrencyMint} {
		if err := addressing.ValidateIdentity(id); err != nil {
			return nil, err
		}
	}

	address, err := s.deriver.ConfigAddress()
	if err != nil {
		return nil, err
	}

	cfg := &models.ProgramConfig{
		Address:         address,
		Authority:       p.Authority,
		OracleAuthority: p.OracleAuthority,
		VRFAuthority:    p.VRFAuthority,
		Treasury:        p.Treasury,
		CurrencyMint:    p.CurrencyMint,
		CreateFee:       models.CreateFee,
		MinStake:        models.MinStake,
		MaxStake:        models.MaxStake,
		ProtocolFeeBps:  models.ProtocolFeeBps,
	}

	err = s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		_, err := s.repo.GetConfigTx(tx)
		if err == nil {
			return models.ErrConfigExists
		}
		if !errors.Is(err, models.ErrConfigNotFound) {
			return err
		}

		if err := s.repo.CreateConfig(tx, cfg); err != nil {
			return fmt.Errorf("failed to create config: %w", err)
		}

		// Treasury holding is keyed by the treasury identity itself.
		if _, err := s.repo.GetOrCreateHolding(tx, p.Treasury, p.Treasury, p.CurrencyMint); err != nil {
			return fmt.Errorf("failed to open treasury holding: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Program config initialized: oracle=%s treasury=%s", p.OracleAuthority, p.Treasury)
	return cfg, nil
}

// RotateParams carries the optional identity replacements. Empty fields keep
// the current value; the currency mint is immutable after genesis.
type RotateParams struct {
	OracleAuthority string
	VRFAuthority    string
	Treasury        string
}

// Rotate replaces trust-anchor identities. Only the genesis authority may
// call it.
func (s *ConfigService) Rotate(ctx context.Context, caller string, p RotateParams) (*models.ProgramConfig, error) {
	var cfg *models.ProgramConfig
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		cfg, err = s.repo.GetConfigTx(tx)
		if err != nil {
			return err
		}
		if caller != cfg.Authority {
			return models.ErrUnauthorized
		}

		if p.OracleAuthority != "" {
			if err := addressing.ValidateIdentity(p.OracleAuthority); err != nil {
				return err
			}
			cfg.OracleAuthority = p.OracleAuthority
		}
		if p.VRFAuthority != "" {
			if err := addressing.ValidateIdentity(p.VRFAuthority); err != nil {
				return err
			}
			cfg.VRFAuthority = p.VRFAuthority
		}
		if p.Treasury != "" {
			if err := addressing.ValidateIdentity(p.Treasury); err != nil {
				return err
			}
			if _, err := s.repo.GetOrCreateHolding(tx, p.Treasury, p.Treasury, cfg.CurrencyMint); err != nil {
				return fmt.Errorf("failed to open rotated treasury holding: %w", err)
			}
			cfg.Treasury = p.Treasury
		}

		return s.repo.SaveConfig(tx, cfg)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Program config rotated by %s", caller)
	return cfg, nil
}

// Get returns the current config.
func (s *ConfigService) Get(ctx context.Context) (*models.ProgramConfig, error) {
	return s.repo.GetConfig(ctx)
}
