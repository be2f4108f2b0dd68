package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"opinion-market/internal/blockchain"
	"opinion-market/internal/models"
	"opinion-market/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionVerifier confirms an external deposit transaction on-chain and
// returns its details. Satisfied by blockchain.SolanaClient; tests supply a
// stub.
type TransactionVerifier interface {
	VerifyTransaction(ctx context.Context, txHash string) (*blockchain.TransactionDetails, error)
}

// WalletService bridges on-chain deposits into the internal ledger and
// answers balance queries.
type WalletService struct {
	repo     *repository.Repository
	verifier TransactionVerifier
}

func NewWalletService(repo *repository.Repository, verifier TransactionVerifier) *WalletService {
	return &WalletService{repo: repo, verifier: verifier}
}

// Deposit verifies the on-chain transaction and credits the wallet's
// holding. The transaction signature is unique in the ledger, so submitting
// the same deposit twice credits once.
func (s *WalletService) Deposit(ctx context.Context, wallet, txSignature string) (*models.Holding, error) {
	details, err := s.verifier.VerifyTransaction(ctx, txSignature)
	if err != nil {
		return nil, fmt.Errorf("deposit verification failed: %w", err)
	}
	if details == nil || !details.Confirmed {
		return nil, fmt.Errorf("transaction %s is not confirmed", txSignature)
	}
	if details.Sender != wallet {
		return nil, models.ErrUnauthorized
	}
	if details.Amount == 0 || details.Amount > math.MaxInt64 {
		return nil, fmt.Errorf("invalid deposit amount %d", details.Amount)
	}

	var holding *models.Holding
	err = s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		cfg, err := s.repo.GetConfigTx(tx)
		if err != nil {
			return err
		}

		recorded, err := s.repo.DepositRecorded(tx, txSignature)
		if err != nil {
			return err
		}
		if recorded {
			holding, err = s.repo.GetHolding(tx, wallet)
			return err
		}

		if _, err := s.repo.GetOrCreateHolding(tx, wallet, wallet, cfg.CurrencyMint); err != nil {
			return err
		}
		if err := s.repo.Credit(tx, wallet, int64(details.Amount), txSignature); err != nil {
			return err
		}
		holding, err = s.repo.GetHolding(tx, wallet)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Deposit credited: wallet=%s amount=%d sig=%s", wallet, details.Amount, txSignature)
	return holding, nil
}

// GetBalance returns the wallet's holding, or a zero holding if the wallet
// has never deposited.
func (s *WalletService) GetBalance(ctx context.Context, wallet string) (*models.Holding, error) {
	holding, err := s.repo.GetHoldingByOwner(ctx, wallet)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		cfg, err := s.repo.GetConfig(ctx)
		if err != nil {
			return nil, err
		}
		holding = &models.Holding{Address: wallet, Owner: wallet, CurrencyMint: cfg.CurrencyMint}
	}
	return holding, nil
}

// ListLedgerEntries returns a market's audit trail.
func (s *WalletService) ListLedgerEntries(ctx context.Context, marketID uuid.UUID, limit, offset int) ([]*models.LedgerEntry, error) {
	return s.repo.ListLedgerEntries(ctx, marketID, limit, offset)
}
