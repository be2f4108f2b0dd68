package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"opinion-market/internal/addressing"
	"opinion-market/internal/database"
	"opinion-market/internal/locks"
	"opinion-market/internal/models"
	"opinion-market/internal/repository"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testProgramID = "2NaUpg4jEZVGDBmmuKYLdsAfSGKwHxjghhfgVpQvZJYu"

func setupTestDB(t *testing.T) *gorm.DB {
	// Unique shared-cache name per test so parallel tests don't collide.
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

// testIdentity derives a deterministic valid base58 identity from a tag.
func testIdentity(tag byte) string {
	var b [32]byte
	b[0] = tag
	b[31] = tag
	return solana.PublicKeyFromBytes(b[:]).String()
}

var (
	testAuthority = testIdentity(1)
	testOracle    = testIdentity(2)
	testVRF       = testIdentity(3)
	testTreasury  = testIdentity(4)
	testMint      = testIdentity(5)
	testCreator   = testIdentity(10)
	testStakerA   = testIdentity(11)
	testStakerB   = testIdentity(12)
	testStakerC   = testIdentity(13)
)

// testEnv wires the full service stack against an in-memory database with the
// program config initialized.
type testEnv struct {
	db         *gorm.DB
	repo       *repository.Repository
	deriver    *addressing.Deriver
	config     *ConfigService
	markets    *MarketService
	staking    *StakingService
	oracle     *OracleService
	settlement *SettlementService
}

func newTestEnv(t *testing.T) *testEnv {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)

	deriver, err := addressing.NewDeriver(testProgramID)
	if err != nil {
		t.Fatalf("failed to create deriver: %v", err)
	}

	env := &testEnv{
		db:         db,
		repo:       repo,
		deriver:    deriver,
		config:     NewConfigService(repo, deriver),
		markets:    NewMarketService(repo, deriver),
		staking:    NewStakingService(repo, deriver),
		oracle:     NewOracleService(repo, deriver),
		settlement: NewSettlementService(repo, locks.NewLocalManager(), ProximityScoring{}),
	}

	_, err = env.config.Initialize(context.Background(), InitializeParams{
		Authority:       testAuthority,
		OracleAuthority: testOracle,
		VRFAuthority:    testVRF,
		Treasury:        testTreasury,
		CurrencyMint:    testMint,
	})
	if err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}
	return env
}

// fund credits a wallet holding as if a verified deposit had landed.
func (env *testEnv) fund(t *testing.T, wallet string, amount int64) {
	err := env.repo.Transaction(context.Background(), func(tx *gorm.DB) error {
		if _, err := env.repo.GetOrCreateHolding(tx, wallet, wallet, testMint); err != nil {
			return err
		}
		return env.repo.Credit(tx, wallet, amount, fmt.Sprintf("sig-%s-%s-%d", t.Name(), wallet, amount))
	})
	if err != nil {
		t.Fatalf("failed to fund wallet %s: %v", wallet, err)
	}
}

func (env *testEnv) balance(t *testing.T, address string) int64 {
	var balance int64
	err := env.repo.Transaction(context.Background(), func(tx *gorm.DB) error {
		holding, err := env.repo.GetHolding(tx, address)
		if err != nil {
			return err
		}
		balance = holding.Balance
		return nil
	})
	if err != nil {
		t.Fatalf("failed to read balance of %s: %v", address, err)
	}
	return balance
}

// createMarket funds the creator and makes a fresh market, returning it.
func (env *testEnv) createMarket(t *testing.T) *models.Market {
	env.fund(t, testCreator, models.CreateFee*2)
	market, err := env.markets.CreateMarket(context.Background(), testCreator, CreateMarketParams{
		MarketID:     uuid.New(),
		Statement:    "SOL will flip ETH by market cap this cycle",
		DurationSecs: models.Duration24H,
	})
	if err != nil {
		t.Fatalf("failed to create market: %v", err)
	}
	return market
}

// expireMarket moves the market's deadline into the past.
func (env *testEnv) expireMarket(t *testing.T, marketID uuid.UUID) {
	err := env.db.Model(&models.Market{}).
		Where("market_id = ?", marketID).
		Update("closes_at", time.Now().Add(-time.Hour)).Error
	if err != nil {
		t.Fatalf("failed to expire market: %v", err)
	}
}

func int16ptr(v int16) *int16 {
	return &v
}
