package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"opinion-market/internal/locks"
	"opinion-market/internal/models"
)

// settleReadyMarket builds a CLOSED market with three staked opinions,
// sentiment 72/HIGH, and fulfilled randomness: stakes of $10, $5 and $0.50
// with predictions 70, 30 and none.
func settleReadyMarket(t *testing.T, env *testEnv) *models.Market {
	ctx := context.Background()
	market := env.createMarket(t)

	env.fund(t, testStakerA, 20_000_000)
	env.fund(t, testStakerB, 20_000_000)
	env.fund(t, testStakerC, 20_000_000)

	stakes := []struct {
		staker     string
		amount     int64
		prediction *int16
	}{
		{testStakerA, 10_000_000, int16ptr(70)},
		{testStakerB, 5_000_000, int16ptr(30)},
		{testStakerC, 500_000, nil},
	}
	for _, s := range stakes {
		if _, err := env.staking.StakeOpinion(ctx, s.staker, StakeOpinionParams{
			MarketID:    market.MarketID,
			StakeAmount: s.amount,
			TextHash:    testTextHash,
			Prediction:  s.prediction,
		}); err != nil {
			t.Fatalf("stake by %s failed: %v", s.staker, err)
		}
	}

	env.expireMarket(t, market.MarketID)
	if _, err := env.markets.CloseMarket(ctx, market.MarketID); err != nil {
		t.Fatalf("CloseMarket failed: %v", err)
	}
	if _, err := env.oracle.RecordSentiment(ctx, testOracle, RecordSentimentParams{
		MarketID:   market.MarketID,
		Score:      72,
		Confidence: models.ConfidenceHigh,
	}); err != nil {
		t.Fatalf("RecordSentiment failed: %v", err)
	}
	if _, err := env.oracle.RequestRandomness(ctx, testOracle, market.MarketID); err != nil {
		t.Fatalf("RequestRandomness failed: %v", err)
	}
	if _, err := env.oracle.FulfillRandomness(ctx, testVRF, market.MarketID, testRandomValue(7)); err != nil {
		t.Fatalf("FulfillRandomness failed: %v", err)
	}
	return market
}

func TestSettleRequiresAttestationAndRandomness(t *testing.T) {
	env := newTestEnv(t)
	market := closedMarket(t, env)

	_, err := env.settlement.Settle(context.Background(), market.MarketID, 0)
	if !errors.Is(err, models.ErrNotReadyForSettlement) {
		t.Errorf("got %v, want ErrNotReadyForSettlement", err)
	}
}

func TestSettleRequiresClosedMarket(t *testing.T) {
	env := newTestEnv(t)
	market := env.createMarket(t)

	_, err := env.settlement.Settle(context.Background(), market.MarketID, 0)
	if !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("got %v, want ErrInvalidState", err)
	}
}

func TestSettleConservesFunds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	market := settleReadyMarket(t, env)

	treasuryBefore := env.balance(t, testTreasury)
	pool := env.balance(t, market.EscrowAddress)
	if pool != 15_500_000 {
		t.Fatalf("pool = %d, want 15500000", pool)
	}

	progress, err := env.settlement.Settle(ctx, market.MarketID, 1000)
	if err != nil {
		t.Fatalf("weighing batch failed: %v", err)
	}
	if progress.Settled {
		t.Fatal("weighing and paying must need separate calls")
	}
	progress, err = env.settlement.Settle(ctx, market.MarketID, 1000)
	if err != nil {
		t.Fatalf("paying batch failed: %v", err)
	}
	if !progress.Settled {
		t.Fatal("settlement did not finish")
	}

	// Escrow is exactly empty.
	if got := env.balance(t, market.EscrowAddress); got != 0 {
		t.Errorf("escrow balance = %d, want 0", got)
	}

	// Protocol fee is 10% of the pool.
	fee := env.balance(t, testTreasury) - treasuryBefore
	if fee != 1_550_000 {
		t.Errorf("protocol fee = %d, want 1550000", fee)
	}

	// Payouts plus bonus plus fee equals the pool.
	if progress.TotalPaid+progress.BonusAmount+fee != pool {
		t.Errorf("conservation broken: paid %d + bonus %d + fee %d != pool %d",
			progress.TotalPaid, progress.BonusAmount, fee, pool)
	}

	if progress.BonusWinner == nil {
		t.Fatal("expected a bonus winner")
	}
	winners := map[string]bool{testStakerA: true, testStakerB: true, testStakerC: true}
	if !winners[*progress.BonusWinner] {
		t.Errorf("bonus winner %s is not a staker", *progress.BonusWinner)
	}

	// Proximity ordering: the closest prediction earns the largest payout.
	opinions, err := env.staking.ListOpinions(ctx, market.MarketID, 10, 0)
	if err != nil {
		t.Fatalf("ListOpinions failed: %v", err)
	}
	byStaker := map[string]*models.Opinion{}
	for _, o := range opinions {
		if o.Payout == nil || o.PaidAt == nil {
			t.Fatalf("opinion %s was not paid", o.Address)
		}
		byStaker[o.Staker] = o
	}
	if !(*byStaker[testStakerA].Payout > *byStaker[testStakerB].Payout) {
		t.Error("closest prediction did not earn the largest payout")
	}
	if !(*byStaker[testStakerB].Payout > *byStaker[testStakerC].Payout) {
		t.Error("predictionless stake outpaid a scored prediction")
	}
}

func TestSettleResumesAcrossSmallBatches(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	market := settleReadyMarket(t, env)
	pool := env.balance(t, market.EscrowAddress)

	// Batch size 2 over 3 opinions forces partial batches in both phases.
	var progress *SettlementProgress
	var err error
	for calls := 0; ; calls++ {
		if calls > 10 {
			t.Fatal("settlement did not converge")
		}
		progress, err = env.settlement.Settle(ctx, market.MarketID, 2)
		if err != nil {
			t.Fatalf("batch %d failed: %v", calls, err)
		}
		if progress.Settled {
			break
		}
	}

	if got := env.balance(t, market.EscrowAddress); got != 0 {
		t.Errorf("escrow balance = %d, want 0", got)
	}
	fee := int64(1_550_000)
	if progress.TotalPaid+progress.BonusAmount+fee != pool {
		t.Errorf("conservation broken across batches: paid %d + bonus %d + fee %d != pool %d",
			progress.TotalPaid, progress.BonusAmount, fee, pool)
	}

	// A settled market rejects further settlement calls.
	_, err = env.settlement.Settle(ctx, market.MarketID, 2)
	if !errors.Is(err, models.ErrAlreadySettled) {
		t.Errorf("got %v, want ErrAlreadySettled", err)
	}

	// No opinion was paid twice: each payout timestamp is set exactly once
	// and the sum of payouts matches the reported total.
	opinions, err := env.staking.ListOpinions(ctx, market.MarketID, 10, 0)
	if err != nil {
		t.Fatalf("ListOpinions failed: %v", err)
	}
	var sum int64
	for _, o := range opinions {
		if o.Payout == nil {
			t.Fatalf("opinion %s was not paid", o.Address)
		}
		sum += *o.Payout
	}
	if sum != progress.TotalPaid {
		t.Errorf("sum of payouts %d != total paid %d", sum, progress.TotalPaid)
	}
}

func TestSettleMatchesBatchSizeIndependence(t *testing.T) {
	// The same inputs settle to the same per-opinion payouts regardless of
	// batch size.
	run := func(t *testing.T, batchSize int) map[string]int64 {
		env := newTestEnv(t)
		ctx := context.Background()
		market := settleReadyMarket(t, env)

		for calls := 0; ; calls++ {
			if calls > 10 {
				t.Fatal("settlement did not converge")
			}
			progress, err := env.settlement.Settle(ctx, market.MarketID, batchSize)
			if err != nil {
				t.Fatalf("batch failed: %v", err)
			}
			if progress.Settled {
				break
			}
		}

		opinions, err := env.staking.ListOpinions(ctx, market.MarketID, 10, 0)
		if err != nil {
			t.Fatalf("ListOpinions failed: %v", err)
		}
		payouts := map[string]int64{}
		for _, o := range opinions {
			payouts[o.Staker] = *o.Payout
		}
		return payouts
	}

	var small, large map[string]int64
	t.Run("batch1", func(t *testing.T) { small = run(t, 1) })
	t.Run("batch100", func(t *testing.T) { large = run(t, 100) })

	for staker, payout := range large {
		if small[staker] != payout {
			t.Errorf("staker %s: payout %d with batch 1, %d with batch 100", staker, small[staker], payout)
		}
	}
}

func TestSettleRejectsCorruptedEscrow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	market := settleReadyMarket(t, env)

	// Break the escrow == total_stake invariant behind the service's back.
	err := env.db.Model(&models.Holding{}).
		Where("address = ?", market.EscrowAddress).
		Update("balance", 7_000_000).Error
	if err != nil {
		t.Fatalf("failed to corrupt escrow: %v", err)
	}

	if _, err := env.settlement.Settle(ctx, market.MarketID, 100); err == nil {
		t.Fatal("settlement started from a corrupted escrow balance")
	}

	// The failed start must leave no settlement progress behind.
	updated, err := env.markets.GetMarket(ctx, market.MarketID)
	if err != nil {
		t.Fatalf("GetMarket failed: %v", err)
	}
	if updated.SettlementPhase != models.SettlementPhaseNone || updated.PrizePool != 0 {
		t.Errorf("settlement progressed: phase=%s pool=%d", updated.SettlementPhase, updated.PrizePool)
	}
}

func TestSettleRejectsConcurrentRun(t *testing.T) {
	env := newTestEnv(t)
	market := settleReadyMarket(t, env)

	manager := locks.NewLocalManager()
	settlement := NewSettlementService(env.repo, manager, ProximityScoring{})

	release, err := manager.Acquire(context.Background(), "settle:"+market.MarketID.String(), time.Minute)
	if err != nil {
		t.Fatalf("failed to pre-acquire lock: %v", err)
	}
	defer release()

	_, err = settlement.Settle(context.Background(), market.MarketID, 0)
	if !errors.Is(err, models.ErrSettlementInProgress) {
		t.Errorf("got %v, want ErrSettlementInProgress", err)
	}
}
