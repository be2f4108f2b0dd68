package services

import (
	"context"
	"errors"
	"testing"

	"opinion-market/internal/models"

	"github.com/mr-tron/base58"
)

// closedMarket creates a market and walks it to CLOSED.
func closedMarket(t *testing.T, env *testEnv) *models.Market {
	market := env.createMarket(t)
	env.expireMarket(t, market.MarketID)
	closed, err := env.markets.CloseMarket(context.Background(), market.MarketID)
	if err != nil {
		t.Fatalf("CloseMarket failed: %v", err)
	}
	return closed
}

func testRandomValue(tag byte) string {
	var b [32]byte
	for i := range b {
		b[i] = tag
	}
	return base58.Encode(b[:])
}

func TestRecordSentiment(t *testing.T) {
	env := newTestEnv(t)
	market := closedMarket(t, env)

	// Only the oracle authority may attest.
	_, err := env.oracle.RecordSentiment(context.Background(), testStakerA, RecordSentimentParams{
		MarketID:   market.MarketID,
		Score:      72,
		Confidence: models.ConfidenceHigh,
	})
	if !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("got %v, want ErrUnauthorized", err)
	}

	attested, err := env.oracle.RecordSentiment(context.Background(), testOracle, RecordSentimentParams{
		MarketID:   market.MarketID,
		Score:      72,
		Confidence: models.ConfidenceHigh,
		Proof:      "attestation-ref-1",
	})
	if err != nil {
		t.Fatalf("RecordSentiment failed: %v", err)
	}
	if attested.SentimentScore == nil || *attested.SentimentScore != 72 {
		t.Errorf("sentiment score not recorded")
	}

	// Write-once: a second attestation is rejected.
	_, err = env.oracle.RecordSentiment(context.Background(), testOracle, RecordSentimentParams{
		MarketID:   market.MarketID,
		Score:      30,
		Confidence: models.ConfidenceLow,
	})
	if !errors.Is(err, models.ErrAlreadyAttested) {
		t.Errorf("got %v, want ErrAlreadyAttested", err)
	}
}

func TestRecordSentimentRequiresClosedMarket(t *testing.T) {
	env := newTestEnv(t)
	market := env.createMarket(t)

	_, err := env.oracle.RecordSentiment(context.Background(), testOracle, RecordSentimentParams{
		MarketID:   market.MarketID,
		Score:      50,
		Confidence: models.ConfidenceMedium,
	})
	if !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("got %v, want ErrInvalidState", err)
	}
}

func TestRecordSentimentValidation(t *testing.T) {
	env := newTestEnv(t)
	market := closedMarket(t, env)

	_, err := env.oracle.RecordSentiment(context.Background(), testOracle, RecordSentimentParams{
		MarketID:   market.MarketID,
		Score:      101,
		Confidence: models.ConfidenceHigh,
	})
	if !errors.Is(err, models.ErrInvalidScore) {
		t.Errorf("got %v, want ErrInvalidScore", err)
	}

	_, err = env.oracle.RecordSentiment(context.Background(), testOracle, RecordSentimentParams{
		MarketID:   market.MarketID,
		Score:      50,
		Confidence: "EXTREME",
	})
	if !errors.Is(err, models.ErrInvalidConfidence) {
		t.Errorf("got %v, want ErrInvalidConfidence", err)
	}
}

func TestRandomnessHandshake(t *testing.T) {
	env := newTestEnv(t)
	market := closedMarket(t, env)

	// Request is oracle-only.
	if _, err := env.oracle.RequestRandomness(context.Background(), testStakerA, market.MarketID); !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("got %v, want ErrUnauthorized", err)
	}

	request, err := env.oracle.RequestRandomness(context.Background(), testOracle, market.MarketID)
	if err != nil {
		t.Fatalf("RequestRandomness failed: %v", err)
	}
	if request.Fulfilled {
		t.Error("new request must start unfulfilled")
	}

	// At most one request per market.
	if _, err := env.oracle.RequestRandomness(context.Background(), testOracle, market.MarketID); !errors.Is(err, models.ErrRandomnessRequested) {
		t.Errorf("got %v, want ErrRandomnessRequested", err)
	}

	value := testRandomValue(7)

	// Fulfillment is VRF-authority-only.
	if _, err := env.oracle.FulfillRandomness(context.Background(), testOracle, market.MarketID, value); !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("got %v, want ErrUnauthorized", err)
	}

	fulfilled, err := env.oracle.FulfillRandomness(context.Background(), testVRF, market.MarketID, value)
	if err != nil {
		t.Fatalf("FulfillRandomness failed: %v", err)
	}
	if !fulfilled.Fulfilled || fulfilled.Value != value {
		t.Error("request not fulfilled with the provided value")
	}

	// Write-once: the value cannot be replaced.
	_, err = env.oracle.FulfillRandomness(context.Background(), testVRF, market.MarketID, testRandomValue(9))
	if !errors.Is(err, models.ErrAlreadyFulfilled) {
		t.Errorf("got %v, want ErrAlreadyFulfilled", err)
	}
}

func TestFulfillRandomnessValidation(t *testing.T) {
	env := newTestEnv(t)
	market := closedMarket(t, env)

	if _, err := env.oracle.RequestRandomness(context.Background(), testOracle, market.MarketID); err != nil {
		t.Fatalf("RequestRandomness failed: %v", err)
	}

	// Value must decode to exactly 32 bytes.
	_, err := env.oracle.FulfillRandomness(context.Background(), testVRF, market.MarketID, base58.Encode([]byte{1, 2, 3}))
	if !errors.Is(err, models.ErrInvalidRandomValue) {
		t.Errorf("got %v, want ErrInvalidRandomValue", err)
	}
}

func TestFulfillRandomnessWithoutRequest(t *testing.T) {
	env := newTestEnv(t)
	market := closedMarket(t, env)

	_, err := env.oracle.FulfillRandomness(context.Background(), testVRF, market.MarketID, testRandomValue(7))
	if !errors.Is(err, models.ErrRandomnessNotFound) {
		t.Errorf("got %v, want ErrRandomnessNotFound", err)
	}
}
