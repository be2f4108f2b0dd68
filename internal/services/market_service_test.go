package services

import (
	"context"
	"errors"
	"testing"

	"opinion-market/internal/models"

	"github.com/google/uuid"
)

func TestCreateMarketCollectsFee(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, testCreator, 10_000_000)

	market, err := env.markets.CreateMarket(context.Background(), testCreator, CreateMarketParams{
		MarketID:     uuid.New(),
		Statement:    "BTC closes the year above 100k",
		DurationSecs: models.Duration7D,
	})
	if err != nil {
		t.Fatalf("CreateMarket failed: %v", err)
	}

	if market.State != models.MarketStateActive {
		t.Errorf("expected ACTIVE, got %s", market.State)
	}
	if got := env.balance(t, testCreator); got != 10_000_000-models.CreateFee {
		t.Errorf("creator balance = %d, want %d", got, 10_000_000-models.CreateFee)
	}
	if got := env.balance(t, testTreasury); got != models.CreateFee {
		t.Errorf("treasury balance = %d, want %d", got, models.CreateFee)
	}
	// Fee never enters escrow.
	if got := env.balance(t, market.EscrowAddress); got != 0 {
		t.Errorf("escrow balance = %d, want 0", got)
	}
}

func TestCreateMarketValidation(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, testCreator, 100_000_000)

	long := make([]byte, models.MaxStatementLen+1)
	for i := range long {
		long[i] = 'a'
	}

	cases := []struct {
		name    string
		params  CreateMarketParams
		wantErr error
	}{
		{"empty statement", CreateMarketParams{MarketID: uuid.New(), Statement: "", DurationSecs: models.Duration24H}, models.ErrStatementEmpty},
		{"statement too long", CreateMarketParams{MarketID: uuid.New(), Statement: string(long), DurationSecs: models.Duration24H}, models.ErrStatementTooLong},
		{"bad duration", CreateMarketParams{MarketID: uuid.New(), Statement: "valid", DurationSecs: 3600}, models.ErrInvalidDuration},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.markets.CreateMarket(context.Background(), testCreator, tc.params)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCreateMarketDuplicateID(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, testCreator, 100_000_000)

	id := uuid.New()
	params := CreateMarketParams{MarketID: id, Statement: "first", DurationSecs: models.Duration24H}
	if _, err := env.markets.CreateMarket(context.Background(), testCreator, params); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	params.Statement = "second"
	_, err := env.markets.CreateMarket(context.Background(), testCreator, params)
	if !errors.Is(err, models.ErrDuplicateMarket) {
		t.Errorf("got %v, want ErrDuplicateMarket", err)
	}

	// The failed attempt must not double-charge the fee.
	if got := env.balance(t, testTreasury); got != models.CreateFee {
		t.Errorf("treasury balance = %d, want %d", got, models.CreateFee)
	}
}

func TestCreateMarketInsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, testCreator, models.CreateFee-1)

	_, err := env.markets.CreateMarket(context.Background(), testCreator, CreateMarketParams{
		MarketID:     uuid.New(),
		Statement:    "broke creator",
		DurationSecs: models.Duration24H,
	})
	if !errors.Is(err, models.ErrInsufficientFunds) {
		t.Errorf("got %v, want ErrInsufficientFunds", err)
	}
}

func TestCloseMarketBeforeDeadline(t *testing.T) {
	env := newTestEnv(t)
	market := env.createMarket(t)

	_, err := env.markets.CloseMarket(context.Background(), market.MarketID)
	if !errors.Is(err, models.ErrMarketNotExpired) {
		t.Errorf("got %v, want ErrMarketNotExpired", err)
	}
}

func TestCloseMarketAfterDeadline(t *testing.T) {
	env := newTestEnv(t)
	market := env.createMarket(t)
	env.expireMarket(t, market.MarketID)

	closed, err := env.markets.CloseMarket(context.Background(), market.MarketID)
	if err != nil {
		t.Fatalf("CloseMarket failed: %v", err)
	}
	if closed.State != models.MarketStateClosed {
		t.Errorf("expected CLOSED, got %s", closed.State)
	}

	// Closing twice is a state conflict, not a silent no-op.
	_, err = env.markets.CloseMarket(context.Background(), market.MarketID)
	if !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("got %v, want ErrInvalidState", err)
	}
}
