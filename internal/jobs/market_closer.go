package jobs

import (
	"context"
	"errors"
	"log"
	"time"

	"opinion-market/internal/models"
	"opinion-market/internal/services"
)

// MarketCloser automatically closes expired markets
type MarketCloser struct {
	marketService *services.MarketService
	interval      time.Duration
	stopChan      chan struct{}
}

// NewMarketCloser creates a new market closer job
func NewMarketCloser(marketService *services.MarketService, interval time.Duration) *MarketCloser {
	return &MarketCloser{
		marketService: marketService,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the market closing loop
func (mc *MarketCloser) Start() {
	log.Printf("[MarketCloser] Starting market closer job (interval: %v)", mc.interval)

	ticker := time.NewTicker(mc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mc.closeExpiredMarkets()
		case <-mc.stopChan:
			log.Println("[MarketCloser] Stopping market closer job")
			return
		}
	}
}

// Stop stops the market closing loop
func (mc *MarketCloser) Stop() {
	close(mc.stopChan)
}

// closeExpiredMarkets finds ACTIVE markets past their deadline and closes
// them. Losing a race with a manual close is fine; the state check makes the
// close idempotent.
func (mc *MarketCloser) closeExpiredMarkets() {
	ctx := context.Background()

	markets, err := mc.marketService.ListExpired(ctx, 100)
	if err != nil {
		log.Printf("[MarketCloser] Error fetching expired markets: %v", err)
		return
	}
	if len(markets) == 0 {
		return
	}

	closedCount := 0
	for _, market := range markets {
		if _, err := mc.marketService.CloseMarket(ctx, market.MarketID); err != nil {
			if errors.Is(err, models.ErrInvalidState) {
				continue
			}
			log.Printf("[MarketCloser] Error closing market %s: %v", market.MarketID, err)
			continue
		}
		closedCount++
	}

	if closedCount > 0 {
		log.Printf("[MarketCloser] Closed %d expired markets", closedCount)
	}
}
