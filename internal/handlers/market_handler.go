package handlers

import (
	"net/http"
	"strconv"

	"opinion-market/internal/auth"
	"opinion-market/internal/models"
	"opinion-market/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MarketHandler struct {
	marketService *services.MarketService
}

func NewMarketHandler(marketService *services.MarketService) *MarketHandler {
	return &MarketHandler{marketService: marketService}
}

// CreateMarket creates a new market
// POST /api/markets
func (h *MarketHandler) CreateMarket(c *gin.Context) {
	wallet, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		MarketID     string `json:"market_id" binding:"required"`
		Statement    string `json:"statement" binding:"required"`
		DurationSecs int64  `json:"duration_secs" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	marketID, err := uuid.Parse(req.MarketID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market id"})
		return
	}

	market, err := h.marketService.CreateMarket(c.Request.Context(), wallet, services.CreateMarketParams{
		MarketID:     marketID,
		Statement:    req.Statement,
		DurationSecs: req.DurationSecs,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, market)
}

// GetMarket retrieves a market by ID
// GET /api/markets/:id
func (h *MarketHandler) GetMarket(c *gin.Context) {
	marketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market id"})
		return
	}

	market, err := h.marketService.GetMarket(c.Request.Context(), marketID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "market not found"})
		return
	}

	c.JSON(http.StatusOK, market)
}

// ListMarkets lists markets, optionally filtered by state
// GET /api/markets
func (h *MarketHandler) ListMarkets(c *gin.Context) {
	limit, offset := pagination(c)

	state := models.MarketState(c.Query("state"))
	markets, err := h.marketService.ListMarkets(c.Request.Context(), state, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list markets"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"markets": markets,
		"total":   len(markets),
	})
}

// CloseMarket transitions an expired market to CLOSED
// POST /api/markets/:id/close
func (h *MarketHandler) CloseMarket(c *gin.Context) {
	marketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market id"})
		return
	}

	market, err := h.marketService.CloseMarket(c.Request.Context(), marketID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, market)
}

// pagination parses limit/offset query parameters with sane bounds.
func pagination(c *gin.Context) (int, int) {
	limit := 20
	offset := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}
	return limit, offset
}
