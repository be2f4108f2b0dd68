package handlers

import (
	"net/http"

	"opinion-market/internal/auth"
	"opinion-market/internal/models"
	"opinion-market/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type OracleHandler struct {
	oracleService *services.OracleService
}

func NewOracleHandler(oracleService *services.OracleService) *OracleHandler {
	return &OracleHandler{oracleService: oracleService}
}

// RecordSentiment writes the oracle's sentiment attestation
// POST /api/markets/:id/sentiment
func (h *OracleHandler) RecordSentiment(c *gin.Context) {
	wallet, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	marketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market id"})
		return
	}

	var req struct {
		Score      int16  `json:"score"`
		Confidence string `json:"confidence" binding:"required"`
		Proof      string `json:"proof"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	market, err := h.oracleService.RecordSentiment(c.Request.Context(), wallet, services.RecordSentimentParams{
		MarketID:   marketID,
		Score:      req.Score,
		Confidence: models.ConfidenceTier(req.Confidence),
		Proof:      req.Proof,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, market)
}

// RequestRandomness opens the randomness handshake for a closed market
// POST /api/markets/:id/randomness
func (h *OracleHandler) RequestRandomness(c *gin.Context) {
	wallet, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	marketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market id"})
		return
	}

	request, err := h.oracleService.RequestRandomness(c.Request.Context(), wallet, marketID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, request)
}

// FulfillRandomness writes the VRF provider's value onto an open request
// PUT /api/markets/:id/randomness
func (h *OracleHandler) FulfillRandomness(c *gin.Context) {
	wallet, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	marketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market id"})
		return
	}

	var req struct {
		Value string `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.oracleService.FulfillRandomness(c.Request.Context(), wallet, marketID, req.Value)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// GetRandomness returns the randomness request for a market
// GET /api/markets/:id/randomness
func (h *OracleHandler) GetRandomness(c *gin.Context) {
	marketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market id"})
		return
	}

	request, err := h.oracleService.GetRandomness(c.Request.Context(), marketID)
	if err != nil {
		respondError(c, err)
		return
	}
	if request == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no randomness request for this market"})
		return
	}

	c.JSON(http.StatusOK, request)
}
