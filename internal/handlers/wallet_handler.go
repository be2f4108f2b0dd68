package handlers

import (
	"net/http"

	"opinion-market/internal/auth"
	"opinion-market/internal/models"
	"opinion-market/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type WalletHandler struct {
	walletService *services.WalletService
}

func NewWalletHandler(walletService *services.WalletService) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

// Deposit credits a verified on-chain deposit to the caller's holding
// POST /api/wallet/deposit
func (h *WalletHandler) Deposit(c *gin.Context) {
	wallet, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		TxSignature string `json:"tx_signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	holding, err := h.walletService.Deposit(c.Request.Context(), wallet, req.TxSignature)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"balance":       holding.Balance,
		"display":       models.FormatAmount(holding.Balance),
		"currency_mint": holding.CurrencyMint,
	})
}

// GetBalance returns the caller's holding balance
// GET /api/wallet/balance
func (h *WalletHandler) GetBalance(c *gin.Context) {
	wallet, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	holding, err := h.walletService.GetBalance(c.Request.Context(), wallet)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"balance":       holding.Balance,
		"display":       models.FormatAmount(holding.Balance),
		"currency_mint": holding.CurrencyMint,
	})
}

// ListLedgerEntries returns a market's audit trail
// GET /api/markets/:id/ledger
func (h *WalletHandler) ListLedgerEntries(c *gin.Context) {
	marketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market id"})
		return
	}

	limit, offset := pagination(c)
	entries, err := h.walletService.ListLedgerEntries(c.Request.Context(), marketID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list ledger entries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"total":   len(entries),
	})
}
