package handlers

import (
	"net/http"
	"strconv"

	"opinion-market/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SettlementHandler struct {
	settlementService *services.SettlementService
}

func NewSettlementHandler(settlementService *services.SettlementService) *SettlementHandler {
	return &SettlementHandler{settlementService: settlementService}
}

// Settle advances a market's settlement by one batch
// POST /api/markets/:id/settle
func (h *SettlementHandler) Settle(c *gin.Context) {
	marketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market id"})
		return
	}

	batchSize := 0
	if batchStr := c.Query("batch_size"); batchStr != "" {
		if b, err := strconv.Atoi(batchStr); err == nil && b > 0 && b <= 1000 {
			batchSize = b
		}
	}

	progress, err := h.settlementService.Settle(c.Request.Context(), marketID, batchSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}
