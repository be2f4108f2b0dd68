package handlers

import (
	"net/http"

	"opinion-market/internal/auth"
	"opinion-market/internal/models"
	"opinion-market/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type OpinionHandler struct {
	stakingService *services.StakingService
}

func NewOpinionHandler(stakingService *services.StakingService) *OpinionHandler {
	return &OpinionHandler{stakingService: stakingService}
}

// StakeOpinion stakes an opinion on a market
// POST /api/markets/:id/opinions
func (h *OpinionHandler) StakeOpinion(c *gin.Context) {
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
		StakeAmount    string `json:"stake_amount" binding:"required"`
		TextHash       string `json:"text_hash" binding:"required"`
		ContentLocator string `json:"content_locator"`
		Prediction     *int16 `json:"prediction"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := models.ParseAmount(req.StakeAmount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stake amount"})
		return
	}

	opinion, err := h.stakingService.StakeOpinion(c.Request.Context(), wallet, services.StakeOpinionParams{
		MarketID:       marketID,
		StakeAmount:    amount,
		TextHash:       req.TextHash,
		ContentLocator: req.ContentLocator,
		Prediction:     req.Prediction,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, opinion)
}

// ListOpinions lists a market's opinions in stake order
// GET /api/markets/:id/opinions
func (h *OpinionHandler) ListOpinions(c *gin.Context) {
	marketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid market id"})
		return
	}

	limit, offset := pagination(c)
	opinions, err := h.stakingService.ListOpinions(c.Request.Context(), marketID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list opinions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"opinions": opinions,
		"total":    len(opinions),
	})
}

// React records a BACK or SLASH signal against an opinion
// POST /api/opinions/:address/reactions
func (h *OpinionHandler) React(c *gin.Context) {
	wallet, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		Type   string `json:"type" binding:"required"`
		Amount string `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := models.ParseAmount(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reaction amount"})
		return
	}

	reaction, err := h.stakingService.ReactToOpinion(c.Request.Context(), wallet, services.ReactParams{
		OpinionAddress: c.Param("address"),
		Type:           models.ReactionType(req.Type),
		Amount:         amount,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, reaction)
}
