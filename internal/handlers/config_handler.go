package handlers

import (
	"net/http"

	"opinion-market/internal/auth"
	"opinion-market/internal/services"

	"github.com/gin-gonic/gin"
)

type ConfigHandler struct {
	configService *services.ConfigService
}

func NewConfigHandler(configService *services.ConfigService) *ConfigHandler {
	return &ConfigHandler{configService: configService}
}

// Initialize creates the singleton program config.
// POST /api/admin/config
func (h *ConfigHandler) Initialize(c *gin.Context) {
	wallet, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		OracleAuthority string `json:"oracle_authority" binding:"required"`
		VRFAuthority    string `json:"vrf_authority" binding:"required"`
		Treasury        string `json:"treasury" binding:"required"`
		CurrencyMint    string `json:"currency_mint" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg, err := h.configService.Initialize(c.Request.Context(), services.InitializeParams{
		Authority:       wallet,
		OracleAuthority: req.OracleAuthority,
		VRFAuthority:    req.VRFAuthority,
		Treasury:        req.Treasury,
		CurrencyMint:    req.CurrencyMint,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, cfg)
}

// Rotate replaces trust-anchor identities.
// PUT /api/admin/config
func (h *ConfigHandler) Rotate(c *gin.Context) {
	wallet, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		OracleAuthority string `json:"oracle_authority"`
		VRFAuthority    string `json:"vrf_authority"`
		Treasury        string `json:"treasury"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg, err := h.configService.Rotate(c.Request.Context(), wallet, services.RotateParams{
		OracleAuthority: req.OracleAuthority,
		VRFAuthority:    req.VRFAuthority,
		Treasury:        req.Treasury,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, cfg)
}

// Get returns the current program config.
// GET /api/config
func (h *ConfigHandler) Get(c *gin.Context) {
	cfg, err := h.configService.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, cfg)
}
