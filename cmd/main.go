package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"opinion-market/internal/addressing"
	"opinion-market/internal/auth"
	"opinion-market/internal/blockchain"
	"opinion-market/internal/config"
	"opinion-market/internal/database"
	"opinion-market/internal/handlers"
	"opinion-market/internal/jobs"
	"opinion-market/internal/locks"
	"opinion-market/internal/models"
	"opinion-market/internal/repository"
	"opinion-market/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Deterministic addressing bound to the program ID
	deriver, err := addressing.NewDeriver(cfg.Ledger.ProgramID)
	if err != nil {
		log.Fatalf("Invalid program ID: %v", err)
	}

	// Initialize repository
	repo := repository.NewRepository(database.GetDB())

	// Initialize Solana client for deposit verification
	solanaClient := blockchain.NewSolanaClient(cfg.Solana.Network)

	// Settlement lock backend: Redis when configured, in-process otherwise
	var lockManager locks.Manager
	if cfg.Redis.Addr != "" {
		lockManager = locks.NewRedisManager(cfg.Redis.Addr)
		log.Printf("Using Redis settlement locks at %s", cfg.Redis.Addr)
	} else {
		lockManager = locks.NewLocalManager()
	}

	// Initialize services
	configService := services.NewConfigService(repo, deriver)
	marketService := services.NewMarketService(repo, deriver)
	stakingService := services.NewStakingService(repo, deriver)
	oracleService := services.NewOracleService(repo, deriver)
	settlementService := services.NewSettlementService(repo, lockManager, services.ProximityScoring{})
	walletService := services.NewWalletService(repo, solanaClient)

	// Bootstrap the program config from env on first run
	if cfg.Ledger.OracleAuthority != "" {
		bootstrapConfig(configService, cfg)
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler()
	configHandler := handlers.NewConfigHandler(configService)
	marketHandler := handlers.NewMarketHandler(marketService)
	opinionHandler := handlers.NewOpinionHandler(stakingService)
	oracleHandler := handlers.NewOracleHandler(oracleService)
	settlementHandler := handlers.NewSettlementHandler(settlementService)
	walletHandler := handlers.NewWalletHandler(walletService)

	// Start market closer job (runs every minute)
	closerJob := jobs.NewMarketCloser(marketService, time.Minute)
	go closerJob.Start()

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/wallet", authHandler.WalletLogin)
	}

	// Authenticated /auth/me route
	authProtected := router.Group("/auth")
	authProtected.Use(auth.AuthMiddleware())
	{
		authProtected.GET("/me", authHandler.GetMe)
	}

	// Public read routes
	router.GET("/api/config", configHandler.Get)
	router.GET("/api/markets", marketHandler.ListMarkets)
	router.GET("/api/markets/:id", marketHandler.GetMarket)
	router.GET("/api/markets/:id/opinions", opinionHandler.ListOpinions)
	router.GET("/api/markets/:id/ledger", walletHandler.ListLedgerEntries)
	router.GET("/api/markets/:id/randomness", oracleHandler.GetRandomness)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// Market endpoints
		api.POST("/markets", marketHandler.CreateMarket)
		api.POST("/markets/:id/close", marketHandler.CloseMarket)
		api.POST("/markets/:id/settle", settlementHandler.Settle)

		// Opinion endpoints
		api.POST("/markets/:id/opinions", opinionHandler.StakeOpinion)
		api.POST("/opinions/:address/reactions", opinionHandler.React)

		// Oracle endpoints; role checks live in the service layer
		api.POST("/markets/:id/sentiment", oracleHandler.RecordSentiment)
		api.POST("/markets/:id/randomness", oracleHandler.RequestRandomness)
		api.PUT("/markets/:id/randomness", oracleHandler.FulfillRandomness)

		// Wallet endpoints
		api.POST("/wallet/deposit", walletHandler.Deposit)
		api.GET("/wallet/balance", walletHandler.GetBalance)

		// Admin endpoints
		api.POST("/admin/config", configHandler.Initialize)
		api.PUT("/admin/config", configHandler.Rotate)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	closerJob.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// bootstrapConfig creates the program config from env identities on first
// run. An already-initialized config is left untouched.
func bootstrapConfig(configService *services.ConfigService, cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := configService.Initialize(ctx, services.InitializeParams{
		Authority:       cfg.Ledger.Authority,
		OracleAuthority: cfg.Ledger.OracleAuthority,
		VRFAuthority:    cfg.Ledger.VRFAuthority,
		Treasury:        cfg.Ledger.Treasury,
		CurrencyMint:    cfg.Ledger.CurrencyMint,
	})
	if err != nil {
		if errors.Is(err, models.ErrConfigExists) {
			return
		}
		log.Fatalf("Failed to bootstrap program config: %v", err)
	}
	log.Println("Program config bootstrapped from environment")
}
