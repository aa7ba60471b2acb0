package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"walletlens/internal/config"
	"walletlens/internal/database"
	"walletlens/internal/handlers"
	"walletlens/internal/logger"
	"walletlens/internal/pricing"
	"walletlens/internal/services"

	_ "walletlens/internal/docs" // Import swagger docs
)

// @title           walletlens API
// @version         1.0
// @description     FIFO cost-basis and capital gains reporting for on-chain wallets.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if appConfig.Env == "production" && appConfig.JWTSecret == config.DevJWTSecret {
		return errors.New("JWT_SECRET must be set in production")
	}

	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("database close error: %v", err)
		}
	}()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	prices, err := newPriceSource(appConfig)
	if err != nil {
		return err
	}

	// Initialize services
	db := dbManager.DB()
	auditService := services.NewAuditService(db)
	taxService := services.NewTaxService(db, prices)

	// Initialize handlers
	taxHandler := handlers.NewTaxHandler(taxService, auditService)

	router := newRouter(appConfig, taxHandler)

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting walletlens server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("Shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newPriceSource builds the cached CoinGecko source, extended with any
// symbols from the coin map file.
func newPriceSource(cfg *config.Config) (pricing.Source, error) {
	client := pricing.NewCoinGeckoClient(
		&http.Client{Timeout: 15 * time.Second},
		pricing.WithBaseURL(cfg.CoinGeckoBaseURL),
		pricing.WithAPIKey(cfg.CoinGeckoAPIKey),
		pricing.WithRateLimit(cfg.PriceRatePerSec, cfg.PriceBurst),
	)

	if cfg.CoinMapFile != "" {
		coins, err := pricing.LoadCoinMap(cfg.CoinMapFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load coin map: %w", err)
		}
		client.AddCoinMappings(coins)
		logger.Get().Infow("loaded coin map", "file", cfg.CoinMapFile, "symbols", len(coins))
	}

	return pricing.NewCachedSource(client, cfg.PriceCacheTTL), nil
}
