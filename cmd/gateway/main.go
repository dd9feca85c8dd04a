package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nopfarsi/sizpay-gateway/internal/application/services"
	"github.com/nopfarsi/sizpay-gateway/internal/config"
	"github.com/nopfarsi/sizpay-gateway/internal/infrastructure/persistence/postgres"
	"github.com/nopfarsi/sizpay-gateway/internal/infrastructure/sizpay"
	"github.com/nopfarsi/sizpay-gateway/internal/interfaces/rest/handlers"
	"github.com/nopfarsi/sizpay-gateway/internal/interfaces/rest/middleware"
	"github.com/nopfarsi/sizpay-gateway/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting sizpay gateway service",
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()
	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	orderRepo := postgres.NewOrderRepository(db)
	gatewayClient := sizpay.NewClient(cfg.Gateway)

	issuer := services.NewIssuerService(orderRepo, gatewayClient, cfg.Gateway, cfg.Server.PublicBaseURL, logger)
	verifier := services.NewVerifierService(orderRepo, gatewayClient, cfg.Server.CheckoutCompletedURL, logger)

	h := handlers.NewHandlers(issuer, verifier, orderRepo, cfg.Gateway.PaymentPageURL, logger)

	verifyLimiter := middleware.RateLimit(cfg.Server.VerifyRatePerSecond, cfg.Server.VerifyBurst, logger)
	router := http.Handler(h.Router(verifyLimiter))

	handler := middleware.Recovery(logger)(router)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Timeout(cfg.Server.ReadTimeout)(handler)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sweeper := worker.NewSweeper(
		orderRepo,
		cfg.Worker.TokenTTL,
		cfg.Worker.Interval,
		cfg.Worker.BatchSize,
		logger,
	)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go sweeper.Start(workerCtx)

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
