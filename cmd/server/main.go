package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"casedesk.app/server/internal/api"
	"casedesk.app/server/internal/auth"
	"casedesk.app/server/internal/config"
	"casedesk.app/server/internal/core"
	"casedesk.app/server/internal/logging"
	"casedesk.app/server/internal/store"
)

const revocationPurgeInterval = time.Hour

func main() {
	// Command line flag for schema setup
	migrateOnly := flag.Bool("migrate", false, "Apply database migrations and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup logging
	logger, err := logging.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database store; migrations run on open
	openCtx, cancelOpen := context.WithTimeout(context.Background(), 30*time.Second)
	dbStore, err := store.Open(openCtx, cfg.DatabaseDriver, cfg.DatabaseURL)
	cancelOpen()
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err), zap.String("driver", cfg.DatabaseDriver))
	}
	defer dbStore.Close()

	if *migrateOnly {
		logger.Info("Migrations applied. Exiting.", zap.String("driver", cfg.DatabaseDriver))
		return
	}

	// Session revocation lives in Redis when configured, otherwise in the database
	var revoker auth.Revoker
	purgeCtx, stopPurge := context.WithCancel(context.Background())
	defer stopPurge()
	if cfg.RedisURL != "" {
		redisRevoker, err := auth.NewRedisRevoker(cfg.RedisURL)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisRevoker.Close()
		revoker = redisRevoker
		logger.Info("Using Redis session revocation")
	} else {
		revoker = auth.NewStoreRevoker(dbStore)
		go purgeRevocations(purgeCtx, dbStore, logger)
		logger.Info("Using database session revocation")
	}

	// Initialize services
	replies := core.NewReplyScheduler(cfg.ReplyDelay)
	authService := core.NewAuthService(
		dbStore,
		auth.NewPasswordHasher(cfg.BcryptCost),
		auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.SessionTTL),
		revoker,
		logger,
	)
	caseService := core.NewCaseService(dbStore, replies, logger)
	messageService := core.NewMessageService(dbStore, replies, logger)
	attachmentService := core.NewAttachmentService(dbStore)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(authService, caseService, messageService, attachmentService, dbStore, logger, api.Options{
		Development:  cfg.Development(),
		CookieSecure: cfg.CookieSecure,
	})
	router := api.NewRouter(apiHandler, logger)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		logger.Info("Starting server. Press Ctrl+C to quit.", zap.String("addr", serverAddr), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Could not listen", zap.String("addr", serverAddr), zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Pending assistant replies are dropped; replies already writing finish first.
	replies.Stop()
	logger.Info("Server exiting gracefully")
}

func purgeRevocations(ctx context.Context, dbStore *store.Store, logger *zap.Logger) {
	ticker := time.NewTicker(revocationPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := dbStore.PurgeExpiredRevocations(ctx)
			if err != nil {
				logger.Warn("Failed to purge expired revocations", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("Purged expired revocations", zap.Int64("count", n))
			}
		}
	}
}
