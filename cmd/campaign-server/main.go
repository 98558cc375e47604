// cmd/campaign-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"campaign-engine/internal/campaign"
	"campaign-engine/internal/common/auth"
	"campaign-engine/internal/common/cache"
	"campaign-engine/internal/common/config"
	"campaign-engine/internal/common/database"
	"campaign-engine/internal/common/logger"
	"campaign-engine/internal/common/observability"
	"campaign-engine/internal/dispatch"
	"campaign-engine/internal/integration"
	"campaign-engine/internal/providers"
	"campaign-engine/internal/records"
	"campaign-engine/internal/server"
	"campaign-engine/internal/vault"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting campaign server...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Credential vault ---
	v, err := vault.New(cfg.Vault.Secret)
	if err != nil {
		zapLog.Fatal("vault init failed", zap.Error(err))
	}

	// --- Integration layer ---
	redisCache := cache.NewRedisCache(rdb.Client)
	integrations := integration.NewManager(
		integration.NewStore(pg.DB), v, redisCache,
		time.Duration(cfg.Dispatch.ConfigCacheTTL)*time.Second, log,
	)

	// --- Provider clients ---
	vapiClient := providers.NewVapiClient(cfg.Providers.Vapi.BaseURL,
		time.Duration(cfg.Providers.Vapi.Timeout)*time.Millisecond)
	twilioClient := providers.NewTwilioClient(cfg.Providers.Twilio.BaseURL,
		time.Duration(cfg.Providers.Twilio.Timeout)*time.Millisecond)
	sendgridClient := providers.NewSendGridClient(cfg.Providers.SendGrid.BaseURL,
		time.Duration(cfg.Providers.SendGrid.Timeout)*time.Millisecond)

	// --- Campaign layer ---
	repo := campaign.NewRepository(pg.DB)
	templates := campaign.NewTemplateStore(pg.DB)
	svc := campaign.NewService(repo, templates, cfg.Dispatch.MaxRetries, log)

	maxConcurrent := int64(cfg.Dispatch.MaxConcurrentPerChannel)
	dispatchers := []dispatch.Dispatcher{
		dispatch.NewVoiceDispatcher(integrations, vapiClient, repo, maxConcurrent, log),
		dispatch.NewSMSDispatcher(integrations, twilioClient, repo, maxConcurrent, log),
		dispatch.NewEmailDispatcher(integrations, sendgridClient, repo, maxConcurrent, log),
	}
	executor := campaign.NewExecutor(repo, records.NewRepository(pg.DB), templates, dispatchers, obs, log)

	// --- Retry sweeper ---
	if cfg.Dispatch.SweepInterval > 0 {
		sweeper := campaign.NewSweeper(repo, executor,
			time.Duration(cfg.Dispatch.SweepInterval)*time.Second, log)
		go sweeper.Run(ctx)
		zapLog.Info("Retry sweeper started", zap.Int("interval_s", cfg.Dispatch.SweepInterval))
	}

	// --- HTTP server ---
	sessions := auth.NewSessionClient(cfg.Auth.UserInfoURL,
		time.Duration(cfg.Auth.Timeout)*time.Millisecond,
		redisCache, time.Duration(cfg.Auth.CacheTTL)*time.Second)

	srv := server.New(integrations, svc, executor, templates,
		vapiClient, twilioClient, sendgridClient, log)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      srv.Router(sessions),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	zapLog.Info("Campaign server stopped gracefully")
}
