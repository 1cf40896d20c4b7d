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

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/larasedova/alpina-gpt-builder/internal/adapter/llm"
	"github.com/larasedova/alpina-gpt-builder/internal/config"
	"github.com/larasedova/alpina-gpt-builder/internal/lock"
	"github.com/larasedova/alpina-gpt-builder/internal/log"
	"github.com/larasedova/alpina-gpt-builder/internal/policy"
	"github.com/larasedova/alpina-gpt-builder/internal/repository"
	"github.com/larasedova/alpina-gpt-builder/internal/service"
	httpserver "github.com/larasedova/alpina-gpt-builder/internal/transport/http"
	"github.com/larasedova/alpina-gpt-builder/internal/transport/ws"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := log.InitLogger(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger := log.Component("Main")

	logger.Info("Starting bot builder",
		zap.Int("http_port", cfg.HTTPPort),
		zap.String("database_driver", cfg.DatabaseDriver),
		zap.String("llm_base_url", cfg.LLMBaseURL),
		zap.String("llm_api_key", log.MaskString(cfg.LLMAPIKey)),
		zap.String("lock_backend", cfg.LockBackend))

	// Initialize store
	db, err := repository.NewSQLStore(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to initialize store", zap.Error(err))
	}
	defer db.Close()

	// Initialize turn locker
	locker, closeLocker, err := newLocker(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize turn locker", zap.Error(err))
	}
	defer closeLocker()

	// Initialize LLM client
	llmClient := llm.NewLLMClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout, cfg.LLMMaxRetries)

	// Initialize policy engine
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	policyEngine, err := policy.NewEngineFromFile(ctx, cfg.BotPolicyFile)
	if err != nil {
		logger.Fatal("Failed to initialize policy engine", zap.Error(err))
	}

	// Initialize service
	svc := service.New(db, llmClient, locker, policyEngine, cfg)

	// Live chat hub
	hub := ws.NewHub()
	go hub.Run(ctx)

	wsServer := ws.NewServer(cfg, hub, svc)
	server := httpserver.NewServer(svc, wsServer)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()
	logger.Info("HTTP API started", zap.Int("port", cfg.HTTPPort))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down bot builder...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Failed to shutdown HTTP server gracefully", zap.Error(err))
	}

	// Stopping the hub cancels in-flight websocket requests and closes their
	// connections; the store stays open until their workers are gone.
	stop()
	if err := wsServer.Wait(shutdownCtx); err != nil {
		logger.Warn("Websocket requests still running at shutdown", zap.Error(err))
	}

	logger.Info("Bot builder stopped")
}

// newLocker builds the configured turn locker and its cleanup func.
func newLocker(cfg *config.Config) (lock.Locker, func(), error) {
	if cfg.LockBackend != config.LockBackendRedis {
		return lock.NewMemory(cfg.LockWait), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	locker, err := lock.NewRedis(client, cfg.LockTTL, cfg.LockWait)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return locker, func() { _ = client.Close() }, nil
}
