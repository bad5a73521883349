// ABOUTME: xmarks server entrypoint wiring storage, the X API clients, the
// ABOUTME: sync workers and the HTTP surface together
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"xmarks/config"
	"xmarks/driver"
	"xmarks/handler"
	"xmarks/repository"
	"xmarks/security"
	"xmarks/service"
	"xmarks/service/scheduler"
	"xmarks/utils/logger"
)

func main() {
	// Handle healthcheck subcommand (for Docker healthcheck in distroless image)
	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		if err := runHealthcheck(); err != nil {
			fmt.Fprintf(os.Stderr, "Healthcheck failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments use environment variables
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	log.Info("Starting xmarks server",
		"port", cfg.Port,
		"sync_interval", cfg.SyncInterval,
		"sync_workers", cfg.SyncWorkers)

	// Storage
	db, err := repository.NewConnection(cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	vault, err := security.NewVault(cfg.TokenCipherKey)
	if err != nil {
		return fmt.Errorf("failed to initialize token vault: %w", err)
	}

	// Repositories
	users := repository.NewPostgresUserRepository(db.Pool(), log)
	tokens := repository.NewPostgresTokenRepository(db.Pool(), vault, log)
	bookmarks := repository.NewPostgresBookmarkRepository(db.Pool(), log)
	sessions := repository.NewRedisSessionRepository(redisClient, log)
	revocation := repository.NewRedisRevocationRepository(redisClient, log)

	// Provider clients
	authClient := driver.NewXAuthClient(cfg.XClientID, cfg.XClientSecret, cfg.XRedirectURI, cfg.XAPIBaseURL, log)
	apiClient := driver.NewXAPIClient(cfg.XAPIBaseURL, log)
	queue := driver.NewQueueDriver(redisClient)

	// Services
	appTokens := service.NewAppTokenService(service.AppTokenConfig{
		Secret:     cfg.JWTSecret,
		Issuer:     "xmarks",
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, revocation, log)

	oauthService := service.NewOAuthService(service.OAuthConfig{
		ClientID:    cfg.XClientID,
		RedirectURI: cfg.XRedirectURI,
		AuthBaseURL: cfg.XAuthBaseURL,
		Scopes:      cfg.XScopes,
	}, sessions, authClient, apiClient, users, tokens, appTokens, log)

	tokenLifecycle := service.NewTokenLifecycleService(tokens, users, authClient, log)
	bookmarkService := service.NewBookmarkService(tokenLifecycle, apiClient, bookmarks, log, cfg.SyncMaxResults)
	syncService := service.NewSyncService(users, queue, bookmarkService, log, cfg.SyncWorkers)

	// HTTP surface. Auth endpoints get a per-IP rate limit.
	authLimiter := security.NewMemoryRateLimiter(30, time.Hour, log)
	defer authLimiter.Stop()

	router := handler.NewRouter(handler.RouterDeps{
		Auth:      handler.NewAuthHandler(oauthService, appTokens, users, cfg.FrontendURL, log),
		Bookmarks: handler.NewBookmarkHandler(bookmarkService, log),
		Users:     handler.NewUserHandler(users, log),
		Health: handler.NewHealthHandler(map[string]handler.HealthChecker{
			"database": db.HealthCheck,
			"redis":    queue.Ping,
		}),
		Verifier:  appTokens,
		AuthLimit: authLimiter,
		Logger:    log,
	})

	// Periodic sync
	syncScheduler := scheduler.NewScheduler(syncService, log)
	syncScheduler.Start(scheduler.Config{SyncInterval: cfg.SyncInterval})
	defer syncScheduler.Stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return syncService.RunWorkers(gCtx)
	})

	address := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	g.Go(func() error {
		log.Info("HTTP server listening", "address", address)
		if err := router.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return router.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("Server exited properly")
	return nil
}

// runHealthcheck performs a health check against the local server.
func runHealthcheck() error {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%s/v1/health", port))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health endpoint returned status: %d", resp.StatusCode)
	}
	return nil
}
