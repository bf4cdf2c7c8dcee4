package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"famshare/internal/config"
	"famshare/internal/database"
	"famshare/internal/handlers"
	"famshare/internal/logging"
	"famshare/internal/middleware"
	"famshare/internal/services"
	"famshare/internal/store"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	logger := logging.New()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Server.Debug {
		logger.SetLevel(logging.LevelDebug)
		logging.SetDefaultLevel(logging.LevelDebug)
	}

	logger.Info("Starting FamShare server...")

	st, healthChecks, closeStore, err := buildStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// The memory store runs without redis: in-process locks, no rate
	// limiting. Every other provider shares lock state through redis so
	// concurrent replicas serialize per-owner writes.
	var locker services.Locker
	var inviteLimit func(http.Handler) http.Handler = passthrough
	if cfg.Store.Provider == "memory" {
		locker = services.NewMemoryLocker()
	} else {
		logger.Info("Connecting to Redis", map[string]interface{}{"addr": cfg.Redis.Addr()})
		redisDB, err := database.NewRedisDB(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer func() { _ = redisDB.Close() }()
		logger.Info("Connected to Redis")

		locker = services.NewRedisLocker(redisDB.Client)
		inviteLimit = middleware.NewInviteRateLimiter(redisDB.Client).Limit
		healthChecks["redis"] = redisDB
	}

	// Services
	verifier := services.NewIdentityVerifier(cfg.Auth.BaseURL)
	emailService := services.NewEmailService(&cfg.Email)
	familyService := services.NewFamilyService(st, locker)
	invitationService := services.NewInvitationService(st, familyService, locker, emailService, cfg.Client.BaseURL)
	membershipService := services.NewMembershipService(st, familyService)

	// Handlers
	healthHandler := handlers.NewHealthHandler(healthChecks)
	familyHandler := handlers.NewFamilyHandler(verifier, familyService, invitationService, membershipService)

	// Middleware
	securityHeaders := middleware.NewSecurityHeaders(cfg.Server.Environment == "production")
	requestLogger := middleware.NewRequestLogger(logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.Live)
	mux.HandleFunc("GET /ready", healthHandler.Ready)

	mux.Handle("POST /api/family/invite", inviteLimit(http.HandlerFunc(familyHandler.Invite)))
	mux.HandleFunc("POST /api/family/invite/accept", familyHandler.AcceptInvite)
	mux.HandleFunc("POST /api/family/invite/revoke", familyHandler.RevokeInvite)
	mux.HandleFunc("POST /api/family/members", familyHandler.Members)
	mux.HandleFunc("POST /api/family/members/remove", familyHandler.RemoveMember)
	mux.HandleFunc("POST /api/family/invitations", familyHandler.Invitations)

	// Build middleware chain (order matters: outermost first)
	var handler http.Handler = mux
	handler = securityHeaders.Apply(handler)
	handler = requestLogger.Apply(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{"addr": addr})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}

// buildStore selects the data store backend and returns it along with its
// health checks and a close function.
func buildStore(cfg *config.Config, logger *logging.Logger) (store.Store, map[string]handlers.Pinger, func(), error) {
	checks := map[string]handlers.Pinger{}

	switch cfg.Store.Provider {
	case "remote":
		logger.Info("Using remote store", map[string]interface{}{"base_url": cfg.Store.BaseURL})
		return store.NewRemote(cfg.Store.BaseURL, cfg.Store.APIKey), checks, func() {}, nil

	case "postgres":
		logger.Info("Connecting to PostgreSQL", map[string]interface{}{
			"host": cfg.Store.Host,
			"port": cfg.Store.Port,
		})

		logger.Info("Running database migrations...")
		migrator, err := database.NewMigrator(cfg.Store.DSN(), "migrations")
		if err != nil {
			return nil, nil, nil, fmt.Errorf("creating migrator: %w", err)
		}
		if err := migrator.Up(); err != nil {
			_ = migrator.Close()
			return nil, nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		_ = migrator.Close()
		logger.Info("Migrations completed")

		pg, err := store.NewPostgres(context.Background(), cfg.Store.DSN())
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		checks["postgres"] = pg
		return pg, checks, pg.Close, nil

	case "memory":
		logger.Warn("Using in-memory store; data is not persisted")
		return store.NewMemory(), checks, func() {}, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown store provider %q", cfg.Store.Provider)
	}
}

func passthrough(next http.Handler) http.Handler {
	return next
}
