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

	"github.com/crucial707/webdemo/internal/config"
	"github.com/crucial707/webdemo/internal/db"
	"github.com/crucial707/webdemo/internal/logger"
	"github.com/crucial707/webdemo/internal/metrics"
	"github.com/crucial707/webdemo/internal/scheduler"
	"github.com/crucial707/webdemo/internal/session"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MigrateOnStart {
		if err := db.MigrateUp(cfg.DatabaseURL()); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		slog.Info("migrations applied")
	}

	database, err := db.Connect(ctx, cfg.DSN(), db.Options{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()
	slog.Info("connected to database", "host", cfg.DBHost, "name", cfg.DBName)

	store, closeStore, err := newSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	authService := newAuthService(database, cfg)
	sessions := session.NewManager(store, session.Options{
		Secret:      []byte(cfg.SecretKey),
		SessionTTL:  cfg.SessionTTL,
		RememberTTL: cfg.RememberTTL,
		Secure:      cfg.CookieSecure,
		OnCreate:    func(*session.Session) { metrics.IncSessionsCreated() },
		UserExists:  authService.UserExists,
	})

	sweeper, err := scheduler.NewSweeper(store, cfg.SessionSweep)
	if err != nil {
		return err
	}
	sweeper.Start()

	handler, err := newRouter(database, cfg, authService, sessions)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr, "env", cfg.Env, "session_store", cfg.SessionStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	sweeper.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// newSessionStore returns the configured session store and a func that releases it.
func newSessionStore(ctx context.Context, cfg config.Config) (session.Store, func(), error) {
	switch cfg.SessionStore {
	case "redis":
		store, err := session.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using redis session store")
		return store, func() { _ = store.Close() }, nil
	default:
		return session.NewMemoryStore(), func() {}, nil
	}
}
