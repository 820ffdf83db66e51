package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/sandeepkv93/product-catalog-demo/internal/config"
	"github.com/sandeepkv93/product-catalog-demo/internal/observability"
)

const (
	defaultShutdownTimeout              = 20 * time.Second
	defaultShutdownHTTPDrainTimeout     = 10 * time.Second
	defaultShutdownObservabilityTimeout = 8 * time.Second
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	DB            *gorm.DB
	Redis         redis.UniversalClient
}

func New(cfg *config.Config, logger *slog.Logger, server *http.Server, runtime *observability.Runtime, db *gorm.DB, redisClient redis.UniversalClient) *App {
	return &App{Config: cfg, Logger: logger, Server: server, Observability: runtime, DB: db, Redis: redisClient}
}

// Run serves HTTP until ctx is cancelled or the listener fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return err
	}
	return a.Serve(ctx, ln)
}

func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Info("server starting", "addr", ln.Addr().String(), "cors_any_origin", a.Config != nil && a.Config.AllowsAnyOrigin())
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info("server stopping")
		a.Shutdown()
		return nil
	})
	return g.Wait()
}

// Shutdown drains HTTP, flushes telemetry and closes the store and redis client, each
// step bounded by its own timeout inside the overall shutdown budget.
func (a *App) Shutdown() {
	totalCtx, totalCancel := context.WithTimeout(context.Background(), a.timeout(a.configShutdownTimeout(), defaultShutdownTimeout))
	defer totalCancel()

	httpCtx, httpCancel := context.WithTimeout(totalCtx, a.timeout(a.configDrainTimeout(), defaultShutdownHTTPDrainTimeout))
	if err := a.Server.Shutdown(httpCtx); err != nil {
		a.Logger.Error("failed to shutdown http server", "error", err)
	}
	httpCancel()

	if a.Observability != nil {
		obsCtx, obsCancel := context.WithTimeout(totalCtx, a.timeout(a.configObservabilityTimeout(), defaultShutdownObservabilityTimeout))
		if err := a.Observability.Shutdown(obsCtx); err != nil {
			a.Logger.Error("failed to shutdown observability", "error", err)
		}
		obsCancel()
	}

	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("failed to close redis client", "error", err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Logger.Error("failed to close database connection", "error", err)
			}
		}
	}
}

func (a *App) timeout(configured, fallback time.Duration) time.Duration {
	if configured <= 0 {
		return fallback
	}
	return configured
}

func (a *App) configShutdownTimeout() time.Duration {
	if a.Config == nil {
		return 0
	}
	return a.Config.ShutdownTimeout
}

func (a *App) configDrainTimeout() time.Duration {
	if a.Config == nil {
		return 0
	}
	return a.Config.ShutdownHTTPDrainTimeout
}

func (a *App) configObservabilityTimeout() time.Duration {
	if a.Config == nil {
		return 0
	}
	return a.Config.ShutdownObservabilityTimeout
}
