package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/product-catalog-demo/internal/app"
	"github.com/sandeepkv93/product-catalog-demo/internal/config"
	"github.com/sandeepkv93/product-catalog-demo/internal/database"
	"github.com/sandeepkv93/product-catalog-demo/internal/health"
	"github.com/sandeepkv93/product-catalog-demo/internal/http/handler"
	"github.com/sandeepkv93/product-catalog-demo/internal/http/middleware"
	"github.com/sandeepkv93/product-catalog-demo/internal/http/router"
	"github.com/sandeepkv93/product-catalog-demo/internal/observability"
	"github.com/sandeepkv93/product-catalog-demo/internal/repository"
	"github.com/sandeepkv93/product-catalog-demo/internal/service"
	"github.com/sandeepkv93/product-catalog-demo/internal/web"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var RuntimeInfraSet = wire.NewSet(
	provideStoreDB,
	provideRedisClient,
	provideReadinessProbeRunner,
)

var RepositorySet = wire.NewSet(
	provideProductRepository,
)

var ServiceSet = wire.NewSet(
	provideProductService,
	wire.Bind(new(service.ProductService), new(*service.ProductServiceImpl)),
	provideIdempotencyStore,
)

var HTTPSet = wire.NewSet(
	handler.NewProductHandler,
	handler.NewSystemHandler,
	provideIdempotencyFactory,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(provideApp)

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

// provideStoreDB opens the in-memory SQLite database when STORE_DRIVER=sqlite and
// returns nil for the memory driver.
func provideStoreDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.StoreDriver != config.StoreDriverSQLite {
		return nil, nil
	}
	db, err := database.Open(database.InMemoryDSN)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate product store: %w", err)
	}
	return db, nil
}

func provideRedisClient(cfg *config.Config, logger *slog.Logger) redis.UniversalClient {
	if !cfg.IdempotencyRedisEnabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	observability.InstrumentRedisClient(client, logger)
	return client
}

func provideProductRepository(db *gorm.DB) repository.ProductRepository {
	if db != nil {
		return repository.NewGormProductRepository(db)
	}
	return repository.NewInMemoryProductRepository()
}

func provideProductService(cfg *config.Config, repo repository.ProductRepository, logger *slog.Logger) (*service.ProductServiceImpl, error) {
	svc := service.NewProductService(repo)
	if !cfg.SeedDemoProducts {
		return svc, nil
	}
	seeded, err := svc.SeedDemoCatalog(context.Background())
	if err != nil {
		return nil, fmt.Errorf("seed demo catalog: %w", err)
	}
	logger.Info("demo catalog seeded", "products", seeded, "store_driver", cfg.StoreDriver)
	return svc, nil
}

func provideIdempotencyStore(cfg *config.Config, redisClient redis.UniversalClient) service.IdempotencyStore {
	if !cfg.IdempotencyEnabled {
		return nil
	}
	if cfg.IdempotencyRedisEnabled && redisClient != nil {
		return service.NewRedisIdempotencyStore(redisClient, cfg.RedisKeyPrefix)
	}
	return service.NewInMemoryIdempotencyStore()
}

func provideIdempotencyFactory(cfg *config.Config, store service.IdempotencyStore) router.IdempotencyMiddlewareFactory {
	if store == nil {
		return nil
	}
	return middleware.NewIdempotencyMiddleware(store, cfg.IdempotencyTTL).Middleware
}

func provideRouterDependencies(
	cfg *config.Config,
	productHandler *handler.ProductHandler,
	systemHandler *handler.SystemHandler,
	idempotency router.IdempotencyMiddlewareFactory,
) router.Dependencies {
	dep := router.Dependencies{
		ProductHandler: productHandler,
		SystemHandler:  systemHandler,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		BodyLimitBytes: cfg.RequestBodyLimitBytes,
		Idempotency:    idempotency,
		APIBasePath:    cfg.APIBasePath,
		EnableOTelHTTP: cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
	if cfg.WebUIEnabled {
		dep.WebUI = web.Handler()
	}
	return dep
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func provideReadinessProbeRunner(cfg *config.Config, repo repository.ProductRepository, db *gorm.DB, redisClient redis.UniversalClient) *health.ProbeRunner {
	checkers := []health.Checker{health.NewStoreChecker(repo)}
	if db != nil {
		checkers = append(checkers, health.NewDBChecker(db))
	}
	if cfg.IdempotencyRedisEnabled && redisClient != nil {
		checkers = append(checkers, health.NewRedisChecker(redisClient))
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, cfg.ServerStartGracePeriod, checkers...)
}

func provideApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
) *app.App {
	return app.New(cfg, logger, server, runtime, db, redisClient)
}
