package di

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/sandeepkv93/product-catalog-demo/internal/config"
	"github.com/sandeepkv93/product-catalog-demo/internal/observability"
	"github.com/sandeepkv93/product-catalog-demo/internal/repository"
	"github.com/sandeepkv93/product-catalog-demo/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestProvideHTTPServer(t *testing.T) {
	cfg := &config.Config{HTTPPort: "9999"}
	srv := provideHTTPServer(cfg, nil)
	if srv.Addr != ":9999" {
		t.Fatalf("unexpected addr: %s", srv.Addr)
	}
	if srv.ReadTimeout.Seconds() != 10 {
		t.Fatalf("unexpected read timeout: %v", srv.ReadTimeout)
	}
}

func TestProvideRouterDependencies(t *testing.T) {
	cfg := &config.Config{
		CORSAllowedOrigins:    []string{"http://localhost:3000"},
		RequestBodyLimitBytes: 2048,
		APIBasePath:           "/catalog",
		WebUIEnabled:          true,
		OTELTracingEnabled:    true,
	}
	dep := provideRouterDependencies(cfg, nil, nil, nil)
	if !dep.EnableOTelHTTP {
		t.Fatal("expected otel http enabled")
	}
	if dep.BodyLimitBytes != 2048 || dep.APIBasePath != "/catalog" {
		t.Fatalf("unexpected dependencies: %+v", dep)
	}
	if len(dep.CORSOrigins) != 1 || dep.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected cors origins: %+v", dep.CORSOrigins)
	}
	if dep.WebUI == nil {
		t.Fatal("expected web ui handler")
	}

	cfg.WebUIEnabled = false
	cfg.OTELTracingEnabled = false
	dep = provideRouterDependencies(cfg, nil, nil, nil)
	if dep.WebUI != nil || dep.EnableOTelHTTP {
		t.Fatalf("expected web ui and otel disabled: %+v", dep)
	}
}

func TestProvideStoreByDriver(t *testing.T) {
	db, err := provideStoreDB(&config.Config{StoreDriver: config.StoreDriverMemory})
	if err != nil || db != nil {
		t.Fatalf("memory driver should not open a database: db=%v err=%v", db, err)
	}
	if _, ok := provideProductRepository(nil).(*repository.InMemoryProductRepository); !ok {
		t.Fatal("expected in-memory repository without a database")
	}

	db, err = provideStoreDB(&config.Config{StoreDriver: config.StoreDriverSQLite})
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	repo := provideProductRepository(db)
	if _, ok := repo.(*repository.GormProductRepository); !ok {
		t.Fatalf("expected gorm repository, got %T", repo)
	}
	if _, err := repo.Count(context.Background()); err != nil {
		t.Fatalf("expected migrated products table: %v", err)
	}
}

func TestProvideProductServiceSeeding(t *testing.T) {
	repo := repository.NewInMemoryProductRepository()
	svc, err := provideProductService(&config.Config{SeedDemoProducts: true}, repo, discardLogger())
	if err != nil {
		t.Fatalf("provide service: %v", err)
	}
	if n, _ := svc.Count(context.Background()); n != 5 {
		t.Fatalf("expected 5 seeded products, got %d", n)
	}

	empty := repository.NewInMemoryProductRepository()
	svc, err = provideProductService(&config.Config{SeedDemoProducts: false}, empty, discardLogger())
	if err != nil {
		t.Fatalf("provide service: %v", err)
	}
	if n, _ := svc.Count(context.Background()); n != 0 {
		t.Fatalf("expected empty catalog, got %d", n)
	}
}

func TestProvideIdempotencyStore(t *testing.T) {
	if store := provideIdempotencyStore(&config.Config{IdempotencyEnabled: false}, nil); store != nil {
		t.Fatalf("expected no store when disabled, got %T", store)
	}
	if provideIdempotencyFactory(&config.Config{}, nil) != nil {
		t.Fatal("expected no middleware factory without a store")
	}

	store := provideIdempotencyStore(&config.Config{IdempotencyEnabled: true}, nil)
	if _, ok := store.(*service.InMemoryIdempotencyStore); !ok {
		t.Fatalf("expected in-memory store, got %T", store)
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store = provideIdempotencyStore(&config.Config{IdempotencyEnabled: true, IdempotencyRedisEnabled: true, RedisKeyPrefix: "demo"}, client)
	if _, ok := store.(*service.RedisIdempotencyStore); !ok {
		t.Fatalf("expected redis store, got %T", store)
	}
	if _, err := store.Begin(context.Background(), "product_create", "k1", "fp", time.Minute); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if keys := mr.Keys(); len(keys) != 1 || !strings.HasPrefix(keys[0], "demo:idempotency") {
		t.Fatalf("unexpected redis keys: %v", keys)
	}
	if provideIdempotencyFactory(&config.Config{IdempotencyTTL: time.Hour}, store) == nil {
		t.Fatal("expected middleware factory")
	}
}

func TestProvideRedisClient(t *testing.T) {
	if client := provideRedisClient(&config.Config{IdempotencyRedisEnabled: false}, discardLogger()); client != nil {
		t.Fatal("expected nil redis client when redis idempotency is disabled")
	}
	mr := miniredis.RunT(t)
	client := provideRedisClient(&config.Config{IdempotencyRedisEnabled: true, RedisAddr: mr.Addr()}, discardLogger())
	if client == nil {
		t.Fatal("expected redis client")
	}
	t.Cleanup(func() { _ = client.Close() })
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestProvideReadinessProbeRunner(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	cfg := &config.Config{IdempotencyRedisEnabled: true, ReadinessProbeTimeout: 200 * time.Millisecond}

	runner := provideReadinessProbeRunner(cfg, repository.NewInMemoryProductRepository(), nil, client)
	ready, results := runner.Ready(context.Background())
	if !ready || len(results) != 2 {
		t.Fatalf("expected store and redis checks ready, got ready=%v %+v", ready, results)
	}

	mr.Close()
	ready, results = runner.Ready(context.Background())
	if ready {
		t.Fatalf("expected unready after redis stopped: %+v", results)
	}
}

func TestProvideApp(t *testing.T) {
	cfg := &config.Config{HTTPPort: "8080"}
	logger := slog.Default()
	srv := &http.Server{Addr: ":8080", ReadHeaderTimeout: time.Second}
	runtime := &observability.Runtime{}

	app := provideApp(cfg, logger, srv, runtime, nil, nil)
	if app == nil {
		t.Fatal("expected app")
	}
	if app.Config != cfg || app.Logger != logger || app.Server != srv || app.Observability != runtime {
		t.Fatal("app dependencies not wired as expected")
	}
}

func TestInitializeAppServesCatalog(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("SEED_DEMO_PRODUCTS", "true")
	t.Setenv("API_BASE_PATH", "/api")
	t.Setenv("IDEMPOTENCY_REDIS_ENABLED", "false")
	t.Setenv("OTEL_METRICS_ENABLED", "false")
	t.Setenv("OTEL_TRACING_ENABLED", "false")
	t.Setenv("OTEL_LOGS_ENABLED", "false")
	t.Setenv("OTEL_LOG_LEVEL", "error")

	a, err := InitializeApp()
	if err != nil {
		t.Fatalf("initialize app: %v", err)
	}
	srv := httptest.NewServer(a.Server.Handler)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/api/products/count")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != `{"count":5}` {
		t.Fatalf("unexpected count response %d %s", resp.StatusCode, body)
	}

	resp, err = http.Get(srv.URL + "/health/ready")
	if err != nil {
		t.Fatalf("ready: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected ready, got %d", resp.StatusCode)
	}
}
