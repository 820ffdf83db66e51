package config

import (
	"strings"
	"testing"
	"time"
)

func validConfigForTest() *Config {
	return &Config{
		Env:                          "development",
		HTTPPort:                     "5000",
		APIBasePath:                  "/api",
		StoreDriver:                  StoreDriverMemory,
		CORSAllowedOrigins:           []string{"*"},
		RequestBodyLimitBytes:        1 << 20,
		IdempotencyEnabled:           true,
		IdempotencyTTL:               24 * time.Hour,
		RedisAddr:                    "localhost:6379",
		ReadinessProbeTimeout:        time.Second,
		ShutdownTimeout:              20 * time.Second,
		ShutdownHTTPDrainTimeout:     10 * time.Second,
		ShutdownObservabilityTimeout: 8 * time.Second,
		OTELTraceSamplingRatio:       1.0,
		OTELMetricsExportInterval:    10 * time.Second,
		OTELLogLevel:                 "info",
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validConfigForTest().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := validConfigForTest()
	cfg.HTTPPort = "not-a-port"
	cfg.StoreDriver = "postgres"
	cfg.OTELLogLevel = "trace"
	cfg.OTELTraceSamplingRatio = 2

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"HTTP_PORT", "STORE_DRIVER", "OTEL_LOG_LEVEL", "OTEL_TRACE_SAMPLING_RATIO"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in error, got %v", want, err)
		}
	}
}

func TestValidateIdempotencyRedisRequiresIdempotency(t *testing.T) {
	cfg := validConfigForTest()
	cfg.IdempotencyEnabled = false
	cfg.IdempotencyRedisEnabled = true
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "IDEMPOTENCY_REDIS_ENABLED") {
		t.Fatalf("expected idempotency redis error, got %v", err)
	}
}

func TestValidateShutdownBudget(t *testing.T) {
	cfg := validConfigForTest()
	cfg.ShutdownHTTPDrainTimeout = 30 * time.Second
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "SHUTDOWN_HTTP_DRAIN_TIMEOUT") {
		t.Fatalf("expected drain timeout error, got %v", err)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "8081")
	t.Setenv("API_BASE_PATH", "/v1/")
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("SEED_DEMO_PRODUCTS", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://demo.example.com")
	t.Setenv("IDEMPOTENCY_TTL", "90m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPPort != "8081" || cfg.APIBasePath != "/v1" || cfg.StoreDriver != StoreDriverSQLite {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.SeedDemoProducts {
		t.Fatal("expected seeding disabled")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://demo.example.com" {
		t.Fatalf("unexpected cors origins: %+v", cfg.CORSAllowedOrigins)
	}
	if cfg.AllowsAnyOrigin() {
		t.Fatal("expected explicit allow-list")
	}
	if cfg.IdempotencyTTL != 90*time.Minute {
		t.Fatalf("unexpected idempotency ttl: %v", cfg.IdempotencyTTL)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "SHUTDOWN_TIMEOUT") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestLoadRootBasePath(t *testing.T) {
	t.Setenv("API_BASE_PATH", "/")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBasePath != "" {
		t.Fatalf("expected empty base path, got %q", cfg.APIBasePath)
	}
	if !cfg.AllowsAnyOrigin() {
		t.Fatal("expected default wildcard origin")
	}
}
