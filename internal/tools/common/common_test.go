package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sandeepkv93/product-catalog-demo/internal/http/handler"
	"github.com/sandeepkv93/product-catalog-demo/internal/http/middleware"
	"github.com/sandeepkv93/product-catalog-demo/internal/http/router"
	"github.com/sandeepkv93/product-catalog-demo/internal/repository"
	"github.com/sandeepkv93/product-catalog-demo/internal/service"
)

func newAPIServerForTest(t *testing.T) *httptest.Server {
	t.Helper()
	svc := service.NewProductService(repository.NewInMemoryProductRepository())
	idem := middleware.NewIdempotencyMiddleware(service.NewInMemoryIdempotencyStore(), time.Hour)
	srv := httptest.NewServer(router.NewRouter(router.Dependencies{
		ProductHandler: handler.NewProductHandler(svc),
		SystemHandler:  handler.NewSystemHandler(svc, nil),
		CORSOrigins:    []string{"*"},
		Idempotency:    idem.Middleware,
		APIBasePath:    "/api",
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProductClientRoundTrip(t *testing.T) {
	srv := newAPIServerForTest(t)
	client := NewProductClient(srv.URL+"/api/", nil)
	ctx := context.Background()

	created, replayed, err := client.Create(ctx, ProductPayload{Name: "Lamp", Description: "Desk lamp", Price: 19.99, Quantity: 2}, "lamp-1")
	if err != nil || replayed {
		t.Fatalf("create: replayed=%v err=%v", replayed, err)
	}
	if created.ID != 1 || created.Price.String() != "19.99" {
		t.Fatalf("unexpected product: %+v", created)
	}
	again, replayed, err := client.Create(ctx, ProductPayload{Name: "Lamp", Description: "Desk lamp", Price: 19.99, Quantity: 2}, "lamp-1")
	if err != nil || !replayed || again.ID != created.ID {
		t.Fatalf("expected replay of id %d, got %+v replayed=%v err=%v", created.ID, again, replayed, err)
	}

	items, err := client.List(ctx)
	if err != nil || len(items) != 1 {
		t.Fatalf("list: %v %+v", err, items)
	}
	if n, err := client.Count(ctx); err != nil || n != 1 {
		t.Fatalf("count: %d %v", n, err)
	}
	if n, err := client.DeleteAll(ctx); err != nil || n != 1 {
		t.Fatalf("delete all: %d %v", n, err)
	}
}

func TestProductClientSurfacesAPIErrors(t *testing.T) {
	srv := newAPIServerForTest(t)
	client := NewProductClient(srv.URL+"/api", nil)

	_, _, err := client.Create(context.Background(), ProductPayload{Name: "Lamp", Description: "Desk lamp"}, "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "Price must be greater than 0" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}

	status, err := client.Do(context.Background(), http.MethodGet, "/products/404", nil, nil)
	if status != http.StatusNotFound || err == nil {
		t.Fatalf("expected 404 error, got %d %v", status, err)
	}
}

func TestLoadEnvFileKeepsExistingValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("HTTP_PORT=7000\nAPI_BASE_PATH=\"/catalog\"\n# comment\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("HTTP_PORT", "6000")
	t.Setenv("API_BASE_PATH", "")
	_ = os.Unsetenv("API_BASE_PATH")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("HTTP_PORT"); got != "6000" {
		t.Fatalf("existing value overridden: %s", got)
	}
	if got := DefaultBaseURL(); got != "http://localhost:6000/catalog" {
		t.Fatalf("unexpected base url %s", got)
	}
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}
}

func TestWriteCIResult(t *testing.T) {
	var buf bytes.Buffer
	WriteCIResult(&buf, false, "seed apply", []string{"created=0"}, errors.New("boom"))
	var got CIResult
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.OK || got.Title != "seed apply" || got.Error != "boom" || len(got.Details) != 1 {
		t.Fatalf("unexpected result: %+v", got)
	}
}
