package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/product-catalog-demo/internal/health"
	"github.com/sandeepkv93/product-catalog-demo/internal/http/handler"
	"github.com/sandeepkv93/product-catalog-demo/internal/http/middleware"
	"github.com/sandeepkv93/product-catalog-demo/internal/repository"
	"github.com/sandeepkv93/product-catalog-demo/internal/service"
	"github.com/sandeepkv93/product-catalog-demo/internal/web"
)

type testProduct struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	CreatedDate time.Time `json:"createdDate"`
}

func newRouterForTest(t *testing.T, seed bool) http.Handler {
	t.Helper()
	repo := repository.NewInMemoryProductRepository()
	svc := service.NewProductService(repo)
	if seed {
		if _, err := svc.SeedDemoCatalog(context.Background()); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	idem := middleware.NewIdempotencyMiddleware(service.NewInMemoryIdempotencyStore(), time.Hour)
	return NewRouter(Dependencies{
		ProductHandler: handler.NewProductHandler(svc),
		SystemHandler:  handler.NewSystemHandler(svc, health.NewProbeRunner(time.Second, 0, health.NewStoreChecker(repo))),
		CORSOrigins:    []string{"*"},
		Idempotency:    idem.Middleware,
		APIBasePath:    "/api",
		WebUI:          web.Handler(),
	})
}

func doRequest(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeInto[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestRouterCreateThenGet(t *testing.T) {
	h := newRouterForTest(t, false)

	rr := doRequest(t, h, http.MethodPost, "/api/products", `{"name":"Desk","description":"Standing desk","price":349.5,"quantity":2}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	created := decodeInto[testProduct](t, rr)
	if created.ID != 1 || created.CreatedDate.IsZero() {
		t.Fatalf("unexpected created product: %+v", created)
	}
	if loc := rr.Header().Get("Location"); loc != "/api/products/1" {
		t.Fatalf("unexpected location %q", loc)
	}

	rr = doRequest(t, h, http.MethodGet, "/api/products/1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	got := decodeInto[testProduct](t, rr)
	if !got.CreatedDate.Equal(created.CreatedDate) || got.Name != created.Name || got.Description != created.Description || got.Price != 349.5 || got.Quantity != 2 {
		t.Fatalf("expected %+v, got %+v", created, got)
	}
}

func TestRouterUpdatePreservesIdentity(t *testing.T) {
	h := newRouterForTest(t, true)
	before := decodeInto[testProduct](t, doRequest(t, h, http.MethodGet, "/api/products/2", ""))

	rr := doRequest(t, h, http.MethodPut, "/api/products/2", `{"id":"2","name":"Phone","description":"Refurbished","price":499,"quantity":3}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	after := decodeInto[testProduct](t, rr)
	if after.ID != 2 || !after.CreatedDate.Equal(before.CreatedDate) || after.Name != "Phone" || after.Price != 499 {
		t.Fatalf("unexpected update result: before=%+v after=%+v", before, after)
	}

	rr = doRequest(t, h, http.MethodPut, "/api/products/77", `{"name":"","description":"","price":0}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected not-found to win over validation, got %d", rr.Code)
	}
}

func TestRouterDeleteThenGetFails(t *testing.T) {
	h := newRouterForTest(t, true)

	rr := doRequest(t, h, http.MethodDelete, "/api/products/3", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if msg := decodeInto[map[string]string](t, rr)["message"]; msg != "Product with ID 3 has been deleted" {
		t.Fatalf("unexpected message %q", msg)
	}
	if rr := doRequest(t, h, http.MethodGet, "/api/products/3", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rr.Code)
	}
	if rr := doRequest(t, h, http.MethodDelete, "/api/products/3", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on repeated delete, got %d", rr.Code)
	}
}

func TestRouterDeleteAllResetsCountAndIDs(t *testing.T) {
	h := newRouterForTest(t, true)

	if c := decodeInto[map[string]int](t, doRequest(t, h, http.MethodGet, "/api/products/count", ""))["count"]; c != 5 {
		t.Fatalf("expected 5 seeded products, got %d", c)
	}

	rr := doRequest(t, h, http.MethodDelete, "/api/products", "")
	body := decodeInto[map[string]any](t, rr)
	if body["message"] != "All 5 products have been deleted" || body["deleted"] != float64(5) {
		t.Fatalf("unexpected delete-all body: %v", body)
	}

	if c := decodeInto[map[string]int](t, doRequest(t, h, http.MethodGet, "/api/products/count", ""))["count"]; c != 0 {
		t.Fatalf("expected count 0, got %d", c)
	}
	if list := doRequest(t, h, http.MethodGet, "/api/products", ""); strings.TrimSpace(list.Body.String()) != "[]" {
		t.Fatalf("expected empty list, got %s", list.Body.String())
	}

	created := decodeInto[testProduct](t, doRequest(t, h, http.MethodPost, "/api/products", `{"name":"A","description":"B","price":1}`))
	if created.ID != 1 {
		t.Fatalf("expected id 1 after reset, got %d", created.ID)
	}
}

func TestRouterRejectsInvalidInput(t *testing.T) {
	h := newRouterForTest(t, false)
	cases := []struct {
		name    string
		body    string
		message string
	}{
		{"zero price", `{"name":"A","description":"B","price":0}`, "Price must be greater than 0"},
		{"negative price", `{"name":"A","description":"B","price":-3.5}`, "Price must be greater than 0"},
		{"blank name", `{"name":"   ","description":"B","price":2}`, "Name and Description are required"},
		{"missing description", `{"name":"A","price":2}`, "Name and Description are required"},
		{"malformed", `{"name":`, "invalid payload"},
		{"string price", `{"name":"A","description":"B","price":"cheap"}`, "invalid payload"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doRequest(t, h, http.MethodPost, "/api/products", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
			}
			env := decodeInto[map[string]map[string]any](t, rr)
			if env["error"]["message"] != tc.message {
				t.Fatalf("expected %q, got %v", tc.message, env["error"]["message"])
			}
		})
	}
	if c := decodeInto[map[string]int](t, doRequest(t, h, http.MethodGet, "/api/products/count", ""))["count"]; c != 0 {
		t.Fatalf("rejected creates must not be stored, count=%d", c)
	}
}

func TestRouterListOrderedByID(t *testing.T) {
	h := newRouterForTest(t, true)
	doRequest(t, h, http.MethodDelete, "/api/products/1", "")
	doRequest(t, h, http.MethodPost, "/api/products", `{"name":"Monitor","description":"27 inch","price":279.99,"quantity":8}`)

	items := decodeInto[[]testProduct](t, doRequest(t, h, http.MethodGet, "/api/products", ""))
	if len(items) != 5 {
		t.Fatalf("expected 5 products, got %d", len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i-1].ID >= items[i].ID {
			t.Fatalf("list not ordered by id: %+v", items)
		}
	}
	if items[len(items)-1].ID != 6 {
		t.Fatalf("expected newest id 6 last, got %d", items[len(items)-1].ID)
	}
}

func TestRouterIdempotentCreateReplays(t *testing.T) {
	h := newRouterForTest(t, false)
	body := `{"name":"Chair","description":"Ergonomic","price":220,"quantity":4}`

	first := doRequest(t, h, http.MethodPost, "/api/products", body, "Idempotency-Key", "chair-1")
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", first.Code)
	}
	replay := doRequest(t, h, http.MethodPost, "/api/products", body, "Idempotency-Key", "chair-1")
	if replay.Code != http.StatusCreated || replay.Header().Get("X-Idempotency-Replayed") != "true" {
		t.Fatalf("expected replayed 201, got %d headers=%v", replay.Code, replay.Header())
	}
	if replay.Body.String() != first.Body.String() {
		t.Fatalf("replay body differs: %s vs %s", replay.Body.String(), first.Body.String())
	}
	if loc := first.Header().Get("Location"); loc != "/api/products/1" || replay.Header().Get("Location") != loc {
		t.Fatalf("expected replay location %q, got %q", loc, replay.Header().Get("Location"))
	}
	if c := decodeInto[map[string]int](t, doRequest(t, h, http.MethodGet, "/api/products/count", ""))["count"]; c != 1 {
		t.Fatalf("expected a single stored product, got %d", c)
	}

	conflict := doRequest(t, h, http.MethodPost, "/api/products", `{"name":"Chair","description":"Other","price":1}`, "Idempotency-Key", "chair-1")
	if conflict.Code != http.StatusConflict {
		t.Fatalf("expected 409 for payload mismatch, got %d", conflict.Code)
	}
}

func TestRouterHealthAndStaticPage(t *testing.T) {
	h := newRouterForTest(t, true)

	status := decodeInto[map[string]any](t, doRequest(t, h, http.MethodGet, "/api/health", ""))
	if status["status"] != "Healthy" || status["productCount"] != float64(5) {
		t.Fatalf("unexpected health body: %v", status)
	}
	if _, err := time.Parse(time.RFC3339Nano, fmt.Sprint(status["timestamp"])); err != nil {
		t.Fatalf("timestamp not RFC3339: %v", status["timestamp"])
	}

	root := decodeInto[map[string]any](t, doRequest(t, h, http.MethodGet, "/health", ""))
	if root["status"] != "Healthy" || root["productCount"] != float64(5) {
		t.Fatalf("unexpected root health body: %v", root)
	}

	if rr := doRequest(t, h, http.MethodGet, "/health/live", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected live 200, got %d", rr.Code)
	}
	ready := doRequest(t, h, http.MethodGet, "/health/ready", "")
	if ready.Code != http.StatusOK || !strings.Contains(ready.Body.String(), `"store"`) {
		t.Fatalf("unexpected ready response %d %s", ready.Code, ready.Body.String())
	}

	page := doRequest(t, h, http.MethodGet, "/", "")
	if page.Code != http.StatusOK || !strings.Contains(page.Body.String(), `id="products-list"`) {
		t.Fatalf("expected static page, got %d", page.Code)
	}
	if page.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected security headers on static page")
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	h := newRouterForTest(t, false)
	rr := doRequest(t, h, http.MethodOptions, "/api/products/1", "",
		"Origin", "http://localhost:8080",
		"Access-Control-Request-Method", http.MethodPut,
	)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected wildcard origin, got %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}
	if !strings.Contains(rr.Header().Get("Access-Control-Allow-Methods"), "DELETE") {
		t.Fatalf("missing methods header: %v", rr.Header())
	}
}

func TestRouterCustomBasePath(t *testing.T) {
	svc := service.NewProductService(repository.NewInMemoryProductRepository())
	h := NewRouter(Dependencies{
		ProductHandler: handler.NewProductHandler(svc),
		SystemHandler:  handler.NewSystemHandler(svc, nil),
		APIBasePath:    "v2/",
	})
	if rr := doRequest(t, h, http.MethodGet, "/v2/products/count", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected mounted base path, got %d", rr.Code)
	}
	if rr := doRequest(t, h, http.MethodGet, "/api/products/count", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected default path unmounted, got %d", rr.Code)
	}
	if rr := doRequest(t, h, http.MethodGet, "/", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected no page without web ui, got %d", rr.Code)
	}
}
