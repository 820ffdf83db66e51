package response

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestJSONWritesUnwrappedBody(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/products/count", nil)

	JSON(rr, req, http.StatusOK, map[string]int64{"count": 5})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var body map[string]int64
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["count"] != 5 {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}

func TestErrorCarriesRequestID(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/products/9", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-77"))

	Error(rr, req, http.StatusNotFound, "NOT_FOUND", "Product with ID 9 not found", nil)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	var body ErrorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "NOT_FOUND" || body.Error.Message != "Product with ID 9 not found" || body.Error.RequestID != "req-77" {
		t.Fatalf("unexpected error body: %+v", body)
	}
}
