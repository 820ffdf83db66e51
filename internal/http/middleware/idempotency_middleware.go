package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/product-catalog-demo/internal/http/response"
	"github.com/sandeepkv93/product-catalog-demo/internal/observability"
	"github.com/sandeepkv93/product-catalog-demo/internal/service"
)

const (
	idempotencyHeader       = "Idempotency-Key"
	idempotencyReplayHeader = "X-Idempotency-Replayed"
	maxIdempotencyKeyLength = 128
)

type IdempotencyMiddleware struct {
	store service.IdempotencyStore
	ttl   time.Duration
}

func NewIdempotencyMiddleware(store service.IdempotencyStore, ttl time.Duration) *IdempotencyMiddleware {
	return &IdempotencyMiddleware{store: store, ttl: ttl}
}

// Middleware makes the wrapped handler replay-safe for requests that carry an
// Idempotency-Key header. Requests without the header pass straight through.
func (m *IdempotencyMiddleware) Middleware(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil || m.store == nil {
				next.ServeHTTP(w, r)
				return
			}
			rawKey, present := r.Header[http.CanonicalHeaderKey(idempotencyHeader)]
			if !present {
				observability.RecordIdempotencyEvent(r.Context(), scope, "no_key")
				next.ServeHTTP(w, r)
				return
			}
			key := ""
			if len(rawKey) > 0 {
				key = strings.TrimSpace(rawKey[0])
			}
			if key == "" || len(key) > maxIdempotencyKeyLength {
				observability.RecordIdempotencyEvent(r.Context(), scope, "invalid_key")
				response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid Idempotency-Key header", nil)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				observability.RecordIdempotencyEvent(r.Context(), scope, "read_error")
				if IsBodyTooLarge(err) {
					response.Error(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
					return
				}
				response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			fingerprint := fingerprintRequest(r, scope, body)

			begin, err := m.store.Begin(r.Context(), scope, key, fingerprint, m.ttl)
			if err != nil {
				observability.RecordIdempotencyEvent(r.Context(), scope, "store_error")
				m.audit(r, key, "check", "failure", "store_error", scope, "error", err.Error())
				response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "idempotency check failed", nil)
				return
			}

			switch begin.State {
			case service.IdempotencyStateConflict:
				observability.RecordIdempotencyEvent(r.Context(), scope, "conflict")
				m.audit(r, key, "check", "rejected", "fingerprint_conflict", scope)
				response.Error(w, r, http.StatusConflict, "CONFLICT", "idempotency key reuse with different payload", nil)
				return
			case service.IdempotencyStateInProgress:
				observability.RecordIdempotencyEvent(r.Context(), scope, "in_progress")
				m.audit(r, key, "check", "rejected", "request_in_progress", scope)
				response.Error(w, r, http.StatusConflict, "CONFLICT", "request with this idempotency key is in progress", nil)
				return
			case service.IdempotencyStateReplay:
				observability.RecordIdempotencyEvent(r.Context(), scope, "replayed")
				m.audit(r, key, "replay", "success", "cached_response", scope)
				writeCachedResponse(w, begin.Cached)
				return
			}

			rec := newCaptureWriter(w)
			m.serveReleasingOnPanic(next, rec, r, scope, key, fingerprint)
			if rec.statusCode == 0 {
				rec.statusCode = http.StatusOK
			}

			// Failed requests give the key back so the client can retry with it.
			if rec.statusCode >= http.StatusInternalServerError {
				observability.RecordIdempotencyEvent(r.Context(), scope, "released")
				if err := m.store.Release(r.Context(), scope, key, fingerprint); err != nil {
					m.audit(r, key, "release", "failure", "store_error", scope, "error", err.Error())
				}
				return
			}

			observability.RecordIdempotencyEvent(r.Context(), scope, "created")
			if err := m.store.Complete(r.Context(), scope, key, fingerprint, service.CachedHTTPResponse{
				StatusCode:  rec.statusCode,
				ContentType: rec.Header().Get("Content-Type"),
				Location:    rec.Header().Get("Location"),
				Body:        rec.body.Bytes(),
			}, m.ttl); err != nil {
				observability.RecordIdempotencyEvent(r.Context(), scope, "store_error")
				m.audit(r, key, "complete", "failure", "store_error", scope, "error", err.Error())
			}
		})
	}
}

// serveReleasingOnPanic frees the reservation before a handler panic reaches the
// recoverer, so the key is not stuck in progress until it expires.
func (m *IdempotencyMiddleware) serveReleasingOnPanic(next http.Handler, w http.ResponseWriter, r *http.Request, scope, key, fingerprint string) {
	defer func() {
		if p := recover(); p != nil {
			observability.RecordIdempotencyEvent(r.Context(), scope, "released")
			if err := m.store.Release(r.Context(), scope, key, fingerprint); err != nil {
				m.audit(r, key, "release", "failure", "store_error", scope, "error", err.Error())
			}
			panic(p)
		}
	}()
	next.ServeHTTP(w, r)
}

func (m *IdempotencyMiddleware) audit(r *http.Request, key, action, outcome, reason, scope string, extra ...any) {
	eventName := "idempotency." + action
	observability.EmitAudit(r, observability.AuditInput{
		EventName:  eventName,
		TargetType: "idempotency_key",
		TargetID:   shortHash(key),
		Action:     action,
		Outcome:    outcome,
		Reason:     reason,
	}, append([]any{"scope", scope}, extra...)...)
}

func writeCachedResponse(w http.ResponseWriter, cached *service.CachedHTTPResponse) {
	if cached == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if cached.ContentType != "" {
		w.Header().Set("Content-Type", cached.ContentType)
	}
	if cached.Location != "" {
		w.Header().Set("Location", cached.Location)
	}
	w.Header().Set(idempotencyReplayHeader, "true")
	w.WriteHeader(cached.StatusCode)
	if len(cached.Body) > 0 {
		_, _ = w.Write(cached.Body)
	}
}

// fingerprintRequest binds a key to the caller, the route and the exact body, so the
// same key sent with a different payload is detected as a conflict.
func fingerprintRequest(r *http.Request, scope string, body []byte) string {
	routePattern := r.URL.Path
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			routePattern = pattern
		}
	}
	raw := strings.Join([]string{
		scope,
		r.Method,
		routePattern,
		"ip:" + clientIPFromRequest(r),
		hex.EncodeToString(hashBytes(body)),
	}, "\n")
	return hex.EncodeToString(hashBytes([]byte(raw)))
}

func clientIPFromRequest(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func hashBytes(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}

func shortHash(v string) string {
	full := hex.EncodeToString(hashBytes([]byte(v)))
	if len(full) > 12 {
		return full[:12]
	}
	return full
}

type captureWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func newCaptureWriter(w http.ResponseWriter) *captureWriter {
	return &captureWriter{ResponseWriter: w}
}

func (w *captureWriter) WriteHeader(statusCode int) {
	if w.statusCode == 0 {
		w.statusCode = statusCode
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *captureWriter) Write(p []byte) (int, error) {
	if w.statusCode == 0 {
		w.statusCode = http.StatusOK
	}
	w.body.Write(p)
	return w.ResponseWriter.Write(p)
}
