package service

import (
	"context"
	"sync"
	"time"
)

type IdempotencyState string

const (
	IdempotencyStateNew        IdempotencyState = "new"
	IdempotencyStateReplay     IdempotencyState = "replay"
	IdempotencyStateConflict   IdempotencyState = "conflict"
	IdempotencyStateInProgress IdempotencyState = "in_progress"
)

type CachedHTTPResponse struct {
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type"`
	Location    string `json:"location,omitempty"`
	Body        []byte `json:"body"`
}

type IdempotencyBeginResult struct {
	State  IdempotencyState
	Cached *CachedHTTPResponse
}

// idempotencyRecord is the per-key state shared by the store drivers.
type idempotencyRecord struct {
	Fingerprint string              `json:"fingerprint"`
	Completed   bool                `json:"completed"`
	Response    *CachedHTTPResponse `json:"response,omitempty"`
	ExpiresAt   time.Time           `json:"-"`
}

func (rec idempotencyRecord) beginResult(fingerprint string) IdempotencyBeginResult {
	switch {
	case rec.Fingerprint != fingerprint:
		return IdempotencyBeginResult{State: IdempotencyStateConflict}
	case rec.Completed && rec.Response != nil:
		cached := *rec.Response
		cached.Body = append([]byte(nil), rec.Response.Body...)
		return IdempotencyBeginResult{State: IdempotencyStateReplay, Cached: &cached}
	default:
		return IdempotencyBeginResult{State: IdempotencyStateInProgress}
	}
}

type InMemoryIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]idempotencyRecord
	now     func() time.Time
}

func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{
		records: map[string]idempotencyRecord{},
		now:     time.Now,
	}
}

func (s *InMemoryIdempotencyStore) Begin(_ context.Context, scope, key, fingerprint string, ttl time.Duration) (IdempotencyBeginResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictExpiredLocked(now)
	id := idempotencyID(scope, key)
	if rec, ok := s.records[id]; ok {
		return rec.beginResult(fingerprint), nil
	}
	s.records[id] = idempotencyRecord{Fingerprint: fingerprint, ExpiresAt: now.Add(ttl)}
	return IdempotencyBeginResult{State: IdempotencyStateNew}, nil
}

func (s *InMemoryIdempotencyStore) Complete(_ context.Context, scope, key, fingerprint string, response CachedHTTPResponse, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := idempotencyID(scope, key)
	rec, ok := s.records[id]
	if !ok || rec.Fingerprint != fingerprint || rec.Completed {
		return nil
	}
	response.Body = append([]byte(nil), response.Body...)
	s.records[id] = idempotencyRecord{
		Fingerprint: fingerprint,
		Completed:   true,
		Response:    &response,
		ExpiresAt:   s.now().Add(ttl),
	}
	return nil
}

func (s *InMemoryIdempotencyStore) Release(_ context.Context, scope, key, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := idempotencyID(scope, key)
	if rec, ok := s.records[id]; ok && rec.Fingerprint == fingerprint && !rec.Completed {
		delete(s.records, id)
	}
	return nil
}

// evictExpiredLocked sweeps on every Begin; the map stays small for a demo workload.
func (s *InMemoryIdempotencyStore) evictExpiredLocked(now time.Time) {
	for id, rec := range s.records {
		if !rec.ExpiresAt.After(now) {
			delete(s.records, id)
		}
	}
}

func idempotencyID(scope, key string) string {
	return scope + ":" + key
}
