package service

import (
	"context"
	"time"

	"github.com/sandeepkv93/product-catalog-demo/internal/domain"
)

//go:generate mockgen -source=interfaces.go -destination=gomock/mock_interfaces.go -package=servicegomock

type ProductService interface {
	Create(ctx context.Context, input CreateProductInput) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	GetByID(ctx context.Context, id uint) (*domain.Product, error)
	Update(ctx context.Context, id uint, input UpdateProductInput) (*domain.Product, error)
	DeleteByID(ctx context.Context, id uint) error
	DeleteAll(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
	SeedDemoCatalog(ctx context.Context) (int, error)
}

// IdempotencyStore tracks request keys per scope. Begin reserves a key or reports what a
// previous request with the same key did; Complete caches the response for replay and
// Release frees a reservation whose request failed.
type IdempotencyStore interface {
	Begin(ctx context.Context, scope, key, fingerprint string, ttl time.Duration) (IdempotencyBeginResult, error)
	Complete(ctx context.Context, scope, key, fingerprint string, response CachedHTTPResponse, ttl time.Duration) error
	Release(ctx context.Context, scope, key, fingerprint string) error
}
