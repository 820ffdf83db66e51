package repository

import (
	"context"
	"sync"
	"time"

	"github.com/sandeepkv93/product-catalog-demo/internal/domain"
	"github.com/sandeepkv93/product-catalog-demo/internal/observability"
)

// InMemoryProductRepository keeps products in id order in a slice. Ids come from a
// counter that only moves forward until DeleteAll resets it.
type InMemoryProductRepository struct {
	mu       sync.RWMutex
	products []domain.Product
	nextID   uint
	now      func() time.Time
}

func NewInMemoryProductRepository() *InMemoryProductRepository {
	return &InMemoryProductRepository{
		products: make([]domain.Product, 0),
		nextID:   1,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryProductRepository) Create(ctx context.Context, product *domain.Product) error {
	r.mu.Lock()
	product.ID = r.nextID
	r.nextID++
	if product.CreatedDate.IsZero() {
		product.CreatedDate = r.now()
	}
	r.products = append(r.products, *product)
	r.mu.Unlock()

	observability.RecordRepositoryOperation(ctx, "product", "create", "success")
	return nil
}

func (r *InMemoryProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	r.mu.RLock()
	items := make([]domain.Product, len(r.products))
	copy(items, r.products)
	r.mu.RUnlock()

	observability.RecordRepositoryOperation(ctx, "product", "list", "success")
	return items, nil
}

func (r *InMemoryProductRepository) FindByID(ctx context.Context, id uint) (*domain.Product, error) {
	r.mu.RLock()
	idx := r.indexOf(id)
	if idx < 0 {
		r.mu.RUnlock()
		observability.RecordRepositoryOperation(ctx, "product", "find_by_id", "not_found")
		return nil, ErrProductNotFound
	}
	product := r.products[idx]
	r.mu.RUnlock()

	observability.RecordRepositoryOperation(ctx, "product", "find_by_id", "success")
	return &product, nil
}

func (r *InMemoryProductRepository) Update(ctx context.Context, product *domain.Product) error {
	r.mu.Lock()
	idx := r.indexOf(product.ID)
	if idx < 0 {
		r.mu.Unlock()
		observability.RecordRepositoryOperation(ctx, "product", "update", "not_found")
		return ErrProductNotFound
	}
	stored := &r.products[idx]
	stored.Name = product.Name
	stored.Description = product.Description
	stored.Price = product.Price
	stored.Quantity = product.Quantity
	*product = *stored
	r.mu.Unlock()

	observability.RecordRepositoryOperation(ctx, "product", "update", "success")
	return nil
}

func (r *InMemoryProductRepository) DeleteByID(ctx context.Context, id uint) error {
	r.mu.Lock()
	idx := r.indexOf(id)
	if idx < 0 {
		r.mu.Unlock()
		observability.RecordRepositoryOperation(ctx, "product", "delete_by_id", "not_found")
		return ErrProductNotFound
	}
	r.products = append(r.products[:idx], r.products[idx+1:]...)
	r.mu.Unlock()

	observability.RecordRepositoryOperation(ctx, "product", "delete_by_id", "success")
	return nil
}

func (r *InMemoryProductRepository) DeleteAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	deleted := int64(len(r.products))
	r.products = make([]domain.Product, 0)
	r.nextID = 1
	r.mu.Unlock()

	observability.RecordRepositoryOperation(ctx, "product", "delete_all", "success")
	return deleted, nil
}

func (r *InMemoryProductRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	total := int64(len(r.products))
	r.mu.RUnlock()

	observability.RecordRepositoryOperation(ctx, "product", "count", "success")
	return total, nil
}

// indexOf does a linear scan; callers hold mu.
func (r *InMemoryProductRepository) indexOf(id uint) int {
	for i := range r.products {
		if r.products[i].ID == id {
			return i
		}
	}
	return -1
}
