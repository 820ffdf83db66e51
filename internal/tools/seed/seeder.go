package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sandeepkv93/product-catalog-demo/internal/domain"
	"github.com/sandeepkv93/product-catalog-demo/internal/tools/common"
)

const createAttempts = 2

type Seeder struct {
	client *common.ProductClient
}

func NewSeeder(client *common.ProductClient) *Seeder {
	return &Seeder{client: client}
}

// Plan returns the demo products whose names are not already in the catalog.
func Plan(existing []domain.Product) []common.ProductPayload {
	present := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		present[strings.ToLower(strings.TrimSpace(p.Name))] = struct{}{}
	}
	var missing []common.ProductPayload
	for _, p := range domain.DemoCatalog() {
		if _, ok := present[strings.ToLower(p.Name)]; ok {
			continue
		}
		price, _ := p.Price.Float64()
		missing = append(missing, common.ProductPayload{
			Name:        p.Name,
			Description: p.Description,
			Price:       price,
			Quantity:    p.Quantity,
		})
	}
	return missing
}

func (s *Seeder) DryRun(ctx context.Context) ([]string, error) {
	existing, err := s.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	missing := Plan(existing)
	details := []string{fmt.Sprintf("catalog has %d products", len(existing))}
	if len(missing) == 0 {
		return append(details, "demo catalog already present, nothing to create"), nil
	}
	for _, p := range missing {
		details = append(details, fmt.Sprintf("would create %q price=%.2f quantity=%d", p.Name, p.Price, p.Quantity))
	}
	return details, nil
}

func (s *Seeder) Apply(ctx context.Context) ([]string, error) {
	existing, err := s.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	missing := Plan(existing)
	details := make([]string, 0, len(missing)+1)
	for _, p := range missing {
		created, err := s.create(ctx, p)
		if err != nil {
			return details, fmt.Errorf("create %q: %w", p.Name, err)
		}
		details = append(details, fmt.Sprintf("created %q id=%d", created.Name, created.ID))
	}
	details = append(details, fmt.Sprintf("created=%d skipped=%d", len(missing), len(domain.DemoCatalog())-len(missing)))
	return details, nil
}

func (s *Seeder) Reset(ctx context.Context) ([]string, error) {
	deleted, err := s.client.DeleteAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("delete products: %w", err)
	}
	details, err := s.Apply(ctx)
	return append([]string{fmt.Sprintf("deleted=%d", deleted)}, details...), err
}

// create retries transport failures with the same idempotency key so a lost response
// never produces a duplicate product.
func (s *Seeder) create(ctx context.Context, p common.ProductPayload) (domain.Product, error) {
	key := uuid.NewString()
	var lastErr error
	for attempt := 0; attempt < createAttempts; attempt++ {
		created, _, err := s.client.Create(ctx, p, key)
		if err == nil {
			return created, nil
		}
		lastErr = err
		var apiErr *common.APIError
		if errors.As(err, &apiErr) || ctx.Err() != nil {
			break
		}
	}
	return domain.Product{}, lastErr
}
