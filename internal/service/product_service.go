package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sandeepkv93/product-catalog-demo/internal/domain"
	"github.com/sandeepkv93/product-catalog-demo/internal/observability"
	"github.com/sandeepkv93/product-catalog-demo/internal/repository"
)

var (
	ErrProductNameDescriptionRequired = errors.New("Name and Description are required")
	ErrProductInvalidPrice            = errors.New("Price must be greater than 0")
)

type CreateProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
}

// UpdateProductInput is a full replacement of the mutable product fields.
type UpdateProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
}

type ProductServiceImpl struct {
	repo repository.ProductRepository
}

func NewProductService(repo repository.ProductRepository) *ProductServiceImpl {
	return &ProductServiceImpl{repo: repo}
}

func (s *ProductServiceImpl) Create(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	ctx, span := observability.StartSpan(ctx, "product.create")
	defer span.End()
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordProductOperation(ctx, "create", outcome, time.Since(start)) }()

	name, description, err := validateProductFields(input.Name, input.Description, input.Price)
	if err != nil {
		outcome = "bad_request"
		return nil, err
	}

	product := &domain.Product{
		Name:        name,
		Description: description,
		Price:       input.Price,
		Quantity:    input.Quantity,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		outcome = "error"
		return nil, fmt.Errorf("create product: %w", err)
	}
	span.SetAttributes(attribute.Int64("product.id", int64(product.ID)))
	return product, nil
}

func (s *ProductServiceImpl) List(ctx context.Context) ([]domain.Product, error) {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordProductOperation(ctx, "list", outcome, time.Since(start)) }()

	items, err := s.repo.List(ctx)
	if err != nil {
		outcome = "error"
		return nil, fmt.Errorf("list products: %w", err)
	}
	return items, nil
}

func (s *ProductServiceImpl) GetByID(ctx context.Context, id uint) (*domain.Product, error) {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordProductOperation(ctx, "get", outcome, time.Since(start)) }()

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		outcome = outcomeForRepoErr(err)
		return nil, err
	}
	return product, nil
}

// Update reports ErrProductNotFound ahead of any validation problem with input.
func (s *ProductServiceImpl) Update(ctx context.Context, id uint, input UpdateProductInput) (*domain.Product, error) {
	ctx, span := observability.StartSpan(ctx, "product.update", attribute.Int64("product.id", int64(id)))
	defer span.End()
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordProductOperation(ctx, "update", outcome, time.Since(start)) }()

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		outcome = outcomeForRepoErr(err)
		return nil, err
	}

	name, description, err := validateProductFields(input.Name, input.Description, input.Price)
	if err != nil {
		outcome = "bad_request"
		return nil, err
	}

	product := &domain.Product{
		ID:          id,
		Name:        name,
		Description: description,
		Price:       input.Price,
		Quantity:    input.Quantity,
	}
	if err := s.repo.Update(ctx, product); err != nil {
		outcome = outcomeForRepoErr(err)
		return nil, err
	}
	return product, nil
}

func (s *ProductServiceImpl) DeleteByID(ctx context.Context, id uint) error {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordProductOperation(ctx, "delete", outcome, time.Since(start)) }()

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		outcome = outcomeForRepoErr(err)
		return err
	}
	return nil
}

func (s *ProductServiceImpl) DeleteAll(ctx context.Context) (int64, error) {
	ctx, span := observability.StartSpan(ctx, "product.delete_all")
	defer span.End()
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordProductOperation(ctx, "delete_all", outcome, time.Since(start)) }()

	deleted, err := s.repo.DeleteAll(ctx)
	if err != nil {
		outcome = "error"
		return 0, fmt.Errorf("delete all products: %w", err)
	}
	span.SetAttributes(attribute.Int64("product.deleted", deleted))
	return deleted, nil
}

func (s *ProductServiceImpl) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordProductOperation(ctx, "count", outcome, time.Since(start)) }()

	total, err := s.repo.Count(ctx)
	if err != nil {
		outcome = "error"
		return 0, fmt.Errorf("count products: %w", err)
	}
	return total, nil
}

// SeedDemoCatalog loads the demo catalog into an empty store. A store that already
// holds products is left alone and reports zero inserted.
func (s *ProductServiceImpl) SeedDemoCatalog(ctx context.Context) (int, error) {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordProductOperation(ctx, "seed", outcome, time.Since(start)) }()

	total, err := s.repo.Count(ctx)
	if err != nil {
		outcome = "error"
		return 0, fmt.Errorf("count products: %w", err)
	}
	if total > 0 {
		outcome = "skipped"
		return 0, nil
	}

	catalog := domain.DemoCatalog()
	for i := range catalog {
		if err := s.repo.Create(ctx, &catalog[i]); err != nil {
			outcome = "error"
			return i, fmt.Errorf("seed product %q: %w", catalog[i].Name, err)
		}
	}
	return len(catalog), nil
}

func validateProductFields(name, description string, price decimal.Decimal) (string, string, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" || description == "" {
		return "", "", ErrProductNameDescriptionRequired
	}
	if !price.IsPositive() {
		return "", "", ErrProductInvalidPrice
	}
	return name, description, nil
}

func outcomeForRepoErr(err error) string {
	if errors.Is(err, repository.ErrProductNotFound) {
		return "not_found"
	}
	return "error"
}
