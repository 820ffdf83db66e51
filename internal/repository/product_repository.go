package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/sandeepkv93/product-catalog-demo/internal/domain"
	"github.com/sandeepkv93/product-catalog-demo/internal/observability"
)

var ErrProductNotFound = errors.New("product not found")

type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	List(ctx context.Context) ([]domain.Product, error)
	FindByID(ctx context.Context, id uint) (*domain.Product, error)
	// Update replaces the mutable fields of the stored product with product's values and
	// refreshes product with the stored record, so ID and CreatedDate come back unchanged.
	Update(ctx context.Context, product *domain.Product) error
	DeleteByID(ctx context.Context, id uint) error
	// DeleteAll empties the collection and restarts id assignment at 1.
	DeleteAll(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type GormProductRepository struct{ db *gorm.DB }

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if product.CreatedDate.IsZero() {
		product.CreatedDate = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "product", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "product", "create", "success")
	return nil
}

func (r *GormProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	items := make([]domain.Product, 0)
	if err := r.db.WithContext(ctx).Order("id asc").Find(&items).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "product", "list", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "product", "list", "success")
	return items, nil
}

func (r *GormProductRepository) FindByID(ctx context.Context, id uint) (*domain.Product, error) {
	var product domain.Product
	if err := r.db.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "product", "find_by_id", "not_found")
			return nil, ErrProductNotFound
		}
		observability.RecordRepositoryOperation(ctx, "product", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "product", "find_by_id", "success")
	return &product, nil
}

func (r *GormProductRepository) Update(ctx context.Context, product *domain.Product) error {
	res := r.db.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", product.ID).Updates(map[string]any{
		"name":        product.Name,
		"description": product.Description,
		"price":       product.Price,
		"quantity":    product.Quantity,
	})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "product", "update", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "product", "update", "not_found")
		return ErrProductNotFound
	}
	if err := r.db.WithContext(ctx).First(product, product.ID).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "product", "update", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "product", "update", "success")
	return nil
}

func (r *GormProductRepository) DeleteByID(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&domain.Product{}, id)
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "product", "delete_by_id", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "product", "delete_by_id", "not_found")
		return ErrProductNotFound
	}
	observability.RecordRepositoryOperation(ctx, "product", "delete_by_id", "success")
	return nil
}

func (r *GormProductRepository) DeleteAll(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&domain.Product{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		if tx.Dialector.Name() == "sqlite" {
			return tx.Exec("DELETE FROM sqlite_sequence WHERE name = ?", "products").Error
		}
		return nil
	})
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "product", "delete_all", "error")
		return 0, err
	}
	observability.RecordRepositoryOperation(ctx, "product", "delete_all", "success")
	return deleted, nil
}

func (r *GormProductRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Product{}).Count(&total).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "product", "count", "error")
		return 0, err
	}
	observability.RecordRepositoryOperation(ctx, "product", "count", "success")
	return total, nil
}
