package database

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sandeepkv93/product-catalog-demo/internal/domain"
	"github.com/sandeepkv93/product-catalog-demo/internal/observability"
)

func Migrate(db *gorm.DB) error {
	start := time.Now()
	ctx := context.Background()
	defer func() { observability.RecordDatabaseStartupDuration(ctx, "migrate", time.Since(start)) }()

	if err := db.AutoMigrate(&domain.Product{}); err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "migrate", "error")
		return err
	}
	observability.RecordDatabaseStartupEvent(ctx, "migrate", "success")
	return nil
}
