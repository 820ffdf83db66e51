package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sandeepkv93/product-catalog-demo/internal/observability"
)

// InMemoryDSN is a shared-cache SQLite database that lives only as long as the process
// holds a connection open.
const InMemoryDSN = "file::memory:?cache=shared"

func Open(dsn string) (*gorm.DB, error) {
	start := time.Now()
	ctx := context.Background()
	defer func() { observability.RecordDatabaseStartupDuration(ctx, "connect", time.Since(start)) }()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "connect", "error")
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "connect", "error")
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// One connection keeps the in-memory database alive and serializes writers.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	observability.RecordDatabaseStartupEvent(ctx, "connect", "success")
	return db, nil
}
