package health

import (
	"context"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ProductCounter is the slice of the product store the store check needs.
type ProductCounter interface {
	Count(ctx context.Context) (int64, error)
}

type StoreChecker struct {
	store ProductCounter
}

func NewStoreChecker(store ProductCounter) Checker {
	if store == nil {
		return nil
	}
	return &StoreChecker{store: store}
}

func (c *StoreChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "store", Healthy: true}
	if _, err := c.store.Count(ctx); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}

type DBChecker struct {
	db *gorm.DB
}

func NewDBChecker(db *gorm.DB) Checker {
	if db == nil {
		return nil
	}
	return &DBChecker{db: db}
}

func (c *DBChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "db", Healthy: true}
	sqlDB, err := c.db.DB()
	if err != nil {
		res.Healthy = false
		res.Error = err.Error()
		return res
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}

type RedisChecker struct {
	client redis.UniversalClient
}

func NewRedisChecker(client redis.UniversalClient) Checker {
	if client == nil {
		return nil
	}
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "redis", Healthy: true}
	if err := c.client.Ping(ctx).Err(); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}
