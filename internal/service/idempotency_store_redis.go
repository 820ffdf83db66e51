package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisIdempotencyStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisIdempotencyStore(client redis.UniversalClient, prefix string) *RedisIdempotencyStore {
	if prefix == "" {
		prefix = "idempotency"
	}
	return &RedisIdempotencyStore{client: client, prefix: prefix}
}

func (s *RedisIdempotencyStore) Begin(ctx context.Context, scope, key, fingerprint string, ttl time.Duration) (IdempotencyBeginResult, error) {
	redisKey := s.key(scope, key)
	pending, err := json.Marshal(idempotencyRecord{Fingerprint: fingerprint})
	if err != nil {
		return IdempotencyBeginResult{}, err
	}
	created, err := s.client.SetNX(ctx, redisKey, pending, ttl).Result()
	if err != nil {
		return IdempotencyBeginResult{}, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if created {
		return IdempotencyBeginResult{State: IdempotencyStateNew}, nil
	}

	raw, err := s.client.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; start over.
		return s.Begin(ctx, scope, key, fingerprint, ttl)
	}
	if err != nil {
		return IdempotencyBeginResult{}, fmt.Errorf("read idempotency key: %w", err)
	}
	var rec idempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return IdempotencyBeginResult{}, fmt.Errorf("decode idempotency record: %w", err)
	}
	return rec.beginResult(fingerprint), nil
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, scope, key, fingerprint string, response CachedHTTPResponse, ttl time.Duration) error {
	redisKey := s.key(scope, key)
	payload, err := json.Marshal(idempotencyRecord{Fingerprint: fingerprint, Completed: true, Response: &response})
	if err != nil {
		return err
	}
	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		rec, ok, err := readRecord(ctx, tx, redisKey)
		if err != nil || !ok || rec.Fingerprint != fingerprint || rec.Completed {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, redisKey, payload, ttl)
			return nil
		})
		return err
	}, redisKey)
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, scope, key, fingerprint string) error {
	redisKey := s.key(scope, key)
	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		rec, ok, err := readRecord(ctx, tx, redisKey)
		if err != nil || !ok || rec.Fingerprint != fingerprint || rec.Completed {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, redisKey)
			return nil
		})
		return err
	}, redisKey)
}

func readRecord(ctx context.Context, tx *redis.Tx, redisKey string) (idempotencyRecord, bool, error) {
	raw, err := tx.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return idempotencyRecord{}, false, nil
	}
	if err != nil {
		return idempotencyRecord{}, false, err
	}
	var rec idempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return idempotencyRecord{}, false, fmt.Errorf("decode idempotency record: %w", err)
	}
	return rec, true, nil
}

// key hashes the client supplied value so arbitrary header bytes never reach the keyspace.
func (s *RedisIdempotencyStore) key(scope, key string) string {
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%s:idempotency:%s:%s", s.prefix, scope, hex.EncodeToString(sum[:]))
}
