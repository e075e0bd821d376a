// =============================================================================
// Firefly Amazon Reconciler - Redis Cache Backend
// =============================================================================
//
// Alternative backend for setups where the reconciler runs in a container
// without a persistent volume. Same two-slot discipline as the file
// backend, under order:<id>:json / order:<id>:raw.
//
// =============================================================================

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ginjaninja78/firefly-amazon-reconciler/internal/amazon"
)

// RedisStore is a Store backed by a Redis instance. Entries carry no TTL;
// scraped orders are immutable.
type RedisStore struct {
	rdb *redis.Client
	log *zap.Logger
}

// NewRedisStore connects and pings, so a misconfigured address fails at
// startup instead of on the first order.
func NewRedisStore(ctx context.Context, addr, password string, log *zap.Logger) (*RedisStore, error) {
	if log == nil {
		log = zap.NewNop()
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache redis %s: %w", addr, err)
	}

	return &RedisStore{rdb: rdb, log: log}, nil
}

func (s *RedisStore) GetOrder(id string) (*amazon.Order, bool) {
	data, err := s.rdb.Get(context.Background(), orderKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Error("cache read failed", zap.String("order_id", id), zap.Error(err))
		}
		return nil, false
	}

	var order amazon.Order
	if err := json.Unmarshal(data, &order); err != nil || len(order.Shipments) == 0 {
		s.log.Error("discarding corrupt cache entry",
			zap.String("order_id", id), zap.Error(err))
		return nil, false
	}

	return &order, true
}

func (s *RedisStore) PutOrder(id string, order *amazon.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("cache encode order %s: %w", id, err)
	}

	ctx := context.Background()
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, orderKey(id), data, 0)
	pipe.Del(ctx, rawKey(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache store order %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) PutRaw(id string, html string) error {
	if err := s.rdb.Set(context.Background(), rawKey(id), html, 0).Err(); err != nil {
		return fmt.Errorf("cache store raw %s: %w", id, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *RedisStore) Close() error { return s.rdb.Close() }

func orderKey(id string) string { return "order:" + id + ":json" }
func rawKey(id string) string   { return "order:" + id + ":raw" }
