package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mohamedkhairy/market-intel/internal/config"
	"github.com/mohamedkhairy/market-intel/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// RedisCommander is the subset of *redis.Client used by RedisStore
type RedisCommander interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStore is a Store backed by Redis strings holding JSON payloads
type RedisStore struct {
	client RedisCommander
}

// NewRedisStore wraps a Redis client
func NewRedisStore(client RedisCommander) *RedisStore {
	return &RedisStore{client: client}
}

// Get implements Store. redis.Nil and transport errors are both reported as a miss.
func (r *RedisStore) Get(ctx context.Context, key string, dest any) bool {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		logger.Warn("Redis cache read failed",
			logger.String("key", key),
			logger.ErrorField(err),
		)
		logger.CacheErrorsTotal.WithLabelValues("get").Inc()
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		logger.Warn("Failed to decode cached value",
			logger.String("key", key),
			logger.ErrorField(err),
		)
		logger.CacheErrorsTotal.WithLabelValues("get").Inc()
		return false
	}
	return true
}

// Set implements Store. A failed write is logged and dropped.
func (r *RedisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	jsonData, err := json.Marshal(value)
	if err != nil {
		logger.Warn("Failed to encode cache value",
			logger.String("key", key),
			logger.ErrorField(err),
		)
		logger.CacheErrorsTotal.WithLabelValues("set").Inc()
		return
	}

	// go-redis treats a zero expiration as "no expiry", matching NoExpiry
	if err := r.client.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		logger.Warn("Redis cache write failed",
			logger.String("key", key),
			logger.ErrorField(err),
		)
		logger.CacheErrorsTotal.WithLabelValues("set").Inc()
	}
}

// NewRedisClient creates a Redis client and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis",
		logger.String("host", cfg.Host),
		logger.Int("port", cfg.Port),
	)

	return rdb, nil
}

// NewStoreFromConfig returns a Redis-backed store when Redis is enabled and
// reachable, otherwise an in-memory store. The returned client is nil when
// the memory store is used.
func NewStoreFromConfig(ctx context.Context, cfg config.RedisConfig) (Store, *redis.Client) {
	if !cfg.Enabled {
		logger.Info("Redis disabled, using in-memory cache")
		return NewMemoryStore(nil), nil
	}

	rdb, err := NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Warn("Redis unavailable, falling back to in-memory cache",
			logger.ErrorField(err),
		)
		return NewMemoryStore(nil), nil
	}

	return NewRedisStore(rdb), rdb
}
