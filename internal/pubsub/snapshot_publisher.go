package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/mohamedkhairy/market-intel/internal/models"
	"github.com/mohamedkhairy/market-intel/pkg/logger"
)

var (
	publishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intel_snapshot_publish_total",
			Help: "Total number of snapshots published",
		},
		[]string{"asset_class"},
	)

	publishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intel_snapshot_publish_errors_total",
			Help: "Total number of snapshot publish errors",
		},
		[]string{"asset_class", "op"},
	)

	publishLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intel_snapshot_publish_latency_seconds",
			Help:    "Snapshot publish latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"asset_class"},
	)
)

// RedisPublisher is the subset of *redis.Client used by SnapshotPublisher
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// PublisherConfig holds configuration for the snapshot publisher
type PublisherConfig struct {
	ChannelPrefix   string
	LatestKeyPrefix string
	LatestTTL       time.Duration
	Stream          string // empty disables the history stream
	StreamMaxLen    int64
	RetryAttempts   int
	RetryDelay      time.Duration
}

// DefaultPublisherConfig returns default configuration
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		ChannelPrefix:   "market_intelligence_",
		LatestKeyPrefix: "market_intelligence:latest:",
		LatestTTL:       10 * time.Minute,
		Stream:          "market_intelligence:history",
		StreamMaxLen:    1000,
		RetryAttempts:   3,
		RetryDelay:      100 * time.Millisecond,
	}
}

// SnapshotPublisher hands snapshots to downstream subscribers over Redis
type SnapshotPublisher struct {
	redis  RedisPublisher
	config PublisherConfig
}

// NewSnapshotPublisher creates a new snapshot publisher
func NewSnapshotPublisher(client RedisPublisher, config PublisherConfig) *SnapshotPublisher {
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = 1
	}
	return &SnapshotPublisher{
		redis:  client,
		config: config,
	}
}

// Channel returns the pub/sub channel for an asset class
func (p *SnapshotPublisher) Channel(class models.AssetClass) string {
	return p.config.ChannelPrefix + string(class)
}

// LatestKey returns the key holding the latest snapshot for an asset class
func (p *SnapshotPublisher) LatestKey(class models.AssetClass) string {
	return p.config.LatestKeyPrefix + string(class)
}

// Publish broadcasts the snapshot on its asset class channel, stores it as
// the latest snapshot and appends it to the history stream
func (p *SnapshotPublisher) Publish(ctx context.Context, snapshot models.MarketSnapshot) error {
	start := time.Now()
	class := string(snapshot.AssetClass)

	payload, err := json.Marshal(snapshot)
	if err != nil {
		publishErrors.WithLabelValues(class, "encode").Inc()
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	channel := p.Channel(snapshot.AssetClass)
	if err := p.withRetry(ctx, func() error {
		return p.redis.Publish(ctx, channel, payload).Err()
	}); err != nil {
		publishErrors.WithLabelValues(class, "publish").Inc()
		return fmt.Errorf("failed to publish to channel %s: %w", channel, err)
	}

	key := p.LatestKey(snapshot.AssetClass)
	if err := p.withRetry(ctx, func() error {
		return p.redis.Set(ctx, key, payload, p.config.LatestTTL).Err()
	}); err != nil {
		publishErrors.WithLabelValues(class, "set").Inc()
		return fmt.Errorf("failed to store latest snapshot %s: %w", key, err)
	}

	if p.config.Stream != "" {
		// History is best effort; live subscribers already have the snapshot
		err := p.redis.XAdd(ctx, &redis.XAddArgs{
			Stream: p.config.Stream,
			MaxLen: p.config.StreamMaxLen,
			Approx: true,
			Values: map[string]interface{}{
				"asset_class": class,
				"snapshot":    string(payload),
			},
		}).Err()
		if err != nil {
			publishErrors.WithLabelValues(class, "xadd").Inc()
			logger.Warn("Failed to append snapshot to history stream",
				logger.String("stream", p.config.Stream),
				logger.ErrorField(err),
			)
		}
	}

	publishTotal.WithLabelValues(class).Inc()
	publishLatency.WithLabelValues(class).Observe(time.Since(start).Seconds())

	logger.Debug("Published snapshot",
		logger.String("channel", channel),
		logger.Int("narratives", len(snapshot.Narratives)),
		logger.Int("bytes", len(payload)),
	)

	return nil
}

// Latest returns the most recently published snapshot for an asset class.
// The boolean is false when none is stored.
func (p *SnapshotPublisher) Latest(ctx context.Context, class models.AssetClass) (models.MarketSnapshot, bool, error) {
	data, err := p.redis.Get(ctx, p.LatestKey(class)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.MarketSnapshot{}, false, nil
	}
	if err != nil {
		return models.MarketSnapshot{}, false, fmt.Errorf("failed to read latest snapshot: %w", err)
	}

	var snapshot models.MarketSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return models.MarketSnapshot{}, false, fmt.Errorf("failed to decode latest snapshot: %w", err)
	}
	return snapshot, true, nil
}

// withRetry retries op with linear backoff until it succeeds, attempts run
// out or ctx is done
func (p *SnapshotPublisher) withRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt < p.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.config.RetryDelay * time.Duration(attempt)):
			}
		}
		if err = op(); err == nil {
			return nil
		}
		logger.Debug("Redis operation failed",
			logger.Int("attempt", attempt+1),
			logger.ErrorField(err),
		)
	}
	return err
}
