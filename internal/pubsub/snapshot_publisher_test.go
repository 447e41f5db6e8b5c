package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/market-intel/internal/models"
)

type fakeRedis struct {
	mu         sync.Mutex
	published  map[string][]string
	values     map[string]string
	ttls       map[string]time.Duration
	stream     []map[string]interface{}
	publishErr []error // consumed one per Publish call
	xaddErr    error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		published: make(map[string][]string),
		values:    make(map[string]string),
		ttls:      make(map[string]time.Duration),
	}
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.publishErr) > 0 {
		err := f.publishErr[0]
		f.publishErr = f.publishErr[1:]
		if err != nil {
			return redis.NewIntResult(0, err)
		}
	}
	f.published[channel] = append(f.published[channel], string(message.([]byte)))
	return redis.NewIntResult(1, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.xaddErr != nil {
		return redis.NewStringResult("", f.xaddErr)
	}
	f.stream = append(f.stream, a.Values.(map[string]interface{}))
	return redis.NewStringResult("1-0", nil)
}

func testSnapshot() models.MarketSnapshot {
	return models.MarketSnapshot{
		AssetClass:     models.AssetClassCrypto,
		GeneratedAt:    time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC),
		MarketStatus:   models.MarketBullish,
		BreadthPct:     66.7,
		BreadthSeries:  []float64{50, 66.7},
		CurrentSession: "24/7",
		Narratives: []models.Narrative{{
			ID: "n1", Symbol: "BTCUSD", Narrative: "BTCUSD breaking out",
			Priority: models.PriorityHigh, RuleName: "breakout",
			Metrics: models.MetricSet{"rsi": models.Number(71.5), "crypto_asset": models.Label("BTCUSD")},
		}},
	}
}

func TestSnapshotPublisher_Publish(t *testing.T) {
	fake := newFakeRedis()
	cfg := DefaultPublisherConfig()
	cfg.LatestTTL = time.Minute
	p := NewSnapshotPublisher(fake, cfg)

	require.NoError(t, p.Publish(context.Background(), testSnapshot()))

	msgs := fake.published["market_intelligence_crypto"]
	require.Len(t, msgs, 1)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(msgs[0]), &decoded))
	assert.Equal(t, "Bullish", decoded["market_status"])
	assert.Equal(t, 66.7, decoded["breadth_pct"])

	narratives := decoded["narratives"].([]interface{})
	metrics := narratives[0].(map[string]interface{})["metrics"].(map[string]interface{})
	assert.Equal(t, 71.5, metrics["rsi"])
	assert.Equal(t, "BTCUSD", metrics["crypto_asset"])

	assert.Equal(t, time.Minute, fake.ttls["market_intelligence:latest:crypto"])
	require.Len(t, fake.stream, 1)
	assert.Equal(t, "crypto", fake.stream[0]["asset_class"])
}

func TestSnapshotPublisher_Latest(t *testing.T) {
	fake := newFakeRedis()
	p := NewSnapshotPublisher(fake, DefaultPublisherConfig())

	_, ok, err := p.Latest(context.Background(), models.AssetClassCrypto)
	require.NoError(t, err)
	assert.False(t, ok)

	want := testSnapshot()
	require.NoError(t, p.Publish(context.Background(), want))

	got, ok, err := p.Latest(context.Background(), models.AssetClassCrypto)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.BreadthSeries, got.BreadthSeries)
	assert.Equal(t, want.Narratives[0].Metrics, got.Narratives[0].Metrics)

	fake.values[p.LatestKey(models.AssetClassCrypto)] = "{corrupt"
	_, _, err = p.Latest(context.Background(), models.AssetClassCrypto)
	assert.Error(t, err)
}

func TestSnapshotPublisher_RetriesPublish(t *testing.T) {
	fake := newFakeRedis()
	fake.publishErr = []error{errors.New("conn reset"), nil}

	cfg := DefaultPublisherConfig()
	cfg.RetryDelay = time.Millisecond
	p := NewSnapshotPublisher(fake, cfg)

	require.NoError(t, p.Publish(context.Background(), testSnapshot()))
	assert.Len(t, fake.published["market_intelligence_crypto"], 1)
}

func TestSnapshotPublisher_PublishFailure(t *testing.T) {
	fake := newFakeRedis()
	boom := errors.New("down")
	fake.publishErr = []error{boom, boom, boom}

	cfg := DefaultPublisherConfig()
	cfg.RetryDelay = time.Millisecond
	p := NewSnapshotPublisher(fake, cfg)

	err := p.Publish(context.Background(), testSnapshot())
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, fake.values)
}

func TestSnapshotPublisher_StreamFailureIsNotFatal(t *testing.T) {
	fake := newFakeRedis()
	fake.xaddErr = errors.New("stream unavailable")
	p := NewSnapshotPublisher(fake, DefaultPublisherConfig())

	require.NoError(t, p.Publish(context.Background(), testSnapshot()))
	assert.Len(t, fake.values, 1)
}
