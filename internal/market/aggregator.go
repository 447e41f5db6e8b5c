package market

import (
	"time"

	"github.com/mohamedkhairy/market-intel/internal/cache"
	indicatorpkg "github.com/mohamedkhairy/market-intel/pkg/indicator"
)

// Cache keys shared across invocations
const (
	BreadthSeriesKey    = "breadth_series"
	VolatilityIndexKey  = "volatility_index"
	VolatilityChangeKey = "volatility_change"
)

// Config holds configuration for market-wide aggregates
type Config struct {
	BreadthSeriesLen int
	CacheTTL         time.Duration // breadth series and volatility readings
	TopMoversTTL     time.Duration
	ATRPeriod        int
	RSIPeriod        int
	MACDFast         int
	MACDSlow         int
	MACDSignal       int
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		BreadthSeriesLen: 20,
		CacheTTL:         300 * time.Second,
		TopMoversTTL:     30 * time.Second,
		ATRPeriod:        indicatorpkg.DefaultATRPeriod,
		RSIPeriod:        indicatorpkg.DefaultRSIPeriod,
		MACDFast:         indicatorpkg.DefaultMACDFast,
		MACDSlow:         indicatorpkg.DefaultMACDSlow,
		MACDSignal:       indicatorpkg.DefaultMACDSignal,
	}
}

// Aggregator computes cross-symbol statistics. Breadth history and volatility
// readings are kept in the cache store and shared by every caller using the
// same store; concurrent writers race with last-writer-wins semantics.
type Aggregator struct {
	store  cache.Store
	clock  cache.Clock
	config Config
}

// NewAggregator creates a new aggregator. A nil clock uses the wall clock.
func NewAggregator(store cache.Store, clock cache.Clock, config Config) *Aggregator {
	if clock == nil {
		clock = cache.SystemClock{}
	}
	return &Aggregator{
		store:  store,
		clock:  clock,
		config: config,
	}
}
