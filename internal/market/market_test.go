package market

import (
	"context"
	"testing"
	"time"

	"github.com/mohamedkhairy/market-intel/internal/cache"
	"github.com/mohamedkhairy/market-intel/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

// Monday
var monday = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func newTestAggregator() (*Aggregator, *cache.MemoryStore, *fixedClock) {
	clock := &fixedClock{now: monday.Add(14 * time.Hour)}
	store := cache.NewMemoryStore(clock)
	return NewAggregator(store, clock, DefaultConfig()), store, clock
}

// symbol builds SymbolData from closes given oldest to newest
func symbol(name string, closes ...float64) models.SymbolData {
	chrono := make(models.Series, len(closes))
	for i, c := range closes {
		chrono[i] = models.Bar{
			Timestamp: monday.Add(time.Duration(i) * time.Hour),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
		}
	}
	return models.SymbolData{Symbol: name, Values: chrono.Chronological(), Status: models.StatusOK}
}

// banded builds n bars with a constant close and a fixed high/low band
func banded(name string, n int, close, halfWidth float64) models.SymbolData {
	chrono := make(models.Series, n)
	for i := range chrono {
		chrono[i] = models.Bar{
			Timestamp: monday.Add(time.Duration(i) * time.Hour),
			Open:      close,
			High:      close + halfWidth,
			Low:       close - halfWidth,
			Close:     close,
		}
	}
	return models.SymbolData{Symbol: name, Values: chrono.Chronological()}
}

func withVolumes(sd models.SymbolData, volumesNewestFirst ...float64) models.SymbolData {
	for i, v := range volumesNewestFirst {
		sd.Values[i].Volume = v
		sd.Values[i].HasVolume = true
	}
	return sd
}

func assetData(symbols ...models.SymbolData) models.AssetData {
	return models.AssetData{Symbols: symbols}
}

func TestBreadth_NoSymbols(t *testing.T) {
	agg, _, _ := newTestAggregator()

	b := agg.Breadth(assetData(symbol("ONE", 1.0)))

	assert.Equal(t, 50.0, b.BreadthPct)
	assert.Equal(t, models.MarketNeutral, b.MarketStatus)
	assert.Equal(t, 0, b.SymbolsTracked)
}

func TestBreadth_Statuses(t *testing.T) {
	agg, _, _ := newTestAggregator()
	up := symbol("UP", 1, 2)
	down := symbol("DOWN", 2, 1)
	flat := symbol("FLAT", 1, 1)

	tests := []struct {
		name    string
		data    models.AssetData
		pct     float64
		status  string
		tracked int
	}{
		{"half", assetData(up, down), 50, models.MarketNeutral, 2},
		{"sixty is bullish", assetData(up, up, up, down, flat), 60, models.MarketBullish, 5},
		{"forty is bearish", assetData(up, up, down, down, flat), 40, models.MarketBearish, 5},
		{"flat is not bullish", assetData(flat, flat, up), 33.3, models.MarketBearish, 3},
		{"two thirds", assetData(up, up, down), 66.7, models.MarketBullish, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := agg.Breadth(tt.data)
			assert.Equal(t, tt.pct, b.BreadthPct)
			assert.Equal(t, tt.status, b.MarketStatus)
			assert.Equal(t, tt.tracked, b.SymbolsTracked)
		})
	}
}

func TestAppendBreadthSeries_Truncates(t *testing.T) {
	agg, store, _ := newTestAggregator()
	ctx := context.Background()

	initial := make([]float64, 20)
	for i := range initial {
		initial[i] = float64(i)
	}
	store.Set(ctx, BreadthSeriesKey, initial, cache.NoExpiry)

	series := agg.AppendBreadthSeries(ctx, 62.46)

	require.Len(t, series, 20)
	assert.Equal(t, 1.0, series[0])
	assert.Equal(t, 62.5, series[19])
	assert.Equal(t, series, cache.GetOr[[]float64](ctx, store, BreadthSeriesKey, nil))
}

func TestAppendBreadthSeries_ExpiresAfterTTL(t *testing.T) {
	agg, _, clock := newTestAggregator()
	ctx := context.Background()

	agg.AppendBreadthSeries(ctx, 50)
	assert.Equal(t, []float64{50, 60}, agg.AppendBreadthSeries(ctx, 60))

	clock.now = clock.now.Add(301 * time.Second)
	assert.Equal(t, []float64{70}, agg.AppendBreadthSeries(ctx, 70))
}

func TestVolatilityIndex(t *testing.T) {
	agg, store, _ := newTestAggregator()
	ctx := context.Background()

	// Too short to qualify
	assert.Equal(t, 0.0, agg.VolatilityIndex(ctx, assetData(banded("A", 13, 100, 1))))

	// ATR of a constant 2-wide band around 100 is 2, i.e. 2%
	vol := agg.VolatilityIndex(ctx, assetData(
		banded("A", 20, 100, 1),
		banded("B", 20, 50, 2),
		symbol("FLAT", 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1),
	))
	// A: 2%, B: 8%, FLAT has zero ATR and is skipped
	assert.Equal(t, 5.0, vol)
	assert.Equal(t, 5.0, cache.GetOr(ctx, store, VolatilityIndexKey, -1.0))
}

func TestVolatilityChange_CachedSeparately(t *testing.T) {
	agg, store, _ := newTestAggregator()
	ctx := context.Background()

	data := assetData(
		banded("A", 20, 100, 1),
		symbol("FLAT", 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1),
		symbol("SHORT", 1, 2, 3),
	)

	agg.VolatilityIndex(ctx, data)
	change := agg.VolatilityChange(ctx, data)

	// A contributes ATR% 2, FLAT falls back to a zero deviation, SHORT is skipped
	assert.Equal(t, 1.0, change)
	assert.Equal(t, 1.0, cache.GetOr(ctx, store, VolatilityChangeKey, -1.0))
	assert.Equal(t, 2.0, cache.GetOr(ctx, store, VolatilityIndexKey, -1.0))
}

func TestVolatilityChange_NoData(t *testing.T) {
	agg, _, _ := newTestAggregator()
	assert.Equal(t, 0.0, agg.VolatilityChange(context.Background(), assetData()))
}

func TestSessionAt(t *testing.T) {
	at := func(h, m, s int) time.Time {
		return monday.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second)
	}

	tests := []struct {
		name  string
		class models.AssetClass
		t     time.Time
		want  string
	}{
		{"forex NY over London", models.AssetClassForex, at(14, 0, 0), SessionNewYork},
		{"forex London over Tokyo", models.AssetClassForex, at(8, 30, 0), SessionLondon},
		{"forex Tokyo over Sydney", models.AssetClassForex, at(5, 0, 0), SessionTokyo},
		{"forex Sydney late", models.AssetClassForex, at(23, 0, 0), SessionSydney},
		{"forex NY end inclusive", models.AssetClassForex, at(21, 0, 0), SessionNewYork},
		{"forex gap", models.AssetClassForex, at(21, 30, 0), SessionAfterHours},
		{"forex London at Tokyo close", models.AssetClassForex, at(9, 0, 0), SessionLondon},
		{"forex saturday", models.AssetClassForex, monday.AddDate(0, 0, -2).Add(14 * time.Hour), SessionWeekend},
		{"stocks open", models.AssetClassStocks, at(9, 30, 0), SessionRegularHours},
		{"stocks close inclusive", models.AssetClassStocks, at(16, 0, 0), SessionRegularHours},
		{"stocks after close", models.AssetClassStocks, at(16, 0, 1), SessionAfterHours},
		{"stocks early", models.AssetClassStocks, at(9, 29, 59), SessionAfterHours},
		{"crypto sunday", models.AssetClassCrypto, monday.AddDate(0, 0, -1).Add(12 * time.Hour), SessionWeekend},
		{"crypto regular", models.AssetClassCrypto, at(12, 0, 0), SessionRegularHours},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SessionAt(tt.class, tt.t))
		})
	}
}

func TestSessionAt_ConvertsToUTC(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	// 09:00 EST is 14:00 UTC
	assert.Equal(t, SessionNewYork, SessionAt(models.AssetClassForex, time.Date(2024, 1, 15, 9, 0, 0, 0, est)))
}

func TestAggregator_SessionUsesClock(t *testing.T) {
	agg, _, clock := newTestAggregator()
	assert.Equal(t, SessionNewYork, agg.Session(models.AssetClassForex))

	clock.now = monday.Add(20 * time.Hour)
	assert.Equal(t, SessionAfterHours, agg.Session(models.AssetClassStocks))
}

func TestSessionActivity(t *testing.T) {
	agg, _, _ := newTestAggregator()

	assert.Equal(t, models.ActivityMedium, agg.SessionActivity(assetData(symbol("NOVOL", 1, 2, 3))))

	high := withVolumes(symbol("H", 1, 2, 3), 30, 10, 10)
	assert.Equal(t, models.ActivityHigh, agg.SessionActivity(assetData(high)))

	low := withVolumes(symbol("L", 1, 2, 3), 5, 10, 10)
	assert.Equal(t, models.ActivityLow, agg.SessionActivity(assetData(low)))

	// mean of 3.0 and 0.5 is 1.75
	assert.Equal(t, models.ActivityHigh, agg.SessionActivity(assetData(high, low)))

	zeroPrior := withVolumes(symbol("Z", 1, 2), 10, 0)
	assert.Equal(t, models.ActivityMedium, agg.SessionActivity(assetData(zeroPrior)))

	medium := withVolumes(symbol("M", 1, 2), 10, 10)
	assert.Equal(t, models.ActivityMedium, agg.SessionActivity(assetData(medium)))
}

func TestTopMovers(t *testing.T) {
	agg, store, _ := newTestAggregator()
	ctx := context.Background()

	data := assetData(
		symbol("A", 100, 105),
		symbol("B", 100, 97),
		symbol("C", 100, 110),
		symbol("D", 100, 92),
		symbol("E", 100, 100),
	)

	movers := agg.TopMovers(ctx, data, 2, MoverByChangePct)

	require.Len(t, movers.Gainers, 2)
	require.Len(t, movers.Losers, 2)
	assert.Equal(t, "C", movers.Gainers[0].Symbol)
	assert.Equal(t, 10.0, movers.Gainers[0].ChangePct)
	assert.Equal(t, "A", movers.Gainers[1].Symbol)
	assert.Equal(t, 5.0, movers.Gainers[1].ChangePct)
	assert.Equal(t, "D", movers.Losers[0].Symbol)
	assert.Equal(t, -8.0, movers.Losers[0].ChangePct)
	assert.Equal(t, "B", movers.Losers[1].Symbol)
	assert.Equal(t, -3.0, movers.Losers[1].ChangePct)
	assert.Equal(t, MoverByChangePct, movers.By)

	var cached models.TopMovers
	require.True(t, store.Get(ctx, TopMoversKey(MoverByChangePct, 2), &cached))
	assert.Equal(t, movers, cached)
}

func TestTopMovers_ByRangeAndFallback(t *testing.T) {
	agg, _, _ := newTestAggregator()
	ctx := context.Background()

	data := assetData(
		banded("NARROW", 3, 100, 0.5),
		banded("WIDE", 3, 100, 3),
		symbol("EMPTY"),
	)

	byRange := agg.TopMovers(ctx, data, 5, MoverByRange)
	require.Len(t, byRange.Gainers, 2)
	assert.Equal(t, "WIDE", byRange.Gainers[0].Symbol)
	assert.Equal(t, 6.0, byRange.Gainers[0].Range)
	assert.Equal(t, "NARROW", byRange.Losers[0].Symbol)

	unknown := agg.TopMovers(ctx, data, 5, "volume")
	assert.Equal(t, MoverByChangePct, unknown.By)
	// Equal change_pct keeps request order in both lists
	assert.Equal(t, "NARROW", unknown.Gainers[0].Symbol)
	assert.Equal(t, "NARROW", unknown.Losers[0].Symbol)
}

func TestTechnicalBreadth(t *testing.T) {
	agg, _, _ := newTestAggregator()

	short := make([]float64, 25)
	for i := range short {
		short[i] = 100 + float64(i)
	}

	rising := make([]float64, 30)
	for i := range rising {
		rising[i] = 100 + float64(i)
	}

	// Accelerating decline then a sharp rally crosses MACD above its signal line
	crossing := make([]float64, 80)
	for i := 0; i < 79; i++ {
		crossing[i] = 200 - 0.02*float64(i*i)
	}
	crossing[79] = crossing[78] + 40

	summary := agg.TechnicalBreadth(assetData(
		symbol("SHORT", short...),
		symbol("RISING", rising...),
		symbol("CROSS", crossing...),
	))

	assert.Equal(t, 2, summary.SymbolsEvaluated)
	assert.Equal(t, 1, summary.RSIOver70)
	assert.Equal(t, 1, summary.MACDBullCross)
}
