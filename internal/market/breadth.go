package market

import (
	"context"

	"github.com/mohamedkhairy/market-intel/internal/cache"
	"github.com/mohamedkhairy/market-intel/internal/models"
	indicatorpkg "github.com/mohamedkhairy/market-intel/pkg/indicator"
)

// Breadth thresholds in percent
const (
	bullishBreadth = 60.0
	bearishBreadth = 40.0
)

// Breadth counts symbols whose latest close is above the previous one.
// Only symbols with at least two bars are tracked; with none the breadth is 50.
func (a *Aggregator) Breadth(data models.AssetData) models.Breadth {
	bullish, total := 0, 0
	for _, sd := range data.Symbols {
		if len(sd.Values) < 2 {
			continue
		}
		total++
		if sd.Values[0].Close > sd.Values[1].Close {
			bullish++
		}
	}

	pct := 50.0
	if total > 0 {
		pct = float64(bullish) / float64(total) * 100.0
	}

	status := models.MarketNeutral
	switch {
	case pct >= bullishBreadth:
		status = models.MarketBullish
	case pct <= bearishBreadth:
		status = models.MarketBearish
	}

	return models.Breadth{
		MarketStatus:   status,
		BreadthPct:     indicatorpkg.Round(pct, 1),
		SymbolsTracked: total,
	}
}

// AppendBreadthSeries appends pct (rounded to 1dp) to the cached breadth
// history, keeps the most recent entries and writes the result back
func (a *Aggregator) AppendBreadthSeries(ctx context.Context, pct float64) []float64 {
	series := cache.GetOr[[]float64](ctx, a.store, BreadthSeriesKey, nil)

	series = append(series, indicatorpkg.Round(pct, 1))
	if limit := a.config.BreadthSeriesLen; limit > 0 && len(series) > limit {
		series = series[len(series)-limit:]
	}

	a.store.Set(ctx, BreadthSeriesKey, series, a.config.CacheTTL)
	return series
}
