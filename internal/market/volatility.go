package market

import (
	"context"

	"github.com/mohamedkhairy/market-intel/internal/models"
	indicatorpkg "github.com/mohamedkhairy/market-intel/pkg/indicator"
	"github.com/mohamedkhairy/market-intel/pkg/logger"
)

// VolatilityIndex is the mean ATR% (atr/price*100) over symbols with at least
// ATRPeriod bars, rounded to 1dp. The reading is cached for later comparison.
func (a *Aggregator) VolatilityIndex(ctx context.Context, data models.AssetData) float64 {
	var values []float64
	for _, sd := range data.Symbols {
		if len(sd.Values) < a.config.ATRPeriod {
			continue
		}
		if pct, ok := a.atrPercent(sd.Values); ok {
			values = append(values, pct)
		}
	}

	vol := 0.0
	if len(values) > 0 {
		vol = indicatorpkg.Round(indicatorpkg.Mean(values), 1)
	}

	a.store.Set(ctx, VolatilityIndexKey, vol, a.config.CacheTTL)
	return vol
}

// VolatilityChange uses ATR% per symbol where ATR is available and otherwise
// the sample standard deviation of log returns over ATRPeriod-1 returns,
// expressed in percent. The mean is rounded to 2dp and cached separately
// from the volatility index.
func (a *Aggregator) VolatilityChange(ctx context.Context, data models.AssetData) float64 {
	var values []float64
	for _, sd := range data.Symbols {
		if len(sd.Values) == 0 {
			continue
		}

		if len(sd.Values) >= a.config.ATRPeriod {
			bars := sd.Values.Chronological()
			atr := indicatorpkg.ATR(bars.Highs(), bars.Lows(), bars.Closes(), a.config.ATRPeriod)
			if atr != 0 {
				if price := bars[len(bars)-1].Close; price != 0 {
					values = append(values, atr/price*100.0)
				}
				continue
			}

			if std, ok := indicatorpkg.LogReturnStdDev(bars.Closes(), a.config.ATRPeriod-1); ok {
				values = append(values, std*100.0)
				continue
			}
		}

		logger.Debug("Not enough history for volatility change",
			logger.String("symbol", sd.Symbol),
			logger.Int("bars", len(sd.Values)),
		)
	}

	vol := 0.0
	if len(values) > 0 {
		vol = indicatorpkg.Round(indicatorpkg.Mean(values), 2)
	}

	a.store.Set(ctx, VolatilityChangeKey, vol, a.config.CacheTTL)
	return vol
}

// atrPercent returns atr/price*100 for a newest-first series; ok is false
// when ATR or price is zero
func (a *Aggregator) atrPercent(series models.Series) (float64, bool) {
	bars := series.Chronological()
	atr := indicatorpkg.ATR(bars.Highs(), bars.Lows(), bars.Closes(), a.config.ATRPeriod)
	price := bars[len(bars)-1].Close
	if atr == 0 || price == 0 {
		return 0, false
	}
	return atr / price * 100.0, true
}
