package indicator

import (
	"fmt"
	"math"

	"github.com/mohamedkhairy/market-intel/internal/models"
	indicatorpkg "github.com/mohamedkhairy/market-intel/pkg/indicator"
	"github.com/mohamedkhairy/market-intel/pkg/logger"
)

// MinBars is the shortest series that produces metrics
const MinBars = 5

// EngineConfig holds configuration for the indicator engine
type EngineConfig struct {
	RSIPeriod int
	ATRPeriod int
}

// DefaultEngineConfig returns default configuration
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		RSIPeriod: indicatorpkg.DefaultRSIPeriod,
		ATRPeriod: indicatorpkg.DefaultATRPeriod,
	}
}

// Engine computes per-symbol metric sets from normalized series
type Engine struct {
	config   EngineConfig
	registry *ExtensionRegistry
}

// NewEngine creates a new indicator engine. A nil registry gets the default extensions.
func NewEngine(config EngineConfig, registry *ExtensionRegistry) *Engine {
	if registry == nil {
		registry = NewExtensionRegistry()
		// Default registrations use distinct names and cannot collide
		_ = RegisterDefaultExtensions(registry)
	}
	return &Engine{config: config, registry: registry}
}

// Compute returns the metrics for one symbol. series is ordered newest first.
// Series shorter than MinBars yield an empty set.
func (e *Engine) Compute(symbol string, series models.Series, class models.AssetClass) models.MetricSet {
	metrics := models.MetricSet{}
	if len(series) < MinBars {
		return metrics
	}

	bars := series.Chronological()
	closes := bars.Closes()
	highs := bars.Highs()
	lows := bars.Lows()
	volumes := bars.Volumes()
	n := len(closes)

	price := closes[n-1]
	prevClose := closes[n-2]
	priceChangePct := 0.0
	if prevClose != 0 {
		priceChangePct = (price - prevClose) / prevClose * 100
	}

	sma20 := indicatorpkg.SMA(closes, 20)

	trendDirection := "bearish"
	if price > sma20 {
		trendDirection = "bullish"
	}
	trendStrength := 0.0
	if sma20 != 0 {
		trendStrength = math.Min(0.99, math.Abs(price-sma20)/sma20)
	}

	support := indicatorpkg.Min(indicatorpkg.Last(lows, 5))
	resistance := indicatorpkg.Max(indicatorpkg.Last(highs, 5))
	proximity := math.Min(relativeDistance(price, support), relativeDistance(price, resistance))

	volumeRatio := 1.0
	if avg := indicatorpkg.SMA(volumes, 5); avg > 0 {
		volumeRatio = volumes[n-1] / avg
	}

	atr := indicatorpkg.ATR(highs, lows, closes, e.config.ATRPeriod)
	atrRatio := indicatorpkg.ATRRatio(highs, lows, closes, e.config.ATRPeriod)

	metrics.SetLabel("symbol", symbol)
	metrics.SetNumber("price", price)
	metrics.SetNumber("prev_close", prevClose)
	metrics.SetNumber("price_change_pct", indicatorpkg.Round(priceChangePct, 2))
	metrics.SetNumber("sma_5", indicatorpkg.SMA(closes, 5))
	metrics.SetNumber("sma_20", sma20)
	metrics.SetNumber("sma_50", indicatorpkg.SMA(closes, 50))
	metrics.SetNumber("rsi", indicatorpkg.Round(indicatorpkg.RSI(closes, e.config.RSIPeriod), 2))
	metrics.SetLabel("trend_direction", trendDirection)
	metrics.SetNumber("trend_strength", indicatorpkg.Round(trendStrength, 2))
	metrics.SetNumber("support_level", indicatorpkg.Round(support, 4))
	metrics.SetNumber("resistance_level", indicatorpkg.Round(resistance, 4))
	metrics.SetNumber("price_proximity", indicatorpkg.Round(proximity, 4))
	metrics.SetNumber("volume_ratio", indicatorpkg.Round(volumeRatio, 2))
	metrics.SetNumber("atr", indicatorpkg.Round(atr, 4))
	metrics.SetNumber("atr_ratio", indicatorpkg.Round(atrRatio, 2))

	for _, ext := range e.registry.For(class) {
		metrics.Merge(ext(symbol, bars))
	}

	return metrics
}

// ComputeAll computes metrics for every symbol in request order. Symbols
// without enough history, or whose computation fails, are skipped.
func (e *Engine) ComputeAll(data models.AssetData, class models.AssetClass) []models.SymbolMetrics {
	out := make([]models.SymbolMetrics, 0, len(data.Symbols))
	for _, sd := range data.Symbols {
		metrics, err := e.safeCompute(sd.Symbol, sd.Values, class)
		if err != nil {
			logger.Warn("Indicator calculation failed",
				logger.String("symbol", sd.Symbol),
				logger.String("asset_class", string(class)),
				logger.ErrorField(err),
			)
			logger.SymbolsSkippedTotal.WithLabelValues(string(class), "calculation_error").Inc()
			continue
		}
		if len(metrics) == 0 {
			logger.Debug("Insufficient history for indicators",
				logger.String("symbol", sd.Symbol),
				logger.Int("bars", len(sd.Values)),
			)
			logger.SymbolsSkippedTotal.WithLabelValues(string(class), "insufficient_history").Inc()
			continue
		}
		out = append(out, models.SymbolMetrics{Symbol: sd.Symbol, Metrics: metrics})
	}
	return out
}

func (e *Engine) safeCompute(symbol string, series models.Series, class models.AssetClass) (metrics models.MetricSet, err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics, err = nil, fmt.Errorf("panic computing %s: %v", symbol, r)
		}
	}()
	return e.Compute(symbol, series, class), nil
}

// relativeDistance is |price-level|/level, or 0 when level is 0
func relativeDistance(price, level float64) float64 {
	if level == 0 {
		return 0
	}
	return math.Abs(price-level) / level
}
