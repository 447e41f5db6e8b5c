package market

import (
	"github.com/mohamedkhairy/market-intel/internal/models"
	indicatorpkg "github.com/mohamedkhairy/market-intel/pkg/indicator"
	"github.com/mohamedkhairy/market-intel/pkg/logger"
)

// rsiOverbought is the RSI level counted by the technical breadth summary
const rsiOverbought = 70.0

// TechnicalBreadth counts, over symbols with at least MACDSlow bars, those
// with RSI above 70 and those whose MACD crossed above its signal line on
// the latest bar. The crossover needs MACDSlow+MACDSignal bars.
func (a *Aggregator) TechnicalBreadth(data models.AssetData) models.TechnicalBreadth {
	var summary models.TechnicalBreadth
	for _, sd := range data.Symbols {
		if len(sd.Values) < a.config.MACDSlow {
			continue
		}
		summary.SymbolsEvaluated++

		rsiOver, bullCross, ok := a.technicalSignals(sd)
		if !ok {
			continue
		}
		if rsiOver {
			summary.RSIOver70++
		}
		if bullCross {
			summary.MACDBullCross++
		}
	}
	return summary
}

func (a *Aggregator) technicalSignals(sd models.SymbolData) (rsiOver, bullCross, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("Technical breadth calculation failed",
				logger.String("symbol", sd.Symbol),
				logger.Any("panic", r),
			)
			rsiOver, bullCross, ok = false, false, false
		}
	}()

	closes := sd.Values.Chronological().Closes()

	rsiOver = indicatorpkg.RSI(closes, a.config.RSIPeriod) > rsiOverbought
	if len(closes) >= a.config.MACDSlow+a.config.MACDSignal {
		bullCross = indicatorpkg.MACD(closes, a.config.MACDFast, a.config.MACDSlow, a.config.MACDSignal).BullishCross()
	}
	return rsiOver, bullCross, true
}
