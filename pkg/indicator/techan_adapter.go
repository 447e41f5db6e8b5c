package indicator

import (
	"fmt"
	"time"

	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"
)

// seriesEpoch anchors the synthetic candle periods. Only candle order matters
// to the indicators used here, so bars are laid out one minute apart.
var seriesEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// NewTechanSeries builds a techan TimeSeries from OHLC slices ordered oldest
// to newest. Missing highs or lows fall back to the close.
func NewTechanSeries(highs, lows, closes []float64) (*techan.TimeSeries, error) {
	series := techan.NewTimeSeries()
	for i, c := range closes {
		high, low := c, c
		if i < len(highs) {
			high = highs[i]
		}
		if i < len(lows) {
			low = lows[i]
		}

		// Convert to techan.Candle
		timePeriod := techan.NewTimePeriod(seriesEpoch.Add(time.Duration(i)*time.Minute), time.Minute)
		candle := techan.NewCandle(timePeriod)

		candle.OpenPrice = big.NewDecimal(c)
		candle.MaxPrice = big.NewDecimal(high)
		candle.MinPrice = big.NewDecimal(low)
		candle.ClosePrice = big.NewDecimal(c)
		candle.Volume = big.ZERO

		if !series.AddCandle(candle) {
			return nil, fmt.Errorf("techan rejected candle %d", i)
		}
	}
	return series, nil
}

// TechanATR computes ATR as the simple moving average of techan true ranges.
// It needs at least period+1 bars so the window holds period real true ranges.
func TechanATR(highs, lows, closes []float64, period int) (value float64, err error) {
	n := minLen(highs, lows, closes)
	if period < 1 || n < period+1 {
		return 0, fmt.Errorf("techan ATR needs %d bars, got %d", period+1, n)
	}

	defer func() {
		if r := recover(); r != nil {
			value, err = 0, fmt.Errorf("techan ATR panicked: %v", r)
		}
	}()

	series, err := NewTechanSeries(highs[:n], lows[:n], closes[:n])
	if err != nil {
		return 0, err
	}

	atr := techan.NewSimpleMovingAverage(techan.NewTrueRangeIndicator(series), period)
	value = atr.Calculate(series.LastIndex()).Float()
	if isNaN(value) {
		return 0, fmt.Errorf("techan ATR returned NaN")
	}
	return value, nil
}

// TechanMACDLine computes fast EMA - slow EMA at every index using techan EMAs.
// Entries before the slow EMA is seeded are NaN.
func TechanMACDLine(closes []float64, fast, slow int) (line []float64, err error) {
	if fast < 1 || slow < 1 || len(closes) < slow {
		return nil, fmt.Errorf("techan MACD needs %d closes, got %d", slow, len(closes))
	}

	defer func() {
		if r := recover(); r != nil {
			line, err = nil, fmt.Errorf("techan MACD panicked: %v", r)
		}
	}()

	series, err := NewTechanSeries(nil, nil, closes)
	if err != nil {
		return nil, err
	}

	closePrice := techan.NewClosePriceIndicator(series)
	fastEMA := techan.NewEMAIndicator(closePrice, fast)
	slowEMA := techan.NewEMAIndicator(closePrice, slow)

	line = make([]float64, len(closes))
	for i := range closes {
		if i < slow-1 {
			line[i] = nan()
			continue
		}
		v := fastEMA.Calculate(i).Sub(slowEMA.Calculate(i)).Float()
		if isNaN(v) {
			return nil, fmt.Errorf("techan MACD returned NaN at %d", i)
		}
		line[i] = v
	}
	return line, nil
}
