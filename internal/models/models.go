package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// AssetClass identifies the market an instrument trades in
type AssetClass string

const (
	AssetClassForex  AssetClass = "forex"
	AssetClassCrypto AssetClass = "crypto"
	AssetClassStocks AssetClass = "stocks"
)

// AllAssetClasses lists the supported asset classes in a stable order
var AllAssetClasses = []AssetClass{AssetClassForex, AssetClassCrypto, AssetClassStocks}

// ParseAssetClass converts a string to an AssetClass
func ParseAssetClass(s string) (AssetClass, error) {
	switch AssetClass(strings.ToLower(strings.TrimSpace(s))) {
	case AssetClassForex:
		return AssetClassForex, nil
	case AssetClassCrypto:
		return AssetClassCrypto, nil
	case AssetClassStocks:
		return AssetClassStocks, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAssetClass, s)
	}
}

// Symbol data statuses
const (
	StatusOK      = "ok"
	StatusMissing = "missing"
)

// Bar represents one OHLCV record after normalization
type Bar struct {
	Timestamp time.Time `json:"datetime"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	HasVolume bool      `json:"-"`
}

// Validate validates a Bar
func (b *Bar) Validate() error {
	if b.Timestamp.IsZero() {
		return ErrInvalidTimestamp
	}
	if b.High < b.Low {
		return ErrInvalidBar
	}
	if b.Volume < 0 {
		return ErrInvalidVolume
	}
	return nil
}

// Series is an ordered run of bars for one symbol, newest first
type Series []Bar

// SortNewestFirst fully re-sorts the series by timestamp, newest first.
// Bars sharing a timestamp keep their relative order.
func (s Series) SortNewestFirst() {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Timestamp.After(s[j].Timestamp)
	})
}

// Chronological returns a copy of the series ordered oldest to newest
func (s Series) Chronological() Series {
	out := make(Series, len(s))
	for i, bar := range s {
		out[len(s)-1-i] = bar
	}
	return out
}

// Closes returns the close prices in series order
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, bar := range s {
		out[i] = bar.Close
	}
	return out
}

// Highs returns the high prices in series order
func (s Series) Highs() []float64 {
	out := make([]float64, len(s))
	for i, bar := range s {
		out[i] = bar.High
	}
	return out
}

// Lows returns the low prices in series order
func (s Series) Lows() []float64 {
	out := make([]float64, len(s))
	for i, bar := range s {
		out[i] = bar.Low
	}
	return out
}

// Volumes returns the volumes in series order. Bars without volume contribute 0.
func (s Series) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, bar := range s {
		out[i] = bar.Volume
	}
	return out
}

// ReportedVolumes returns only the volumes that were present in the raw data
func (s Series) ReportedVolumes() []float64 {
	out := make([]float64, 0, len(s))
	for _, bar := range s {
		if bar.HasVolume {
			out = append(out, bar.Volume)
		}
	}
	return out
}

// SymbolData is the canonical per-symbol table produced by normalization
type SymbolData struct {
	Symbol string `json:"symbol"`
	Values Series `json:"values"`
	Status string `json:"status"`
}

// AssetData holds the normalized series for every requested symbol, in request order
type AssetData struct {
	Symbols []SymbolData `json:"symbols"`
}

// Lookup returns the data for a symbol
func (a AssetData) Lookup(symbol string) (SymbolData, bool) {
	for _, sd := range a.Symbols {
		if sd.Symbol == symbol {
			return sd, true
		}
	}
	return SymbolData{}, false
}

// SymbolNames returns the symbols in request order
func (a AssetData) SymbolNames() []string {
	out := make([]string, len(a.Symbols))
	for i, sd := range a.Symbols {
		out[i] = sd.Symbol
	}
	return out
}
