package data

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mohamedkhairy/market-intel/internal/models"
	"github.com/mohamedkhairy/market-intel/pkg/logger"
)

// Timestamp fields in order of precedence
var timestampFields = []string{"datetime", "timestamp", "date"}

// Accepted textual timestamp layouts. Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Normalizer converts raw provider payloads into canonical per-symbol series
type Normalizer struct{}

// NewNormalizer creates a new normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// FormatAssetDataJSON decodes a raw JSON payload keyed by symbol and normalizes it.
// The only error is a payload that is not a JSON object.
func (n *Normalizer) FormatAssetDataJSON(payload []byte, symbols []string) (models.AssetData, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return models.AssetData{}, fmt.Errorf("failed to decode asset payload: %w", err)
	}
	return n.FormatAssetData(raw, symbols), nil
}

// FormatAssetData builds one SymbolData per requested symbol, in request order.
// Symbols with no usable entry are reported with status "missing".
func (n *Normalizer) FormatAssetData(raw map[string]interface{}, symbols []string) models.AssetData {
	out := models.AssetData{Symbols: make([]models.SymbolData, 0, len(symbols))}

	for _, symbol := range symbols {
		entry, ok := lookupEntry(raw, symbol)
		if !ok {
			out.Symbols = append(out.Symbols, missing(symbol))
			continue
		}

		rows, status, ok := entryRows(entry)
		if !ok {
			logger.Debug("Unsupported entry shape",
				logger.String("symbol", symbol),
				logger.String("type", fmt.Sprintf("%T", entry)),
			)
			out.Symbols = append(out.Symbols, missing(symbol))
			continue
		}

		series, dropped := normalizeRows(rows)
		if dropped > 0 {
			logger.Debug("Dropped malformed rows",
				logger.String("symbol", symbol),
				logger.Int("dropped", dropped),
				logger.Int("kept", len(series)),
			)
		}

		switch {
		case len(series) == 0:
			status = models.StatusMissing
		case status == "":
			status = models.StatusOK
		}

		out.Symbols = append(out.Symbols, models.SymbolData{
			Symbol: symbol,
			Values: series,
			Status: status,
		})
	}

	return out
}

// CanonicalSymbol trims and upper-cases a configured symbol
func CanonicalSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func missing(symbol string) models.SymbolData {
	return models.SymbolData{Symbol: symbol, Values: models.Series{}, Status: models.StatusMissing}
}

// lookupEntry tries the symbol as given, then with "/" removed, then with "/" replaced by "_"
func lookupEntry(raw map[string]interface{}, symbol string) (interface{}, bool) {
	candidates := []string{
		symbol,
		strings.ReplaceAll(symbol, "/", ""),
		strings.ReplaceAll(symbol, "/", "_"),
	}
	for _, key := range candidates {
		if entry, ok := raw[key]; ok && entry != nil {
			return entry, true
		}
	}
	return nil, false
}

// entryRows accepts either a list of records or an object with a "values" list
func entryRows(entry interface{}) ([]interface{}, string, bool) {
	switch e := entry.(type) {
	case []interface{}:
		return e, "", true
	case []map[string]interface{}:
		rows := make([]interface{}, len(e))
		for i, r := range e {
			rows[i] = r
		}
		return rows, "", true
	case map[string]interface{}:
		values, ok := e["values"]
		if !ok {
			return nil, "", false
		}
		rows, _, ok := entryRows(values)
		if !ok {
			return nil, "", false
		}
		status, _ := e["status"].(string)
		return rows, status, true
	default:
		return nil, "", false
	}
}

// normalizeRows parses and sorts rows newest first. When no row carries a
// timestamp field the rows are kept in payload order, first row newest.
func normalizeRows(rows []interface{}) (models.Series, int) {
	series := make(models.Series, 0, len(rows))
	dropped := 0
	timed := anyTimestamped(rows)
	for _, row := range rows {
		record, ok := row.(map[string]interface{})
		if !ok {
			dropped++
			continue
		}
		bar, ok := parseBar(record, timed)
		if !ok {
			dropped++
			continue
		}
		series = append(series, bar)
	}
	series.SortNewestFirst()
	return series, dropped
}

func anyTimestamped(rows []interface{}) bool {
	for _, row := range rows {
		record, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		for _, field := range timestampFields {
			if _, ok := record[field]; ok {
				return true
			}
		}
	}
	return false
}

func parseBar(record map[string]interface{}, timed bool) (models.Bar, bool) {
	var ts time.Time
	if timed {
		var ok bool
		if ts, ok = recordTimestamp(record); !ok {
			return models.Bar{}, false
		}
	}

	closePrice, ok := parseNumber(record["close"])
	if !ok {
		return models.Bar{}, false
	}

	bar := models.Bar{
		Timestamp: ts,
		Open:      closePrice,
		High:      closePrice,
		Low:       closePrice,
		Close:     closePrice,
	}
	if v, ok := parseNumber(record["open"]); ok {
		bar.Open = v
	}
	if v, ok := parseNumber(record["high"]); ok {
		bar.High = v
	}
	if v, ok := parseNumber(record["low"]); ok {
		bar.Low = v
	}
	if v, ok := parseNumber(record["volume"]); ok {
		bar.Volume = v
		bar.HasVolume = true
	}
	return bar, true
}

// recordTimestamp uses the first timestamp field present in the record
func recordTimestamp(record map[string]interface{}) (time.Time, bool) {
	for _, field := range timestampFields {
		v, ok := record[field]
		if !ok || v == nil {
			continue
		}
		return parseTimestamp(v)
	}
	return time.Time{}, false
}

func parseTimestamp(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC(), true
			}
		}
		if epoch, err := strconv.ParseFloat(s, 64); err == nil {
			return fromEpoch(epoch)
		}
		return time.Time{}, false
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return fromEpochInt(i), true
		}
		if f, err := t.Float64(); err == nil {
			return fromEpoch(f)
		}
		return time.Time{}, false
	case int:
		return fromEpochInt(int64(t)), true
	case int64:
		return fromEpochInt(t), true
	default:
		if f, ok := parseNumber(v); ok {
			return fromEpoch(f)
		}
		return time.Time{}, false
	}
}

// fromEpochInt interprets an integer epoch as seconds, milliseconds,
// microseconds or nanoseconds depending on its magnitude
func fromEpochInt(v int64) time.Time {
	abs := v
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs < 1e11:
		return time.Unix(v, 0).UTC()
	case abs < 1e14:
		return time.UnixMilli(v).UTC()
	case abs < 1e17:
		return time.UnixMicro(v).UTC()
	default:
		return time.Unix(0, v).UTC()
	}
}

func fromEpoch(v float64) (time.Time, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return time.Time{}, false
	}
	abs := math.Abs(v)
	var seconds float64
	switch {
	case abs < 1e11:
		seconds = v
	case abs < 1e14:
		seconds = v / 1e3
	case abs < 1e17:
		seconds = v / 1e6
	default:
		seconds = v / 1e9
	}
	whole := math.Floor(seconds)
	nanos := math.Round((seconds - whole) * 1e9)
	return time.Unix(int64(whole), int64(nanos)).UTC(), true
}

// parseNumber coerces JSON numbers, numeric strings and Go numeric kinds to float64.
// Non-finite values are rejected.
func parseNumber(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
