package data

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mohamedkhairy/market-intel/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAssetData_KeyResolution(t *testing.T) {
	raw := map[string]interface{}{
		"EURUSD":  []interface{}{map[string]interface{}{"datetime": "2024-01-02 10:00:00", "close": 1.1}},
		"BTC_USD": []interface{}{map[string]interface{}{"datetime": "2024-01-02 10:00:00", "close": 42000.0}},
		"AAPL":    []interface{}{map[string]interface{}{"datetime": "2024-01-02", "close": "185.5"}},
	}

	n := NewNormalizer()
	data := n.FormatAssetData(raw, []string{"EUR/USD", "BTC/USD", "AAPL", "XAU/USD"})

	require.Len(t, data.Symbols, 4)
	assert.Equal(t, []string{"EUR/USD", "BTC/USD", "AAPL", "XAU/USD"}, data.SymbolNames())

	eur, ok := data.Lookup("EUR/USD")
	require.True(t, ok)
	assert.Equal(t, models.StatusOK, eur.Status)
	assert.Equal(t, 1.1, eur.Values[0].Close)

	btc, _ := data.Lookup("BTC/USD")
	assert.Equal(t, 42000.0, btc.Values[0].Close)

	aapl, _ := data.Lookup("AAPL")
	assert.Equal(t, 185.5, aapl.Values[0].Close)

	xau, _ := data.Lookup("XAU/USD")
	assert.Equal(t, models.StatusMissing, xau.Status)
	assert.Empty(t, xau.Values)
}

func TestFormatAssetData_ExactKeyWins(t *testing.T) {
	raw := map[string]interface{}{
		"EUR/USD": []interface{}{map[string]interface{}{"datetime": "2024-01-02", "close": 1.0}},
		"EURUSD":  []interface{}{map[string]interface{}{"datetime": "2024-01-02", "close": 2.0}},
	}

	data := NewNormalizer().FormatAssetData(raw, []string{"EUR/USD"})
	assert.Equal(t, 1.0, data.Symbols[0].Values[0].Close)
}

func TestFormatAssetData_ObjectFormWithStatus(t *testing.T) {
	raw := map[string]interface{}{
		"GBPUSD": map[string]interface{}{
			"status": "delayed",
			"values": []interface{}{
				map[string]interface{}{"datetime": "2024-01-02 10:00:00", "close": "1.27"},
			},
		},
		"USDJPY": map[string]interface{}{"status": "error"},
		"AUDUSD": "garbage",
	}

	data := NewNormalizer().FormatAssetData(raw, []string{"GBPUSD", "USDJPY", "AUDUSD"})

	assert.Equal(t, "delayed", data.Symbols[0].Status)
	assert.Equal(t, models.StatusMissing, data.Symbols[1].Status)
	assert.Equal(t, models.StatusMissing, data.Symbols[2].Status)
}

func TestFormatAssetData_SortsNewestFirst(t *testing.T) {
	raw := map[string]interface{}{
		"X": []interface{}{
			map[string]interface{}{"datetime": "2024-01-01 00:00:00", "close": 1.0},
			map[string]interface{}{"datetime": "2024-01-03 00:00:00", "close": 3.0},
			map[string]interface{}{"datetime": "2024-01-02 00:00:00", "close": 2.0},
		},
	}

	series := NewNormalizer().FormatAssetData(raw, []string{"X"}).Symbols[0].Values
	require.Len(t, series, 3)
	assert.Equal(t, []float64{3, 2, 1}, series.Closes())
	for i := 1; i < len(series); i++ {
		assert.False(t, series[i].Timestamp.After(series[i-1].Timestamp))
	}
}

func TestFormatAssetData_DropsMalformedRows(t *testing.T) {
	raw := map[string]interface{}{
		"X": []interface{}{
			map[string]interface{}{"datetime": "not a date", "close": 1.0},
			map[string]interface{}{"close": 1.0},
			map[string]interface{}{"datetime": "2024-01-02", "close": "abc"},
			"not a record",
			map[string]interface{}{"datetime": "2024-01-03", "close": 2.0, "open": "bad", "volume": "n/a"},
		},
	}

	series := NewNormalizer().FormatAssetData(raw, []string{"X"}).Symbols[0].Values
	require.Len(t, series, 1)

	bar := series[0]
	assert.Equal(t, 2.0, bar.Close)
	assert.Equal(t, 2.0, bar.Open, "unparseable open falls back to close")
	assert.Equal(t, 2.0, bar.High)
	assert.Equal(t, 2.0, bar.Low)
	assert.False(t, bar.HasVolume)
	assert.Equal(t, 0.0, bar.Volume)
}

func TestFormatAssetData_AllRowsMalformedIsMissing(t *testing.T) {
	raw := map[string]interface{}{
		"X": []interface{}{map[string]interface{}{"datetime": "bad", "close": 1.0}},
	}
	sd := NewNormalizer().FormatAssetData(raw, []string{"X"}).Symbols[0]
	assert.Equal(t, models.StatusMissing, sd.Status)
}

func TestFormatAssetData_UntimedRowsKeepPayloadOrder(t *testing.T) {
	raw := map[string]interface{}{
		"X": []interface{}{
			map[string]interface{}{"close": 3.0},
			map[string]interface{}{"close": "bad"},
			map[string]interface{}{"close": 1.0},
			map[string]interface{}{"close": 2.0},
		},
	}
	sd := NewNormalizer().FormatAssetData(raw, []string{"X"}).Symbols[0]
	assert.Equal(t, models.StatusOK, sd.Status)
	assert.Equal(t, []float64{3, 1, 2}, sd.Values.Closes())
}

func TestFormatAssetData_TimestampFieldPrecedence(t *testing.T) {
	raw := map[string]interface{}{
		"X": []interface{}{
			map[string]interface{}{
				"datetime":  "2024-01-05 00:00:00",
				"timestamp": "2020-01-01 00:00:00",
				"date":      "2019-01-01",
				"close":     1.0,
			},
			map[string]interface{}{"timestamp": "2024-01-04 00:00:00", "date": "2019-01-01", "close": 1.0},
			map[string]interface{}{"date": "2024-01-03", "close": 1.0},
		},
	}

	series := NewNormalizer().FormatAssetData(raw, []string{"X"}).Symbols[0].Values
	require.Len(t, series, 3)
	assert.Equal(t, 5, series[0].Timestamp.Day())
	assert.Equal(t, 4, series[1].Timestamp.Day())
	assert.Equal(t, 3, series[2].Timestamp.Day())
}

func TestParseTimestamp_Forms(t *testing.T) {
	want := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name  string
		input interface{}
	}{
		{"rfc3339", "2024-01-02T03:04:05Z"},
		{"rfc3339 offset", "2024-01-02T05:04:05+02:00"},
		{"space separated", "2024-01-02 03:04:05"},
		{"T separated naive", "2024-01-02T03:04:05"},
		{"epoch seconds", float64(want.Unix())},
		{"epoch milliseconds", float64(want.UnixMilli())},
		{"epoch microseconds json", json.Number("1704164645000000")},
		{"epoch nanoseconds int64", want.UnixNano()},
		{"epoch seconds string", "1704164645"},
		{"epoch seconds int", int(want.Unix())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseTimestamp(tt.input)
			require.True(t, ok)
			assert.True(t, want.Equal(got), "got %s", got)
		})
	}

	_, ok := parseTimestamp("yesterday")
	assert.False(t, ok)
	_, ok = parseTimestamp(true)
	assert.False(t, ok)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		input interface{}
		want  float64
		ok    bool
	}{
		{1.5, 1.5, true},
		{float32(2), 2, true},
		{int64(3), 3, true},
		{json.Number("4.25"), 4.25, true},
		{" 5.5 ", 5.5, true},
		{"NaN", 0, false},
		{"abc", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}

	for _, tt := range tests {
		got, ok := parseNumber(tt.input)
		assert.Equal(t, tt.ok, ok, "input %v", tt.input)
		assert.Equal(t, tt.want, got, "input %v", tt.input)
	}
}

func TestFormatAssetDataJSON(t *testing.T) {
	payload := []byte(`{
		"EURUSD": {"values": [
			{"datetime": "2024-01-02 10:01:00", "open": "1.1", "high": "1.2", "low": "1.0", "close": "1.15", "volume": "1000"},
			{"datetime": "2024-01-02 10:00:00", "open": 1.0, "high": 1.1, "low": 0.9, "close": 1.05}
		]}
	}`)

	data, err := NewNormalizer().FormatAssetDataJSON(payload, []string{"EUR/USD"})
	require.NoError(t, err)

	series := data.Symbols[0].Values
	require.Len(t, series, 2)
	assert.Equal(t, 1.15, series[0].Close)
	assert.True(t, series[0].HasVolume)
	assert.Equal(t, 1000.0, series[0].Volume)
	assert.False(t, series[1].HasVolume)

	_, err = NewNormalizer().FormatAssetDataJSON([]byte(`[1,2]`), []string{"X"})
	assert.Error(t, err)
}

func TestCanonicalSymbol(t *testing.T) {
	assert.Equal(t, "EUR/USD", CanonicalSymbol(" eur/usd "))

	raw := map[string]interface{}{
		"EURUSD": []interface{}{map[string]interface{}{"close": 1.1}},
	}
	data := NewNormalizer().FormatAssetData(raw, []string{CanonicalSymbol(" eur/usd ")})
	eur, ok := data.Lookup("EUR/USD")
	require.True(t, ok)
	assert.Equal(t, models.StatusOK, eur.Status)
}
