package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MetricKind tags the variant held by a MetricValue
type MetricKind int

const (
	MetricNumber MetricKind = iota
	MetricLabel
)

// MetricValue is either a number or a text label
type MetricValue struct {
	kind  MetricKind
	num   float64
	label string
}

// Number creates a numeric metric value
func Number(v float64) MetricValue {
	return MetricValue{kind: MetricNumber, num: v}
}

// Label creates a text metric value
func Label(s string) MetricValue {
	return MetricValue{kind: MetricLabel, label: s}
}

// Kind returns the variant tag
func (v MetricValue) Kind() MetricKind {
	return v.kind
}

// IsNumber reports whether the value is numeric
func (v MetricValue) IsNumber() bool {
	return v.kind == MetricNumber
}

// Float returns the numeric value and whether the value is numeric
func (v MetricValue) Float() (float64, bool) {
	if v.kind != MetricNumber {
		return 0, false
	}
	return v.num, true
}

// Text returns the label and whether the value is a label
func (v MetricValue) Text() (string, bool) {
	if v.kind != MetricLabel {
		return "", false
	}
	return v.label, true
}

// String formats the value for narrative templates. Numbers use the
// shortest round-trip digits and always carry a fraction or exponent, so
// 2 renders as "2.0" and 1e16 as "1e+16".
func (v MetricValue) String() string {
	if v.kind == MetricLabel {
		return v.label
	}
	return formatNumber(v.num)
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	if abs := math.Abs(f); abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// MarshalJSON encodes numbers as JSON numbers and labels as JSON strings
func (v MetricValue) MarshalJSON() ([]byte, error) {
	if v.kind == MetricLabel {
		return json.Marshal(v.label)
	}
	return json.Marshal(v.num)
}

// UnmarshalJSON decodes a JSON number or string
func (v *MetricValue) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case float64:
		*v = Number(x)
	case string:
		*v = Label(x)
	default:
		return fmt.Errorf("metric value must be a number or string, got %T", raw)
	}
	return nil
}

// MetricSet maps metric names to values for one symbol
type MetricSet map[string]MetricValue

// Get looks up a metric. The boolean is false when the metric is absent.
func (m MetricSet) Get(name string) (MetricValue, bool) {
	v, ok := m[name]
	return v, ok
}

// Number looks up a numeric metric
func (m MetricSet) Number(name string) (float64, bool) {
	v, ok := m[name]
	if !ok {
		return 0, false
	}
	return v.Float()
}

// SetNumber stores a numeric metric
func (m MetricSet) SetNumber(name string, v float64) {
	m[name] = Number(v)
}

// SetLabel stores a text metric
func (m MetricSet) SetLabel(name, s string) {
	m[name] = Label(s)
}

// Merge copies every metric from other into m, overwriting existing names
func (m MetricSet) Merge(other MetricSet) {
	for k, v := range other {
		m[k] = v
	}
}

// Clone returns an independent copy
func (m MetricSet) Clone() MetricSet {
	out := make(MetricSet, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SymbolMetrics pairs a symbol with its computed metrics
type SymbolMetrics struct {
	Symbol  string    `json:"symbol"`
	Metrics MetricSet `json:"metrics"`
}
