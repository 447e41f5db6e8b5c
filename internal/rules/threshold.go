package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mohamedkhairy/market-intel/internal/models"
)

// ParseThreshold converts a raw condition value into a Threshold.
// Strings containing "*" must have the form "<multiplier>*<metric>".
func ParseThreshold(value interface{}) (Threshold, error) {
	switch v := value.(type) {
	case nil:
		return Threshold{}, fmt.Errorf("%w: value cannot be nil", ErrInvalidThreshold)
	case string:
		return parseStringThreshold(v)
	default:
		n, err := toFloat(v)
		if err != nil {
			return Threshold{}, fmt.Errorf("%w: %v", ErrInvalidThreshold, err)
		}
		return Threshold{Kind: ThresholdNumber, Number: n}, nil
	}
}

func parseStringThreshold(s string) (Threshold, error) {
	if !strings.Contains(s, "*") {
		return Threshold{Kind: ThresholdLabel, Label: s}, nil
	}

	parts := strings.Split(s, "*")
	if len(parts) != 2 {
		return Threshold{}, fmt.Errorf("%w: %q must be <multiplier>*<metric>", ErrInvalidThreshold, s)
	}

	multiplier, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("%w: bad multiplier in %q", ErrInvalidThreshold, s)
	}
	ref := strings.TrimSpace(parts[1])
	if err := ValidateMetricName(ref); err != nil {
		return Threshold{}, fmt.Errorf("%w: bad reference in %q: %v", ErrInvalidThreshold, s, err)
	}

	return Threshold{Kind: ThresholdScaled, Multiplier: multiplier, Reference: ref}, nil
}

// Resolve produces the comparison value for a metric of the same type family as actual.
// It returns false when the reference metric is missing or the value cannot be coerced.
func (t Threshold) Resolve(metrics models.MetricSet, actual models.MetricValue) (models.MetricValue, bool) {
	var resolved models.MetricValue
	switch t.Kind {
	case ThresholdNumber:
		resolved = models.Number(t.Number)
	case ThresholdLabel:
		resolved = models.Label(t.Label)
	case ThresholdScaled:
		ref, ok := metrics.Number(t.Reference)
		if !ok {
			return models.MetricValue{}, false
		}
		resolved = models.Number(t.Multiplier * ref)
	default:
		return models.MetricValue{}, false
	}

	return coerce(resolved, actual.Kind())
}

// coerce converts v to the given kind. Labels become numbers only when they parse.
func coerce(v models.MetricValue, kind models.MetricKind) (models.MetricValue, bool) {
	if v.Kind() == kind {
		return v, true
	}
	if kind == models.MetricLabel {
		// Config literals compare by their written form: 2 matches "2"
		n, _ := v.Float()
		return models.Label(strconv.FormatFloat(n, 'f', -1, 64)), true
	}

	s, _ := v.Text()
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return models.MetricValue{}, false
	}
	return models.Number(n), true
}

// String renders the threshold as it would appear in a rule file
func (t Threshold) String() string {
	switch t.Kind {
	case ThresholdLabel:
		return t.Label
	case ThresholdScaled:
		return strconv.FormatFloat(t.Multiplier, 'f', -1, 64) + "*" + t.Reference
	default:
		return strconv.FormatFloat(t.Number, 'f', -1, 64)
	}
}

// toFloat converts a numeric value to float64
func toFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case interface{ Float64() (float64, error) }:
		return v.Float64()
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", value)
	}
}
