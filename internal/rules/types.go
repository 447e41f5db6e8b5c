package rules

import (
	"errors"

	"github.com/mohamedkhairy/market-intel/internal/models"
)

var (
	// ErrInvalidThreshold is returned when a condition value cannot be parsed
	ErrInvalidThreshold = errors.New("invalid threshold")
	// ErrMissingPlaceholder is returned when a narrative references an unknown metric
	ErrMissingPlaceholder = errors.New("missing placeholder")
	// ErrMalformedTemplate is returned for unbalanced braces in a narrative
	ErrMalformedTemplate = errors.New("malformed template")
)

// Metric names injected into the working metric set during evaluation
const (
	NewsSentimentMetric   = "news_sentiment"
	MarketSentimentMetric = "market_sentiment"
)

// ThresholdKind tags the variant held by a Threshold
type ThresholdKind int

const (
	ThresholdNumber ThresholdKind = iota
	ThresholdLabel
	ThresholdScaled
)

// Threshold is the parsed right-hand side of a metric condition:
// a literal number, a literal label or "<multiplier>*<reference metric>"
type Threshold struct {
	Kind       ThresholdKind
	Number     float64
	Label      string
	Multiplier float64
	Reference  string
}

// compiledCondition is a condition with its operator and threshold parsed
type compiledCondition struct {
	metric    string
	operator  string
	threshold Threshold

	news        bool
	keywords    []string
	minArticles int
}

// CompiledRule is a rule ready for repeated evaluation
type CompiledRule struct {
	Rule       *models.Rule
	conditions []compiledCondition
}

// ID returns the rule ID
func (r *CompiledRule) ID() string {
	return r.Rule.ID
}
