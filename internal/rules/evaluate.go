package rules

import (
	"context"
	"math"

	"github.com/mohamedkhairy/market-intel/internal/models"
	"github.com/mohamedkhairy/market-intel/internal/news"
	"github.com/mohamedkhairy/market-intel/pkg/logger"
)

// Evaluate reports whether every condition of the rule holds for the symbol.
// Conditions are checked in order and evaluation stops at the first failure.
// A satisfied news condition stores its sentiment label in metrics under news_sentiment.
func (r *CompiledRule) Evaluate(ctx context.Context, symbol string, metrics models.MetricSet, provider news.SentimentProvider) bool {
	for i := range r.conditions {
		cond := &r.conditions[i]

		if cond.news {
			if !r.evaluateNews(ctx, symbol, cond, metrics, provider) {
				return false
			}
			continue
		}

		if !evaluateMetric(cond, metrics) {
			return false
		}
	}

	return true
}

func (r *CompiledRule) evaluateNews(ctx context.Context, symbol string, cond *compiledCondition, metrics models.MetricSet, provider news.SentimentProvider) bool {
	if provider == nil {
		logger.Debug("No sentiment provider, news condition fails",
			logger.String("rule", r.Rule.ID),
			logger.String("symbol", symbol),
		)
		return false
	}

	res, err := provider.CheckKeywords(ctx, cond.keywords, cond.minArticles)
	if err != nil {
		logger.Warn("News keyword check failed",
			logger.String("rule", r.Rule.ID),
			logger.String("symbol", symbol),
			logger.Strings("keywords", cond.keywords),
			logger.ErrorField(err),
		)
		return false
	}
	if !res.Found {
		return false
	}

	metrics.SetLabel(NewsSentimentMetric, res.Sentiment.Sentiment)
	return true
}

// evaluateMetric applies one metric comparison. A missing metric, a missing
// reference metric or an uncoercible threshold fails the condition.
func evaluateMetric(cond *compiledCondition, metrics models.MetricSet) bool {
	actual, ok := metrics.Get(cond.metric)
	if !ok {
		return false
	}

	threshold, ok := cond.threshold.Resolve(metrics, actual)
	if !ok {
		logger.Debug("Could not resolve threshold",
			logger.String("metric", cond.metric),
			logger.String("threshold", cond.threshold.String()),
		)
		return false
	}

	return Compare(actual, cond.operator, threshold)
}

// Compare applies op to two values of the same kind. Labels compare lexically.
// Values of different kinds are never equal and never ordered.
func Compare(actual models.MetricValue, op string, threshold models.MetricValue) bool {
	if actual.Kind() != threshold.Kind() {
		return op == "!="
	}

	var cmp int
	if actual.IsNumber() {
		a, _ := actual.Float()
		b, _ := threshold.Float()
		// NaN fails every comparison except !=
		if math.IsNaN(a) || math.IsNaN(b) {
			return op == "!="
		}
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	} else {
		a, _ := actual.Text()
		b, _ := threshold.Text()
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	}

	switch op {
	case ">":
		return cmp > 0
	case "<":
		return cmp < 0
	case ">=":
		return cmp >= 0
	case "<=":
		return cmp <= 0
	case "==":
		return cmp == 0
	case "!=":
		return cmp != 0
	default:
		return false
	}
}
