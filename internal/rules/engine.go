package rules

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mohamedkhairy/market-intel/internal/models"
	"github.com/mohamedkhairy/market-intel/internal/news"
	"github.com/mohamedkhairy/market-intel/pkg/logger"
)

// Engine turns per-symbol metrics into narratives using compiled rules
type Engine struct {
	rules     map[models.AssetClass][]*CompiledRule
	sentiment news.SentimentProvider
	now       func() time.Time
}

// NewEngine compiles every rule in the set. provider may be nil, in which
// case news conditions never hold.
func NewEngine(set *RuleSet, provider news.SentimentProvider) (*Engine, error) {
	if set == nil {
		return nil, fmt.Errorf("rule set cannot be nil")
	}

	compiled := make(map[models.AssetClass][]*CompiledRule)
	for _, class := range set.Classes() {
		rules, err := CompileRules(set.For(class))
		if err != nil {
			return nil, fmt.Errorf("asset class %s: %w", class, err)
		}
		compiled[class] = rules
	}

	return &Engine{
		rules:     compiled,
		sentiment: provider,
		now:       time.Now,
	}, nil
}

// RuleCount returns the number of compiled rules for an asset class
func (e *Engine) RuleCount(class models.AssetClass) int {
	return len(e.rules[class])
}

// Generate evaluates the asset class rules against every symbol and returns the
// triggered narratives, high priority first. Generation order is kept within a priority.
func (e *Engine) Generate(ctx context.Context, symbols []models.SymbolMetrics, class models.AssetClass) []models.Narrative {
	rules := e.rules[class]
	narratives := make([]models.Narrative, 0)
	if len(rules) == 0 {
		return narratives
	}

	for _, sm := range symbols {
		if len(sm.Metrics) == 0 {
			continue
		}

		// Working copy; sentiment labels are injected into it
		metrics := sm.Metrics.Clone()
		e.injectMarketSentiment(ctx, class, sm.Symbol, metrics)

		for _, rule := range rules {
			if !rule.Evaluate(ctx, sm.Symbol, metrics, e.sentiment) {
				continue
			}

			text, err := Render(rule.Rule.Narrative, metrics)
			if err != nil {
				logger.Error("Failed to render narrative",
					logger.String("rule", rule.ID()),
					logger.String("symbol", sm.Symbol),
					logger.ErrorField(err),
				)
				errorType := "template"
				if errors.Is(err, ErrMissingPlaceholder) {
					errorType = "missing_placeholder"
				}
				logger.ErrorsTotal.WithLabelValues("rules", errorType).Inc()
				continue
			}

			narratives = append(narratives, models.Narrative{
				ID:         uuid.New().String(),
				Symbol:     sm.Symbol,
				Narrative:  text,
				Priority:   rule.Rule.Priority,
				RuleName:   rule.ID(),
				AssetClass: class,
				Timestamp:  e.now().UTC(),
				Metrics:    metrics.Clone(),
			})
		}
	}

	sort.SliceStable(narratives, func(i, j int) bool {
		return narratives[i].Priority.Rank() < narratives[j].Priority.Rank()
	})

	for _, n := range narratives {
		logger.NarrativesTotal.WithLabelValues(string(class), string(n.Priority)).Inc()
	}

	return narratives
}

func (e *Engine) injectMarketSentiment(ctx context.Context, class models.AssetClass, symbol string, metrics models.MetricSet) {
	provider, ok := e.sentiment.(news.MarketSentimentProvider)
	if !ok {
		return
	}

	s, err := provider.MarketSentiment(ctx, class, symbol)
	if err != nil {
		logger.Debug("Market sentiment unavailable",
			logger.String("symbol", symbol),
			logger.ErrorField(err),
		)
		return
	}
	metrics.SetLabel(MarketSentimentMetric, s.Sentiment)
}
