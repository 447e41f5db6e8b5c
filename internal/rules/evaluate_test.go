package rules

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/mohamedkhairy/market-intel/internal/models"
	"github.com/mohamedkhairy/market-intel/internal/news"
)

func metricRule(id string, conds ...models.Condition) *models.Rule {
	return &models.Rule{
		ID:         id,
		Conditions: conds,
		Narrative:  "{symbol} triggered " + id,
		Priority:   models.PriorityMedium,
		AssetClass: models.AssetClassForex,
	}
}

func mustCompile(t *testing.T, rule *models.Rule) *CompiledRule {
	t.Helper()
	cr, err := Compile(rule)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return cr
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name      string
		actual    models.MetricValue
		op        string
		threshold models.MetricValue
		want      bool
	}{
		{"gt true", models.Number(75), ">", models.Number(70), true},
		{"gt equal", models.Number(70), ">", models.Number(70), false},
		{"lt", models.Number(25), "<", models.Number(30), true},
		{"gte equal", models.Number(70), ">=", models.Number(70), true},
		{"lte", models.Number(71), "<=", models.Number(70), false},
		{"eq", models.Number(1.5), "==", models.Number(1.5), true},
		{"neq", models.Number(1.5), "!=", models.Number(1.5), false},
		{"label eq", models.Label("up"), "==", models.Label("up"), true},
		{"label neq", models.Label("up"), "!=", models.Label("down"), true},
		{"label ordering", models.Label("b"), ">", models.Label("a"), true},
		{"mixed kinds", models.Number(1), "==", models.Label("1"), false},
		{"nan", models.Number(math.NaN()), "<", models.Number(1), false},
		{"unknown op", models.Number(1), "=~", models.Number(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.actual, tt.op, tt.threshold); got != tt.want {
				t.Errorf("Compare(%v %s %v) = %v, want %v", tt.actual, tt.op, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestEvaluate_ConjunctionIsOrderIndependent(t *testing.T) {
	metrics := models.MetricSet{
		"rsi":          models.Number(75),
		"volume_ratio": models.Number(0.8),
	}
	trueCond := models.Condition{Metric: "rsi", Operator: ">", Value: 70}
	falseCond := models.Condition{Metric: "volume_ratio", Operator: ">", Value: 1.5}

	orders := [][]models.Condition{
		{trueCond, falseCond},
		{falseCond, trueCond},
	}
	for i, conds := range orders {
		cr := mustCompile(t, metricRule("mixed", conds...))
		if cr.Evaluate(context.Background(), "EURUSD", metrics.Clone(), nil) {
			t.Errorf("order %d: rule with a false condition triggered", i)
		}
	}

	cr := mustCompile(t, metricRule("both", trueCond, trueCond))
	if !cr.Evaluate(context.Background(), "EURUSD", metrics.Clone(), nil) {
		t.Error("rule with only true conditions did not trigger")
	}
}

func TestEvaluate_ScaledThreshold(t *testing.T) {
	cond := models.Condition{Metric: "volume", Operator: ">", Value: "1.5*average"}
	cr := mustCompile(t, metricRule("scaled", cond))

	tests := []struct {
		volume float64
		want   bool
	}{
		{151, true},
		{150, false},
		{149, false},
	}
	for _, tt := range tests {
		metrics := models.MetricSet{
			"volume":  models.Number(tt.volume),
			"average": models.Number(100),
		}
		if got := cr.Evaluate(context.Background(), "X", metrics, nil); got != tt.want {
			t.Errorf("volume %v > 1.5*100: got %v, want %v", tt.volume, got, tt.want)
		}
	}

	// Missing reference metric fails the condition
	if cr.Evaluate(context.Background(), "X", models.MetricSet{"volume": models.Number(1000)}, nil) {
		t.Error("expected failure when the reference metric is missing")
	}
}

func TestEvaluate_MissingMetric(t *testing.T) {
	cr := mustCompile(t, metricRule("missing", models.Condition{Metric: "btc_dominance", Operator: ">", Value: 45}))
	if cr.Evaluate(context.Background(), "BTCUSD", models.MetricSet{"rsi": models.Number(50)}, nil) {
		t.Error("rule over a missing metric must not trigger")
	}
}

func TestEvaluate_Coercion(t *testing.T) {
	metrics := models.MetricSet{
		"transaction_value": models.Number(2_000_000),
		"trend_direction":   models.Label("up"),
		"count":             models.Label("2"),
	}

	tests := []struct {
		name string
		cond models.Condition
		want bool
	}{
		{"numeric string against number", models.Condition{Metric: "transaction_value", Operator: ">", Value: "1000000"}, true},
		{"label string against number", models.Condition{Metric: "transaction_value", Operator: ">", Value: "lots"}, false},
		{"label equality", models.Condition{Metric: "trend_direction", Operator: "==", Value: "up"}, true},
		{"number against label", models.Condition{Metric: "count", Operator: "==", Value: 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cr := mustCompile(t, metricRule("coerce", tt.cond))
			if got := cr.Evaluate(context.Background(), "X", metrics.Clone(), nil); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluate_NewsCondition(t *testing.T) {
	cond := models.Condition{NewsKeywords: []string{"earnings"}, MinArticles: 1}
	cr := mustCompile(t, metricRule("news", cond))

	provider := news.NewStaticProvider(news.Article{Title: "Earnings beat, strong growth"})
	metrics := models.MetricSet{}
	if !cr.Evaluate(context.Background(), "AAPL", metrics, provider) {
		t.Fatal("expected news condition to hold")
	}
	if got, _ := metrics.Get(NewsSentimentMetric); got.String() != news.SentimentPositive {
		t.Errorf("news_sentiment = %q, want %q", got.String(), news.SentimentPositive)
	}

	provider.Err = errors.New("offline")
	if cr.Evaluate(context.Background(), "AAPL", models.MetricSet{}, provider) {
		t.Error("provider failure must fail the condition")
	}

	if cr.Evaluate(context.Background(), "AAPL", models.MetricSet{}, nil) {
		t.Error("news condition without a provider must fail")
	}
}

func TestEvaluate_ShortCircuitsBeforeNews(t *testing.T) {
	provider := news.NewStaticProvider()
	cr := mustCompile(t, metricRule("short",
		models.Condition{Metric: "rsi", Operator: ">", Value: 70},
		models.Condition{NewsKeywords: []string{"earnings"}},
	))

	cr.Evaluate(context.Background(), "AAPL", models.MetricSet{"rsi": models.Number(10)}, provider)
	if provider.Calls != 0 {
		t.Errorf("news provider called %d times after a failed condition", provider.Calls)
	}
}
