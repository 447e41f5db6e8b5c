package news

import (
	"context"

	"github.com/mohamedkhairy/market-intel/internal/models"
)

// StaticProvider answers news queries from a fixed set of articles.
// It is used for offline runs and tests.
type StaticProvider struct {
	Articles []Article
	Err      error

	// Calls counts CheckKeywords invocations
	Calls int
}

// NewStaticProvider creates a provider over the given articles
func NewStaticProvider(articles ...Article) *StaticProvider {
	return &StaticProvider{Articles: articles}
}

// CheckKeywords implements SentimentProvider
func (p *StaticProvider) CheckKeywords(_ context.Context, keywords []string, minArticles int) (KeywordResult, error) {
	p.Calls++
	if p.Err != nil {
		return KeywordResult{}, p.Err
	}
	return evaluateKeywords(p.Articles, keywords, minArticles), nil
}

// MarketSentiment implements MarketSentimentProvider over every article
func (p *StaticProvider) MarketSentiment(_ context.Context, _ models.AssetClass, _ string) (Sentiment, error) {
	if p.Err != nil {
		return Sentiment{}, p.Err
	}
	return AnalyzeSentiment(p.Articles), nil
}
