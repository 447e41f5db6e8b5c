package news

import (
	"context"

	"github.com/mohamedkhairy/market-intel/internal/models"
)

// Sentiment labels
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Article is the subset of a news article used for keyword matching and scoring
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
	PublishedAt string `json:"publishedAt,omitempty"`
}

// Sentiment is the aggregate tone of a set of articles. Score is in [-1, 1].
type Sentiment struct {
	Sentiment        string  `json:"sentiment"`
	Score            float64 `json:"score"`
	PositiveArticles int     `json:"positive_articles"`
	NegativeArticles int     `json:"negative_articles"`
	TotalArticles    int     `json:"total_articles"`
}

// KeywordResult is the answer to a keyword query.
// Found is true when at least the requested number of articles matched.
type KeywordResult struct {
	Found     bool      `json:"found"`
	Count     int       `json:"count"`
	Sentiment Sentiment `json:"sentiment"`
}

// SentimentProvider checks recent news coverage for a set of keywords
type SentimentProvider interface {
	CheckKeywords(ctx context.Context, keywords []string, minArticles int) (KeywordResult, error)
}

// MarketSentimentProvider reports the overall news tone for an asset class,
// optionally narrowed to one symbol
type MarketSentimentProvider interface {
	MarketSentiment(ctx context.Context, class models.AssetClass, symbol string) (Sentiment, error)
}
