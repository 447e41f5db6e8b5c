package news

import (
	"fmt"
	"math"
	"strings"

	"github.com/mohamedkhairy/market-intel/internal/models"
)

// sentimentThreshold separates positive/negative from neutral
const sentimentThreshold = 0.2

var (
	positiveWords = []string{"bullish", "growth", "profit", "gain", "increase", "positive", "strong", "beat", "outperform"}
	negativeWords = []string{"bearish", "decline", "loss", "drop", "decrease", "negative", "weak", "miss", "underperform"}
)

// AnalyzeSentiment scores articles by counting lexicon hits in title and description.
// An article counts as positive or negative when one side has strictly more hits.
func AnalyzeSentiment(articles []Article) Sentiment {
	if len(articles) == 0 {
		return Sentiment{Sentiment: SentimentNeutral}
	}

	positive, negative := 0, 0
	for _, a := range articles {
		content := articleText(a)
		pos := countHits(content, positiveWords)
		neg := countHits(content, negativeWords)
		switch {
		case pos > neg:
			positive++
		case neg > pos:
			negative++
		}
	}

	score := float64(positive-negative) / float64(len(articles))
	label := SentimentNeutral
	if score > sentimentThreshold {
		label = SentimentPositive
	} else if score < -sentimentThreshold {
		label = SentimentNegative
	}

	return Sentiment{
		Sentiment:        label,
		Score:            math.Round(score*100) / 100,
		PositiveArticles: positive,
		NegativeArticles: negative,
		TotalArticles:    len(articles),
	}
}

// FilterArticles keeps the articles mentioning at least one keyword (case-insensitive)
func FilterArticles(articles []Article, keywords []string) []Article {
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			lowered = append(lowered, kw)
		}
	}

	matching := make([]Article, 0, len(articles))
	for _, a := range articles {
		content := articleText(a)
		for _, kw := range lowered {
			if strings.Contains(content, kw) {
				matching = append(matching, a)
				break
			}
		}
	}
	return matching
}

// KeywordQuery builds a NewsAPI query matching any of the quoted keywords
func KeywordQuery(keywords []string) string {
	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = fmt.Sprintf("%q", kw)
	}
	return strings.Join(quoted, " OR ")
}

// MarketQuery builds the broad query used for asset class sentiment
func MarketQuery(class models.AssetClass, symbol string) string {
	switch class {
	case models.AssetClassForex:
		q := "forex OR currency OR exchange rate"
		if len(symbol) >= 6 {
			base, quote := symbol[:3], symbol[3:]
			q += fmt.Sprintf(" OR %s/%s OR %s%s", base, quote, base, quote)
		}
		return q
	case models.AssetClassCrypto:
		return withSymbol("cryptocurrency OR bitcoin OR blockchain", symbol)
	case models.AssetClassStocks:
		return withSymbol("stocks OR equities OR stock market", symbol)
	default:
		return withSymbol("economy OR markets OR investing", symbol)
	}
}

// evaluateKeywords filters articles and scores the matches
func evaluateKeywords(articles []Article, keywords []string, minArticles int) KeywordResult {
	if minArticles < 1 {
		minArticles = 1
	}
	matching := FilterArticles(articles, keywords)
	return KeywordResult{
		Found:     len(matching) >= minArticles,
		Count:     len(matching),
		Sentiment: AnalyzeSentiment(matching),
	}
}

func withSymbol(q, symbol string) string {
	if symbol == "" {
		return q
	}
	return q + " OR " + symbol
}

func articleText(a Article) string {
	return strings.ToLower(a.Title + " " + a.Description)
}

func countHits(content string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(content, w) {
			n++
		}
	}
	return n
}
