package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/mohamedkhairy/market-intel/internal/cache"
	"github.com/mohamedkhairy/market-intel/internal/config"
	"github.com/mohamedkhairy/market-intel/internal/models"
	"github.com/mohamedkhairy/market-intel/pkg/logger"
)

// marketSentimentDays is the lookback used for asset class sentiment
const marketSentimentDays = 3

// NewsAPIClient queries the NewsAPI "everything" endpoint
type NewsAPIClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	store      cache.Store
	config     config.NewsConfig
	now        func() time.Time
}

type newsAPIResponse struct {
	Status   string    `json:"status"`
	Code     string    `json:"code,omitempty"`
	Message  string    `json:"message,omitempty"`
	Articles []Article `json:"articles"`
}

// NewNewsAPIClient creates a client. store may be nil to disable caching.
func NewNewsAPIClient(cfg config.NewsConfig, store cache.Store) *NewsAPIClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}
	if cfg.DaysBack <= 0 {
		cfg.DaysBack = 7
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	return &NewsAPIClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		store:      store,
		config:     cfg,
		now:        time.Now,
	}
}

// CheckKeywords implements SentimentProvider
func (c *NewsAPIClient) CheckKeywords(ctx context.Context, keywords []string, minArticles int) (KeywordResult, error) {
	if len(keywords) == 0 {
		return KeywordResult{Sentiment: AnalyzeSentiment(nil)}, nil
	}

	articles, err := c.FetchArticles(ctx, KeywordQuery(keywords), c.config.DaysBack)
	if err != nil {
		return KeywordResult{}, err
	}
	return evaluateKeywords(articles, keywords, minArticles), nil
}

// MarketSentiment implements MarketSentimentProvider
func (c *NewsAPIClient) MarketSentiment(ctx context.Context, class models.AssetClass, symbol string) (Sentiment, error) {
	articles, err := c.FetchArticles(ctx, MarketQuery(class, symbol), marketSentimentDays)
	if err != nil {
		return Sentiment{}, err
	}
	return AnalyzeSentiment(articles), nil
}

// FetchArticles returns the articles matching query over the last daysBack days.
// Without an API key it returns no articles and no error.
func (c *NewsAPIClient) FetchArticles(ctx context.Context, query string, daysBack int) ([]Article, error) {
	if c.config.APIKey == "" {
		logger.Debug("News API key not configured, skipping news lookup",
			logger.String("query", query),
		)
		return nil, nil
	}

	cacheKey := fmt.Sprintf("news:%d:%s", daysBack, query)
	if c.store != nil {
		var cached []Article
		if c.store.Get(ctx, cacheKey, &cached) {
			return cached, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("news rate limiter: %w", err)
	}

	reqURL, err := c.buildURL(query, daysBack)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create news request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read news response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news API returned status %d: %s", resp.StatusCode, truncateBody(body))
	}

	var decoded newsAPIResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode news response: %w", err)
	}
	if decoded.Status != "" && decoded.Status != "ok" {
		return nil, fmt.Errorf("news API error %s: %s", decoded.Code, decoded.Message)
	}

	if c.store != nil {
		c.store.Set(ctx, cacheKey, decoded.Articles, c.config.CacheTTL)
	}

	logger.Debug("Fetched news articles",
		logger.String("query", query),
		logger.Int("count", len(decoded.Articles)),
	)

	return decoded.Articles, nil
}

func (c *NewsAPIClient) buildURL(query string, daysBack int) (string, error) {
	u, err := url.Parse(c.config.APIURL)
	if err != nil {
		return "", fmt.Errorf("invalid news API URL: %w", err)
	}

	from := c.now().UTC().AddDate(0, 0, -daysBack).Format("2006-01-02")

	params := u.Query()
	params.Set("q", query)
	params.Set("from", from)
	params.Set("sortBy", "publishedAt")
	params.Set("language", "en")
	params.Set("pageSize", strconv.Itoa(c.config.PageSize))
	u.RawQuery = params.Encode()

	return u.String(), nil
}

func truncateBody(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
