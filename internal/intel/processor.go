package intel

import (
	"context"
	"fmt"
	"time"

	"github.com/mohamedkhairy/market-intel/internal/cache"
	"github.com/mohamedkhairy/market-intel/internal/data"
	"github.com/mohamedkhairy/market-intel/internal/indicator"
	"github.com/mohamedkhairy/market-intel/internal/market"
	"github.com/mohamedkhairy/market-intel/internal/models"
	"github.com/mohamedkhairy/market-intel/pkg/logger"
)

// NarrativeGenerator turns per-symbol metrics into narratives
type NarrativeGenerator interface {
	Generate(ctx context.Context, symbols []models.SymbolMetrics, class models.AssetClass) []models.Narrative
}

// Config holds processor settings
type Config struct {
	TopN     int
	MoversBy string
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		TopN:     5,
		MoversBy: market.MoverByChangePct,
	}
}

// Processor builds a market snapshot for one asset class
type Processor struct {
	normalizer *data.Normalizer
	aggregator *market.Aggregator
	indicators *indicator.Engine
	narratives NarrativeGenerator
	clock      cache.Clock
	config     Config
}

// NewProcessor creates a processor. narratives may be nil, in which case
// snapshots carry no narratives. A nil clock uses the wall clock and nil
// indicators the default indicator engine.
func NewProcessor(aggregator *market.Aggregator, indicators *indicator.Engine, narratives NarrativeGenerator, clock cache.Clock, config Config) *Processor {
	if clock == nil {
		clock = cache.SystemClock{}
	}
	if indicators == nil {
		indicators = indicator.NewEngine(indicator.DefaultEngineConfig(), nil)
	}
	if config.TopN <= 0 {
		config.TopN = DefaultConfig().TopN
	}
	if config.MoversBy == "" {
		config.MoversBy = market.MoverByChangePct
	}
	return &Processor{
		normalizer: data.NewNormalizer(),
		aggregator: aggregator,
		indicators: indicators,
		narratives: narratives,
		clock:      clock,
		config:     config,
	}
}

// ProcessPayload normalizes a raw provider payload and processes it
func (p *Processor) ProcessPayload(ctx context.Context, payload []byte, symbols []string, class models.AssetClass) (models.MarketSnapshot, error) {
	assetData, err := p.normalizer.FormatAssetDataJSON(payload, symbols)
	if err != nil {
		logger.ErrorsTotal.WithLabelValues("intel", "payload").Inc()
		return models.MarketSnapshot{}, fmt.Errorf("failed to normalize %s payload: %w", class, err)
	}
	return p.Process(ctx, assetData, class), nil
}

// Process runs every aggregate and the narrative rules over normalized data.
// It never fails; missing inputs yield neutral defaults.
func (p *Processor) Process(ctx context.Context, assetData models.AssetData, class models.AssetClass) models.MarketSnapshot {
	start := time.Now()
	log := logger.WithContext(ctx)

	breadth := p.aggregator.Breadth(assetData)
	series := p.aggregator.AppendBreadthSeries(ctx, breadth.BreadthPct)
	volIndex := p.aggregator.VolatilityIndex(ctx, assetData)
	volChange := p.aggregator.VolatilityChange(ctx, assetData)
	session := p.aggregator.Session(class)
	activity := p.aggregator.SessionActivity(assetData)
	movers := p.aggregator.TopMovers(ctx, assetData, p.config.TopN, p.config.MoversBy)
	technical := p.aggregator.TechnicalBreadth(assetData)

	narratives := make([]models.Narrative, 0)
	if p.narratives != nil {
		metrics := p.indicators.ComputeAll(assetData, class)
		narratives = p.narratives.Generate(ctx, metrics, class)
	}

	snapshot := models.MarketSnapshot{
		AssetClass:       class,
		GeneratedAt:      p.clock.Now().UTC(),
		Symbols:          assetData.SymbolNames(),
		MarketStatus:     breadth.MarketStatus,
		BreadthPct:       breadth.BreadthPct,
		SymbolsTracked:   breadth.SymbolsTracked,
		BreadthSeries:    series,
		VolatilityIndex:  volIndex,
		VolatilityChange: volChange,
		CurrentSession:   session,
		SessionActivity:  activity,
		TopMovers:        movers,
		TechnicalBreadth: technical,
		Narratives:       narratives,
	}

	elapsed := time.Since(start)
	logger.ProcessDuration.WithLabelValues(string(class)).Observe(elapsed.Seconds())

	log.Info("Processed asset class",
		logger.String("asset_class", string(class)),
		logger.String("market_status", snapshot.MarketStatus),
		logger.Float64("breadth_pct", snapshot.BreadthPct),
		logger.Int("symbols_tracked", snapshot.SymbolsTracked),
		logger.Float64("volatility_index", snapshot.VolatilityIndex),
		logger.String("session", snapshot.CurrentSession),
		logger.Int("narratives", len(snapshot.Narratives)),
		logger.Duration("duration", elapsed),
	)

	return snapshot
}
