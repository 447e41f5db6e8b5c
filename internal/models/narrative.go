package models

import (
	"time"
)

// Narrative is a rendered alert produced when a rule's conditions hold.
// Narratives are not modified after creation; Metrics is a private snapshot.
type Narrative struct {
	ID         string     `json:"id"`
	Symbol     string     `json:"symbol"`
	Narrative  string     `json:"narrative"`
	Priority   Priority   `json:"priority"`
	RuleName   string     `json:"rule_name"`
	AssetClass AssetClass `json:"asset_class"`
	Timestamp  time.Time  `json:"timestamp"`
	Metrics    MetricSet  `json:"metrics"`
}

// Validate validates a Narrative
func (n *Narrative) Validate() error {
	if n.ID == "" {
		return ErrInvalidNarrativeID
	}
	if n.RuleName == "" {
		return ErrInvalidRuleID
	}
	if n.Symbol == "" {
		return ErrInvalidSymbol
	}
	if n.Timestamp.IsZero() {
		return ErrInvalidTimestamp
	}
	return nil
}

// Market status labels
const (
	MarketBullish = "Bullish"
	MarketBearish = "Bearish"
	MarketNeutral = "Neutral"
)

// Session activity labels
const (
	ActivityHigh   = "High"
	ActivityMedium = "Medium"
	ActivityLow    = "Low"
)

// Breadth summarizes the fraction of symbols that closed up
type Breadth struct {
	MarketStatus   string  `json:"market_status"`
	BreadthPct     float64 `json:"breadth_pct"`
	SymbolsTracked int     `json:"symbols_tracked"`
}

// Mover is one row of the top movers table
type Mover struct {
	Symbol    string  `json:"symbol"`
	Latest    float64 `json:"latest"`
	ChangePct float64 `json:"change_pct"`
	Range     float64 `json:"range"`
}

// TopMovers lists the strongest and weakest symbols by a metric
type TopMovers struct {
	Gainers []Mover `json:"gainers"`
	Losers  []Mover `json:"losers"`
	By      string  `json:"by"`
}

// TechnicalBreadth counts symbols with notable technical signals
type TechnicalBreadth struct {
	MACDBullCross    int `json:"macd_bull_cross"`
	RSIOver70        int `json:"rsi_over_70"`
	SymbolsEvaluated int `json:"symbols_evaluated"`
}

// MarketSnapshot is the result of one engine invocation for an asset class
type MarketSnapshot struct {
	AssetClass       AssetClass       `json:"asset_class"`
	GeneratedAt      time.Time        `json:"generated_at"`
	Symbols          []string         `json:"symbols"`
	MarketStatus     string           `json:"market_status"`
	BreadthPct       float64          `json:"breadth_pct"`
	SymbolsTracked   int              `json:"symbols_tracked"`
	BreadthSeries    []float64        `json:"breadth_series"`
	VolatilityIndex  float64          `json:"volatility_index"`
	VolatilityChange float64          `json:"volatility_change"`
	CurrentSession   string           `json:"current_session"`
	SessionActivity  string           `json:"session_activity"`
	TopMovers        TopMovers        `json:"top_movers"`
	TechnicalBreadth TechnicalBreadth `json:"technical_breadth"`
	Narratives       []Narrative      `json:"narratives"`
}
