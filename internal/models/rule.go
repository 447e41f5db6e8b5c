package models

// Priority ranks narratives; high sorts first
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns the sort rank of the priority (high:0, medium:1, low:2).
// Unknown priorities rank after low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// Valid reports whether p is one of the known priorities
func (p Priority) Valid() bool {
	return p.Rank() < 3
}

// Rule represents a narrative rule definition
type Rule struct {
	ID         string      `json:"id" yaml:"id"`
	Conditions []Condition `json:"conditions" yaml:"conditions"`
	Narrative  string      `json:"narrative" yaml:"narrative"`
	Priority   Priority    `json:"priority" yaml:"priority"`
	AssetClass AssetClass  `json:"asset_class" yaml:"asset_class"`
}

// Condition is either a metric comparison or a news predicate.
// A condition with NewsKeywords set is a news predicate.
type Condition struct {
	Metric   string      `json:"metric,omitempty" yaml:"metric,omitempty"`     // e.g., "rsi", "price_change_pct"
	Operator string      `json:"operator,omitempty" yaml:"operator,omitempty"` // ">", "<", ">=", "<=", "==", "!="
	Value    interface{} `json:"value,omitempty" yaml:"value,omitempty"`       // literal or "<multiplier>*<metric>"
	Lookback int         `json:"lookback,omitempty" yaml:"lookback,omitempty"` // informational

	NewsKeywords []string `json:"news_keywords,omitempty" yaml:"news_keywords,omitempty"`
	MinArticles  int      `json:"min_articles,omitempty" yaml:"min_articles,omitempty"`
}

// IsNews reports whether the condition is a news predicate
func (c *Condition) IsNews() bool {
	return len(c.NewsKeywords) > 0 || c.Metric == "news_keywords"
}

// Validate validates a Rule
func (r *Rule) Validate() error {
	if r.ID == "" {
		return ErrInvalidRuleID
	}
	if len(r.Conditions) == 0 {
		return ErrNoConditions
	}
	if r.Narrative == "" {
		return ErrNoNarrative
	}
	if !r.Priority.Valid() {
		return ErrInvalidPriority
	}
	for _, cond := range r.Conditions {
		if err := cond.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates a Condition
func (c *Condition) Validate() error {
	if c.IsNews() {
		if len(c.NewsKeywords) == 0 {
			return ErrNoKeywords
		}
		return nil
	}
	if c.Metric == "" {
		return ErrInvalidMetric
	}
	validOps := map[string]bool{
		">": true, "<": true, ">=": true, "<=": true, "==": true, "!=": true,
	}
	if !validOps[c.Operator] {
		return ErrInvalidOperator
	}
	return nil
}
