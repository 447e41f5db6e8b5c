package rules

import (
	"fmt"
	"sync"

	"github.com/mohamedkhairy/market-intel/internal/models"
)

// RuleSet holds narrative rules per asset class in insertion order
type RuleSet struct {
	mu    sync.RWMutex
	rules map[models.AssetClass][]*models.Rule
}

// NewRuleSet creates an empty rule set
func NewRuleSet() *RuleSet {
	return &RuleSet{
		rules: make(map[models.AssetClass][]*models.Rule),
	}
}

// Add validates a rule and appends it to its asset class.
// Rule IDs must be unique within an asset class.
func (s *RuleSet) Add(rule *models.Rule) error {
	if rule == nil {
		return fmt.Errorf("rule cannot be nil")
	}

	if _, err := models.ParseAssetClass(string(rule.AssetClass)); err != nil {
		return fmt.Errorf("invalid rule %s: %w", rule.ID, err)
	}
	if err := ValidateRule(rule); err != nil {
		return fmt.Errorf("invalid rule %s: %w", rule.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.rules[rule.AssetClass] {
		if existing.ID == rule.ID {
			return fmt.Errorf("rule already exists: %s/%s", rule.AssetClass, rule.ID)
		}
	}

	s.rules[rule.AssetClass] = append(s.rules[rule.AssetClass], copyRule(rule))
	return nil
}

// Get retrieves a rule by asset class and ID
func (s *RuleSet) Get(class models.AssetClass, id string) (*models.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rule := range s.rules[class] {
		if rule.ID == id {
			return copyRule(rule), nil
		}
	}
	return nil, fmt.Errorf("rule not found: %s/%s", class, id)
}

// For returns copies of the rules configured for an asset class, in order
func (s *RuleSet) For(class models.AssetClass) []*models.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Rule, len(s.rules[class]))
	for i, rule := range s.rules[class] {
		out[i] = copyRule(rule)
	}
	return out
}

// Classes returns the asset classes that have at least one rule
func (s *RuleSet) Classes() []models.AssetClass {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.AssetClass, 0, len(s.rules))
	for _, class := range models.AllAssetClasses {
		if len(s.rules[class]) > 0 {
			out = append(out, class)
		}
	}
	return out
}

// Count returns the number of rules across all asset classes
func (s *RuleSet) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, rules := range s.rules {
		n += len(rules)
	}
	return n
}
