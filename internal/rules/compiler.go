package rules

import (
	"fmt"

	"github.com/mohamedkhairy/market-intel/internal/models"
)

// Compile validates a rule and parses every condition once
func Compile(rule *models.Rule) (*CompiledRule, error) {
	if rule == nil {
		return nil, fmt.Errorf("rule cannot be nil")
	}

	if err := ValidateRule(rule); err != nil {
		return nil, fmt.Errorf("invalid rule %s: %w", rule.ID, err)
	}

	conditions := make([]compiledCondition, 0, len(rule.Conditions))
	for i, cond := range rule.Conditions {
		if cond.IsNews() {
			conditions = append(conditions, compiledCondition{
				news:        true,
				keywords:    append([]string(nil), cond.NewsKeywords...),
				minArticles: cond.MinArticles,
			})
			continue
		}

		threshold, err := ParseThreshold(cond.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid rule %s: condition %d: %w", rule.ID, i, err)
		}
		conditions = append(conditions, compiledCondition{
			metric:    cond.Metric,
			operator:  cond.Operator,
			threshold: threshold,
		})
	}

	return &CompiledRule{
		Rule:       copyRule(rule),
		conditions: conditions,
	}, nil
}

// CompileRules compiles rules preserving their order
func CompileRules(rules []*models.Rule) ([]*CompiledRule, error) {
	compiled := make([]*CompiledRule, 0, len(rules))

	for _, rule := range rules {
		cr, err := Compile(rule)
		if err != nil {
			return nil, fmt.Errorf("failed to compile rule %s: %w", rule.ID, err)
		}
		compiled = append(compiled, cr)
	}

	return compiled, nil
}

// copyRule creates a deep copy of a rule
func copyRule(rule *models.Rule) *models.Rule {
	if rule == nil {
		return nil
	}

	out := *rule
	out.Conditions = make([]models.Condition, len(rule.Conditions))
	for i, cond := range rule.Conditions {
		cond.NewsKeywords = append([]string(nil), cond.NewsKeywords...)
		out.Conditions[i] = cond
	}
	return &out
}
