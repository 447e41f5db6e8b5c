package rules

import (
	"fmt"

	"github.com/mohamedkhairy/market-intel/internal/models"
)

// ValidateRule validates a rule with enhanced checks
func ValidateRule(rule *models.Rule) error {
	// Use base validation from models
	if err := rule.Validate(); err != nil {
		return err
	}

	for i, cond := range rule.Conditions {
		if err := ValidateCondition(&cond); err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
	}

	return nil
}

// ValidateCondition validates a condition with enhanced checks
func ValidateCondition(cond *models.Condition) error {
	if err := cond.Validate(); err != nil {
		return err
	}
	if cond.IsNews() {
		if cond.MinArticles < 0 {
			return fmt.Errorf("min_articles must be non-negative, got %d", cond.MinArticles)
		}
		return nil
	}

	if err := ValidateMetricName(cond.Metric); err != nil {
		return err
	}
	if err := ValidateOperator(cond.Operator); err != nil {
		return err
	}
	if cond.Value == nil {
		return fmt.Errorf("%w: condition value cannot be nil", ErrInvalidThreshold)
	}
	return nil
}

// ValidateMetricName validates that a metric name is well-formed
func ValidateMetricName(metric string) error {
	if metric == "" {
		return fmt.Errorf("metric name cannot be empty")
	}

	for _, r := range metric {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_') {
			return fmt.Errorf("metric name contains invalid character: %c", r)
		}
	}

	return nil
}

// ValidateOperator validates that an operator is supported
func ValidateOperator(op string) error {
	switch op {
	case ">", "<", ">=", "<=", "==", "!=":
		return nil
	default:
		return fmt.Errorf("%w: %s (supported: >, <, >=, <=, ==, !=)", models.ErrInvalidOperator, op)
	}
}
