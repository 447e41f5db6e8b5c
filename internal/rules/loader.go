package rules

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mohamedkhairy/market-intel/internal/models"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// ruleFile is the on-disk layout: asset class -> ordered rule list
type ruleFile map[string][]models.Rule

// ParseRuleSet decodes a YAML rule file. Rules keep file order within each class.
// A rule without asset_class inherits the class it is listed under.
func ParseRuleSet(data []byte) (*RuleSet, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rule file: %w", err)
	}

	set := NewRuleSet()
	for _, class := range sortedClasses(file) {
		parsed, err := models.ParseAssetClass(class)
		if err != nil {
			return nil, err
		}
		for i := range file[class] {
			rule := file[class][i]
			if rule.AssetClass == "" {
				rule.AssetClass = parsed
			}
			if rule.AssetClass != parsed {
				return nil, fmt.Errorf("rule %s declares asset class %s but is listed under %s", rule.ID, rule.AssetClass, parsed)
			}
			if err := set.Add(&rule); err != nil {
				return nil, err
			}
		}
	}

	return set, nil
}

// LoadRuleSet reads a YAML rule file from disk
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}
	set, err := ParseRuleSet(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// DefaultRuleSet returns the built-in forex, crypto and stocks rules
func DefaultRuleSet() (*RuleSet, error) {
	return ParseRuleSet(defaultRulesYAML)
}

// sortedClasses orders the file's class keys by the canonical asset class order,
// with unknown keys last so they surface as errors deterministically
func sortedClasses(file ruleFile) []string {
	out := make([]string, 0, len(file))
	seen := make(map[string]bool, len(file))
	for _, class := range models.AllAssetClasses {
		if _, ok := file[string(class)]; ok {
			out = append(out, string(class))
			seen[string(class)] = true
		}
	}
	for key := range file {
		if !seen[key] {
			out = append(out, key)
		}
	}
	return out
}
