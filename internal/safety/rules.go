package safety

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SelectorRule maps a 4-byte selector hex substring to a risk category.
type SelectorRule struct {
	Selector string `yaml:"selector"`
	Category string `yaml:"category"`
}

// RuleSet is the EVM bytecode prober's configured heuristic table: a fixed
// set of selector substrings mapped to risk categories, plus the
// proxy-code prefixes listed in the loaded file.
type RuleSet struct {
	Critical      []SelectorRule `yaml:"critical"`
	Warnings      []SelectorRule `yaml:"warnings"`
	ProxyPrefixes []string       `yaml:"proxy_prefixes"`
}

// LoadRuleSet reads the YAML rule table from path.
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read safety rules file: %w", err)
	}
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("failed to parse safety rules YAML: %w", err)
	}
	return &rs, nil
}
