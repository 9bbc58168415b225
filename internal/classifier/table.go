package classifier

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var embeddedRules []byte

// FallbackConfidence is assigned to the fallback label when no rule matches.
const FallbackConfidence = 50

// Rule maps a keyword set to a label at a fixed confidence.
type Rule struct {
	Label      string   `yaml:"label"`
	Keywords   []string `yaml:"keywords"`
	Confidence int      `yaml:"confidence"`
	Category   string   `yaml:"category"`
}

// DimensionTable is the ordered rule list of one dimension.
type DimensionTable struct {
	Fallback         string `yaml:"fallback"`
	FallbackCategory string `yaml:"fallbackCategory"`
	Rules            []Rule `yaml:"rules"`
}

// Sentiment lists words that tilt an item positive or negative.
type Sentiment struct {
	Positive []string `yaml:"positive"`
	Negative []string `yaml:"negative"`
}

// RuleTable is the full data-driven dictionary set.
type RuleTable struct {
	Actor           DimensionTable `yaml:"actor"`
	TeamType        DimensionTable `yaml:"teamType"`
	PrimaryCategory DimensionTable `yaml:"primaryCategory"`
	Sentiment       Sentiment      `yaml:"sentiment"`
}

// DefaultRuleTable parses the rule table compiled into the binary.
func DefaultRuleTable() (RuleTable, error) {
	return ParseRuleTable(embeddedRules)
}

// LoadRuleTable reads a rule table from disk; an empty path yields the default table.
func LoadRuleTable(path string) (RuleTable, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultRuleTable()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return RuleTable{}, fmt.Errorf("read rule table %s: %w", path, err)
	}
	table, err := ParseRuleTable(raw)
	if err != nil {
		return RuleTable{}, fmt.Errorf("rule table %s: %w", path, err)
	}
	return table, nil
}

// ParseRuleTable decodes and validates YAML rule data.
func ParseRuleTable(raw []byte) (RuleTable, error) {
	var table RuleTable
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return RuleTable{}, fmt.Errorf("parse rule table: %w", err)
	}
	if err := table.validate(); err != nil {
		return RuleTable{}, err
	}
	table.normalize()
	return table, nil
}

func (t RuleTable) validate() error {
	dims := map[string]DimensionTable{
		"actor":           t.Actor,
		"teamType":        t.TeamType,
		"primaryCategory": t.PrimaryCategory,
	}
	for name, dim := range dims {
		if strings.TrimSpace(dim.Fallback) == "" {
			return fmt.Errorf("dimension %s: fallback label required", name)
		}
		for i, rule := range dim.Rules {
			if strings.TrimSpace(rule.Label) == "" {
				return fmt.Errorf("dimension %s rule %d: label required", name, i)
			}
			if len(rule.Keywords) == 0 {
				return fmt.Errorf("dimension %s rule %s: keywords required", name, rule.Label)
			}
			if rule.Confidence < 0 || rule.Confidence > 100 {
				return fmt.Errorf("dimension %s rule %s: confidence %d out of range", name, rule.Label, rule.Confidence)
			}
		}
	}
	return nil
}

func (t *RuleTable) normalize() {
	for _, dim := range []*DimensionTable{&t.Actor, &t.TeamType, &t.PrimaryCategory} {
		for i := range dim.Rules {
			dim.Rules[i].Keywords = lowerAll(dim.Rules[i].Keywords)
		}
	}
	t.Sentiment.Positive = lowerAll(t.Sentiment.Positive)
	t.Sentiment.Negative = lowerAll(t.Sentiment.Negative)
}

func lowerAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		if term = strings.ToLower(term); strings.TrimSpace(term) != "" {
			out = append(out, term)
		}
	}
	return out
}
