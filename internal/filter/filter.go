// Package filter decides whether a normalized item is worth classifying and,
// if so, which priority tier it lands in.
package filter

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"CaseCollector/internal/domain"
	"CaseCollector/internal/textutil"
)

// TierRule is one ordered predicate of the tiered family. Every group in
// Require must have at least one of its terms present in the text.
type TierRule struct {
	Tier    int        `yaml:"tier"`
	Reason  string     `yaml:"reason"`
	Require [][]string `yaml:"require"`
}

// GateRule configures the news family.
type GateRule struct {
	ActionKeywords []string `yaml:"actionKeywords"`
	Stopwords      []string `yaml:"stopwords"`
	MinRepeat      int      `yaml:"minRepeat"`
	TokenMin       int      `yaml:"tokenMin"`
	TokenMax       int      `yaml:"tokenMax"`
	Tier           int      `yaml:"tier"`
}

// Rules bundles everything the filter needs.
type Rules struct {
	Tiers    []TierRule `yaml:"tiers"`
	Gate     GateRule   `yaml:"gate"`
	Excluded []string   `yaml:"-"`
}

// ContentFilter evaluates tiered rules for blogs and the gate for news.
type ContentFilter struct {
	tiers     []TierRule
	excluded  []string
	actions   []string
	stopwords map[string]struct{}
	minRepeat int
	tokenMin  int
	tokenMax  int
	newsTier  int
}

// New validates the rules and builds a filter. Tier numbers must be positive and distinct.
func New(rules Rules) (*ContentFilter, error) {
	seen := map[int]struct{}{}
	tiers := make([]TierRule, 0, len(rules.Tiers))
	for _, rule := range rules.Tiers {
		if rule.Tier <= 0 {
			return nil, fmt.Errorf("tier rule %q: tier must be positive", rule.Reason)
		}
		if _, dup := seen[rule.Tier]; dup {
			return nil, fmt.Errorf("tier %d declared twice", rule.Tier)
		}
		if len(rule.Require) == 0 {
			return nil, fmt.Errorf("tier %d: no required terms", rule.Tier)
		}
		seen[rule.Tier] = struct{}{}
		tiers = append(tiers, TierRule{
			Tier:    rule.Tier,
			Reason:  rule.Reason,
			Require: lowerGroups(rule.Require),
		})
	}

	gate := rules.Gate
	f := &ContentFilter{
		tiers:     tiers,
		excluded:  lowerAll(rules.Excluded),
		actions:   lowerAll(gate.ActionKeywords),
		stopwords: make(map[string]struct{}, len(gate.Stopwords)),
		minRepeat: gate.MinRepeat,
		tokenMin:  gate.TokenMin,
		tokenMax:  gate.TokenMax,
		newsTier:  gate.Tier,
	}
	for _, w := range gate.Stopwords {
		f.stopwords[strings.TrimSpace(w)] = struct{}{}
	}
	if f.minRepeat <= 0 {
		f.minRepeat = 3
	}
	if f.tokenMin <= 0 {
		f.tokenMin = 2
	}
	if f.tokenMax < f.tokenMin {
		f.tokenMax = 4
	}
	if f.newsTier <= 0 {
		f.newsTier = 1
	}

	return f, nil
}

// Evaluate picks the rule family by source type.
func (f *ContentFilter) Evaluate(item domain.NormalizedItem) domain.FilterDecision {
	// Casers carry state, so one per call keeps Evaluate safe for concurrent use.
	text := cases.Lower(language.Und).String(item.Text())
	switch item.SourceType {
	case domain.SourceNews:
		return f.gated(text)
	case domain.SourceBlog:
		return f.tiered(text)
	default:
		return domain.Rejected(fmt.Sprintf("unknown source type %q", item.SourceType))
	}
}

func (f *ContentFilter) tiered(text string) domain.FilterDecision {
	for _, term := range f.excluded {
		if strings.Contains(text, term) {
			return domain.Rejected("excluded term: " + term)
		}
	}

	// first satisfied tier wins
	for _, rule := range f.tiers {
		if matchesAll(text, rule.Require) {
			return domain.FilterDecision{Pass: true, Tier: rule.Tier, Reason: rule.Reason}
		}
	}
	return domain.Rejected("no tier matched")
}

func (f *ContentFilter) gated(text string) domain.FilterDecision {
	if !containsAny(text, f.actions) {
		return domain.Rejected("no action keyword")
	}

	counts := textutil.CountTokens(textutil.HangulTokens(text, f.tokenMin, f.tokenMax), f.stopwords)

	type hit struct {
		token string
		count int
	}
	var hits []hit
	for tok, n := range counts {
		if n >= f.minRepeat {
			hits = append(hits, hit{tok, n})
		}
	}
	if len(hits) == 0 {
		return domain.Rejected("no recurring entity")
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].count != hits[j].count {
			return hits[i].count > hits[j].count
		}
		return hits[i].token < hits[j].token
	})

	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = fmt.Sprintf("%s(%d)", h.token, h.count)
	}
	return domain.FilterDecision{Pass: true, Tier: f.newsTier, Reason: "recurring entity: " + strings.Join(parts, ", ")}
}

func matchesAll(text string, groups [][]string) bool {
	for _, group := range groups {
		if !containsAny(text, group) {
			return false
		}
	}
	return true
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if term != "" && strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func lowerGroups(groups [][]string) [][]string {
	out := make([][]string, len(groups))
	for i, g := range groups {
		out[i] = lowerAll(g)
	}
	return out
}

func lowerAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}
