package classifier

import (
	"context"
	"fmt"
	"strings"

	"CaseCollector/internal/domain"
	"CaseCollector/internal/ports"
)

// StrategyRules names the dictionary-based strategy in config and records.
const StrategyRules = "rules"

const excerptRunes = 200

// RuleBased classifies by keyword dictionaries. It never drops an item.
type RuleBased struct {
	table RuleTable
}

var _ ports.Classifier = (*RuleBased)(nil)

// NewRuleBased wraps a validated rule table.
func NewRuleBased(table RuleTable) *RuleBased {
	return &RuleBased{table: table}
}

// Name identifies the strategy.
func (c *RuleBased) Name() string {
	return StrategyRules
}

// Classify matches every dimension independently.
func (c *RuleBased) Classify(_ context.Context, item domain.NormalizedItem) (domain.ClassificationResult, error) {
	text := strings.ToLower(item.Text())

	actor, actorHits := match(c.table.Actor, text)
	teamType, typeHits := match(c.table.TeamType, text)
	primary, _ := match(c.table.PrimaryCategory, text)

	category := c.table.TeamType.FallbackCategory
	if len(typeHits) > 0 {
		category = typeHits[0].rule.Category
	}

	return domain.ClassificationResult{
		Actor:           actor,
		TeamType:        domain.TeamType{LabeledConfidence: teamType, Category: category},
		PrimaryCategory: primary,
		Excerpt:         excerpt(item),
		Reasoning: domain.Reasoning{
			ActorReason: explain(actorHits),
			TypeReason:  explain(typeHits),
			IsPositive:  c.positive(text),
		},
		IsRelevant: true,
		Strategy:   StrategyRules,
	}, nil
}

type ruleHit struct {
	rule    Rule
	keyword string
}

// match emits one candidate per matching rule in declaration order, or the
// fallback label at FallbackConfidence when nothing matches.
func match(dim DimensionTable, text string) (domain.LabeledConfidence, []ruleHit) {
	var hits []ruleHit
	for _, rule := range dim.Rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, kw) {
				hits = append(hits, ruleHit{rule: rule, keyword: kw})
				break
			}
		}
	}

	if len(hits) == 0 {
		return domain.LabeledConfidence{
			Label:      dim.Fallback,
			Confidence: FallbackConfidence,
			Candidates: []domain.Candidate{{Label: dim.Fallback, Confidence: FallbackConfidence}},
		}, nil
	}

	lc := domain.LabeledConfidence{
		Label:      hits[0].rule.Label,
		Confidence: hits[0].rule.Confidence,
		Candidates: make([]domain.Candidate, 0, len(hits)),
	}
	for i, h := range hits {
		lc.Candidates = append(lc.Candidates, domain.Candidate{Label: h.rule.Label, Confidence: h.rule.Confidence})
		if i > 0 {
			lc.Alternatives = append(lc.Alternatives, h.rule.Label)
		}
	}
	return lc, hits
}

func explain(hits []ruleHit) string {
	if len(hits) == 0 {
		return "no keyword matched"
	}
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = fmt.Sprintf("%s=%q", h.rule.Label, h.keyword)
	}
	return "matched " + strings.Join(parts, ", ")
}

func (c *RuleBased) positive(text string) bool {
	pos, neg := 0, 0
	for _, w := range c.table.Sentiment.Positive {
		pos += strings.Count(text, w)
	}
	for _, w := range c.table.Sentiment.Negative {
		neg += strings.Count(text, w)
	}
	return pos >= neg
}

func excerpt(item domain.NormalizedItem) string {
	source := strings.TrimSpace(item.Snippet)
	if source == "" {
		source = strings.TrimSpace(item.Title)
	}
	runes := []rune(source)
	if len(runes) <= excerptRunes {
		return source
	}
	return string(runes[:excerptRunes])
}
