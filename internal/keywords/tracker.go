// Package keywords mines a run's text for frequent terms the taxonomy does
// not know yet.
package keywords

import (
	"sort"
	"strings"

	"CaseCollector/internal/domain"
	"CaseCollector/internal/textutil"
)

const (
	defaultMinCount = 10
	defaultLimit    = 5
	tokenMin        = 2
	tokenMax        = 5
)

// Options tune suggestion output.
type Options struct {
	MinCount int `yaml:"minCount"`
	Limit    int `yaml:"limit"`
}

// Tracker counts candidate tokens for a single run. It is not safe for
// concurrent use; each run owns its own instance.
type Tracker struct {
	known    []string
	counts   map[string]int
	minCount int
	limit    int
}

// NewTracker builds an empty tracker that ignores tokens overlapping the taxonomy.
func NewTracker(taxonomy domain.Taxonomy, opts Options) *Tracker {
	if opts.MinCount <= 0 {
		opts.MinCount = defaultMinCount
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultLimit
	}
	return &Tracker{
		known:    taxonomy.AllTerms(),
		counts:   map[string]int{},
		minCount: opts.MinCount,
		limit:    opts.Limit,
	}
}

// Reset drops all counts.
func (t *Tracker) Reset() {
	t.counts = map[string]int{}
}

// Observe counts the tokens of one normalized item.
func (t *Tracker) Observe(item domain.NormalizedItem) {
	for _, tok := range textutil.HangulTokens(strings.ToLower(item.Text()), tokenMin, tokenMax) {
		if t.overlapsTaxonomy(tok) {
			continue
		}
		t.counts[tok]++
	}
}

// Count returns how often a token was seen so far.
func (t *Tracker) Count(token string) int {
	return t.counts[token]
}

// GenerateSuggestions returns tokens seen at least MinCount times, most
// frequent first, capped at Limit.
func (t *Tracker) GenerateSuggestions() []domain.KeywordSuggestion {
	var out []domain.KeywordSuggestion
	for term, n := range t.counts {
		if n >= t.minCount {
			out = append(out, domain.KeywordSuggestion{Term: term, Frequency: n})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Term < out[j].Term
	})

	if len(out) > t.limit {
		out = out[:t.limit]
	}
	return out
}

func (t *Tracker) overlapsTaxonomy(tok string) bool {
	for _, term := range t.known {
		if strings.Contains(term, tok) || strings.Contains(tok, term) {
			return true
		}
	}
	return false
}
