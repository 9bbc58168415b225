package domain

import (
	"strings"
	"time"
)

// Taxonomy is the vocabulary the filter and the keyword tracker read.
// It only changes through the external approval workflow.
type Taxonomy struct {
	PrimaryTerms   []string `yaml:"primaryTerms"`
	SecondaryTerms []string `yaml:"secondaryTerms"`
	ExcludedTerms  []string `yaml:"excludedTerms"`
}

// AllTerms returns primary, secondary and excluded terms, lower-cased.
func (t Taxonomy) AllTerms() []string {
	all := make([]string, 0, len(t.PrimaryTerms)+len(t.SecondaryTerms)+len(t.ExcludedTerms))
	for _, group := range [][]string{t.PrimaryTerms, t.SecondaryTerms, t.ExcludedTerms} {
		for _, term := range group {
			if term = strings.ToLower(strings.TrimSpace(term)); term != "" {
				all = append(all, term)
			}
		}
	}
	return all
}

// KeywordSuggestion is a frequent uncatalogued term seen during a run.
type KeywordSuggestion struct {
	Term      string `json:"term"`
	Frequency int    `json:"frequency"`
}

// QueueKind separates the two kinds of review work.
type QueueKind string

const (
	QueueKindClassification QueueKind = "classification"
	QueueKindKeyword        QueueKind = "keyword"
)

// Keyword decision options offered to reviewers.
const (
	OptionPromotePrimary   = "promote-primary"
	OptionPromoteSecondary = "promote-secondary"
	OptionReject           = "reject"
)

// QueueOption is a selectable choice for the reviewer.
type QueueOption struct {
	Value      string `json:"value"`
	Confidence int    `json:"confidence,omitempty"`
}

// ApprovalQueueEntry is a pending human decision.
// Classification entries set Link and Dimension; keyword entries set Term and Frequency.
type ApprovalQueueEntry struct {
	ID        string
	Kind      QueueKind
	RunID     string
	Link      string
	Dimension Dimension
	Term      string
	Frequency int
	Options   []QueueOption
	CreatedAt time.Time
}
