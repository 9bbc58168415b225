package domain

import "time"

// SourceType tells which search vertical produced an item.
type SourceType string

const (
	SourceBlog SourceType = "blog"
	SourceNews SourceType = "news"
)

// Valid reports whether the source type is one the pipeline knows how to filter.
func (s SourceType) Valid() bool {
	return s == SourceBlog || s == SourceNews
}

// RawItem is a single search hit as returned by a search provider.
type RawItem struct {
	Title       string
	Snippet     string
	Link        string
	SourceType  SourceType
	PublishedAt time.Time
	SearchTerm  string
}

// NormalizedItem is a RawItem with markup stripped from title and snippet.
type NormalizedItem struct {
	RawItem
}

// Text joins title and snippet; filters and trackers work on this.
func (n NormalizedItem) Text() string {
	if n.Snippet == "" {
		return n.Title
	}
	return n.Title + " " + n.Snippet
}

// FilterDecision is the outcome of the tiered content filter. Tier 0 means rejected.
type FilterDecision struct {
	Pass   bool
	Tier   int
	Reason string
}

// Rejected builds a failing decision with the given reason.
func Rejected(reason string) FilterDecision {
	return FilterDecision{Pass: false, Tier: 0, Reason: reason}
}

// Status is the review state of a persisted case.
type Status string

const (
	StatusAutoApproved Status = "auto-approved"
	StatusPendingActor Status = "pending-actor"
	StatusPendingType  Status = "pending-type"
	StatusPendingBoth  Status = "pending-both"
)

// Pending reports whether a human still has to look at the record.
func (s Status) Pending() bool {
	return s != StatusAutoApproved
}

// Dimension names an independently classified axis.
type Dimension string

const (
	DimensionActor           Dimension = "actor"
	DimensionType            Dimension = "type"
	DimensionPrimaryCategory Dimension = "primaryCategory"
)

// CaseRecord is what gets persisted for every accepted item. Link is the identity key.
type CaseRecord struct {
	Link           string
	Title          string
	Snippet        string
	SourceType     SourceType
	PublishedAt    time.Time
	SearchTerm     string
	Tier           int
	FilterReason   string
	Classification ClassificationResult
	Status         Status
	NeedsReview    []Dimension
	ReviewedAt     *time.Time
	RunID          string
	CreatedAt      time.Time
}

// RunLogEntry is appended to storage once per finished run.
type RunLogEntry struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Classifier string
	Summary    RunSummary
}

// RunSummary aggregates run statistics for logging and notification.
type RunSummary struct {
	Fetched       int            `json:"fetched"`
	Duplicates    int            `json:"duplicates"`
	FilteredOut   int            `json:"filteredOut"`
	Dropped       int            `json:"dropped"`
	Persisted     int            `json:"persisted"`
	AutoApproved  int            `json:"autoApproved"`
	Pending       int            `json:"pending"`
	ReviewEntries int            `json:"reviewEntries"`
	FailedFetches int            `json:"failedFetches"`
	ByTier        map[int]int    `json:"byTier"`
	BySource      map[string]int `json:"bySource"`
	ByCollection  map[string]int `json:"byCollection"`
}

// NewRunSummary returns a summary with initialized maps.
func NewRunSummary() RunSummary {
	return RunSummary{
		ByTier:       map[int]int{},
		BySource:     map[string]int{},
		ByCollection: map[string]int{},
	}
}
