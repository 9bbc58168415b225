package ports

import (
	"context"
	"time"

	"CaseCollector/internal/domain"
)

// SearchQuery describes a single search call.
type SearchQuery struct {
	Term       string
	SourceType domain.SourceType
	Count      int
	Offset     int
	Sort       string
}

// Searcher pulls raw items for a term from an upstream search provider.
type Searcher interface {
	Search(ctx context.Context, query SearchQuery) ([]domain.RawItem, error)
}

// CaseRepository persists cases, review entries and run logs.
type CaseRepository interface {
	Exists(ctx context.Context, link string) (bool, error)
	// InsertIfAbsent stores the record unless a record with the same link exists.
	// It reports whether a row was written.
	InsertIfAbsent(ctx context.Context, record domain.CaseRecord) (bool, error)
	EnqueueReview(ctx context.Context, entries ...domain.ApprovalQueueEntry) error
	AppendLog(ctx context.Context, entry domain.RunLogEntry) error
}

// ReviewQueue reads pending review entries back out of storage.
type ReviewQueue interface {
	PendingReviews(ctx context.Context, kind domain.QueueKind) ([]domain.ApprovalQueueEntry, error)
}

// Classifier labels a normalized item on every dimension.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, item domain.NormalizedItem) (domain.ClassificationResult, error)
}

// Oracle is an external analysis service answering in free-form text.
type Oracle interface {
	Analyze(ctx context.Context, title, snippet string) (string, error)
}

// Notifier streams run digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
