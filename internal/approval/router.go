// Package approval turns classifier confidences into a review status and
// the review queue entries that go with it.
package approval

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"CaseCollector/internal/domain"
)

// DefaultThreshold is the minimum confidence for a dimension to count as confident.
const DefaultThreshold = 80

// Decision is the routing outcome for a single classified item.
type Decision struct {
	Status      domain.Status
	NeedsReview []domain.Dimension
	Entries     []domain.ApprovalQueueEntry
}

// Router derives status from confidence and raises queue entries.
type Router struct {
	threshold int
	now       func() time.Time

	mu      sync.Mutex
	entropy io.Reader
}

// NewRouter builds a router; a non-positive threshold falls back to DefaultThreshold.
func NewRouter(threshold int) *Router {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Router{
		threshold: threshold,
		now:       time.Now,
		entropy:   ulid.Monotonic(rand.Reader, 0),
	}
}

// Confident reports whether a confidence clears the threshold (inclusive).
func (r *Router) Confident(confidence int) bool {
	return confidence >= r.threshold
}

// Route computes status and review set, plus one disambiguation entry for
// every dimension with more than one candidate. Ambiguity never changes
// the status.
func (r *Router) Route(runID, link string, result domain.ClassificationResult) Decision {
	actorOK := r.Confident(result.Actor.Confidence)
	typeOK := r.Confident(result.TeamType.Confidence)

	var d Decision
	switch {
	case actorOK && typeOK:
		d.Status = domain.StatusAutoApproved
		d.NeedsReview = []domain.Dimension{}
	case !actorOK && typeOK:
		d.Status = domain.StatusPendingActor
		d.NeedsReview = []domain.Dimension{domain.DimensionActor}
	case actorOK && !typeOK:
		d.Status = domain.StatusPendingType
		d.NeedsReview = []domain.Dimension{domain.DimensionType}
	default:
		d.Status = domain.StatusPendingBoth
		d.NeedsReview = []domain.Dimension{domain.DimensionActor, domain.DimensionType}
	}

	if result.Actor.Ambiguous() {
		d.Entries = append(d.Entries, r.disambiguation(runID, link, domain.DimensionActor, result.Actor.Candidates))
	}
	if result.TeamType.Ambiguous() {
		d.Entries = append(d.Entries, r.disambiguation(runID, link, domain.DimensionType, result.TeamType.Candidates))
	}
	if result.PrimaryCategory.Ambiguous() {
		d.Entries = append(d.Entries, r.disambiguation(runID, link, domain.DimensionPrimaryCategory, result.PrimaryCategory.Candidates))
	}

	return d
}

// KeywordEntries wraps suggestions as keyword promotion entries.
func (r *Router) KeywordEntries(runID string, suggestions []domain.KeywordSuggestion) []domain.ApprovalQueueEntry {
	entries := make([]domain.ApprovalQueueEntry, 0, len(suggestions))
	for _, s := range suggestions {
		entries = append(entries, domain.ApprovalQueueEntry{
			ID:        r.newID(),
			Kind:      domain.QueueKindKeyword,
			RunID:     runID,
			Term:      s.Term,
			Frequency: s.Frequency,
			Options: []domain.QueueOption{
				{Value: domain.OptionPromotePrimary},
				{Value: domain.OptionPromoteSecondary},
				{Value: domain.OptionReject},
			},
			CreatedAt: r.now().UTC(),
		})
	}
	return entries
}

func (r *Router) disambiguation(runID, link string, dim domain.Dimension, candidates []domain.Candidate) domain.ApprovalQueueEntry {
	options := make([]domain.QueueOption, len(candidates))
	for i, c := range candidates {
		options[i] = domain.QueueOption{Value: c.Label, Confidence: c.Confidence}
	}
	return domain.ApprovalQueueEntry{
		ID:        r.newID(),
		Kind:      domain.QueueKindClassification,
		RunID:     runID,
		Link:      link,
		Dimension: dim,
		Options:   options,
		CreatedAt: r.now().UTC(),
	}
}

func (r *Router) newID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(r.now()), r.entropy).String()
}
