package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"CaseCollector/internal/approval"
	"CaseCollector/internal/dedup"
	"CaseCollector/internal/domain"
	"CaseCollector/internal/keywords"
	"CaseCollector/internal/ports"
	"CaseCollector/internal/textutil"
)

// ContentFilter assigns a tier to a normalized item or rejects it.
type ContentFilter interface {
	Evaluate(item domain.NormalizedItem) domain.FilterDecision
}

// CollectionTier is one ordered slice of a run.
type CollectionTier struct {
	Name       string
	SourceType domain.SourceType
	Terms      []string
	Quota      int
}

// SearchParams are passed to every search call.
type SearchParams struct {
	Count int
	Start int
	Sort  string
}

// PipelineDeps lists the collaborators and settings of a collection run.
type PipelineDeps struct {
	Searcher   ports.Searcher
	Repository ports.CaseRepository
	Classifier ports.Classifier
	Filter     ContentFilter
	Router     *approval.Router
	Notifier   ports.Notifier
	Taxonomy   domain.Taxonomy
	Keywords   keywords.Options
	Tiers      []CollectionTier
	Search     SearchParams
	// Delay is slept after every exhausted search term.
	Delay time.Duration
	// Lock, when set, guards against overlapping runs. It returns the release func.
	Lock   func() (func() error, error)
	Logger *slog.Logger
	Clock  func() time.Time
}

// RunContext is the state owned by exactly one run.
type RunContext struct {
	ID        string
	StartedAt time.Time
	Tracker   *keywords.Tracker
	Summary   domain.RunSummary
}

// RunReport is what a finished (or aborted) run hands back to its caller.
type RunReport struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Classifier  string
	Summary     domain.RunSummary
	Suggestions []domain.KeywordSuggestion
}

// Pipeline implements the collection workflow.
type Pipeline struct {
	searcher   ports.Searcher
	repository ports.CaseRepository
	dedup      *dedup.Deduplicator
	classifier ports.Classifier
	filter     ContentFilter
	router     *approval.Router
	notifier   ports.Notifier
	taxonomy   domain.Taxonomy
	keywords   keywords.Options
	tiers      []CollectionTier
	search     SearchParams
	delay      time.Duration
	lock       func() (func() error, error)
	logger     *slog.Logger
	now        func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	router := deps.Router
	if router == nil {
		router = approval.NewRouter(approval.DefaultThreshold)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Pipeline{
		searcher:   deps.Searcher,
		repository: deps.Repository,
		dedup:      dedup.New(deps.Repository),
		classifier: deps.Classifier,
		filter:     deps.Filter,
		router:     router,
		notifier:   deps.Notifier,
		taxonomy:   deps.Taxonomy,
		keywords:   deps.Keywords,
		tiers:      deps.Tiers,
		search:     deps.Search,
		delay:      deps.Delay,
		lock:       deps.Lock,
		logger:     logger,
		now:        clock,
	}
}

// ClassifierName reports the configured strategy.
func (p *Pipeline) ClassifierName() string {
	if p.classifier == nil {
		return ""
	}
	return p.classifier.Name()
}

// Run executes one collection pass over every tier. A storage failure aborts
// the run; the returned report then holds the counts reached so far.
func (p *Pipeline) Run(ctx context.Context) (RunReport, error) {
	if p.searcher == nil || p.repository == nil || p.classifier == nil || p.filter == nil {
		return RunReport{}, fmt.Errorf("pipeline not configured")
	}

	if p.lock != nil {
		release, err := p.lock()
		if err != nil {
			return RunReport{}, fmt.Errorf("acquire run lock: %w", err)
		}
		defer func() {
			if rErr := release(); rErr != nil {
				p.logger.Warn("release run lock", "error", rErr)
			}
		}()
	}

	rc := p.newRunContext()
	log := p.logger.With("run_id", rc.ID)
	log.Info("run started", "tiers", len(p.tiers), "classifier", p.classifier.Name())

	report := RunReport{RunID: rc.ID, StartedAt: rc.StartedAt, Classifier: p.classifier.Name()}

	for _, tier := range p.tiers {
		if err := p.collectTier(ctx, rc, tier, log); err != nil {
			report.FinishedAt = p.now()
			report.Summary = rc.Summary
			log.Error("run aborted", "collection", tier.Name, "error", err)
			return report, err
		}
	}

	report.Suggestions = rc.Tracker.GenerateSuggestions()
	if entries := p.router.KeywordEntries(rc.ID, report.Suggestions); len(entries) > 0 {
		if err := p.repository.EnqueueReview(ctx, entries...); err != nil {
			report.FinishedAt = p.now()
			report.Summary = rc.Summary
			return report, fmt.Errorf("enqueue keyword suggestions: %w", err)
		}
		rc.Summary.ReviewEntries += len(entries)
	}

	report.FinishedAt = p.now()
	report.Summary = rc.Summary

	err := p.repository.AppendLog(ctx, domain.RunLogEntry{
		RunID:      rc.ID,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Classifier: report.Classifier,
		Summary:    report.Summary,
	})
	if err != nil {
		return report, fmt.Errorf("append run log: %w", err)
	}

	log.Info("run finished",
		"fetched", report.Summary.Fetched,
		"persisted", report.Summary.Persisted,
		"auto_approved", report.Summary.AutoApproved,
		"pending", report.Summary.Pending,
		"suggestions", len(report.Suggestions))

	if p.notifier != nil {
		if nErr := p.notifier.PublishDigest(ctx, BuildDigestMessage(report)); nErr != nil {
			log.Warn("publish digest", "error", nErr)
		}
	}

	return report, nil
}

func (p *Pipeline) newRunContext() *RunContext {
	started := p.now()
	return &RunContext{
		ID:        ulid.MustNew(ulid.Timestamp(started), ulid.DefaultEntropy()).String(),
		StartedAt: started,
		Tracker:   keywords.NewTracker(p.taxonomy, p.keywords),
		Summary:   domain.NewRunSummary(),
	}
}

func (p *Pipeline) collectTier(ctx context.Context, rc *RunContext, tier CollectionTier, log *slog.Logger) error {
	log = log.With("collection", tier.Name, "source", tier.SourceType)
	persisted := 0

	for _, term := range tier.Terms {
		items, err := p.searcher.Search(ctx, ports.SearchQuery{
			Term:       term,
			SourceType: tier.SourceType,
			Count:      p.search.Count,
			Offset:     p.search.Start,
			Sort:       p.search.Sort,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("search failed", "term", term, "error", err)
			rc.Summary.FailedFetches++
			items = nil
		}
		rc.Summary.Fetched += len(items)
		log.Info("term fetched", "term", term, "items", len(items))

		for _, raw := range items {
			stored, err := p.processItem(ctx, rc, tier, raw, log)
			if err != nil {
				return err
			}
			if !stored {
				continue
			}
			persisted++
			if tier.Quota > 0 && persisted >= tier.Quota {
				log.Info("quota reached", "quota", tier.Quota)
				return nil
			}
		}

		if err := sleep(ctx, p.delay); err != nil {
			return err
		}
	}

	log.Info("collection exhausted", "persisted", persisted, "quota", tier.Quota)
	return nil
}

// processItem reports whether a new case was stored. Only storage failures and
// cancellation are returned as errors.
func (p *Pipeline) processItem(ctx context.Context, rc *RunContext, tier CollectionTier, raw domain.RawItem, log *slog.Logger) (bool, error) {
	item := textutil.NormalizeItem(raw)

	dup, err := p.dedup.IsDuplicate(ctx, item.Link)
	if err != nil {
		return false, fmt.Errorf("dedup: %w", err)
	}
	if dup {
		rc.Summary.Duplicates++
		log.Debug("duplicate skipped", "link", item.Link)
		return false, nil
	}

	rc.Tracker.Observe(item)

	decision := p.filter.Evaluate(item)
	if !decision.Pass {
		rc.Summary.FilteredOut++
		log.Debug("filtered out", "link", item.Link, "reason", decision.Reason)
		return false, nil
	}

	result, err := p.classifier.Classify(ctx, item)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		rc.Summary.Dropped++
		log.Debug("classification dropped", "link", item.Link, "error", err)
		return false, nil
	}
	if !result.IsRelevant {
		rc.Summary.Dropped++
		log.Debug("not relevant", "link", item.Link)
		return false, nil
	}

	routed := p.router.Route(rc.ID, item.Link, result)
	record := domain.CaseRecord{
		Link:           item.Link,
		Title:          item.Title,
		Snippet:        item.Snippet,
		SourceType:     item.SourceType,
		PublishedAt:    item.PublishedAt,
		SearchTerm:     item.SearchTerm,
		Tier:           decision.Tier,
		FilterReason:   decision.Reason,
		Classification: result,
		Status:         routed.Status,
		NeedsReview:    routed.NeedsReview,
		RunID:          rc.ID,
		CreatedAt:      p.now(),
	}

	inserted, err := p.repository.InsertIfAbsent(ctx, record)
	if err != nil {
		return false, fmt.Errorf("persist case %s: %w", item.Link, err)
	}
	if !inserted {
		rc.Summary.Duplicates++
		log.Debug("lost insert race", "link", item.Link)
		return false, nil
	}

	if len(routed.Entries) > 0 {
		if err := p.repository.EnqueueReview(ctx, routed.Entries...); err != nil {
			return false, fmt.Errorf("enqueue review for %s: %w", item.Link, err)
		}
		rc.Summary.ReviewEntries += len(routed.Entries)
	}

	rc.Summary.Persisted++
	rc.Summary.ByTier[decision.Tier]++
	rc.Summary.BySource[string(item.SourceType)]++
	rc.Summary.ByCollection[tier.Name]++
	if routed.Status.Pending() {
		rc.Summary.Pending++
	} else {
		rc.Summary.AutoApproved++
	}

	log.Debug("case stored", "link", item.Link, "tier", decision.Tier, "status", routed.Status)
	return true, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BuildDigestMessage renders a short plain-text run summary.
func BuildDigestMessage(report RunReport) string {
	var b strings.Builder
	s := report.Summary
	fmt.Fprintf(&b, "Run %s (%s)\n", report.RunID, report.Classifier)
	fmt.Fprintf(&b, "fetched %d, duplicates %d, filtered %d, dropped %d\n", s.Fetched, s.Duplicates, s.FilteredOut, s.Dropped)
	fmt.Fprintf(&b, "persisted %d: auto-approved %d, pending %d\n", s.Persisted, s.AutoApproved, s.Pending)

	tiers := make([]int, 0, len(s.ByTier))
	for tier := range s.ByTier {
		tiers = append(tiers, tier)
	}
	sort.Ints(tiers)
	for _, tier := range tiers {
		fmt.Fprintf(&b, "tier %d: %d\n", tier, s.ByTier[tier])
	}

	if len(report.Suggestions) > 0 {
		terms := make([]string, 0, len(report.Suggestions))
		for _, sg := range report.Suggestions {
			terms = append(terms, fmt.Sprintf("%s(%d)", sg.Term, sg.Frequency))
		}
		fmt.Fprintf(&b, "suggested terms: %s\n", strings.Join(terms, ", "))
	}
	return b.String()
}

