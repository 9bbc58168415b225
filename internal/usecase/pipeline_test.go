package usecase

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"CaseCollector/internal/approval"
	"CaseCollector/internal/classifier"
	"CaseCollector/internal/domain"
	"CaseCollector/internal/filter"
	"CaseCollector/internal/infrastructure/storage"
	"CaseCollector/internal/ports"
)

type fakeSearcher struct {
	results  map[string][]domain.RawItem
	failures map[string]error
	calls    []string
}

func (f *fakeSearcher) Search(_ context.Context, q ports.SearchQuery) ([]domain.RawItem, error) {
	f.calls = append(f.calls, q.Term)
	if err := f.failures[q.Term]; err != nil {
		return nil, err
	}
	return append([]domain.RawItem(nil), f.results[q.Term]...), nil
}

type failingRepo struct {
	*storage.MemoryRepository
	insertErr error
}

func (r *failingRepo) InsertIfAbsent(ctx context.Context, record domain.CaseRecord) (bool, error) {
	if r.insertErr != nil {
		return false, r.insertErr
	}
	return r.MemoryRepository.InsertIfAbsent(ctx, record)
}

type stubClassifier struct {
	result domain.ClassificationResult
	err    error
}

func (s stubClassifier) Name() string { return "stub" }

func (s stubClassifier) Classify(context.Context, domain.NormalizedItem) (domain.ClassificationResult, error) {
	return s.result, s.err
}

type recordingNotifier struct {
	digests []string
}

func (n *recordingNotifier) PublishDigest(_ context.Context, digest string) error {
	n.digests = append(n.digests, digest)
	return nil
}

func blogItem(link, title string) domain.RawItem {
	return domain.RawItem{Title: title, Snippet: "...", Link: link, SourceType: domain.SourceBlog}
}

func newTestPipeline(t *testing.T, searcher ports.Searcher, repo ports.CaseRepository, tiers []CollectionTier) *Pipeline {
	t.Helper()
	return newTestPipelineWith(t, searcher, repo, tiers, nil)
}

func newTestPipelineWith(t *testing.T, searcher ports.Searcher, repo ports.CaseRepository, tiers []CollectionTier, cls ports.Classifier) *Pipeline {
	t.Helper()

	f, err := filter.New(filter.Rules{
		Tiers: []filter.TierRule{
			{Tier: 1, Reason: "experience", Require: [][]string{{"공모전", "팀플"}, {"후기"}}},
			{Tier: 2, Reason: "mention", Require: [][]string{{"공모전", "팀플"}}},
		},
		Gate: filter.GateRule{ActionKeywords: []string{"출시"}},
	})
	if err != nil {
		t.Fatalf("filter.New: %v", err)
	}

	if cls == nil {
		table, err := classifier.DefaultRuleTable()
		if err != nil {
			t.Fatalf("DefaultRuleTable: %v", err)
		}
		cls = classifier.NewRuleBased(table)
	}

	return NewPipeline(PipelineDeps{
		Searcher:   searcher,
		Repository: repo,
		Classifier: cls,
		Filter:     f,
		Router:     approval.NewRouter(approval.DefaultThreshold),
		Taxonomy:   domain.Taxonomy{PrimaryTerms: []string{"팀플", "공모전"}},
		Tiers:      tiers,
		Search:     SearchParams{Count: 100, Start: 1, Sort: "date"},
	})
}

func blogTier(quota int, terms ...string) []CollectionTier {
	return []CollectionTier{{Name: "blog", SourceType: domain.SourceBlog, Terms: terms, Quota: quota}}
}

func TestPipelineEndToEndScenario(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{results: map[string][]domain.RawItem{
		"공모전": {blogItem("https://x/1", "공모전 참가 후기")},
	}}
	repo := storage.NewMemoryRepository()

	report, err := newTestPipeline(t, searcher, repo, blogTier(10, "공모전")).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	cases := repo.Cases()
	if len(cases) != 1 {
		t.Fatalf("expected one stored case, got %d", len(cases))
	}
	got := cases[0]
	if got.Tier != 1 || got.Status != domain.StatusPendingActor {
		t.Fatalf("unexpected tier/status: %d %s", got.Tier, got.Status)
	}
	if !reflect.DeepEqual(got.NeedsReview, []domain.Dimension{domain.DimensionActor}) {
		t.Fatalf("unexpected needsReview: %v", got.NeedsReview)
	}
	if got.Classification.Actor.Label != "학생" || got.Classification.Actor.Confidence != 60 {
		t.Fatalf("unexpected actor: %+v", got.Classification.Actor)
	}
	if got.RunID != report.RunID || got.ReviewedAt != nil {
		t.Fatalf("unexpected run bookkeeping: %+v", got)
	}

	s := report.Summary
	if s.Fetched != 1 || s.Persisted != 1 || s.Pending != 1 || s.AutoApproved != 0 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.ByTier[1] != 1 || s.BySource["blog"] != 1 || s.ByCollection["blog"] != 1 {
		t.Fatalf("unexpected breakdown: %+v", s)
	}

	logs := repo.Logs()
	if len(logs) != 1 || logs[0].RunID != report.RunID || logs[0].Classifier != classifier.StrategyRules {
		t.Fatalf("run log not appended: %+v", logs)
	}
}

func TestPipelineIsIdempotent(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{results: map[string][]domain.RawItem{
		"팀플": {blogItem("https://x/1", "팀플 후기"), blogItem("https://x/2", "공모전 후기")},
	}}
	repo := storage.NewMemoryRepository()
	p := newTestPipeline(t, searcher, repo, blogTier(10, "팀플"))

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if second.Summary.Persisted != 0 || second.Summary.Duplicates != 2 {
		t.Fatalf("second run should only see duplicates: %+v", second.Summary)
	}
	if len(repo.Cases()) != 2 {
		t.Fatalf("expected 2 cases overall, got %d", len(repo.Cases()))
	}
}

func TestPipelineQuotaStopsTier(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{results: map[string][]domain.RawItem{
		"팀플": {
			blogItem("https://x/1", "팀플 후기"),
			blogItem("https://x/2", "팀플 후기"),
			blogItem("https://x/3", "팀플 후기"),
		},
		"공모전": {blogItem("https://x/4", "공모전 후기")},
	}}
	repo := storage.NewMemoryRepository()

	report, err := newTestPipeline(t, searcher, repo, blogTier(2, "팀플", "공모전")).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Summary.Persisted != 2 || len(repo.Cases()) != 2 {
		t.Fatalf("quota not enforced: %+v", report.Summary)
	}
	if !reflect.DeepEqual(searcher.calls, []string{"팀플"}) {
		t.Fatalf("remaining terms must be skipped, calls=%v", searcher.calls)
	}
}

func TestPipelineQuotaIgnoresRejectedItems(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{results: map[string][]domain.RawItem{
		"팀플": {
			blogItem("https://x/1", "오늘 날씨"),
			blogItem("https://x/2", "팀플 후기"),
		},
		"공모전": {blogItem("https://x/3", "공모전 후기")},
	}}
	repo := storage.NewMemoryRepository()

	report, err := newTestPipeline(t, searcher, repo, blogTier(2, "팀플", "공모전")).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Summary.Persisted != 2 || report.Summary.FilteredOut != 1 {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}
}

func TestPipelineFetchFailureContinues(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{
		results:  map[string][]domain.RawItem{"공모전": {blogItem("https://x/1", "공모전 후기")}},
		failures: map[string]error{"팀플": errors.New("upstream 500")},
	}
	repo := storage.NewMemoryRepository()

	report, err := newTestPipeline(t, searcher, repo, blogTier(10, "팀플", "공모전")).Run(context.Background())
	if err != nil {
		t.Fatalf("fetch failure must not abort the run: %v", err)
	}
	if report.Summary.FailedFetches != 1 || report.Summary.Persisted != 1 {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}
}

func TestPipelineStorageFailureAborts(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk full")
	searcher := &fakeSearcher{results: map[string][]domain.RawItem{
		"팀플":  {blogItem("https://x/1", "팀플 후기")},
		"공모전": {blogItem("https://x/2", "공모전 후기")},
	}}
	repo := &failingRepo{MemoryRepository: storage.NewMemoryRepository(), insertErr: boom}

	tiers := []CollectionTier{
		{Name: "first", SourceType: domain.SourceBlog, Terms: []string{"팀플"}, Quota: 10},
		{Name: "second", SourceType: domain.SourceBlog, Terms: []string{"공모전"}, Quota: 10},
	}
	_, err := newTestPipeline(t, searcher, repo, tiers).Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if !reflect.DeepEqual(searcher.calls, []string{"팀플"}) {
		t.Fatalf("run must stop at the failing tier, calls=%v", searcher.calls)
	}
	if len(repo.Logs()) != 0 {
		t.Fatalf("aborted run must not be logged as finished")
	}
}

func TestPipelineDropsUnusableClassifications(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cls  stubClassifier
	}{
		{name: "no result", cls: stubClassifier{err: classifier.ErrNoResult}},
		{name: "not relevant", cls: stubClassifier{err: classifier.ErrNotRelevant}},
		{name: "irrelevant flag", cls: stubClassifier{result: domain.ClassificationResult{IsRelevant: false}}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			searcher := &fakeSearcher{results: map[string][]domain.RawItem{
				"팀플": {blogItem("https://x/1", "팀플 후기")},
			}}
			repo := storage.NewMemoryRepository()

			report, err := newTestPipelineWith(t, searcher, repo, blogTier(10, "팀플"), tc.cls).Run(context.Background())
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if report.Summary.Dropped != 1 || report.Summary.Persisted != 0 || len(repo.Cases()) != 0 {
				t.Fatalf("item should be dropped: %+v", report.Summary)
			}
		})
	}
}

func TestPipelineAmbiguousDimensionsRaiseReviewEntries(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{results: map[string][]domain.RawItem{
		"팀플": {blogItem("https://x/1", "팀플 무임승차 혼자 후기")},
	}}
	repo := storage.NewMemoryRepository()

	report, err := newTestPipeline(t, searcher, repo, blogTier(10, "팀플")).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	reviews := repo.Reviews()
	if len(reviews) != 2 {
		t.Fatalf("expected type and primary category entries, got %+v", reviews)
	}
	for _, entry := range reviews {
		if entry.Kind != domain.QueueKindClassification || entry.Link != "https://x/1" || len(entry.Options) != 2 {
			t.Fatalf("unexpected entry: %+v", entry)
		}
	}
	if reviews[0].Dimension != domain.DimensionType {
		t.Fatalf("first entry dimension = %s, want type", reviews[0].Dimension)
	}
	primary := reviews[1]
	if primary.Dimension != domain.DimensionPrimaryCategory || primary.Options[0].Value != "팀플" || primary.Options[1].Value != "무임승차" {
		t.Fatalf("unexpected primary category entry: %+v", primary)
	}
	if repo.Cases()[0].Status != domain.StatusPendingActor || report.Summary.ReviewEntries != 2 {
		t.Fatalf("unexpected status or count: %s %+v", repo.Cases()[0].Status, report.Summary)
	}
}

func TestPipelineKeywordSuggestions(t *testing.T) {
	t.Parallel()

	items := make([]domain.RawItem, 0, 10)
	for i := 0; i < 10; i++ {
		items = append(items, blogItem(fmt.Sprintf("https://x/%d", i), "노션 정리"))
	}
	searcher := &fakeSearcher{results: map[string][]domain.RawItem{"팀플": items}}
	repo := storage.NewMemoryRepository()

	report, err := newTestPipeline(t, searcher, repo, blogTier(10, "팀플")).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []domain.KeywordSuggestion{{Term: "노션", Frequency: 10}, {Term: "정리", Frequency: 10}}
	if !reflect.DeepEqual(report.Suggestions, want) {
		t.Fatalf("unexpected suggestions: %+v", report.Suggestions)
	}
	if report.Summary.FilteredOut != 10 || report.Summary.ReviewEntries != 2 {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}

	reviews := repo.Reviews()
	if len(reviews) != 2 || reviews[0].Kind != domain.QueueKindKeyword || reviews[0].Term != "노션" {
		t.Fatalf("unexpected keyword entries: %+v", reviews)
	}
}

func TestPipelineRunLock(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{}
	p := newTestPipeline(t, searcher, storage.NewMemoryRepository(), blogTier(10, "팀플"))

	locked := errors.New("locked")
	p.lock = func() (func() error, error) { return nil, locked }
	if _, err := p.Run(context.Background()); !errors.Is(err, locked) {
		t.Fatalf("expected lock error, got %v", err)
	}
	if len(searcher.calls) != 0 {
		t.Fatalf("locked run must not search")
	}

	released := false
	p.lock = func() (func() error, error) {
		return func() error { released = true; return nil }, nil
	}
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !released {
		t.Fatalf("lock not released")
	}
}

func TestPipelineCancelledDuringDelay(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{}
	p := newTestPipeline(t, searcher, storage.NewMemoryRepository(), blogTier(10, "팀플", "공모전"))
	p.delay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(searcher.calls) != 1 {
		t.Fatalf("expected to stop after the first term, calls=%v", searcher.calls)
	}
}

func TestPipelinePublishesDigest(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{results: map[string][]domain.RawItem{
		"공모전": {blogItem("https://x/1", "공모전 참가 후기")},
	}}
	p := newTestPipeline(t, searcher, storage.NewMemoryRepository(), blogTier(10, "공모전"))
	notifier := &recordingNotifier{}
	p.notifier = notifier

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(notifier.digests) != 1 {
		t.Fatalf("expected one digest, got %d", len(notifier.digests))
	}
	digest := notifier.digests[0]
	if !strings.Contains(digest, report.RunID) || !strings.Contains(digest, "persisted 1") || !strings.Contains(digest, "tier 1: 1") {
		t.Fatalf("unexpected digest: %q", digest)
	}
}

func TestPipelineRequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := NewPipeline(PipelineDeps{}).Run(context.Background()); err == nil {
		t.Fatalf("expected configuration error")
	}
}
