package keywords

import (
	"strings"
	"testing"

	"CaseCollector/internal/domain"
)

func observeN(tr *Tracker, text string, n int) {
	for i := 0; i < n; i++ {
		tr.Observe(domain.NormalizedItem{RawItem: domain.RawItem{Title: text}})
	}
}

func TestSuggestions_Threshold(t *testing.T) {
	t.Parallel()

	tr := NewTracker(domain.Taxonomy{}, Options{})
	observeN(tr, "노션", 9)
	if got := tr.GenerateSuggestions(); len(got) != 0 {
		t.Fatalf("9 occurrences must not suggest, got %v", got)
	}

	observeN(tr, "노션", 1)
	got := tr.GenerateSuggestions()
	if len(got) != 1 || got[0].Term != "노션" || got[0].Frequency != 10 {
		t.Fatalf("expected one suggestion for 노션 x10, got %v", got)
	}
}

func TestSuggestions_SkipsTaxonomyOverlap(t *testing.T) {
	t.Parallel()

	tax := domain.Taxonomy{
		PrimaryTerms:  []string{"팀프로젝트"},
		ExcludedTerms: []string{"광고"},
	}
	tr := NewTracker(tax, Options{})

	// substring of a taxonomy term
	observeN(tr, "프로젝트", 12)
	// superstring of a taxonomy term
	observeN(tr, "광고글", 12)
	// unrelated
	observeN(tr, "슬랙", 12)

	got := tr.GenerateSuggestions()
	if len(got) != 1 || got[0].Term != "슬랙" {
		t.Fatalf("expected only 슬랙, got %v", got)
	}
	if tr.Count("프로젝트") != 0 || tr.Count("광고글") != 0 {
		t.Fatalf("overlapping tokens must not be counted")
	}
}

func TestSuggestions_OrderAndLimit(t *testing.T) {
	t.Parallel()

	tr := NewTracker(domain.Taxonomy{}, Options{})
	terms := []string{"가가", "나나", "다다", "라라", "마마", "바바"}
	for i, term := range terms {
		observeN(tr, term, 10+i)
	}

	got := tr.GenerateSuggestions()
	if len(got) != 5 {
		t.Fatalf("expected top 5, got %d: %v", len(got), got)
	}
	if got[0].Term != "바바" || got[0].Frequency != 15 {
		t.Fatalf("most frequent first, got %v", got[0])
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Frequency < got[i].Frequency {
			t.Fatalf("not sorted desc: %v", got)
		}
	}
	for _, s := range got {
		if s.Term == "가가" {
			t.Fatalf("least frequent should be truncated: %v", got)
		}
	}
}

func TestReset(t *testing.T) {
	t.Parallel()

	tr := NewTracker(domain.Taxonomy{}, Options{MinCount: 1})
	observeN(tr, "회고록", 3)
	tr.Reset()
	if got := tr.GenerateSuggestions(); len(got) != 0 {
		t.Fatalf("reset should clear counts, got %v", got)
	}
}

func TestObserve_LongRunsChunked(t *testing.T) {
	t.Parallel()

	tr := NewTracker(domain.Taxonomy{}, Options{MinCount: 1})
	tr.Observe(domain.NormalizedItem{RawItem: domain.RawItem{Title: strings.Repeat("가", 7)}})
	if tr.Count("가가가가가") != 1 || tr.Count("가가") != 1 {
		t.Fatalf("expected 5+2 chunking")
	}
}
