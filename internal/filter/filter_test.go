package filter

import (
	"strings"
	"testing"

	"CaseCollector/internal/domain"
)

func testRules() Rules {
	return Rules{
		Tiers: []TierRule{
			{Tier: 1, Reason: "primary with testimonial", Require: [][]string{{"공모전", "팀플"}, {"후기", "경험담"}}},
			{Tier: 2, Reason: "primary only", Require: [][]string{{"공모전", "팀플", "Hackathon"}}},
			{Tier: 3, Reason: "collaboration conflict", Require: [][]string{{"협업"}, {"갈등"}}},
		},
		Gate: GateRule{
			ActionKeywords: []string{"출시", "선정"},
			Stopwords:      []string{"오늘"},
			MinRepeat:      3,
		},
		Excluded: []string{"광고"},
	}
}

func item(source domain.SourceType, title, snippet string) domain.NormalizedItem {
	return domain.NormalizedItem{RawItem: domain.RawItem{Title: title, Snippet: snippet, SourceType: source, Link: "https://x/1"}}
}

func mustFilter(t *testing.T) *ContentFilter {
	t.Helper()
	f, err := New(testRules())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func TestTiered_FirstMatchWins(t *testing.T) {
	t.Parallel()
	f := mustFilter(t)

	// satisfies both tier 1 and tier 2
	got := f.Evaluate(item(domain.SourceBlog, "공모전 참가 후기", "..."))
	if !got.Pass || got.Tier != 1 {
		t.Fatalf("expected tier 1, got %+v", got)
	}
	if got.Reason != "primary with testimonial" {
		t.Fatalf("unexpected reason %q", got.Reason)
	}
}

func TestTiered_Table(t *testing.T) {
	t.Parallel()
	f := mustFilter(t)

	tests := []struct {
		name  string
		title string
		tier  int
	}{
		{name: "primary only", title: "팀플 이야기", tier: 2},
		{name: "disjoint and", title: "동아리 협업 중 갈등", tier: 3},
		{name: "half of disjoint and", title: "협업 도구 추천", tier: 0},
		{name: "nothing", title: "오늘의 점심", tier: 0},
		{name: "excluded beats tier 1", title: "공모전 후기 광고", tier: 0},
		{name: "case insensitive", title: "HACKATHON 참가", tier: 2},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := f.Evaluate(item(domain.SourceBlog, tc.title, ""))
			if got.Tier != tc.tier {
				t.Fatalf("tier = %d, want %d (%+v)", got.Tier, tc.tier, got)
			}
			if got.Pass != (tc.tier > 0) {
				t.Fatalf("pass flag inconsistent with tier: %+v", got)
			}
		})
	}
}

func TestGated(t *testing.T) {
	t.Parallel()
	f := mustFilter(t)

	pass := f.Evaluate(item(domain.SourceNews,
		"삼성전자 신제품 출시",
		"삼성전자 는 오늘 발표했다. 삼성전자 관계자는 오늘 오늘 말했다"))
	if !pass.Pass || pass.Tier != 1 {
		t.Fatalf("expected pass on tier 1, got %+v", pass)
	}
	if !strings.Contains(pass.Reason, "삼성전자(3)") {
		t.Fatalf("reason should name the entity: %q", pass.Reason)
	}
	if strings.Contains(pass.Reason, "오늘") {
		t.Fatalf("stopword leaked into reason: %q", pass.Reason)
	}

	noAction := f.Evaluate(item(domain.SourceNews, "삼성전자 삼성전자 삼성전자", ""))
	if noAction.Pass || noAction.Tier != 0 {
		t.Fatalf("expected rejection without action keyword, got %+v", noAction)
	}

	twice := f.Evaluate(item(domain.SourceNews, "카카오 출시", "카카오 발표"))
	if twice.Pass {
		t.Fatalf("two occurrences must not pass: %+v", twice)
	}
}

func TestNew_RejectsDuplicateTiers(t *testing.T) {
	t.Parallel()

	_, err := New(Rules{Tiers: []TierRule{
		{Tier: 1, Require: [][]string{{"a"}}},
		{Tier: 1, Require: [][]string{{"b"}}},
	}})
	if err == nil {
		t.Fatalf("expected duplicate tier error")
	}

	if _, err := New(Rules{Tiers: []TierRule{{Tier: 0, Require: [][]string{{"a"}}}}}); err == nil {
		t.Fatalf("expected non-positive tier error")
	}
}

func TestUnknownSourceRejected(t *testing.T) {
	t.Parallel()
	f := mustFilter(t)

	got := f.Evaluate(item(domain.SourceType("forum"), "공모전 후기", ""))
	if got.Pass {
		t.Fatalf("unknown source must be rejected: %+v", got)
	}
}
