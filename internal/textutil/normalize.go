// Package textutil holds the text helpers shared by the filter, the classifier
// and the keyword tracker.
package textutil

import (
	"regexp"
	"strings"

	"CaseCollector/internal/domain"
)

// tagExpr strips anything that looks like a tag. Nested or broken markup is
// handled by the same rule, no attempt is made to parse HTML.
var tagExpr = regexp.MustCompile(`<[^>]*>`)

// Only these three entities are decoded; everything else passes through.
var entityReplacer = strings.NewReplacer(
	"&quot;", `"`,
	"&amp;", "&",
	"&nbsp;", " ",
)

// Normalize removes tags and decodes the recognized entities.
func Normalize(raw string) string {
	if raw == "" {
		return raw
	}
	stripped := tagExpr.ReplaceAllString(raw, "")
	return entityReplacer.Replace(stripped)
}

// NormalizeItem applies Normalize to the title and snippet of a raw item.
func NormalizeItem(item domain.RawItem) domain.NormalizedItem {
	item.Title = Normalize(item.Title)
	item.Snippet = Normalize(item.Snippet)
	return domain.NormalizedItem{RawItem: item}
}
