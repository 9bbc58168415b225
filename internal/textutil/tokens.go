package textutil

import (
	"fmt"
	"regexp"
	"sync"
)

var (
	tokenExprMu sync.Mutex
	tokenExprs  = map[[2]int]*regexp.Regexp{}
)

// HangulTokens returns the contiguous Hangul-syllable runs of text, chunked
// left to right into pieces of minLen..maxLen syllables. A run longer than
// maxLen yields several tokens; a trailing remainder shorter than minLen is dropped.
func HangulTokens(text string, minLen, maxLen int) []string {
	if text == "" || minLen <= 0 || maxLen < minLen {
		return nil
	}
	return tokenExpr(minLen, maxLen).FindAllString(text, -1)
}

// CountTokens tallies tokens, ignoring anything in skip.
func CountTokens(tokens []string, skip map[string]struct{}) map[string]int {
	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		if _, ok := skip[tok]; ok {
			continue
		}
		counts[tok]++
	}
	return counts
}

func tokenExpr(minLen, maxLen int) *regexp.Regexp {
	key := [2]int{minLen, maxLen}

	tokenExprMu.Lock()
	defer tokenExprMu.Unlock()

	if expr, ok := tokenExprs[key]; ok {
		return expr
	}
	expr := regexp.MustCompile(fmt.Sprintf(`[가-힣]{%d,%d}`, minLen, maxLen))
	tokenExprs[key] = expr
	return expr
}
