// Package keyword turns free text into matchable search tokens. It is
// script-aware: Latin words and numerals are kept verbatim, while CJK runs
// are split into overlapping bigrams and trigrams because there is no
// whitespace to segment on.
package keyword

import (
	"regexp"
	"sort"
)

var (
	alnumPattern = regexp.MustCompile(`[a-zA-Z0-9]{2,}`)
	digitPattern = regexp.MustCompile(`[0-9]{2,}`)
)

// isCJK reports whether r is a CJK unified ideograph (including extension A)
func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) || (r >= 0x3400 && r <= 0x4DBF)
}

// Extract returns the deduplicated token set for text, sorted for
// determinism. It is pure and total: any input yields a (possibly empty)
// slice, never an error.
//
// Examples:
//
//	"春节干了什么" → 春节 节干 干了 了什 什么 春节干 节干了 干了什 了什么
//	"Garan春节"   → Garan 春节
//	"2026除夕"    → 2026 除夕
func Extract(text string) []string {
	tokens := make(map[string]struct{})

	for _, word := range alnumPattern.FindAllString(text, -1) {
		tokens[word] = struct{}{}
	}

	// Digit runs are added separately so numerals inside mixed alnum runs
	// (years, IDs) survive as their own tokens.
	for _, num := range digitPattern.FindAllString(text, -1) {
		tokens[num] = struct{}{}
	}

	var run []rune
	for _, r := range text {
		if isCJK(r) {
			run = append(run, r)
			continue
		}
		addCJKNgrams(run, tokens)
		run = run[:0]
	}
	addCJKNgrams(run, tokens)

	result := make([]string, 0, len(tokens))
	for tok := range tokens {
		result = append(result, tok)
	}
	sort.Strings(result)
	return result
}

// addCJKNgrams splits a run of consecutive CJK characters into 2-gram and
// 3-gram tokens. Runs shorter than 2 characters are discarded; a run of 2 or
// 3 characters is also kept whole.
func addCJKNgrams(run []rune, tokens map[string]struct{}) {
	if len(run) < 2 {
		return
	}
	if len(run) <= 3 {
		tokens[string(run)] = struct{}{}
	}
	for i := 0; i+2 <= len(run); i++ {
		tokens[string(run[i:i+2])] = struct{}{}
	}
	if len(run) >= 3 {
		for i := 0; i+3 <= len(run); i++ {
			tokens[string(run[i:i+3])] = struct{}{}
		}
	}
}
