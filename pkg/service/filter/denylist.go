// Package filter provides the deterministic backstop that rejects extracted
// candidates discussing the memory system itself rather than the user. The
// extraction prompt already forbids such candidates, but the model cannot be
// trusted to always honor it.
package filter

import "strings"

// Func reports whether a candidate's content should be rejected. The
// pipeline treats it as a swappable policy: a stricter matcher can replace
// the denylist without touching pipeline control flow.
type Func func(content string) bool

// DefaultDenylist covers meta/self-referential terms in the deployment's
// source language: the memory system, extraction, debugging and deployment
// process talk.
func DefaultDenylist() []string {
	return []string{
		"记忆系统",
		"记忆提取",
		"记忆遗漏",
		"没有被记录",
		"没有被提取",
		"技术调试",
		"bug修复",
		"部署过程",
		"检索机制",
	}
}

// NewDenylist builds a Func that rejects content containing any of the
// given terms. Matching is case-sensitive substring containment, no
// normalization. An empty term list rejects nothing.
func NewDenylist(terms []string) Func {
	// Copy so later mutation of the caller's slice has no effect.
	denied := make([]string, 0, len(terms))
	for _, term := range terms {
		if term != "" {
			denied = append(denied, term)
		}
	}

	return func(content string) bool {
		for _, term := range denied {
			if strings.Contains(content, term) {
				return true
			}
		}
		return false
	}
}
