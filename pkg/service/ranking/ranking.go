// Package ranking scores stored memories against a tokenized query. The
// score blends keyword hit ratio, caller-assigned importance and a
// continuous recency decay; the weights are tunable per deployment.
package ranking

import (
	"sort"
	"strings"
	"time"

	"github.com/mnemo-lab/mnemo/pkg/domain/model"
)

// Weights controls the contribution of each scoring term. The values need
// not sum to 1.
type Weights struct {
	Keyword    float64
	Importance float64
	Recency    float64
}

// DefaultWeights returns the standard 0.5 / 0.3 / 0.2 split
func DefaultWeights() Weights {
	return Weights{
		Keyword:    0.5,
		Importance: 0.3,
		Recency:    0.2,
	}
}

// Hits counts how many distinct tokens appear in content as a
// case-insensitive substring. Tokens may match inside longer words.
func Hits(content string, tokens []string) int {
	lower := strings.ToLower(content)
	hits := 0
	for _, tok := range tokens {
		if strings.Contains(lower, strings.ToLower(tok)) {
			hits++
		}
	}
	return hits
}

// Score computes the blended relevance of a memory that matched hits of
// total query tokens at time now.
//
// Recency decays by fractional days since creation: same day ≈ 1.0, one day
// old ≈ 0.5, seven days old ≈ 0.125.
func (w Weights) Score(mem *model.Memory, hits, total int, now time.Time) float64 {
	hitRatio := float64(hits) / float64(total)
	importanceNorm := float64(mem.Importance) / 10.0

	ageDays := now.Sub(mem.CreatedAt).Hours() / 24.0
	if ageDays < 0 {
		ageDays = 0
	}
	recency := 1.0 / (1.0 + ageDays)

	return w.Keyword*hitRatio + w.Importance*importanceNorm + w.Recency*recency
}

// Rank filters candidates to those containing at least one token, scores
// them, and returns up to limit results ordered by score descending with
// importance and recency tie-breaks.
func (w Weights) Rank(memories []*model.Memory, tokens []string, now time.Time, limit int) []*model.SearchResult {
	if len(tokens) == 0 {
		return nil
	}

	results := make([]*model.SearchResult, 0, len(memories))
	for _, mem := range memories {
		hits := Hits(mem.Content, tokens)
		if hits == 0 {
			continue
		}
		results = append(results, &model.SearchResult{
			Memory:   mem,
			Score:    w.Score(mem, hits, len(tokens), now),
			HitCount: hits,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Memory.Importance != results[j].Memory.Importance {
			return results[i].Memory.Importance > results[j].Memory.Importance
		}
		return results[i].Memory.CreatedAt.After(results[j].Memory.CreatedAt)
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
