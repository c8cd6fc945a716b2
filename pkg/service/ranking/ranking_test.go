package ranking_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/service/keyword"
	"github.com/mnemo-lab/mnemo/pkg/service/ranking"
)

func mem(content string, importance int, createdAt time.Time) *model.Memory {
	return &model.Memory{
		Content:    content,
		Importance: importance,
		CreatedAt:  createdAt,
	}
}

func TestRank(t *testing.T) {
	now := time.Now()
	w := ranking.DefaultWeights()

	t.Run("memory sharing a bigram scores above zero, unrelated is excluded", func(t *testing.T) {
		tokens := keyword.Extract("春节干了什么")
		memories := []*model.Memory{
			mem("春节准备去妈妈家吃团年饭", 5, now),
			mem("今天天气很好", 5, now),
		}

		results := w.Rank(memories, tokens, now, 10)
		gt.Array(t, results).Length(1)
		gt.Value(t, results[0].Memory.Content).Equal("春节准备去妈妈家吃团年饭")
		gt.Bool(t, results[0].Score > 0).True()
		gt.Bool(t, results[0].HitCount >= 1).True()
	})

	t.Run("empty token set yields no results", func(t *testing.T) {
		memories := []*model.Memory{mem("anything", 5, now)}
		gt.Array(t, w.Rank(memories, nil, now, 10)).Length(0)
	})

	t.Run("substring matches inside longer words", func(t *testing.T) {
		tokens := keyword.Extract("cat")
		results := w.Rank([]*model.Memory{mem("the user loves concatenation", 5, now)}, tokens, now, 10)
		gt.Array(t, results).Length(1)
	})

	t.Run("matching is case-insensitive", func(t *testing.T) {
		tokens := keyword.Extract("tokyo")
		results := w.Rank([]*model.Memory{mem("User lives in Tokyo", 5, now)}, tokens, now, 10)
		gt.Array(t, results).Length(1)
	})

	t.Run("limit truncates after ordering", func(t *testing.T) {
		tokens := keyword.Extract("cats")
		memories := []*model.Memory{
			mem("cats are great", 2, now),
			mem("cats everywhere", 9, now),
			mem("cats again", 5, now),
		}
		results := w.Rank(memories, tokens, now, 2)
		gt.Array(t, results).Length(2)
		// Same hit ratio and recency, so importance dominates.
		gt.Value(t, results[0].Memory.Importance).Equal(9)
		gt.Value(t, results[1].Memory.Importance).Equal(5)
	})

	t.Run("ties broken by importance then recency", func(t *testing.T) {
		old := now.Add(-48 * time.Hour)
		tokens := keyword.Extract("咖啡")
		memories := []*model.Memory{
			mem("喜欢咖啡 A", 5, old),
			mem("喜欢咖啡 B", 5, now),
		}
		results := w.Rank(memories, tokens, now, 10)
		gt.Array(t, results).Length(2)
		gt.Value(t, results[0].Memory.Content).Equal("喜欢咖啡 B")
	})
}

func TestScoreMonotonicity(t *testing.T) {
	now := time.Now()
	w := ranking.DefaultWeights()

	t.Run("non-decreasing in hit ratio", func(t *testing.T) {
		m := mem("x", 5, now)
		low := w.Score(m, 1, 4, now)
		high := w.Score(m, 3, 4, now)
		gt.Bool(t, high >= low).True()
	})

	t.Run("non-decreasing in importance", func(t *testing.T) {
		low := w.Score(mem("x", 2, now), 1, 2, now)
		high := w.Score(mem("x", 9, now), 1, 2, now)
		gt.Bool(t, high >= low).True()
	})

	t.Run("non-decreasing in recency", func(t *testing.T) {
		older := w.Score(mem("x", 5, now.Add(-7*24*time.Hour)), 1, 2, now)
		newer := w.Score(mem("x", 5, now), 1, 2, now)
		gt.Bool(t, newer >= older).True()
	})

	t.Run("continuous day decay", func(t *testing.T) {
		// Recency term only: weight 1 on recency isolates the decay curve.
		w := ranking.Weights{Recency: 1}
		sameDay := w.Score(mem("x", 5, now), 1, 1, now)
		oneDay := w.Score(mem("x", 5, now.Add(-24*time.Hour)), 1, 1, now)
		sevenDays := w.Score(mem("x", 5, now.Add(-7*24*time.Hour)), 1, 1, now)

		gt.Bool(t, sameDay > 0.99).True()
		gt.Bool(t, oneDay > 0.49 && oneDay < 0.51).True()
		gt.Bool(t, sevenDays > 0.12 && sevenDays < 0.13).True()
	})
}

func TestHits(t *testing.T) {
	gt.Value(t, ranking.Hits("春节准备去妈妈家吃团年饭", []string{"春节", "节干", "天气"})).Equal(1)
	gt.Value(t, ranking.Hits("no match here", []string{"春节"})).Equal(0)
}
