package extract_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/service/extract"
)

// mockLLMSession is a mock gollem Session for testing
type mockLLMSession struct {
	generateContentFn func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error)
}

func (s *mockLLMSession) Generate(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
	return s.GenerateContent(ctx, input...)
}

func (s *mockLLMSession) Stream(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	if s.generateContentFn != nil {
		return s.generateContentFn(ctx, input...)
	}
	return &gollem.Response{Texts: []string{"[]"}}, nil
}

func (s *mockLLMSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *mockLLMSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *mockLLMSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

// mockLLMClient is a mock gollem LLMClient for testing
type mockLLMClient struct {
	newSessionFn func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error)
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	if c.newSessionFn != nil {
		return c.newSessionFn(ctx, options...)
	}
	return &mockLLMSession{}, nil
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return nil, nil
}

func replyWith(text string) *mockLLMClient {
	return &mockLLMClient{
		newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
			return &mockLLMSession{
				generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
					return &gollem.Response{Texts: []string{text}}, nil
				},
			}, nil
		},
	}
}

func TestExtract(t *testing.T) {
	ctx := context.Background()
	turn := model.TurnText{
		UserText:      "我养的猫生病了",
		AssistantText: "希望它早日康复",
	}

	t.Run("parses a valid candidate array", func(t *testing.T) {
		client := extract.New(replyWith(`[{"content": "用户的猫生病了", "importance": 7}]`))

		candidates := client.Extract(ctx, turn, []string{"用户养了一只猫"})
		gt.Array(t, candidates).Length(1)
		gt.Value(t, candidates[0].Content).Equal("用户的猫生病了")
		gt.Value(t, candidates[0].Importance).Equal(7)
	})

	t.Run("strips markdown fences", func(t *testing.T) {
		client := extract.New(replyWith("```json\n[{\"content\": \"用户的猫生病了\", \"importance\": 6}]\n```"))

		candidates := client.Extract(ctx, turn, nil)
		gt.Array(t, candidates).Length(1)
		gt.Value(t, candidates[0].Importance).Equal(6)
	})

	t.Run("non-JSON output yields zero candidates, no error", func(t *testing.T) {
		client := extract.New(replyWith("I could not find any memories, sorry!"))
		gt.Array(t, client.Extract(ctx, turn, nil)).Length(0)
	})

	t.Run("JSON object instead of array yields zero candidates", func(t *testing.T) {
		client := extract.New(replyWith(`{"content": "x", "importance": 5}`))
		gt.Array(t, client.Extract(ctx, turn, nil)).Length(0)
	})

	t.Run("items without content are dropped individually", func(t *testing.T) {
		client := extract.New(replyWith(`[{"importance": 9}, {"content": "用户住在东京"}]`))

		candidates := client.Extract(ctx, turn, nil)
		gt.Array(t, candidates).Length(1)
		gt.Value(t, candidates[0].Content).Equal("用户住在东京")
	})

	t.Run("missing or malformed importance defaults to 5", func(t *testing.T) {
		client := extract.New(replyWith(`[{"content": "a"}, {"content": "b", "importance": "high"}, {"content": "c", "importance": 7.0}]`))

		candidates := client.Extract(ctx, turn, nil)
		gt.Array(t, candidates).Length(3)
		gt.Value(t, candidates[0].Importance).Equal(5)
		gt.Value(t, candidates[1].Importance).Equal(5)
		gt.Value(t, candidates[2].Importance).Equal(7)
	})

	t.Run("out of range importance is clamped", func(t *testing.T) {
		client := extract.New(replyWith(`[{"content": "a", "importance": 99}, {"content": "b", "importance": -3}]`))

		candidates := client.Extract(ctx, turn, nil)
		gt.Array(t, candidates).Length(2)
		gt.Value(t, candidates[0].Importance).Equal(10)
		gt.Value(t, candidates[1].Importance).Equal(1)
	})

	t.Run("transport failure degrades to empty", func(t *testing.T) {
		client := extract.New(&mockLLMClient{
			newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
				return &mockLLMSession{
					generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
						return nil, context.DeadlineExceeded
					},
				}, nil
			},
		})
		gt.Array(t, client.Extract(ctx, turn, nil)).Length(0)
	})

	t.Run("empty turn is skipped without a call", func(t *testing.T) {
		called := false
		client := extract.New(&mockLLMClient{
			newSessionFn: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
				called = true
				return &mockLLMSession{}, nil
			},
		})
		gt.Array(t, client.Extract(ctx, model.TurnText{}, nil)).Length(0)
		gt.Bool(t, called).False()
	})
}

func TestScore(t *testing.T) {
	ctx := context.Background()
	lines := []string{"用户喜欢喝手冲咖啡", "用户对花生过敏"}

	t.Run("uses model scores when contents match", func(t *testing.T) {
		client := extract.New(replyWith(`[
			{"content": "用户喜欢喝手冲咖啡", "importance": 6},
			{"content": "用户对花生过敏", "importance": 9}
		]`))

		scored := client.Score(ctx, lines)
		gt.Array(t, scored).Length(2)
		gt.Value(t, scored[0].Importance).Equal(6)
		gt.Value(t, scored[1].Importance).Equal(9)
	})

	t.Run("falls back to flat default on bad output", func(t *testing.T) {
		client := extract.New(replyWith("not json"))

		scored := client.Score(ctx, lines)
		gt.Array(t, scored).Length(2)
		gt.Value(t, scored[0].Content).Equal("用户喜欢喝手冲咖啡")
		gt.Value(t, scored[0].Importance).Equal(5)
		gt.Value(t, scored[1].Importance).Equal(5)
	})

	t.Run("unmatched lines get the default", func(t *testing.T) {
		client := extract.New(replyWith(`[{"content": "用户对花生过敏", "importance": 9}]`))

		scored := client.Score(ctx, lines)
		gt.Array(t, scored).Length(2)
		gt.Value(t, scored[0].Importance).Equal(5)
		gt.Value(t, scored[1].Importance).Equal(9)
	})

	t.Run("empty input yields nil", func(t *testing.T) {
		client := extract.New(replyWith("[]"))
		gt.Array(t, client.Score(ctx, nil)).Length(0)
	})
}
