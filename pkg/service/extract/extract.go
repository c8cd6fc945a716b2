// Package extract calls an external text-completion service to derive
// candidate memories from a finished conversation turn. Extraction is
// best-effort enrichment: every transport, status or parse failure degrades
// to an empty candidate list and a logged warning, never an error.
package extract

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"strings"
	"text/template"
	"time"

	"github.com/m-mizutani/gollem"
	"github.com/mnemo-lab/mnemo/pkg/domain/interfaces"
	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/utils/logging"
)

//go:embed prompt/extract_system.md
var extractSystemPromptTmpl string

//go:embed prompt/score_system.md
var scoreSystemPrompt string

var extractSystemPrompt = template.Must(template.New("extract_system").Parse(extractSystemPromptTmpl))

const (
	// DefaultTimeout bounds one extraction call. On timeout the call is a
	// failure, not retried.
	DefaultTimeout = 60 * time.Second

	noKnownMemories = "（暂无已知信息）"
)

// Client implements interfaces.Extractor on top of a gollem LLM client
type Client struct {
	llm     gollem.LLMClient
	timeout time.Duration
}

var _ interfaces.Extractor = &Client{}

// Option is a functional option for Client configuration
type Option func(*Client)

// WithTimeout overrides the per-call deadline
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// New creates an extraction client backed by llm
func New(llm gollem.LLMClient, opts ...Option) *Client {
	c := &Client{
		llm:     llm,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Extract derives new memories from the turn, showing existing to the model
// as the dedup context. Duplicates of existing entries are suppressed by the
// model; updates and contradictions are allowed through.
func (c *Client) Extract(ctx context.Context, turn model.TurnText, existing []string) []model.Candidate {
	logger := logging.From(ctx)

	if turn.Empty() {
		return nil
	}

	var memoriesBlock string
	if len(existing) > 0 {
		lines := make([]string, len(existing))
		for i, m := range existing {
			lines[i] = "- " + m
		}
		memoriesBlock = strings.Join(lines, "\n")
	} else {
		memoriesBlock = noKnownMemories
	}

	var prompt bytes.Buffer
	if err := extractSystemPrompt.Execute(&prompt, map[string]string{
		"ExistingMemories": memoriesBlock,
	}); err != nil {
		logger.Warn("failed to render extraction prompt", "error", err.Error())
		return nil
	}

	var transcript strings.Builder
	if turn.UserText != "" {
		transcript.WriteString("用户: " + turn.UserText + "\n")
	}
	if turn.AssistantText != "" {
		transcript.WriteString("AI: " + turn.AssistantText + "\n")
	}

	text, ok := c.generate(ctx, prompt.String(), "请从以下对话中提取新的记忆：\n\n"+transcript.String())
	if !ok {
		return nil
	}

	candidates := parseCandidates(ctx, text)
	logger.Info("memory extraction finished",
		"candidates", len(candidates),
		"existing", len(existing),
	)
	return candidates
}

// Score assigns an importance to each line for bulk text import. There is no
// dialogue context and no dedup; a scoring failure yields the default
// importance for every line.
func (c *Client) Score(ctx context.Context, lines []string) []model.Candidate {
	if len(lines) == 0 {
		return nil
	}

	fallback := make([]model.Candidate, len(lines))
	for i, line := range lines {
		fallback[i] = model.Candidate{Content: line, Importance: model.DefaultImportance}
	}

	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString("- " + line + "\n")
	}

	text, ok := c.generate(ctx, scoreSystemPrompt, "请为以下条目评分：\n\n"+sb.String())
	if !ok {
		return fallback
	}

	scored := make(map[string]int)
	for _, cand := range parseCandidates(ctx, text) {
		scored[cand.Content] = cand.Importance
	}
	if len(scored) == 0 {
		return fallback
	}

	result := make([]model.Candidate, len(lines))
	for i, line := range lines {
		importance := model.DefaultImportance
		if v, found := scored[line]; found {
			importance = v
		}
		result[i] = model.Candidate{Content: line, Importance: importance}
	}
	return result
}

// generate runs one bounded JSON-mode completion. The bool result is false
// on any failure.
func (c *Client) generate(ctx context.Context, systemPrompt, userPrompt string) (string, bool) {
	logger := logging.From(ctx)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	session, err := c.llm.NewSession(callCtx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionSystemPrompt(systemPrompt),
	)
	if err != nil {
		logger.Warn("failed to create extraction session", "error", err.Error())
		return "", false
	}

	resp, err := session.GenerateContent(callCtx, gollem.Text(userPrompt))
	if err != nil {
		logger.Warn("extraction call failed", "error", err.Error())
		return "", false
	}
	if resp == nil || len(resp.Texts) == 0 {
		logger.Warn("extraction returned no text")
		return "", false
	}

	return resp.Texts[0], true
}

// rawCandidate tolerates malformed importance values in model output
type rawCandidate struct {
	Content    string          `json:"content"`
	Importance json.RawMessage `json:"importance"`
}

// parseCandidates parses the model's reply as a strict JSON array of
// {content, importance}. Anything else counts as zero extracted memories.
// Individual malformed items are dropped; a malformed importance defaults.
func parseCandidates(ctx context.Context, text string) []model.Candidate {
	logger := logging.From(ctx)

	text = stripFences(text)

	var raw []rawCandidate
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		logger.Warn("extraction output is not a JSON array", "error", err.Error())
		return nil
	}

	candidates := make([]model.Candidate, 0, len(raw))
	for _, r := range raw {
		if r.Content == "" {
			continue
		}
		candidates = append(candidates, model.Candidate{
			Content:    r.Content,
			Importance: model.ClampImportance(parseImportance(r.Importance)),
		})
	}
	return candidates
}

func parseImportance(raw json.RawMessage) int {
	if len(raw) == 0 {
		return model.DefaultImportance
	}
	var i int
	if err := json.Unmarshal(raw, &i); err == nil {
		return i
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f)
	}
	return model.DefaultImportance
}

// stripFences removes a surrounding markdown code fence if present. Models
// regularly wrap JSON output even when told not to.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
