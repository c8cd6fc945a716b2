package interfaces

import (
	"context"

	"github.com/mnemo-lab/mnemo/pkg/domain/model"
)

// Extractor derives candidate memories from a completed conversation turn,
// comparing against the already-known memories for deduplication.
// Implementations are best-effort: any failure yields an empty candidate
// list, never an error that reaches the pipeline.
type Extractor interface {
	// Extract proposes new memories from the turn text. existing is the
	// dedup context shown verbatim to the extraction model.
	Extract(ctx context.Context, turn model.TurnText, existing []string) []model.Candidate

	// Score assigns an importance to each raw candidate line without any
	// dialogue context (bulk text import). Lines are returned in order; a
	// scoring failure falls back to the default importance.
	Score(ctx context.Context, lines []string) []model.Candidate
}
