package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem/llm/openai"
	"github.com/mnemo-lab/mnemo/pkg/domain/interfaces"
	"github.com/mnemo-lab/mnemo/pkg/service/extract"
	"github.com/urfave/cli/v3"
)

// Extraction holds CLI flags for the memory extraction LLM
type Extraction struct {
	apiKey      string
	model       string
	timeout     time.Duration
	contextSize int
	dedup       bool
}

// Flags returns CLI flags for extraction configuration
func (x *Extraction) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "extraction-api-key",
			Usage:       "OpenAI API key for memory extraction (extraction disabled when empty)",
			Sources:     cli.EnvVars("MNEMO_EXTRACTION_API_KEY"),
			Destination: &x.apiKey,
		},
		&cli.StringFlag{
			Name:        "extraction-model",
			Usage:       "Model used for memory extraction and scoring",
			Value:       "gpt-4o-mini",
			Sources:     cli.EnvVars("MNEMO_EXTRACTION_MODEL"),
			Destination: &x.model,
		},
		&cli.DurationFlag{
			Name:        "extraction-timeout",
			Usage:       "Timeout for one extraction call",
			Value:       extract.DefaultTimeout,
			Sources:     cli.EnvVars("MNEMO_EXTRACTION_TIMEOUT"),
			Destination: &x.timeout,
		},
		&cli.IntFlag{
			Name:        "extraction-context-size",
			Usage:       "Number of recent memories shown to the extractor for deduplication",
			Value:       80,
			Sources:     cli.EnvVars("MNEMO_EXTRACTION_CONTEXT_SIZE"),
			Destination: &x.contextSize,
		},
		&cli.BoolFlag{
			Name:        "curation-dedup",
			Usage:       "Skip extracted memories whose exact content is already stored",
			Value:       true,
			Sources:     cli.EnvVars("MNEMO_CURATION_DEDUP"),
			Destination: &x.dedup,
		},
	}
}

// LogAttrs returns log attributes for the extraction configuration
func (x *Extraction) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.Bool("enabled", x.apiKey != ""),
		slog.String("model", x.model),
		slog.Duration("timeout", x.timeout),
		slog.Int("context_size", x.contextSize),
		slog.Bool("dedup", x.dedup),
	}
}

// ContextSize returns how many recent memories feed the dedup context
func (x *Extraction) ContextSize() int {
	return x.contextSize
}

// Dedup reports whether exact-content deduplication is enabled
func (x *Extraction) Dedup() bool {
	return x.dedup
}

// Configure creates the extraction client. Returns nil when no API key is
// configured; curation then only records conversation turns.
func (x *Extraction) Configure(ctx context.Context) (interfaces.Extractor, error) {
	if x.apiKey == "" {
		return nil, nil
	}

	client, err := openai.New(ctx, x.apiKey, openai.WithModel(x.model))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create extraction LLM client")
	}

	return extract.New(client, extract.WithTimeout(x.timeout)), nil
}
