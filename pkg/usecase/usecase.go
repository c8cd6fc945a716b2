package usecase

import (
	"github.com/mnemo-lab/mnemo/pkg/domain/interfaces"
	"github.com/mnemo-lab/mnemo/pkg/service/filter"
	"github.com/mnemo-lab/mnemo/pkg/service/ranking"
)

type UseCases struct {
	repo        interfaces.Repository
	extractor   interfaces.Extractor
	reject      filter.Func
	weights     ranking.Weights
	contextSize int
	dedup       bool

	Memory   *MemoryUseCase
	Curation *CurationUseCase
}

type Option func(*UseCases)

// WithExtractor enables LLM-backed extraction and scoring. Without it the
// curation pipeline and text-import scoring are no-ops.
func WithExtractor(ext interfaces.Extractor) Option {
	return func(uc *UseCases) {
		uc.extractor = ext
	}
}

func WithFilter(reject filter.Func) Option {
	return func(uc *UseCases) {
		uc.reject = reject
	}
}

func WithWeights(w ranking.Weights) Option {
	return func(uc *UseCases) {
		uc.weights = w
	}
}

// WithContextSize sets how many recent memories are given to the extractor
// as deduplication context.
func WithContextSize(n int) Option {
	return func(uc *UseCases) {
		uc.contextSize = n
	}
}

// WithDedup toggles the exact-content check before committing extracted
// memories.
func WithDedup(enabled bool) Option {
	return func(uc *UseCases) {
		uc.dedup = enabled
	}
}

const defaultContextSize = 80

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:        repo,
		reject:      filter.NewDenylist(filter.DefaultDenylist()),
		weights:     ranking.DefaultWeights(),
		contextSize: defaultContextSize,
		dedup:       true,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Memory = &MemoryUseCase{uc: uc}
	uc.Curation = &CurationUseCase{uc: uc}

	return uc
}
