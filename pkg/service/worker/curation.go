// Package worker runs curation jobs on a bounded pool so a burst of gateway
// requests cannot fan out into unbounded concurrent extraction calls.
package worker

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mnemo-lab/mnemo/pkg/domain/types"
	"github.com/mnemo-lab/mnemo/pkg/utils/logging"
)

const (
	DefaultWorkers   = 4
	DefaultQueueSize = 64
)

// Job carries one completed conversation turn into the curation pipeline
type Job struct {
	SessionID     types.SessionID
	UserText      string
	AssistantText string
	Model         string
}

// Handler processes one job. Errors are logged, never retried.
type Handler func(ctx context.Context, job Job) error

// CurationPool owns the job queue and a fixed set of workers.
//
// Architecture assumptions:
// - Single server instance (jobs are not shared across processes)
// - Losing jobs on overload or crash is acceptable: extraction is
//   best-effort, not exactly-once
type CurationPool struct {
	handler Handler
	jobs    chan Job
	workers int
	eg      errgroup.Group

	// mu orders Submit's send against Stop's close of the queue. Submit
	// holds the read lock while sending so a concurrent Stop cannot close
	// the channel between the stopped check and the send.
	mu      sync.RWMutex
	stopped bool
}

// Option is a functional option for pool configuration
type Option func(*CurationPool)

// WithWorkers sets the number of concurrent workers
func WithWorkers(n int) Option {
	return func(p *CurationPool) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithQueueSize sets the job buffer size
func WithQueueSize(n int) Option {
	return func(p *CurationPool) {
		if n > 0 {
			p.jobs = make(chan Job, n)
		}
	}
}

// NewCurationPool creates a pool; call Start before submitting
func NewCurationPool(handler Handler, opts ...Option) *CurationPool {
	p := &CurationPool{
		handler: handler,
		jobs:    make(chan Job, DefaultQueueSize),
		workers: DefaultWorkers,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the workers. They run on a background context (detached
// from the caller's request lifecycle) that keeps the caller's logger.
func (p *CurationPool) Start(ctx context.Context) {
	bgCtx := logging.With(context.Background(), logging.From(ctx))

	logging.From(bgCtx).Info("curation pool starting",
		"workers", p.workers,
		"queue_size", cap(p.jobs),
	)

	for i := 0; i < p.workers; i++ {
		p.eg.Go(func() error {
			p.run(bgCtx)
			return nil
		})
	}
}

// Submit enqueues a job without blocking. When the queue is saturated the
// job is dropped with a warning and false is returned.
func (p *CurationPool) Submit(ctx context.Context, job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		logging.From(ctx).Warn("curation pool stopped, dropping job",
			"session_id", job.SessionID)
		return false
	}

	select {
	case p.jobs <- job:
		return true
	default:
		logging.From(ctx).Warn("curation queue full, dropping job",
			"session_id", job.SessionID)
		return false
	}
}

// Stop closes the queue, drains the remaining jobs and waits for the
// workers to finish.
func (p *CurationPool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	_ = p.eg.Wait()
	logging.Default().Info("curation pool stopped")
}

func (p *CurationPool) run(ctx context.Context) {
	for job := range p.jobs {
		p.process(ctx, job)
	}
}

// process isolates one job: a failure or panic is terminal for that job and
// must never take the worker down.
func (p *CurationPool) process(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			logging.From(ctx).Error("panic in curation job",
				"session_id", job.SessionID,
				"panic", r,
			)
		}
	}()

	if err := p.handler(ctx, job); err != nil {
		logging.From(ctx).Error("curation job failed",
			"session_id", job.SessionID,
			"error", err.Error(),
		)
	}
}
