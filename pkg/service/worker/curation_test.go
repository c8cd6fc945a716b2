package worker_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/mnemo-lab/mnemo/pkg/service/worker"
)

func TestCurationPool(t *testing.T) {
	ctx := context.Background()

	t.Run("processes submitted jobs", func(t *testing.T) {
		var mu sync.Mutex
		var seen []string

		pool := worker.NewCurationPool(func(ctx context.Context, job worker.Job) error {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, job.UserText)
			return nil
		}, worker.WithWorkers(2))
		pool.Start(ctx)

		gt.Bool(t, pool.Submit(ctx, worker.Job{SessionID: "s1", UserText: "a"})).True()
		gt.Bool(t, pool.Submit(ctx, worker.Job{SessionID: "s1", UserText: "b"})).True()
		pool.Stop()

		mu.Lock()
		defer mu.Unlock()
		gt.Array(t, seen).Length(2)
	})

	t.Run("drops jobs when queue is full", func(t *testing.T) {
		release := make(chan struct{})
		pool := worker.NewCurationPool(func(ctx context.Context, job worker.Job) error {
			<-release
			return nil
		}, worker.WithWorkers(1), worker.WithQueueSize(1))
		pool.Start(ctx)

		// First job occupies the worker, second fills the queue.
		gt.Bool(t, pool.Submit(ctx, worker.Job{SessionID: "s1"})).True()

		// The worker may not have picked up the first job yet, so saturate
		// until Submit reports a full queue.
		deadline := time.After(time.Second)
		saturated := false
		for !saturated {
			select {
			case <-deadline:
				t.Fatal("queue never saturated")
			default:
				saturated = !pool.Submit(ctx, worker.Job{SessionID: "s2"})
			}
		}

		close(release)
		pool.Stop()
	})

	t.Run("handler errors do not stop the pool", func(t *testing.T) {
		var processed atomic.Int32
		pool := worker.NewCurationPool(func(ctx context.Context, job worker.Job) error {
			processed.Add(1)
			return goerr.New("extraction failed")
		}, worker.WithWorkers(1))
		pool.Start(ctx)

		gt.Bool(t, pool.Submit(ctx, worker.Job{SessionID: "s1"})).True()
		gt.Bool(t, pool.Submit(ctx, worker.Job{SessionID: "s2"})).True()
		pool.Stop()

		gt.Value(t, processed.Load()).Equal(int32(2))
	})

	t.Run("handler panics do not stop the pool", func(t *testing.T) {
		var processed atomic.Int32
		pool := worker.NewCurationPool(func(ctx context.Context, job worker.Job) error {
			if processed.Add(1) == 1 {
				panic("boom")
			}
			return nil
		}, worker.WithWorkers(1))
		pool.Start(ctx)

		gt.Bool(t, pool.Submit(ctx, worker.Job{SessionID: "s1"})).True()
		gt.Bool(t, pool.Submit(ctx, worker.Job{SessionID: "s2"})).True()
		pool.Stop()

		gt.Value(t, processed.Load()).Equal(int32(2))
	})

	t.Run("submit after stop is rejected", func(t *testing.T) {
		pool := worker.NewCurationPool(func(ctx context.Context, job worker.Job) error {
			return nil
		})
		pool.Start(ctx)
		pool.Stop()

		gt.Bool(t, pool.Submit(ctx, worker.Job{SessionID: "s1"})).False()
	})

	t.Run("submit racing stop never panics", func(t *testing.T) {
		pool := worker.NewCurationPool(func(ctx context.Context, job worker.Job) error {
			return nil
		}, worker.WithWorkers(2), worker.WithQueueSize(4))
		pool.Start(ctx)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					// A rejected submit is fine here; a send on the closed
					// queue would panic and fail the test.
					pool.Submit(ctx, worker.Job{SessionID: "s1"})
				}
			}()
		}
		pool.Stop()
		wg.Wait()

		gt.Bool(t, pool.Submit(ctx, worker.Job{SessionID: "s1"})).False()
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		pool := worker.NewCurationPool(func(ctx context.Context, job worker.Job) error {
			return nil
		})
		pool.Start(ctx)
		pool.Stop()
		pool.Stop()
	})
}
