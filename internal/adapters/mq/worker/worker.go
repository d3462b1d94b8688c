// Package worker runs queued valuations on a fixed number of goroutines, so
// at most that many browsers are alive at once.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/appraiser/internal/domain/model"
	"github.com/okian/appraiser/pkg/logger"
	"github.com/okian/appraiser/pkg/metrics"
)

const (
	defaultWorkerCount  = 3
	poolShutdownTimeout = 30 * time.Second
)

// Job abstracts what workers read off the queue.
type Job = model.Job

// Valuator produces a valuation for a player. It reports failures in the
// result rather than as an error.
type Valuator interface {
	Scrape(ctx context.Context, playerID string) model.ValuationResult
}

// Recorder keeps successful valuations.
type Recorder interface {
	Record(ctx context.Context, res model.ValuationResult) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes jobs from a queue.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// shutdownMessage is the failure reported for jobs still queued at shutdown.
const shutdownMessage = "service shutting down"

type busyCounter struct{ n atomic.Int64 }

func (b *busyCounter) add(d int64) {
	if b == nil {
		return
	}
	metrics.UpdateWorkersBusy(int(b.n.Add(d)))
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	valuator Valuator
	recorder Recorder
	name     string
	busy     *busyCounter
	draining *atomic.Bool

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker. recorder may be nil.
func NewInMemoryWorker(queue Queue, valuator Valuator, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		valuator: valuator,
		recorder: recorder,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop. Once ctx ends, jobs still queued are failed
// rather than left waiting.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		if ctx.Err() != nil {
			w.drain(jobs)
			return
		}
		select {
		case <-ctx.Done():
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			metrics.RecordQueueWait(float64(time.Since(job.EnqueuedAt).Milliseconds()))
			metrics.UpdateQueueSize(len(jobs))
			w.process(ctx, job)
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// drain fails every job still queued after ctx ends, until the queue is
// closed or the worker is shut down. Each failed job releases its slot.
func (w *InMemoryWorker) drain(jobs <-chan Job) {
	for {
		select {
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			job.Finish(model.Failed(job.PlayerID, shutdownMessage))
		}
	}
}

// process runs one job to completion. The scrape is detached from ctx so a
// shutdown never interrupts a browser mid-page.
func (w *InMemoryWorker) process(ctx context.Context, job Job) {
	if w.draining != nil && w.draining.Load() {
		job.Finish(model.Failed(job.PlayerID, shutdownMessage))
		return
	}

	w.busy.add(1)
	defer w.busy.add(-1)

	var res model.ValuationResult
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordErrorByComponent("worker", "panic")
			w.logger.Error(ctx, "valuation panicked",
				logger.String("job_id", job.ID),
				logger.String("player", job.PlayerID),
				logger.Any("panic", r))
			res = model.Failed(job.PlayerID, "internal error")
		}
		job.Finish(res)
	}()

	w.logger.Debug(ctx, "job started",
		logger.String("job_id", job.ID),
		logger.String("player", job.PlayerID),
		logger.Duration("waited", time.Since(job.EnqueuedAt)))

	res = w.valuator.Scrape(context.WithoutCancel(ctx), job.PlayerID)

	if res.Success && w.recorder != nil {
		if err := w.recorder.Record(ctx, res); err != nil {
			metrics.RecordErrorByComponent("worker", "record_error")
			w.logger.Error(ctx, "recording valuation failed",
				logger.String("player", job.PlayerID),
				logger.Error(err))
		}
	}
}

// Pool manages a fixed set of workers.
type Pool struct {
	workers  []*InMemoryWorker
	queue    Queue
	busy     *busyCounter
	draining atomic.Bool
	logger   logger.Logger
}

// NewPool creates a pool of workerCount workers.
func NewPool(workerCount int, queue Queue, valuator Valuator, recorder Recorder) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		busy:    &busyCounter{},
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(queue, valuator, recorder,
			WithName("worker-"+strconv.Itoa(i)),
			withBusy(pool.busy),
			withDraining(&pool.draining),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkersBusy(0)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Busy returns the number of workers currently running a job.
func (p *Pool) Busy() int { return int(p.busy.n.Load()) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for workers to finish their current
// job. Jobs still queued are failed without being scraped.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.draining.Store(true)
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker %d: %w", i, shutdownCtx.Err())
		}
	}
	return nil
}
