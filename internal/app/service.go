// Package service wires the valuation pipeline behind the HTTP API: name
// validation, duplicate suppression, the job queue, the worker pool and the
// ranking store.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/okian/appraiser/internal/adapters/mq/queue"
	workerpool "github.com/okian/appraiser/internal/adapters/mq/worker"
	"github.com/okian/appraiser/internal/adapters/repository"
	"github.com/okian/appraiser/internal/domain/inflight"
	"github.com/okian/appraiser/internal/domain/model"
	"github.com/okian/appraiser/pkg/logger"
	"github.com/okian/appraiser/pkg/metrics"
)

// MaxNameLength bounds player names after trimming.
const MaxNameLength = 32

const (
	defaultWorkerCount = 3
	defaultQueueSize   = 64
)

// Service implements the API dependencies for the valuation system.
type Service struct {
	mu sync.RWMutex

	valuator workerpool.Valuator
	store    repository.Store
	inflight inflight.Set
	jobs     queue.Queue
	pool     *workerpool.Pool

	workerCount int
	queueSize   int

	started   bool
	startedAt time.Time

	accepted   atomic.Int64
	duplicates atomic.Int64
	overloaded atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of concurrent valuations.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets how many valuations may wait for a worker.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithStore replaces the ranking store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Service around valuator.
func New(valuator workerpool.Valuator, opts ...Option) *Service {
	s := &Service{
		valuator:    valuator,
		workerCount: defaultWorkerCount,
		queueSize:   defaultQueueSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewTreapStore()
	}
	s.inflight = inflight.New(inflight.WithOnChange(metrics.UpdateInflight))
	return s
}

// Start creates the queue and starts the worker pool. Once ctx ends, queued
// valuations fail with a shutdown error; running ones finish.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.jobs = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.jobs, s.valuator, s.store)
	s.pool.Start(ctx)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "valuation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize))
	return nil
}

// Stop drains the pool. Valuations already running finish; queued ones fail.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	pool := s.pool
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping valuation service")
	if err := pool.Shutdown(ctx); err != nil {
		return fmt.Errorf("stop worker pool: %w", err)
	}
	s.logger.Info(ctx, "valuation service stopped")
	return nil
}

// NormalizeName trims ign and checks its length.
func NormalizeName(ign string) (string, error) {
	name := strings.TrimSpace(ign)
	n := utf8.RuneCountInString(name)
	if n == 0 || n > MaxNameLength {
		return "", fmt.Errorf("%w: must be 1-%d characters", ErrInvalidName, MaxNameLength)
	}
	return name, nil
}

// Evaluate values ign and waits for the result. A concurrent request for the
// same player is rejected rather than joined. If ctx ends first the caller
// stops waiting but the valuation still runs and frees its slot when done.
func (s *Service) Evaluate(ctx context.Context, ign string) (model.ValuationResult, error) {
	name, err := NormalizeName(ign)
	if err != nil {
		return model.ValuationResult{}, err
	}

	s.mu.RLock()
	started, jobs := s.started, s.jobs
	s.mu.RUnlock()
	if !started {
		return model.ValuationResult{}, ErrStopped
	}

	release, ok := s.inflight.TryAcquire(ctx, name)
	if !ok {
		s.duplicates.Add(1)
		metrics.RecordDuplicateRejected()
		s.logger.Debug(ctx, "duplicate valuation rejected", logger.String("player", name))
		return model.ValuationResult{}, ErrAlreadyInFlight
	}

	job := model.NewJob(uuid.NewString(), name, release)
	if err := jobs.Enqueue(ctx, job); err != nil {
		release()
		if errors.Is(err, queue.ErrClosed) {
			return model.ValuationResult{}, ErrStopped
		}
		s.overloaded.Add(1)
		s.logger.Warn(ctx, "valuation rejected", logger.String("player", name), logger.Error(err))
		return model.ValuationResult{}, fmt.Errorf("%w: %v", ErrBackpressure, err)
	}
	s.accepted.Add(1)
	s.logger.Debug(ctx, "valuation queued",
		logger.String("job_id", job.ID),
		logger.String("player", name))

	select {
	case res := <-job.Reply:
		return res, nil
	case <-ctx.Done():
		return model.ValuationResult{}, ctx.Err()
	}
}

// TopN returns the n most valuable players.
func (s *Service) TopN(ctx context.Context, n int) ([]repository.Entry, error) {
	return s.store.TopN(ctx, n)
}

// Rank returns a player's position on the leaderboard.
func (s *Service) Rank(ctx context.Context, ign string) (repository.Entry, error) {
	name, err := NormalizeName(ign)
	if err != nil {
		return repository.Entry{}, err
	}
	return s.store.Rank(ctx, name)
}

// InFlight returns the number of players being valued.
func (s *Service) InFlight() int64 {
	return s.inflight.Size()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":             s.started,
		"worker_count":        s.workerCount,
		"queue_size":          s.queueSize,
		"in_flight":           s.inflight.Size(),
		"accepted":            s.accepted.Load(),
		"duplicates_rejected": s.duplicates.Load(),
		"backpressure":        s.overloaded.Load(),
		"ranked_players":      s.store.Count(ctx),
	}
	if s.started {
		stats["queue_length"] = s.jobs.Len(ctx)
		stats["workers_busy"] = s.pool.Busy()
		stats["uptime_seconds"] = int64(time.Since(s.startedAt).Seconds())
	}
	return stats
}
