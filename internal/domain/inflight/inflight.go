package inflight

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
)

// Set rejects concurrent evaluations of the same player.
type Set interface {
	// TryAcquire claims id. It returns ok=false without side effects when id
	// is already held. On success the returned release must be called exactly
	// once; extra calls are no-ops.
	TryAcquire(ctx context.Context, id string) (release func(), ok bool)

	// Holds reports whether id is currently claimed.
	Holds(ctx context.Context, id string) bool

	// Size returns the number of claimed ids.
	Size() int64
}

type registry struct {
	mu       sync.Mutex
	held     map[string]struct{}
	size     atomic.Int64
	key      func(string) string
	onChange func(int)
}

// New creates an in-memory in-flight set.
func New(opts ...Option) Set {
	r := &registry{
		held: make(map[string]struct{}),
		key:  defaultKey,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func defaultKey(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func (r *registry) TryAcquire(_ context.Context, id string) (func(), bool) {
	k := r.key(id)

	r.mu.Lock()
	if _, busy := r.held[k]; busy {
		r.mu.Unlock()
		return nil, false
	}
	r.held[k] = struct{}{}
	r.notify(r.size.Add(1))
	r.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { r.release(k) }) }, true
}

func (r *registry) release(k string) {
	r.mu.Lock()
	if _, ok := r.held[k]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.held, k)
	r.notify(r.size.Add(-1))
	r.mu.Unlock()
}

// notify publishes n. Callers hold r.mu so updates arrive in order and the
// last one matches Size.
func (r *registry) notify(n int64) {
	if r.onChange != nil {
		r.onChange(int(n))
	}
}

func (r *registry) Holds(_ context.Context, id string) bool {
	k := r.key(id)
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.held[k]
	return ok
}

func (r *registry) Size() int64 {
	return r.size.Load()
}
