// Package loader implements the request-scoped batching cache. One Bundle is
// constructed per inbound request (or per generation job) and discarded with
// it; loaders are never shared across requests, so cached entities can never
// leak between principals.
package loader

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// defaultWait is the batching window: lookups issued while the window is
	// open are coalesced into a single fetch.
	defaultWait = 2 * time.Millisecond
	// defaultMaxBatch fires the window early once this many distinct ids are
	// pending.
	defaultMaxBatch = 100
)

// FetchFunc resolves a deduplicated id batch to entities, keyed by id.
// Ids absent from the store are simply absent from the map.
type FetchFunc[T any] func(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*T, error)

// Loader batches and caches lookups of one entity kind for the lifetime of a
// single request. A nil result means "not found or fetch failed"; callers
// never distinguish the two at this layer.
type Loader[T any] struct {
	kind  string
	fetch FetchFunc[T]

	wait     time.Duration
	maxBatch int

	mu    sync.Mutex
	cache map[primitive.ObjectID]*thunk[T]
	batch *batch[T]
}

// thunk is the future for one id. done is closed exactly once, after which
// value is stable.
type thunk[T any] struct {
	done  chan struct{}
	value *T
}

type batch[T any] struct {
	ids    []primitive.ObjectID
	thunks map[primitive.ObjectID]*thunk[T]
	fired  bool
}

// New constructs a loader for one entity kind. kind is used only for logging.
func New[T any](kind string, fetch FetchFunc[T]) *Loader[T] {
	return &Loader[T]{
		kind:     kind,
		fetch:    fetch,
		wait:     defaultWait,
		maxBatch: defaultMaxBatch,
		cache:    make(map[primitive.ObjectID]*thunk[T]),
	}
}

// Load registers id into the current batch window and blocks until the
// batched fetch resolves. Within one request, repeated loads of the same id
// never produce a second storage query.
func (l *Loader[T]) Load(ctx context.Context, id primitive.ObjectID) *T {
	t := l.enqueue(ctx, id)
	return t.await(ctx)
}

// LoadMany is equivalent to calling Load for each id but guarantees the ids
// land in one batch window together. Results come back in request order
// regardless of store ordering; nil marks ids that were missing or failed.
func (l *Loader[T]) LoadMany(ctx context.Context, ids []primitive.ObjectID) []*T {
	thunks := make([]*thunk[T], len(ids))
	l.mu.Lock()
	for i, id := range ids {
		thunks[i] = l.enqueueLocked(ctx, id)
	}
	l.mu.Unlock()

	results := make([]*T, len(ids))
	for i, t := range thunks {
		results[i] = t.await(ctx)
	}
	return results
}

func (l *Loader[T]) enqueue(ctx context.Context, id primitive.ObjectID) *thunk[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enqueueLocked(ctx, id)
}

// enqueueLocked returns the cached thunk for id, creating it and adding the
// id to the open batch window on first sight. Caller holds l.mu.
func (l *Loader[T]) enqueueLocked(ctx context.Context, id primitive.ObjectID) *thunk[T] {
	if t, ok := l.cache[id]; ok {
		return t
	}

	t := &thunk[T]{done: make(chan struct{})}
	l.cache[id] = t

	if l.batch == nil {
		b := &batch[T]{thunks: make(map[primitive.ObjectID]*thunk[T])}
		l.batch = b
		go l.fireAfter(ctx, b)
	}
	l.batch.ids = append(l.batch.ids, id)
	l.batch.thunks[id] = t

	if len(l.batch.ids) >= l.maxBatch {
		l.fireLocked(ctx, l.batch)
	}
	return t
}

// fireAfter closes the batch window after the wait period elapses.
func (l *Loader[T]) fireAfter(ctx context.Context, b *batch[T]) {
	timer := time.NewTimer(l.wait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}

	l.mu.Lock()
	l.fireLocked(ctx, b)
	l.mu.Unlock()
}

// fireLocked detaches the batch and runs the fetch outside the lock. Caller
// holds l.mu.
func (l *Loader[T]) fireLocked(ctx context.Context, b *batch[T]) {
	if b.fired {
		return
	}
	b.fired = true
	if l.batch == b {
		l.batch = nil
	}
	go l.run(ctx, b)
}

func (l *Loader[T]) run(ctx context.Context, b *batch[T]) {
	found, err := l.fetch(ctx, b.ids)
	if err != nil {
		// Every pending load in this window resolves to nil; callers treat
		// nil as "not found or fetch failed".
		log.WithError(err).WithFields(log.Fields{
			"kind":  l.kind,
			"batch": len(b.ids),
		}).Error("loader: batched fetch failed")
		found = nil
	}
	for id, t := range b.thunks {
		t.value = found[id]
		close(t.done)
	}
}

func (t *thunk[T]) await(ctx context.Context) *T {
	select {
	case <-t.done:
		return t.value
	case <-ctx.Done():
		return nil
	}
}
