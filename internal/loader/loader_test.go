package loader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeEntity struct {
	ID   primitive.ObjectID
	Name string
}

// countingFetch wraps an in-memory store and records every batch it is asked
// to resolve.
type countingFetch struct {
	mu      sync.Mutex
	store   map[primitive.ObjectID]*fakeEntity
	batches [][]primitive.ObjectID
	calls   atomic.Int64
	err     error
}

func newCountingFetch(entities ...*fakeEntity) *countingFetch {
	store := make(map[primitive.ObjectID]*fakeEntity)
	for _, e := range entities {
		store[e.ID] = e
	}
	return &countingFetch{store: store}
}

func (f *countingFetch) fetch(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*fakeEntity, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.batches = append(f.batches, ids)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[primitive.ObjectID]*fakeEntity, len(ids))
	for _, id := range ids {
		if e, ok := f.store[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func TestLoadManyReturnsOrderedResults(t *testing.T) {
	a := &fakeEntity{ID: primitive.NewObjectID(), Name: "a"}
	b := &fakeEntity{ID: primitive.NewObjectID(), Name: "b"}
	c := &fakeEntity{ID: primitive.NewObjectID(), Name: "c"}
	f := newCountingFetch(a, b, c)
	l := New("fakes", f.fetch)

	got := l.LoadMany(context.Background(), []primitive.ObjectID{c.ID, a.ID, b.ID})

	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].Name)
	assert.Equal(t, "a", got[1].Name)
	assert.Equal(t, "b", got[2].Name)
}

func TestLoadManyIssuesSingleBatch(t *testing.T) {
	a := &fakeEntity{ID: primitive.NewObjectID()}
	b := &fakeEntity{ID: primitive.NewObjectID()}
	f := newCountingFetch(a, b)
	l := New("fakes", f.fetch)

	l.LoadMany(context.Background(), []primitive.ObjectID{a.ID, b.ID})

	assert.Equal(t, int64(1), f.calls.Load())
}

func TestConcurrentLoadsCoalesce(t *testing.T) {
	a := &fakeEntity{ID: primitive.NewObjectID(), Name: "a"}
	b := &fakeEntity{ID: primitive.NewObjectID(), Name: "b"}
	f := newCountingFetch(a, b)
	l := New("fakes", f.fetch)
	// Widen the window so goroutine scheduling jitter cannot split the burst
	// across two batches.
	l.wait = 50 * time.Millisecond

	var wg sync.WaitGroup
	results := make([]*fakeEntity, 4)
	for i, id := range []primitive.ObjectID{a.ID, b.ID, a.ID, b.ID} {
		wg.Add(1)
		go func(i int, id primitive.ObjectID) {
			defer wg.Done()
			results[i] = l.Load(context.Background(), id)
		}(i, id)
	}
	wg.Wait()

	// Duplicate ids dedupe within the window; at most one fetch should have
	// been needed for the whole burst.
	assert.Equal(t, int64(1), f.calls.Load())
	for i, r := range results {
		require.NotNil(t, r, "result %d", i)
	}
	assert.Same(t, results[0], results[2])
}

func TestRepeatLoadHitsCache(t *testing.T) {
	a := &fakeEntity{ID: primitive.NewObjectID()}
	f := newCountingFetch(a)
	l := New("fakes", f.fetch)

	first := l.Load(context.Background(), a.ID)
	second := l.Load(context.Background(), a.ID)

	assert.Same(t, first, second)
	assert.Equal(t, int64(1), f.calls.Load())
}

func TestMissingIDResolvesNil(t *testing.T) {
	a := &fakeEntity{ID: primitive.NewObjectID(), Name: "a"}
	f := newCountingFetch(a)
	l := New("fakes", f.fetch)

	got := l.LoadMany(context.Background(), []primitive.ObjectID{a.ID, primitive.NewObjectID()})

	require.Len(t, got, 2)
	assert.NotNil(t, got[0])
	assert.Nil(t, got[1])
}

func TestFetchErrorResolvesWholeWindowNil(t *testing.T) {
	a := &fakeEntity{ID: primitive.NewObjectID()}
	f := newCountingFetch(a)
	f.err = errors.New("store unavailable")
	l := New("fakes", f.fetch)

	got := l.LoadMany(context.Background(), []primitive.ObjectID{a.ID, primitive.NewObjectID()})

	require.Len(t, got, 2)
	assert.Nil(t, got[0])
	assert.Nil(t, got[1])

	// Failed lookups are cached for the request like any other result; the
	// loader never retries within its lifetime.
	assert.Nil(t, l.Load(context.Background(), a.ID))
	assert.Equal(t, int64(1), f.calls.Load())
}

func TestMaxBatchFiresEarly(t *testing.T) {
	f := newCountingFetch()
	l := New("fakes", f.fetch)
	l.maxBatch = 3

	ids := make([]primitive.ObjectID, 7)
	for i := range ids {
		ids[i] = primitive.NewObjectID()
	}
	l.LoadMany(context.Background(), ids)

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, batch := range f.batches {
		assert.LessOrEqual(t, len(batch), 3)
	}
}

func TestCancelledContextUnblocksLoad(t *testing.T) {
	block := make(chan struct{})
	l := New("fakes", func(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*fakeEntity, error) {
		<-block
		return nil, nil
	})
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *fakeEntity, 1)
	go func() {
		done <- l.Load(ctx, primitive.NewObjectID())
	}()
	cancel()

	assert.Nil(t, <-done)
}
