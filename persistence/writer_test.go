package persistence

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/topiccache/model"
	"github.com/hupe1980/topiccache/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedGateway blocks Save until released, to pin a worker mid-op.
type gatedGateway struct {
	*MemoryGateway
	entered chan struct{}
	release chan struct{}
}

func newGatedGateway() *gatedGateway {
	return &gatedGateway{
		MemoryGateway: NewMemoryGateway(),
		entered:       make(chan struct{}, 16),
		release:       make(chan struct{}),
	}
}

func (g *gatedGateway) Save(ctx context.Context, rec model.Record) error {
	g.entered <- struct{}{}
	<-g.release
	return g.MemoryGateway.Save(ctx, rec)
}

func TestWriterAppliesOpsInOrder(t *testing.T) {
	gw := NewMemoryGateway()
	w := NewWriter(gw, WriterConfig{})
	w.Start()
	defer w.Close()

	rec := model.Record{Key: testutil.Key(0), Tier: model.TierCold}
	w.EnqueueSave(rec)
	w.EnqueueDelete(rec.Key)
	rec.Tier = model.TierWarm
	w.EnqueueSave(rec)

	require.NoError(t, w.Flush(context.Background()))

	// With a single worker the delete cannot overtake the saves.
	require.Equal(t, 1, gw.Len())
	recs, err := gw.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.TierWarm, recs[0].Tier)
}

func TestWriterDropsWhenQueueFull(t *testing.T) {
	gw := newGatedGateway()
	w := NewWriter(gw, WriterConfig{QueueSize: 1, Workers: 1})
	w.Start()

	// First op is taken by the worker and pinned inside Save.
	w.EnqueueSave(model.Record{Key: testutil.Key(0), Tier: model.TierCold})
	<-gw.entered

	// Second op fills the queue; the third has nowhere to go.
	w.EnqueueSave(model.Record{Key: testutil.Key(1), Tier: model.TierCold})
	w.EnqueueSave(model.Record{Key: testutil.Key(2), Tier: model.TierCold})
	assert.Equal(t, int64(1), w.Dropped())

	close(gw.release)
	require.NoError(t, w.Flush(context.Background()))
	w.Close()

	assert.Equal(t, 2, gw.Len())
}

func TestWriterRetriesTransientFailures(t *testing.T) {
	gw := NewMemoryGateway()
	var calls atomic.Int32
	flaky := &flakyGateway{MemoryGateway: gw, failFirst: 1, calls: &calls}

	var mu sync.Mutex
	var results []error
	w := NewWriter(flaky, WriterConfig{
		Retries: 2,
		OnResult: func(_ OpKind, _ time.Duration, err error) {
			mu.Lock()
			results = append(results, err)
			mu.Unlock()
		},
	})
	w.Start()
	defer w.Close()

	w.EnqueueSave(model.Record{Key: testutil.Key(0), Tier: model.TierCold})
	require.NoError(t, w.Flush(context.Background()))

	assert.Equal(t, int32(2), calls.Load(), "one failure, one successful retry")
	assert.Equal(t, 1, gw.Len())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, results, 1)
	assert.NoError(t, results[0])
}

// flakyGateway fails the first failFirst Save calls, then succeeds.
type flakyGateway struct {
	*MemoryGateway
	failFirst int32
	calls     *atomic.Int32
}

func (g *flakyGateway) Save(ctx context.Context, rec model.Record) error {
	if g.calls.Add(1) <= g.failFirst {
		return errors.New("transient")
	}
	return g.MemoryGateway.Save(ctx, rec)
}

func TestWriterReportsExhaustedRetriesAsUnavailable(t *testing.T) {
	gw := NewMemoryGateway()
	gw.SetFailure(errors.New("backend down"))

	var mu sync.Mutex
	var results []error
	w := NewWriter(gw, WriterConfig{
		Retries: 1,
		OnResult: func(_ OpKind, _ time.Duration, err error) {
			mu.Lock()
			results = append(results, err)
			mu.Unlock()
		},
	})
	w.Start()
	defer w.Close()

	w.EnqueueSave(model.Record{Key: testutil.Key(0), Tier: model.TierCold})
	require.NoError(t, w.Flush(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0], ErrUnavailable)
}

func TestWriterCloseIsIdempotentAndRejectsLateOps(t *testing.T) {
	gw := NewMemoryGateway()
	w := NewWriter(gw, WriterConfig{})
	w.Start()

	w.Close()
	w.Close()

	// Enqueue after close must not panic or block.
	w.EnqueueSave(model.Record{Key: testutil.Key(0), Tier: model.TierCold})
	assert.Equal(t, 0, gw.Len())
}

func TestWriterFlushDuringConcurrentEnqueues(t *testing.T) {
	gw := NewMemoryGateway()
	w := NewWriter(gw, WriterConfig{QueueSize: 64, Workers: 2})
	w.Start()

	// Saves keep arriving while Flush waits; the drain barrier must
	// tolerate the overlap instead of panicking.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 5000; i++ {
			w.EnqueueSave(model.Record{Key: testutil.Key(i % 8), Tier: model.TierCold})
		}
	}()

	for i := 0; i < 50; i++ {
		require.NoError(t, w.Flush(context.Background()))
	}

	wg.Wait()
	require.NoError(t, w.Flush(context.Background()))
	w.Close()
	assert.Equal(t, 8, gw.Len())
}

func TestWriterFlushHonorsContext(t *testing.T) {
	gw := newGatedGateway()
	w := NewWriter(gw, WriterConfig{})
	w.Start()

	w.EnqueueSave(model.Record{Key: testutil.Key(0), Tier: model.TierCold})
	<-gw.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, w.Flush(ctx), context.DeadlineExceeded)

	close(gw.release)
	require.NoError(t, w.Flush(context.Background()))
	w.Close()
}
