package concurrency

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGuardExclusive(t *testing.T) {
	t.Parallel()

	g := NewGuard(time.Minute)
	release, ok := g.TryAcquire(1)
	assert.True(t, ok)
	assert.True(t, g.Busy(1))

	_, ok = g.TryAcquire(1)
	assert.False(t, ok)

	_, ok = g.TryAcquire(2)
	assert.True(t, ok, "other keys are independent")

	release()
	release()
	assert.False(t, g.Busy(1))
	_, ok = g.TryAcquire(1)
	assert.True(t, ok)
}

func TestGuardExpiry(t *testing.T) {
	t.Parallel()

	now := time.Unix(0, 0)
	g := NewGuard(10 * time.Minute)
	g.now = func() time.Time { return now }

	staleRelease, ok := g.TryAcquire(7)
	assert.True(t, ok)

	now = now.Add(11 * time.Minute)
	freshRelease, ok := g.TryAcquire(7)
	assert.True(t, ok, "stale hold is overtaken")

	staleRelease()
	assert.True(t, g.Busy(7), "late release of the stale hold must not free the fresh one")
	freshRelease()
	assert.False(t, g.Busy(7))

	_, _ = g.TryAcquire(8)
	now = now.Add(time.Hour)
	g.Cleanup()
	assert.Zero(t, g.Len())
}

func TestGuardConcurrent(t *testing.T) {
	t.Parallel()

	g := NewGuard(0)
	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			if _, ok := g.TryAcquire(3); ok {
				wins.Add(1)
			}
		})
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins.Load())
}

func TestGuardStartStop(t *testing.T) {
	t.Parallel()
	g := NewGuard(time.Minute)
	g.Start(context.Background())
	g.Start(context.Background())
	g.Stop()
	g.Stop()
}

func TestStopAfterFires(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	StopAfter(ctx, 10*time.Millisecond, cancel)
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stop was not called")
	}
}

func TestStopAfterDisabledOrCanceled(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	stop := func() { calls.Add(1) }

	StopAfter(context.Background(), 0, stop)

	ctx, cancel := context.WithCancel(context.Background())
	StopAfter(ctx, 30*time.Millisecond, stop)
	cancel()

	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, calls.Load())
}
