package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_DispatchSpacing(t *testing.T) {
	const interval = 50 * time.Millisecond
	l := New(interval)

	var mu sync.Mutex
	var starts []time.Time
	var order []int

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			_, err := l.Schedule(context.Background(), func(ctx context.Context) (any, error) {
				mu.Lock()
				starts = append(starts, time.Now())
				order = append(order, i)
				mu.Unlock()
				return nil, nil
			})
			assert.NoError(t, err)
		}()
		// Stagger enqueues so FIFO order is deterministic
		time.Sleep(2 * time.Millisecond)
	}
	wg.Wait()

	require.Len(t, starts, 5)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		// Small tolerance for timestamping after the gate opens
		assert.GreaterOrEqual(t, gap, interval-5*time.Millisecond,
			"dispatch %d followed too quickly (%v)", i, gap)
	}
}

func TestLimiter_FirstTaskImmediate(t *testing.T) {
	l := New(time.Second)

	begin := time.Now()
	_, err := l.Schedule(context.Background(), func(ctx context.Context) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(begin), 500*time.Millisecond)
}

func TestLimiter_ErrorPropagatesToOwnCallerOnly(t *testing.T) {
	l := New(5 * time.Millisecond)
	boom := errors.New("boom")

	var wg sync.WaitGroup
	results := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			_, err := l.Schedule(context.Background(), func(ctx context.Context) (any, error) {
				if i == 1 {
					return nil, boom
				}
				return i, nil
			})
			results[i] = err
		}()
		time.Sleep(2 * time.Millisecond)
	}
	wg.Wait()

	assert.NoError(t, results[0])
	assert.ErrorIs(t, results[1], boom)
	assert.NoError(t, results[2])
}

func TestLimiter_SlowTaskDoesNotBlockNextDispatch(t *testing.T) {
	const interval = 20 * time.Millisecond
	l := New(interval)

	slowDone := make(chan struct{})
	secondStarted := make(chan time.Time, 1)

	go func() {
		_, _ = l.Schedule(context.Background(), func(ctx context.Context) (any, error) {
			<-slowDone
			return nil, nil
		})
	}()
	time.Sleep(5 * time.Millisecond)
	go func() {
		_, _ = l.Schedule(context.Background(), func(ctx context.Context) (any, error) {
			secondStarted <- time.Now()
			return nil, nil
		})
	}()

	// The second task must start one interval after the first dispatch even
	// though the first task is still running.
	select {
	case <-secondStarted:
	case <-time.After(10 * interval):
		t.Fatal("second task never dispatched while first was in flight")
	}
	close(slowDone)
}

func TestLimiter_IdleThenRestart(t *testing.T) {
	l := New(10 * time.Millisecond)

	_, err := l.Schedule(context.Background(), func(ctx context.Context) (any, error) { return 1, nil })
	require.NoError(t, err)

	// Queue drains and the limiter goes idle
	assert.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, time.Millisecond)

	v, err := Do(context.Background(), l, func(ctx context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestDo_TypedResult(t *testing.T) {
	l := New(time.Millisecond)

	v, err := Do(context.Background(), l, func(ctx context.Context) (string, error) {
		return "typed", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "typed", v)
}

func TestLimiter_AbandonedCallerTaskStillRuns(t *testing.T) {
	l := New(time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := make(chan struct{})
	_, err := l.Schedule(ctx, func(ctx context.Context) (any, error) {
		close(ran)
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("task was dropped after caller abandoned it")
	}
}
