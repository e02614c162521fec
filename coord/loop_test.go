package coord

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T) (*Loop, func()) {
	l := NewLoop()
	done := make(chan struct{})
	go func() {
		l.Run(context.Background())
		close(done)
	}()
	return l, func() {
		l.Stop()
		<-done
	}
}

func TestLoopExecutesInOrder(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.coord")
	defer teardown()
	//
	l, stop := startLoop(t)
	defer stop()
	var order []int
	for i := 0; i < 100; i++ {
		i := i
		l.Post(func(context.Context) { order = append(order, i) })
	}
	var n int
	err := l.Do(context.Background(), func(context.Context) error {
		n = len(order)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 100, n)
	for i, x := range order {
		assert.Equal(t, i, x)
	}
}

func TestLoopSerializesConcurrentPosts(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.coord")
	defer teardown()
	//
	l, stop := startLoop(t)
	defer stop()
	counter := 0 // only touched on the loop
	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				l.Do(context.Background(), func(context.Context) error {
					counter++
					return nil
				})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1000, counter)
}

func TestLoopDoReturnsError(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.coord")
	defer teardown()
	//
	l, stop := startLoop(t)
	defer stop()
	boom := errors.New("boom")
	err := l.Do(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestLoopDoIsReentrant(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.coord")
	defer teardown()
	//
	l, stop := startLoop(t)
	defer stop()
	inner := false
	err := l.Do(context.Background(), func(ctx context.Context) error {
		assert.True(t, l.OnLoop(ctx))
		return l.Do(ctx, func(context.Context) error {
			inner = true
			return nil
		})
	})
	require.NoError(t, err)
	assert.True(t, inner)
	assert.False(t, l.OnLoop(context.Background()))
}

func TestLoopSurvivesPanic(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.coord")
	defer teardown()
	//
	l, stop := startLoop(t)
	defer stop()
	l.Post(func(context.Context) { panic("task failed") })
	err := l.Do(context.Background(), func(context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestLoopStopped(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.coord")
	defer teardown()
	//
	l, stop := startLoop(t)
	stop()
	assert.False(t, l.Post(func(context.Context) {}))
	err := l.Do(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrLoopStopped)
	assert.ErrorIs(t, l.Run(context.Background()), ErrLoopRunning)
}

func TestLoopRunEndsWithContext(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.coord")
	defer teardown()
	//
	l := NewLoop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := l.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	select {
	case <-l.Done():
	default:
		t.Errorf("loop not stopped after context ended")
	}
}

func TestLoopDoHonorsCallerContext(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "asynclist.coord")
	defer teardown()
	//
	l := NewLoop() // not running
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	err := l.Do(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
