package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddValidates(t *testing.T) {
	s := New(nil)
	noop := func(context.Context) error { return nil }

	assert.Error(t, s.Add(nil))
	assert.Error(t, s.Add(&Task{Name: "x", Interval: time.Second}))
	assert.Error(t, s.Add(&Task{Name: "x", Run: noop}))
	require.NoError(t, s.Add(&Task{Name: "x", Interval: time.Second, Run: noop}))
	assert.Error(t, s.Add(&Task{Name: "x", Interval: time.Second, Run: noop}))
}

func TestTicksUntilStop(t *testing.T) {
	var runs int32
	s := New(nil)
	require.NoError(t, s.Add(&Task{
		Name:       "tick",
		Interval:   5 * time.Millisecond,
		RunOnStart: true,
		Run: func(context.Context) error {
			atomic.AddInt32(&runs, 1)
			return nil
		},
	}))

	s.Start(context.Background())
	assert.True(t, s.IsRunning())
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 3 }, time.Second, time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	after := atomic.LoadInt32(&runs)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&runs))

	s.Stop()
}

func TestContextCancelEndsLoops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs int32
	s := New(nil)
	require.NoError(t, s.Add(&Task{Name: "t", Interval: time.Millisecond, Run: func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}}))
	s.Start(ctx)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) > 0 }, time.Second, time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() { s.Stop(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop did not return after cancel")
	}
}

func TestOverlappingRunIsSkipped(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	var runs int32
	s := New(nil)
	require.NoError(t, s.Add(&Task{Name: "slow", Interval: time.Hour, Run: func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		entered <- struct{}{}
		<-release
		return nil
	}}))

	errCh := make(chan error, 1)
	go func() { errCh <- s.RunNow(context.Background(), "slow") }()
	<-entered

	assert.ErrorIs(t, s.RunNow(context.Background(), "slow"), ErrBusy)
	close(release)
	require.NoError(t, <-errCh)
	assert.EqualValues(t, 1, atomic.LoadInt32(&runs))
}

func TestRunNowReportsErrors(t *testing.T) {
	s := New(nil)
	boom := errors.New("boom")
	require.NoError(t, s.Add(&Task{Name: "bad", Interval: time.Hour, Run: func(context.Context) error { return boom }}))

	assert.ErrorIs(t, s.RunNow(context.Background(), "bad"), boom)
	assert.Error(t, s.RunNow(context.Background(), "missing"))
}
