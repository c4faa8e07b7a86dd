package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackgroundIndexer_RunsOnce(t *testing.T) {
	var calls atomic.Int32
	b := NewBackgroundIndexer(func(context.Context) error {
		calls.Add(1)
		return nil
	})

	b.Start(context.Background())
	b.Start(context.Background())

	require.NoError(t, b.Wait())
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, b.IsRunning())
}

func TestBackgroundIndexer_ReturnsBuildError(t *testing.T) {
	want := errors.New("clone failed")
	b := NewBackgroundIndexer(func(context.Context) error { return want })

	b.Start(context.Background())

	assert.ErrorIs(t, b.Wait(), want)
}

func TestBackgroundIndexer_StopCancelsBuild(t *testing.T) {
	// Given: a build that blocks until cancelled
	started := make(chan struct{})
	b := NewBackgroundIndexer(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	b.Start(context.Background())
	<-started
	assert.True(t, b.IsRunning())

	// When: stopping
	done := make(chan struct{})
	go func() {
		b.Stop()
		close(done)
	}()

	// Then: the build sees cancellation and Stop returns
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
	assert.ErrorIs(t, b.Wait(), context.Canceled)
	assert.False(t, b.IsRunning())
}

func TestBackgroundIndexer_StopWithoutStart(t *testing.T) {
	b := NewBackgroundIndexer(func(context.Context) error { return nil })

	assert.NotPanics(t, b.Stop)
	assert.False(t, b.IsRunning())
}
