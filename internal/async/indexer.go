package async

import (
	"context"
	"sync"
)

// BuildFunc performs one index build.
type BuildFunc func(ctx context.Context) error

// BackgroundIndexer runs a build in a background goroutine. It runs at
// most once; Stop cancels it and waits for it to return.
type BackgroundIndexer struct {
	build BuildFunc

	mu      sync.Mutex
	started bool
	running bool
	err     error
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

// NewBackgroundIndexer creates an indexer that will run build.
func NewBackgroundIndexer(build BuildFunc) *BackgroundIndexer {
	return &BackgroundIndexer{
		build:  build,
		doneCh: make(chan struct{}),
	}
}

// IsRunning returns true while the build is running.
func (b *BackgroundIndexer) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Start begins the build in a background goroutine and returns
// immediately. Later calls do nothing.
func (b *BackgroundIndexer) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return
	}
	b.started = true
	b.running = true

	ctx, b.cancel = context.WithCancel(ctx)
	go b.run(ctx)
}

func (b *BackgroundIndexer) run(ctx context.Context) {
	defer close(b.doneCh)

	err := b.build(ctx)

	b.mu.Lock()
	b.running = false
	b.err = err
	b.cancel()
	b.mu.Unlock()
}

// Stop cancels a running build and waits for it to return. It is a no-op
// when the build was never started.
func (b *BackgroundIndexer) Stop() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	cancel := b.cancel
	b.mu.Unlock()

	cancel()
	<-b.doneCh
}

// Wait blocks until the build returns and returns its error. It must only
// be called after Start.
func (b *BackgroundIndexer) Wait() error {
	<-b.doneCh
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}
