package notification

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/policykeeper/domain/event"
)

// batcher accumulates events and hands them to onBatch when maxSize are
// pending or maxWait has passed since the first one arrived.
type batcher struct {
	maxSize int
	maxWait time.Duration
	onBatch func(ctx context.Context, events []event.Event) error

	mu      sync.Mutex
	pending []event.Event
	timer   *time.Timer
}

func newBatcher(maxSize int, maxWait time.Duration, onBatch func(context.Context, []event.Event) error) *batcher {
	if maxSize <= 0 {
		maxSize = 50
	}
	if maxWait <= 0 {
		maxWait = 2 * time.Second
	}
	return &batcher{maxSize: maxSize, maxWait: maxWait, onBatch: onBatch}
}

func (b *batcher) add(ctx context.Context, events []event.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, events...)
	if len(b.pending) >= b.maxSize {
		return b.flushLocked(ctx)
	}
	if b.timer == nil {
		// The timer outlives the caller's request.
		b.timer = time.AfterFunc(b.maxWait, func() { _ = b.flush(context.Background()) })
	}
	return nil
}

func (b *batcher) flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked(ctx)
}

func (b *batcher) flushLocked(ctx context.Context) error {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if len(b.pending) == 0 {
		return nil
	}

	batch := b.pending
	b.pending = nil
	return b.onBatch(ctx, batch)
}

func (b *batcher) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
