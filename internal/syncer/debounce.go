// Package syncer is the single synchronisation adapter between local display
// state and the authoritative store. Local writes are debounced per key,
// remote snapshots are reconciled into local drafts, and a jittered ticker
// drives background refreshes.
package syncer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

// ErrStopped is returned for writes after Stop.
var ErrStopped = errors.New("syncer stopped")

// FlushFunc persists the last value written for a key.
type FlushFunc[K comparable, V any] func(ctx context.Context, key K, value V) error

// Debouncer coalesces writes per key. Only the last value written before a
// flush is sent. Keys flush in the order they were first written since the
// previous flush, and flushes never overlap, so a later write is never sent
// ahead of an earlier one.
type Debouncer[K comparable, V any] struct {
	window time.Duration
	flush  FlushFunc[K, V]
	logger *slog.Logger

	mu      sync.Mutex
	pending map[K]V
	order   []K
	timer   *time.Timer
	stopped bool

	flushMu sync.Mutex
}

// NewDebouncer creates a debouncer that flushes window after the first
// unflushed write.
func NewDebouncer[K comparable, V any](window time.Duration, flush FlushFunc[K, V], logger *slog.Logger) *Debouncer[K, V] {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Debouncer[K, V]{
		window:  window,
		flush:   flush,
		logger:  logger,
		pending: make(map[K]V),
	}
}

// Put records value as the latest write for key. It fails with ErrStopped
// once Stop has been called.
func (d *Debouncer[K, V]) Put(key K, value V) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return ErrStopped
	}
	if _, ok := d.pending[key]; !ok {
		d.order = append(d.order, key)
	}
	d.pending[key] = value
	d.arm()
	return nil
}

// arm starts the flush timer. Callers hold mu.
func (d *Debouncer[K, V]) arm() {
	if d.timer != nil || d.stopped {
		return
	}
	d.timer = time.AfterFunc(d.window, func() {
		if err := d.Flush(context.Background()); err != nil {
			d.logger.Warn("debounced flush failed", "error", err)
		}
	})
}

// Pending returns the number of keys waiting to flush.
func (d *Debouncer[K, V]) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}

// Flush sends every pending write now. A failed key is queued again unless a
// newer value was written meanwhile.
func (d *Debouncer[K, V]) Flush(ctx context.Context) error {
	d.flushMu.Lock()
	defer d.flushMu.Unlock()

	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	order, pending := d.order, d.pending
	d.order, d.pending = nil, make(map[K]V)
	d.mu.Unlock()

	var (
		errs   []error
		failed []K
	)
	for _, key := range order {
		if err := d.flush(ctx, key, pending[key]); err != nil {
			errs = append(errs, err)
			failed = append(failed, key)
		}
	}
	if len(failed) > 0 {
		d.requeue(failed, pending)
	}
	return errors.Join(errs...)
}

// requeue puts failed writes back ahead of anything written since, keeping a
// newer value where one exists.
func (d *Debouncer[K, V]) requeue(failed []K, values map[K]V) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var order []K
	for _, key := range failed {
		if _, newer := d.pending[key]; newer {
			continue
		}
		d.pending[key] = values[key]
		order = append(order, key)
	}
	d.order = append(order, d.order...)
	d.arm()
}

// Stop cancels the pending timer and flushes what remains.
func (d *Debouncer[K, V]) Stop(ctx context.Context) error {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
	return d.Flush(ctx)
}
