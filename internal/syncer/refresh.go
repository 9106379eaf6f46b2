package syncer

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/lthibault/jitterbug/v2"
)

// Refresher runs fn on a jittered interval until stopped. It runs once
// immediately on Start.
type Refresher struct {
	name     string
	interval time.Duration
	jitter   time.Duration
	fn       func(context.Context) error
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewRefresher creates a refresher but does not start it. An interval of 0
// disables it.
func NewRefresher(name string, interval, jitter time.Duration, fn func(context.Context) error, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Refresher{
		name:     name,
		interval: interval,
		jitter:   jitter,
		fn:       fn,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start begins the background loop. The loop exits when ctx is cancelled or
// Stop is called.
func (r *Refresher) Start(ctx context.Context) {
	if r.interval <= 0 {
		r.logger.Info("refresher disabled", "name", r.name)
		close(r.done)
		return
	}

	ctx, r.cancel = context.WithCancel(ctx)
	go r.loop(ctx)

	r.logger.Info("refresher started", "name", r.name, "interval", r.interval, "jitter", r.jitter)
}

// Stop signals the refresher to exit and waits for it to finish.
func (r *Refresher) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
}

func (r *Refresher) loop(ctx context.Context) {
	defer close(r.done)

	r.run(ctx)

	ticker := jitterbug.New(r.interval, &jitterbug.Norm{Stdev: r.jitter, Mean: 0})
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.run(ctx)
		}
	}
}

func (r *Refresher) run(ctx context.Context) {
	if err := r.fn(ctx); err != nil && ctx.Err() == nil {
		r.logger.Warn("refresh failed", "name", r.name, "error", err)
	}
}
