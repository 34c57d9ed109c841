package discover

import (
	"context"
	"sync"
	"time"
)

// Debouncer delays a function call until the caller has been quiet for
// the configured period. A new Trigger cancels the pending call and the
// context handed to the previous one, so only the latest invocation
// ever fires.
type Debouncer struct {
	mu     sync.Mutex
	quiet  time.Duration
	timer  *time.Timer
	cancel context.CancelFunc
}

func NewDebouncer(quiet time.Duration) *Debouncer {
	return &Debouncer{quiet: quiet}
}

// Trigger schedules fn to run after the quiet period, replacing any
// pending call.
func (d *Debouncer) Trigger(fn func(ctx context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	if d.cancel != nil {
		d.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.timer = time.AfterFunc(d.quiet, func() {
		defer cancel()
		fn(ctx)
	})
}

// Stop cancels any pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
