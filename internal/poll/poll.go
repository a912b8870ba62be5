package poll

import (
	"context"
	"sync"
	"time"
)

// Handle cancels a running poll loop.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Start runs fetch once immediately and then on every tick of interval, until Stop.
// Fetches never overlap; a tick that arrives while a fetch is running is coalesced.
// fetch receives a context that is cancelled by Stop.
func Start(clock Clock, interval time.Duration, fetch func(ctx context.Context)) *Handle {
	if clock == nil {
		clock = RealClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	ticker := clock.NewTicker(interval)

	go func() {
		defer close(h.done)
		defer ticker.Stop()

		fetch(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				// Stop may have raced with the tick.
				if ctx.Err() != nil {
					return
				}
				fetch(ctx)
			}
		}
	}()
	return h
}

// Stop cancels the loop and waits for it to exit. It is safe to call more than once.
func (h *Handle) Stop() {
	h.once.Do(h.cancel)
	<-h.done
}

// Done is closed once the loop has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }
