package poll_test

import (
	"context"
	"testing"
	"time"

	"kioskboard/internal/poll"
	"kioskboard/internal/poll/polltest"
)

const wait = 2 * time.Second

func expectFetch(t *testing.T, calls <-chan struct{}) {
	t.Helper()
	select {
	case <-calls:
	case <-time.After(wait):
		t.Fatal("timed out waiting for fetch")
	}
}

func expectNoFetch(t *testing.T, calls <-chan struct{}) {
	t.Helper()
	select {
	case <-calls:
		t.Fatal("unexpected fetch")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStartFetchesImmediatelyThenEveryTick(t *testing.T) {
	clock := polltest.NewClock()
	calls := make(chan struct{}, 10)
	h := poll.Start(clock, 5*time.Second, func(ctx context.Context) { calls <- struct{}{} })
	defer h.Stop()

	expectFetch(t, calls)
	expectNoFetch(t, calls)

	clock.Advance(4 * time.Second)
	expectNoFetch(t, calls)

	clock.Advance(time.Second)
	expectFetch(t, calls)

	clock.Advance(5 * time.Second)
	expectFetch(t, calls)
}

func TestStopPreventsFurtherFetches(t *testing.T) {
	clock := polltest.NewClock()
	calls := make(chan struct{}, 10)
	h := poll.Start(clock, 5*time.Second, func(ctx context.Context) { calls <- struct{}{} })
	expectFetch(t, calls)

	h.Stop()
	h.Stop() // idempotent

	select {
	case <-h.Done():
	default:
		t.Fatal("loop still running after Stop")
	}
	if n := clock.ActiveTickers(); n != 0 {
		t.Fatalf("%d tickers still active", n)
	}

	clock.Advance(5 * time.Second)
	clock.Advance(5 * time.Second)
	expectNoFetch(t, calls)
}

func TestStopCancelsInFlightFetchContext(t *testing.T) {
	clock := polltest.NewClock()
	started := make(chan struct{})
	cancelled := make(chan struct{})
	h := poll.Start(clock, time.Second, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(cancelled)
	})

	<-started
	h.Stop()
	select {
	case <-cancelled:
	case <-time.After(wait):
		t.Fatal("fetch context was not cancelled")
	}
}

func TestSlowFetchCoalescesTicks(t *testing.T) {
	clock := polltest.NewClock()
	release := make(chan struct{})
	calls := make(chan struct{}, 10)
	first := true
	h := poll.Start(clock, time.Second, func(ctx context.Context) {
		calls <- struct{}{}
		if first {
			first = false
			<-release
		}
	})
	defer h.Stop()

	expectFetch(t, calls)
	// Three ticks while the first fetch is blocked collapse into one.
	clock.Advance(time.Second)
	clock.Advance(time.Second)
	clock.Advance(time.Second)
	close(release)

	expectFetch(t, calls)
	expectNoFetch(t, calls)
}
