package kitchen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"kioskboard/internal/models"
	"kioskboard/internal/poll"
	"kioskboard/internal/utils"
)

var (
	// ErrInFlight rejects a second action on a record whose first action has not settled.
	ErrInFlight = errors.New("action already in flight")
	// ErrNotMounted is returned by actions on a feed that is not polling.
	ErrNotMounted = errors.New("feed is not mounted")
)

// CheckInSource is the part of the backend the check-in feed needs.
type CheckInSource interface {
	ListCheckIns(ctx context.Context) ([]models.CheckIn, error)
	CompleteCheckIn(ctx context.Context, id string) error
}

// CheckInFeed keeps a polled snapshot of the active check-ins.
type CheckInFeed struct {
	src      CheckInSource
	clock    poll.Clock
	interval time.Duration
	log      *utils.Logger
	onChange func()
	busy     *inFlight

	mu       sync.Mutex
	mounted  bool
	gen      uint64 // bumped on every Mount and Unmount
	snapshot []models.CheckIn
	handle   *poll.Handle
}

func NewCheckInFeed(src CheckInSource, clock poll.Clock, interval time.Duration, log *utils.Logger) *CheckInFeed {
	if clock == nil {
		clock = poll.RealClock{}
	}
	if log == nil {
		log = utils.NewNopLogger()
	}
	return &CheckInFeed{
		src:      src,
		clock:    clock,
		interval: interval,
		log:      log.WithFields(map[string]any{"feed": "checkins"}),
		onChange: func() {},
		busy:     newInFlight(),
	}
}

// OnChange registers fn to run after every snapshot replacement or in-flight change.
// It must be set before Mount.
func (f *CheckInFeed) OnChange(fn func()) {
	if fn == nil {
		fn = func() {}
	}
	f.onChange = fn
}

// Mount starts with an empty snapshot and begins polling.
func (f *CheckInFeed) Mount() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mounted {
		return
	}
	f.mounted = true
	f.gen++
	f.snapshot = []models.CheckIn{}
	// The loop's first fetch blocks on f.mu until this returns.
	f.handle = poll.Start(f.clock, f.interval, f.poll)
}

// Unmount stops polling and drops the snapshot. Results of requests still
// outstanding are discarded.
func (f *CheckInFeed) Unmount() {
	f.mu.Lock()
	if !f.mounted {
		f.mu.Unlock()
		return
	}
	f.mounted = false
	f.gen++
	f.snapshot = nil
	h := f.handle
	f.handle = nil
	f.mu.Unlock()

	if h != nil {
		h.Stop()
	}
}

// Snapshot returns a copy of the latest check-ins: empty but non-nil while
// mounted with nothing waiting, nil once unmounted.
func (f *CheckInFeed) Snapshot() []models.CheckIn {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapshot == nil {
		return nil
	}
	out := make([]models.CheckIn, len(f.snapshot))
	copy(out, f.snapshot)
	return out
}

// InFlight reports whether a complete action is pending for id.
func (f *CheckInFeed) InFlight(id string) bool {
	return f.busy.has(id)
}

func (f *CheckInFeed) poll(ctx context.Context) {
	if err := f.Refresh(ctx); err != nil && ctx.Err() == nil {
		f.log.WithError(err).Warn("check-in poll failed, keeping previous snapshot")
	}
}

// Refresh fetches the list once and replaces the snapshot on success.
func (f *CheckInFeed) Refresh(ctx context.Context) error {
	gen := f.generation()
	list, err := f.src.ListCheckIns(ctx)
	if err != nil {
		return fmt.Errorf("list check-ins: %w", err)
	}
	if f.replace(gen, list) {
		f.onChange()
	}
	return nil
}

// replace installs list unless the feed was unmounted (or remounted) since gen was read.
func (f *CheckInFeed) replace(gen uint64, list []models.CheckIn) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.mounted || f.gen != gen {
		return false
	}
	if list == nil {
		list = []models.CheckIn{}
	}
	f.snapshot = list
	return true
}

// Complete marks a check-in delivered and, on success, re-fetches the list.
// The record is never removed locally; only the re-fetch decides what stays.
func (f *CheckInFeed) Complete(ctx context.Context, id string) error {
	if !f.isMounted() {
		return ErrNotMounted
	}
	if !f.busy.acquire(id) {
		return ErrInFlight
	}
	f.onChange()
	defer func() {
		f.busy.release(id)
		f.onChange()
	}()

	log := f.log.WithFields(map[string]any{"action": "complete_checkin", "id": id})
	if err := f.src.CompleteCheckIn(ctx, id); err != nil {
		log.WithError(err).Error("error marking check-in as completed")
		return fmt.Errorf("complete check-in %s: %w", id, err)
	}
	if err := f.Refresh(ctx); err != nil {
		log.WithError(err).Warn("refresh after complete failed")
		return err
	}
	log.Info("check-in completed")
	return nil
}

func (f *CheckInFeed) generation() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gen
}

func (f *CheckInFeed) isMounted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mounted
}
