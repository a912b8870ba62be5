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
	// ErrUnknownOrder means the order is not in the current snapshot.
	ErrUnknownOrder = errors.New("order not in current snapshot")
	// ErrInvalidStatus rejects unknown statuses and advancing a completed order.
	ErrInvalidStatus = errors.New("invalid status transition")
)

// OrderSource is the part of the backend the order board needs.
type OrderSource interface {
	ListOrders(ctx context.Context) ([]models.Order, error)
	OrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) error
}

// OrderBoard keeps a polled snapshot of the active orders and their line items.
type OrderBoard struct {
	src      OrderSource
	clock    poll.Clock
	interval time.Duration
	log      *utils.Logger
	onChange func()
	busy     *inFlight
	// fallback, when set, replaces the snapshot after a failed list fetch.
	fallback func(now time.Time) []models.Order

	mu       sync.Mutex
	mounted  bool
	gen      uint64
	snapshot []models.Order
	details  map[string][]models.OrderItem
	handle   *poll.Handle
}

func NewOrderBoard(src OrderSource, clock poll.Clock, interval time.Duration, log *utils.Logger) *OrderBoard {
	if clock == nil {
		clock = poll.RealClock{}
	}
	if log == nil {
		log = utils.NewNopLogger()
	}
	return &OrderBoard{
		src:      src,
		clock:    clock,
		interval: interval,
		log:      log.WithFields(map[string]any{"feed": "orders"}),
		onChange: func() {},
		busy:     newInFlight(),
	}
}

// OnChange registers fn to run after every snapshot, detail or in-flight change.
// It must be set before Mount.
func (b *OrderBoard) OnChange(fn func()) {
	if fn == nil {
		fn = func() {}
	}
	b.onChange = fn
}

// UseFallback makes failed polls show the orders produced by fn instead of the stale snapshot.
// It must be set before Mount.
func (b *OrderBoard) UseFallback(fn func(now time.Time) []models.Order) {
	b.fallback = fn
}

// Mount starts with an empty snapshot and begins polling.
func (b *OrderBoard) Mount() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mounted {
		return
	}
	b.mounted = true
	b.gen++
	b.snapshot = []models.Order{}
	b.details = make(map[string][]models.OrderItem)
	b.handle = poll.Start(b.clock, b.interval, b.poll)
}

// Unmount stops polling and discards the snapshot and details.
func (b *OrderBoard) Unmount() {
	b.mu.Lock()
	if !b.mounted {
		b.mu.Unlock()
		return
	}
	b.mounted = false
	b.gen++
	b.snapshot = nil
	b.details = nil
	h := b.handle
	b.handle = nil
	b.mu.Unlock()

	if h != nil {
		h.Stop()
	}
}

// Snapshot returns a copy of the latest orders: empty but non-nil while
// mounted with no orders, nil once unmounted.
func (b *OrderBoard) Snapshot() []models.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.snapshot == nil {
		return nil
	}
	out := make([]models.Order, len(b.snapshot))
	copy(out, b.snapshot)
	return out
}

// Items returns the line items of an order. loaded is false while the first
// detail fetch for that order is outstanding.
func (b *OrderBoard) Items(orderID string) (items []models.OrderItem, loaded bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	items, loaded = b.details[orderID]
	if !loaded {
		return nil, false
	}
	out := make([]models.OrderItem, len(items))
	copy(out, items)
	return out, true
}

// InFlight reports whether a status change is pending for orderID.
func (b *OrderBoard) InFlight(orderID string) bool {
	return b.busy.has(orderID)
}

func (b *OrderBoard) poll(ctx context.Context) {
	err := b.Refresh(ctx)
	if err == nil || ctx.Err() != nil {
		return
	}
	if b.fallback == nil {
		b.log.WithError(err).Warn("order poll failed, keeping previous snapshot")
		return
	}
	b.log.WithError(err).Warn("order poll failed, showing placeholder orders")
	gen := b.generation()
	if b.replace(gen, b.fallback(b.clock.Now())) {
		b.onChange()
	}
}

// Refresh fetches the order list, replaces the snapshot, then fetches every
// order's line items. Detail failures never fail the refresh.
func (b *OrderBoard) Refresh(ctx context.Context) error {
	gen := b.generation()
	orders, err := b.src.ListOrders(ctx)
	if err != nil {
		return fmt.Errorf("list orders: %w", err)
	}
	if !b.replace(gen, orders) {
		return nil
	}
	b.onChange()
	b.expand(ctx, gen, orders)
	return nil
}

// expand fetches details for each order independently. A failed fetch records
// an empty list so the order shows "no items" rather than loading forever.
func (b *OrderBoard) expand(ctx context.Context, gen uint64, orders []models.Order) {
	var wg sync.WaitGroup
	for _, o := range orders {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			items, err := b.src.OrderItems(ctx, id)
			if err != nil {
				if ctx.Err() == nil {
					b.log.WithFields(map[string]any{"id": id}).WithError(err).Warn("error fetching order details")
				}
				items = []models.OrderItem{}
			}
			if b.setDetails(gen, id, items) {
				b.onChange()
			}
		}(o.ID)
	}
	wg.Wait()
	b.prune(gen)
}

func (b *OrderBoard) replace(gen uint64, orders []models.Order) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.mounted || b.gen != gen {
		return false
	}
	if orders == nil {
		orders = []models.Order{}
	}
	b.snapshot = orders
	return true
}

func (b *OrderBoard) setDetails(gen uint64, id string, items []models.OrderItem) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.mounted || b.gen != gen {
		return false
	}
	b.details[id] = items
	return true
}

// prune drops details of orders that are no longer in the snapshot.
func (b *OrderBoard) prune(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.mounted || b.gen != gen {
		return
	}
	keep := make(map[string]bool, len(b.snapshot))
	for _, o := range b.snapshot {
		keep[o.ID] = true
	}
	for id := range b.details {
		if !keep[id] {
			delete(b.details, id)
		}
	}
}

// SetStatus moves an order to status and, on success, re-fetches the board.
func (b *OrderBoard) SetStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidStatus, status)
	}
	if !b.isMounted() {
		return ErrNotMounted
	}
	if !b.busy.acquire(orderID) {
		return ErrInFlight
	}
	b.onChange()
	defer func() {
		b.busy.release(orderID)
		b.onChange()
	}()

	log := b.log.WithFields(map[string]any{"action": "order_status", "id": orderID, "status": status})
	if err := b.src.UpdateOrderStatus(ctx, orderID, status); err != nil {
		log.WithError(err).Error("error updating order status")
		return fmt.Errorf("update order %s: %w", orderID, err)
	}
	if err := b.Refresh(ctx); err != nil {
		log.WithError(err).Warn("refresh after status update failed")
		return err
	}
	log.Info("order status updated")
	return nil
}

// Advance moves an order one step along the lifecycle.
func (b *OrderBoard) Advance(ctx context.Context, orderID string) error {
	order, ok := b.find(orderID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}
	next, ok := order.Status.Next()
	if !ok {
		return fmt.Errorf("%w: %s has no status after %q", ErrInvalidStatus, orderID, order.Status)
	}
	return b.SetStatus(ctx, orderID, next)
}

// Complete moves an order straight to completed.
func (b *OrderBoard) Complete(ctx context.Context, orderID string) error {
	return b.SetStatus(ctx, orderID, models.StatusCompleted)
}

func (b *OrderBoard) find(orderID string) (models.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, o := range b.snapshot {
		if o.ID == orderID {
			return o, true
		}
	}
	return models.Order{}, false
}

func (b *OrderBoard) generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen
}

func (b *OrderBoard) isMounted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mounted
}
