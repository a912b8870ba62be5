package kitchen

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"kioskboard/internal/models"
)

var errBackend = errors.New("backend unavailable")

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type fakeCheckIns struct {
	mu          sync.Mutex
	list        []models.CheckIn
	listErr     error
	listCalls   int
	completed   []string
	completeErr error
	gate        map[string]chan struct{}
}

func (f *fakeCheckIns) ListCheckIns(ctx context.Context) ([]models.CheckIn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.CheckIn(nil), f.list...), nil
}

func (f *fakeCheckIns) CompleteCheckIn(ctx context.Context, id string) error {
	f.mu.Lock()
	gate := f.gate[id]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, id)
	return f.completeErr
}

func (f *fakeCheckIns) set(list []models.CheckIn, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.list, f.listErr = list, err
}

func (f *fakeCheckIns) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

// fakeOrders blocks a call on its gate channel, when one is set, until the
// test closes it. Gates ignore ctx so late results reach the board.
type fakeOrders struct {
	mu         sync.Mutex
	list       []models.Order
	listErr    error
	listCalls  int
	listGate   chan struct{}
	items      map[string][]models.OrderItem
	itemErrs   map[string]error
	itemGate   chan struct{}
	updates    []models.StatusUpdate
	updateIDs  []string
	updateErr  error
	updateGate map[string]chan struct{}
}

func (f *fakeOrders) ListOrders(ctx context.Context) ([]models.Order, error) {
	f.mu.Lock()
	f.listCalls++
	gate := f.listGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Order(nil), f.list...), nil
}

func (f *fakeOrders) OrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	f.mu.Lock()
	gate := f.itemGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.itemErrs[orderID]; err != nil {
		return nil, err
	}
	return append([]models.OrderItem(nil), f.items[orderID]...), nil
}

func (f *fakeOrders) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	f.mu.Lock()
	gate := f.updateGate[orderID]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateIDs = append(f.updateIDs, orderID)
	f.updates = append(f.updates, models.StatusUpdate{Status: status})
	return f.updateErr
}

func (f *fakeOrders) set(list []models.Order, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.list, f.listErr = list, err
}

func (f *fakeOrders) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}
