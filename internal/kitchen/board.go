package kitchen

import (
	"strings"
	"sync"
	"time"

	"kioskboard/internal/models"
)

type Tab string

const (
	TabOrders    Tab = "orders"
	TabHistory   Tab = "history"
	TabCustomers Tab = "customers"
)

// ParseTab falls back to the orders tab for anything it does not recognise.
func ParseTab(raw string) Tab {
	switch t := Tab(strings.ToLower(strings.TrimSpace(raw))); t {
	case TabOrders, TabHistory, TabCustomers:
		return t
	}
	return TabOrders
}

// TimeLayout is how order and check-in times are shown on the board.
const TimeLayout = "01/02/2006, 03:04 PM"

// Board joins the check-in feed and the order board into one screen and fans
// out change notifications to subscribers.
type Board struct {
	CheckIns *CheckInFeed
	Orders   *OrderBoard

	mu   sync.Mutex
	subs map[int]chan struct{}
	next int
}

func NewBoard(checkIns *CheckInFeed, orders *OrderBoard) *Board {
	b := &Board{CheckIns: checkIns, Orders: orders, subs: make(map[int]chan struct{})}
	checkIns.OnChange(b.notify)
	orders.OnChange(b.notify)
	return b
}

// Mount starts polling both feeds.
func (b *Board) Mount() {
	b.CheckIns.Mount()
	b.Orders.Mount()
}

// Unmount stops both feeds and waits for their loops to exit.
func (b *Board) Unmount() {
	b.CheckIns.Unmount()
	b.Orders.Unmount()
}

// Subscribe returns a channel that receives a value whenever the board may
// have changed. Notifications are coalesced; a slow reader only misses
// duplicates. The returned func unsubscribes and must be called.
func (b *Board) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func (b *Board) notify() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

type ItemRow struct {
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	Note        string `json:"note,omitempty"`
	Total       string `json:"total"`
}

type OrderRow struct {
	ID          string             `json:"id"`
	OrderNumber string             `json:"orderNumber"`
	Name        string             `json:"name"`
	Phone       string             `json:"phone"`
	OrderTime   string             `json:"orderTime"`
	Status      models.OrderStatus `json:"status"`
	Notes       string             `json:"notes,omitempty"`
	Arriving    bool               `json:"arriving"`
	ItemsLoaded bool               `json:"itemsLoaded"`
	Items       []ItemRow          `json:"items"`
	Subtotal    string             `json:"subtotal"`
	Total       string             `json:"total"`
	Busy        bool               `json:"busy"`
	NextStatus  models.OrderStatus `json:"nextStatus,omitempty"`
}

type CheckInRow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Time      string `json:"time"`
	Completed bool   `json:"completed"`
	Busy      bool   `json:"busy"`
}

// BoardView is one render of the board. Actions is false on the history tab.
type BoardView struct {
	Tab      Tab                  `json:"tab"`
	Actions  bool                 `json:"actions"`
	Orders   []OrderRow           `json:"orders"`
	CheckIns []CheckInRow         `json:"checkIns"`
	Statuses []models.OrderStatus `json:"statuses"`
}

// View builds a view from the current snapshots. The arriving flag is joined
// here on every call and never stored.
func (b *Board) View(tab Tab) BoardView {
	checkIns := b.CheckIns.Snapshot()
	orders := b.Orders.Snapshot()
	arriving := models.ArrivingPhones(checkIns)

	v := BoardView{
		Tab:      tab,
		Actions:  tab == TabOrders,
		Orders:   make([]OrderRow, 0, len(orders)),
		CheckIns: make([]CheckInRow, 0, len(checkIns)),
		Statuses: models.Statuses,
	}
	for _, o := range orders {
		items, loaded := b.Orders.Items(o.ID)
		row := OrderRow{
			ID:          o.ID,
			OrderNumber: o.OrderNumber,
			Name:        o.Name,
			Phone:       o.Phone,
			OrderTime:   formatTime(o.CreatedAt),
			Status:      o.Status,
			Notes:       o.Notes,
			Arriving:    o.Phone != "" && arriving[o.Phone],
			ItemsLoaded: loaded,
			Items:       make([]ItemRow, 0, len(items)),
			Subtotal:    "$" + models.ItemsSubtotal(items).StringFixed(2),
			Total:       "$" + o.TotalAmount.StringFixed(2),
			Busy:        b.Orders.InFlight(o.ID),
		}
		if next, ok := o.Status.Next(); ok {
			row.NextStatus = next
		}
		for _, it := range items {
			row.Items = append(row.Items, ItemRow{
				ProductName: it.ProductName,
				Quantity:    it.Quantity,
				Note:        it.Note,
				Total:       "$" + it.TotalPrice.StringFixed(2),
			})
		}
		v.Orders = append(v.Orders, row)
	}
	for _, c := range checkIns {
		v.CheckIns = append(v.CheckIns, CheckInRow{
			ID:        c.ID,
			Name:      c.Name,
			Phone:     c.Phone,
			Time:      formatTime(c.ArrivedAt()),
			Completed: c.Completed,
			Busy:      b.CheckIns.InFlight(c.ID),
		})
	}
	return v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(TimeLayout)
}
