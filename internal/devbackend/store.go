package devbackend

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"kioskboard/internal/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrPhoneRequired = errors.New("phone number is required")
)

// Store keeps customers, check-ins and orders in memory.
type Store struct {
	mu        sync.Mutex
	now       func() time.Time
	customers map[string]*models.Customer // by phone
	checkIns  []*models.CheckIn
	orders    []*models.Order
	items     map[string][]models.OrderItem // by order id
	seq       int
}

func NewStore() *Store {
	return &Store{
		now:       time.Now,
		customers: make(map[string]*models.Customer),
		items:     make(map[string][]models.OrderItem),
	}
}

// CheckIn records an arrival and awards one reward point.
func (s *Store) CheckIn(phone, name string) (models.CheckInResult, error) {
	phone = strings.TrimSpace(phone)
	name = strings.TrimSpace(name)
	if phone == "" {
		return models.CheckInResult{}, ErrPhoneRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cust := s.customerLocked(phone, name)
	cust.RewardPoints++

	s.checkIns = append(s.checkIns, &models.CheckIn{
		ID:          uuid.NewString(),
		Name:        cust.Name,
		Phone:       cust.Phone,
		CheckInTime: s.now().UnixMilli(),
	})

	return models.CheckInResult{
		RewardPoints:  cust.RewardPoints,
		CustomerName:  cust.Name,
		CustomerPhone: cust.Phone,
	}, nil
}

// ActiveCheckIns returns copies of the check-ins not yet completed, oldest first.
func (s *Store) ActiveCheckIns() []models.CheckIn {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.CheckIn, 0, len(s.checkIns))
	for _, c := range s.checkIns {
		if !c.Completed {
			out = append(out, *c)
		}
	}
	return out
}

func (s *Store) CompleteCheckIn(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.checkIns {
		if c.ID == id {
			c.Completed = true
			return nil
		}
	}
	return fmt.Errorf("check-in %s: %w", id, ErrNotFound)
}

// NewItem describes one line of an order being placed.
type NewItem struct {
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Note        string
	Category    string
}

// AddOrder places a pending order for phone and returns it.
func (s *Store) AddOrder(phone, name, notes string, lines []NewItem) models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	s.seq++
	cust := s.customerLocked(phone, name)
	order := &models.Order{
		ID:            uuid.NewString(),
		User:          *cust,
		Phone:         cust.Phone,
		Name:          cust.Name,
		OrderNumber:   fmt.Sprintf("ORD%s%03d", now.Format("20060102"), s.seq),
		Status:        models.StatusPending,
		PaymentMethod: "cash",
		PaymentStatus: "pending",
		Notes:         notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	items := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		total := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		items = append(items, models.OrderItem{
			ID:          uuid.NewString(),
			OrderID:     order.ID,
			ProductName: l.ProductName,
			ProductID:   uuid.NewString(),
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			TotalPrice:  total,
			Note:        l.Note,
			Category:    l.Category,
			CreatedAt:   now,
		})
	}
	order.Subtotal = models.ItemsSubtotal(items)
	order.TotalAmount = order.Subtotal

	s.orders = append(s.orders, order)
	s.items[order.ID] = items
	return *order
}

// ActiveOrders returns the orders that are not completed, newest first.
func (s *Store) ActiveOrders() []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if o.Status != models.StatusCompleted {
			out = append(out, *o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Order returns one order with its line items.
func (s *Store) Order(id string) (models.Order, []models.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orders {
		if o.ID == id {
			items := append([]models.OrderItem(nil), s.items[id]...)
			return *o, items, nil
		}
	}
	return models.Order{}, nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
}

func (s *Store) SetOrderStatus(id string, status models.OrderStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid order status %q", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orders {
		if o.ID == id {
			o.Status = status
			o.UpdatedAt = s.now().UTC()
			return nil
		}
	}
	return fmt.Errorf("order %s: %w", id, ErrNotFound)
}

func (s *Store) customerLocked(phone, name string) *models.Customer {
	cust, ok := s.customers[phone]
	if !ok {
		cust = &models.Customer{ID: uuid.NewString(), Phone: phone, Name: name}
		s.customers[phone] = cust
	}
	if name != "" {
		cust.Name = name
	}
	return cust
}

// Seed loads a couple of sample orders so the board has something to show.
func (s *Store) Seed() {
	s.AddOrder("+1234567890", "John Doe", "", []NewItem{
		{ProductName: "Pho Bo", Quantity: 1, UnitPrice: decimal.RequireFromString("14.50"), Category: "Soup"},
		{ProductName: "Spring Rolls", Quantity: 2, UnitPrice: decimal.RequireFromString("5.50"), Category: "Starter"},
	})
	s.AddOrder("+1234567891", "Jane Smith", "No cilantro", []NewItem{
		{ProductName: "Banh Mi", Quantity: 1, UnitPrice: decimal.RequireFromString("9.75"), Category: "Sandwich"},
		{ProductName: "Iced Coffee", Quantity: 1, UnitPrice: decimal.RequireFromString("4.50"), Category: "Drink"},
	})
}
