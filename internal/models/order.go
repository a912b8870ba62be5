package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusDelivered OrderStatus = "delivered"
	StatusCompleted OrderStatus = "completed"
)

// Statuses lists the lifecycle in order.
var Statuses = []OrderStatus{StatusPending, StatusPreparing, StatusReady, StatusDelivered, StatusCompleted}

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// Next returns the status following s. Completed and unknown statuses have none.
func (s OrderStatus) Next() (OrderStatus, bool) {
	for i, st := range Statuses {
		if st == s && i+1 < len(Statuses) {
			return Statuses[i+1], true
		}
	}
	return "", false
}

// Terminal reports whether no further transition exists.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted
}

// ParseOrderStatus maps a case-insensitive string onto an OrderStatus.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("invalid order status %q", raw)
	}
	return s, nil
}

// Customer is the user the backend embeds in an order.
type Customer struct {
	ID           string `json:"_id"`
	Phone        string `json:"phone"`
	Name         string `json:"name"`
	RewardPoints int    `json:"rewardPoints"`
}

type Order struct {
	ID                  string          `json:"_id"`
	User                Customer        `json:"userId"`
	Phone               string          `json:"phone"`
	Name                string          `json:"name"`
	OrderNumber         string          `json:"orderNumber"`
	Status              OrderStatus     `json:"status"`
	TotalAmount         decimal.Decimal `json:"totalAmount"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	Tax                 decimal.Decimal `json:"tax"`
	Discount            decimal.Decimal `json:"discount"`
	PaymentMethod       string          `json:"paymentMethod"`
	PaymentStatus       string          `json:"paymentStatus"`
	Notes               string          `json:"notes"`
	EstimatedPickupTime *time.Time      `json:"estimatedPickupTime"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
	Items               []OrderItem     `json:"items,omitempty"`
}

type OrderItem struct {
	ID          string          `json:"_id"`
	OrderID     string          `json:"orderId"`
	ProductName string          `json:"productName"`
	ProductID   string          `json:"productId"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	Note        string          `json:"note"`
	Category    string          `json:"category,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ItemsSubtotal sums the line totals.
func ItemsSubtotal(items []OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.TotalPrice)
	}
	return sum
}

// StatusUpdate is the body of PUT api/orders/{id}/status.
type StatusUpdate struct {
	Status OrderStatus `json:"status"`
}
