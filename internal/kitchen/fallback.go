package kitchen

import (
	"time"

	"github.com/shopspring/decimal"

	"kioskboard/internal/models"
)

// PlaceholderOrders returns two demonstration orders stamped with now. They
// stand in for the live list when the board runs with the order fallback on
// and the backend cannot be reached.
func PlaceholderOrders(now time.Time) []models.Order {
	placeholder := func(id, userID, phone, name, number string, status models.OrderStatus, points int, total string) models.Order {
		amount := decimal.RequireFromString(total)
		return models.Order{
			ID:            id,
			User:          models.Customer{ID: userID, Phone: phone, Name: name, RewardPoints: points},
			Phone:         phone,
			Name:          name,
			OrderNumber:   number,
			Status:        status,
			TotalAmount:   amount,
			Subtotal:      amount,
			Tax:           decimal.Zero,
			Discount:      decimal.Zero,
			PaymentMethod: "cash",
			PaymentStatus: "pending",
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}
	return []models.Order{
		placeholder("1", "user1", "+1234567890", "John Doe", "ORD1234567890", models.StatusPending, 2, "25.50"),
		placeholder("2", "user2", "+1234567891", "Jane Smith", "ORD1234567891", models.StatusPreparing, 1, "18.75"),
	}
}
