package models

import "time"

// CheckIn is a customer's recorded arrival, pending delivery confirmation.
type CheckIn struct {
	ID           string `json:"_id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	CheckInTime  int64  `json:"checkInTime"` // ms since epoch
	OrderDetails string `json:"order_details,omitempty"`
	Completed    bool   `json:"completed,omitempty"`
}

// ArrivedAt converts CheckInTime to a time.Time.
func (c CheckIn) ArrivedAt() time.Time {
	return time.UnixMilli(c.CheckInTime)
}

// CheckInRequest is the body of POST api/checkin/checkin.
type CheckInRequest struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

// CheckInResult is what the backend answers to a successful check-in.
type CheckInResult struct {
	RewardPoints  int    `json:"rewardPoints"`
	CustomerName  string `json:"customerName"`
	CustomerPhone string `json:"customerPhone"`
}

// ArrivingPhones indexes the phone numbers of the given check-ins.
func ArrivingPhones(checkIns []CheckIn) map[string]bool {
	phones := make(map[string]bool, len(checkIns))
	for _, c := range checkIns {
		if c.Phone != "" {
			phones[c.Phone] = true
		}
	}
	return phones
}

// Arriving reports whether a checked-in customer shares the order's phone.
func Arriving(o Order, checkIns []CheckIn) bool {
	if o.Phone == "" {
		return false
	}
	for _, c := range checkIns {
		if c.Phone == o.Phone {
			return true
		}
	}
	return false
}
