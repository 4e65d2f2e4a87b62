package domain

import "time"

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusDispatched OrderStatus = "dispatched"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

type Order struct {
	ID              string
	UserID          string
	Items           []LineItem
	SelectedAddress Address
	TotalCents      int64
	Status          OrderStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// LineItem is a (product, quantity) pair within an order. PriceCents is
// captured from the catalog at intake time.
type LineItem struct {
	ProductID  string
	Quantity   int
	PriceCents int64
}

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func NewOrder(id, userID string, items []LineItem, addr Address) Order {
	var total int64
	for _, item := range items {
		total += int64(item.Quantity) * item.PriceCents
	}
	now := time.Now().UTC()
	return Order{
		ID:              id,
		UserID:          userID,
		Items:           items,
		SelectedAddress: addr,
		TotalCents:      total,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
