package domain

const EventOrderCreated = "OrderCreated"

type OrderCreated struct {
	OrderID    string
	UserID     string
	TotalCents int64
	Items      []LineItem
}
