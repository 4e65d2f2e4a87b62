package domain

import "time"

// RestockRequest marks a product whose stock fell to or below the restock
// threshold after an order was placed.
type RestockRequest struct {
	ProductID string
	Stock     int
	Threshold int
	CreatedAt time.Time
	UpdatedAt time.Time
}
