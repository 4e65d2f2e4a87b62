package domain

import "time"

// Product is the shared, mutable catalog record. Stock is read and
// decremented by the order intake workflow and must never go negative.
type Product struct {
	ID         string
	Title      string
	Brand      string
	PriceCents int64
	Stock      int
	UpdatedAt  time.Time
}
