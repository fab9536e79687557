package models

import "time"

// Customer is a salon client with running visit and balance aggregates.
// PendingBalance is only mutated by the ledger (charges and collections).
type Customer struct {
	ID             string     `json:"id" db:"id"`
	Name           string     `json:"name" db:"name"`
	Phone          *string    `json:"phone,omitempty" db:"phone"`
	Email          *string    `json:"email,omitempty" db:"email"`
	Notes          string     `json:"notes" db:"notes"`
	TotalVisits    int        `json:"total_visits" db:"total_visits"`
	TotalSpent     int64      `json:"total_spent" db:"total_spent"`
	PendingBalance int64      `json:"pending_balance" db:"pending_balance"`
	LastVisitAt    *time.Time `json:"last_visit_at,omitempty" db:"last_visit_at"`
	Timestamps
	SoftDelete
}
