package models

import "time"

const (
	TicketAppointment = "APPOINTMENT"
	TicketWalkIn      = "WALK_IN"
)

const (
	TicketBooked    = "BOOKED"
	TicketCheckedIn = "CHECKED_IN"
	TicketInService = "IN_SERVICE"
	TicketCompleted = "COMPLETED"
	TicketCancelled = "CANCELLED"
	TicketNoShow    = "NO_SHOW"
)

// Ticket is an appointment or a walk-in visit.
type Ticket struct {
	ID           string    `json:"id" db:"id"`
	TicketNumber string    `json:"ticket_number" db:"ticket_number"`
	Kind         string    `json:"kind" db:"kind"`
	CustomerID   string    `json:"customer_id" db:"customer_id"`
	StaffID      *string   `json:"staff_id,omitempty" db:"staff_id"`
	ScheduledAt  time.Time `json:"scheduled_at" db:"scheduled_at"`
	Status       string    `json:"status" db:"status"`
	Notes        string    `json:"notes,omitempty" db:"notes"`
	Timestamps
	SoftDelete
}
