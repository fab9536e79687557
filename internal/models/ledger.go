package models

import (
	"time"
)

const (
	EntryCharge     = "CHARGE"
	EntryCollection = "COLLECTION"
)

// LedgerEntry is one immutable pending-balance mutation.
type LedgerEntry struct {
	ID           string    `json:"id" db:"id"`
	CustomerID   string    `json:"customer_id" db:"customer_id"`
	BillID       *string   `json:"bill_id,omitempty" db:"bill_id"`
	CollectionID *string   `json:"collection_id,omitempty" db:"collection_id"`
	EntryType    string    `json:"entry_type" db:"entry_type"` // CHARGE or COLLECTION
	Amount       int64     `json:"amount" db:"amount"`         // in paise, always positive
	BalanceAfter int64     `json:"balance_after" db:"balance_after"`
	CreatedBy    string    `json:"created_by" db:"created_by"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// PendingPaymentCollection records one balance-reducing event.
type PendingPaymentCollection struct {
	ID              string    `json:"id" db:"id"`
	CustomerID      string    `json:"customer_id" db:"customer_id"`
	Amount          int64     `json:"amount" db:"amount"`
	PaymentMethod   string    `json:"payment_method" db:"payment_method"`
	BillID          *string   `json:"bill_id,omitempty" db:"bill_id"`
	PreviousBalance int64     `json:"previous_balance" db:"previous_balance"`
	NewBalance      int64     `json:"new_balance" db:"new_balance"`
	CollectedBy     string    `json:"collected_by" db:"collected_by"`
	CollectedAt     time.Time `json:"collected_at" db:"collected_at"`
	Notes           string    `json:"notes,omitempty" db:"notes"`
}
