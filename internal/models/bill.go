package models

import "time"

// Bill statuses
const (
	BillPaid    = "PAID"
	BillPartial = "PARTIAL"
	BillUnpaid  = "UNPAID"
	BillVoid    = "VOID"
)

// Payment methods
const (
	PaymentCash   = "cash"
	PaymentCard   = "card"
	PaymentUPI    = "upi"
	PaymentWallet = "wallet"
)

// Bill is a posted invoice. Amounts are in paise.
type Bill struct {
	ID            string        `json:"id" db:"id"`
	InvoiceNumber string        `json:"invoice_number" db:"invoice_number"`
	CustomerID    string        `json:"customer_id" db:"customer_id"`
	TicketID      *string       `json:"ticket_id,omitempty" db:"ticket_id"`
	Subtotal      int64         `json:"subtotal" db:"subtotal"`
	Discount      int64         `json:"discount" db:"discount"`
	TaxRateBps    int           `json:"tax_rate_bps" db:"tax_rate_bps"`
	Tax           int64         `json:"tax" db:"tax"`
	Total         int64         `json:"total" db:"total"`
	PaidAmount    int64         `json:"paid_amount" db:"paid_amount"`
	PendingAmount int64         `json:"pending_amount" db:"pending_amount"`
	ChangeGiven   int64         `json:"change_given" db:"change_given"`
	Status        string        `json:"status" db:"status"`
	Notes         string        `json:"notes,omitempty" db:"notes"`
	CreatedBy     string        `json:"created_by" db:"created_by"`
	Items         []BillItem    `json:"items"`
	Payments      []BillPayment `json:"payments"`
	Timestamps
}

type BillItem struct {
	ID          string  `json:"id" db:"id"`
	BillID      string  `json:"bill_id" db:"bill_id"`
	ServiceName string  `json:"service_name" db:"service_name"`
	StaffID     *string `json:"staff_id,omitempty" db:"staff_id"`
	Quantity    int     `json:"quantity" db:"quantity"`
	UnitPrice   int64   `json:"unit_price" db:"unit_price"`
	LineTotal   int64   `json:"line_total" db:"line_total"`
}

type BillPayment struct {
	ID        string    `json:"id" db:"id"`
	BillID    string    `json:"bill_id" db:"bill_id"`
	Method    string    `json:"method" db:"method"`
	Amount    int64     `json:"amount" db:"amount"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
