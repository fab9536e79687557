package models

import "time"

// Drawer session states. RECONCILED is terminal.
const (
	DrawerOpen       = "OPEN"
	DrawerClosing    = "CLOSING"
	DrawerReconciled = "RECONCILED"
)

type CashDrawerSession struct {
	ID                   string        `json:"id" db:"id"`
	BusinessDate         string        `json:"business_date" db:"business_date"`
	Status               string        `json:"status" db:"status"`
	OpeningFloat         int64         `json:"opening_float" db:"opening_float"`
	OpeningDenominations Denominations `json:"opening_denominations" db:"opening_denominations"`
	ClosingDenominations Denominations `json:"closing_denominations,omitempty" db:"closing_denominations"`
	CountedCash          *int64        `json:"counted_cash,omitempty" db:"counted_cash"`
	ExpectedInDrawer     *int64        `json:"expected_in_drawer,omitempty" db:"expected_in_drawer"`
	CashTakenOut         int64         `json:"cash_taken_out" db:"cash_taken_out"`
	CashTakenOutReason   string        `json:"cash_taken_out_reason,omitempty" db:"cash_taken_out_reason"`
	OpenedBy             string        `json:"opened_by" db:"opened_by"`
	ClosedBy             *string       `json:"closed_by,omitempty" db:"closed_by"`
	OpenedAt             time.Time     `json:"opened_at" db:"opened_at"`
	ClosedAt             *time.Time    `json:"closed_at,omitempty" db:"closed_at"`
}

// Variance is counted minus expected cash, once the session is closed.
func (s *CashDrawerSession) Variance() *int64 {
	if s.CountedCash == nil || s.ExpectedInDrawer == nil {
		return nil
	}
	v := *s.CountedCash - *s.ExpectedInDrawer
	return &v
}
