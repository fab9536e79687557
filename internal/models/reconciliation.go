package models

import "time"

// DailyReconciliation compares expected with counted cash for one business date.
// Once Reconciled is set the row is final; corrections are appended separately.
type DailyReconciliation struct {
	ID              string                     `json:"id" db:"id"`
	BusinessDate    string                     `json:"business_date" db:"business_date"`
	ExpectedCash    int64                      `json:"expected_cash" db:"expected_cash"`
	ExpectedRevenue int64                      `json:"expected_revenue" db:"expected_revenue"`
	BillCount       int                        `json:"bill_count" db:"bill_count"`
	ActualCash      *int64                     `json:"actual_cash,omitempty" db:"actual_cash"`
	CashDifference  *int64                     `json:"cash_difference,omitempty" db:"cash_difference"`
	Notes           string                     `json:"notes,omitempty" db:"notes"`
	Reconciled      bool                       `json:"reconciled" db:"reconciled"`
	ReconciledAt    *time.Time                 `json:"reconciled_at,omitempty" db:"reconciled_at"`
	ReconciledBy    *string                    `json:"reconciled_by,omitempty" db:"reconciled_by"`
	Corrections     []ReconciliationCorrection `json:"corrections,omitempty"`
	Timestamps
}

type ReconciliationCorrection struct {
	ID               string    `json:"id" db:"id"`
	ReconciliationID string    `json:"reconciliation_id" db:"reconciliation_id"`
	Note             string    `json:"note" db:"note"`
	AmountDelta      int64     `json:"amount_delta" db:"amount_delta"`
	CreatedBy        string    `json:"created_by" db:"created_by"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}
