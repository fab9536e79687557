package models

import "time"

// SalonSettings is the single configuration row used on receipts and bills.
type SalonSettings struct {
	Name          string    `json:"name" db:"name"`
	Address       string    `json:"address" db:"address"`
	Phone         string    `json:"phone" db:"phone"`
	GSTIN         string    `json:"gstin" db:"gstin"`
	LogoURL       string    `json:"logo_url" db:"logo_url"`
	ReceiptHeader string    `json:"receipt_header" db:"receipt_header"`
	ReceiptFooter string    `json:"receipt_footer" db:"receipt_footer"`
	InvoicePrefix string    `json:"invoice_prefix" db:"invoice_prefix"`
	TaxRateBps    int       `json:"tax_rate_bps" db:"tax_rate_bps"`
	UPIVPA        string    `json:"upi_vpa" db:"upi_vpa"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
