package services

import (
	"context"
	"fmt"

	"github.com/salonpos/backend/internal/models"
)

type billReader interface {
	GetBill(ctx context.Context, id string) (*models.Bill, error)
}

type customerReader interface {
	Get(ctx context.Context, id string) (*models.Customer, error)
}

// ReceiptLine is one printable bill item, amounts already formatted.
type ReceiptLine struct {
	Service   string `json:"service"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

// Receipt is everything a printer or the front end needs to render a bill.
type Receipt struct {
	Salon         *models.SalonSettings `json:"salon"`
	Bill          *models.Bill          `json:"bill"`
	CustomerName  string                `json:"customer_name"`
	CustomerPhone string                `json:"customer_phone,omitempty"`
	Lines         []ReceiptLine         `json:"lines"`
	Subtotal      string                `json:"subtotal"`
	Discount      string                `json:"discount"`
	Tax           string                `json:"tax"`
	Total         string                `json:"total"`
	Paid          string                `json:"paid"`
	Pending       string                `json:"pending"`
	Change        string                `json:"change"`
	BalanceDue    string                `json:"balance_due"`
	PaymentQR     *PaymentQR            `json:"payment_qr,omitempty"`
}

type ReceiptService struct {
	bills     billReader
	customers customerReader
	settings  settingsReader
	qr        *QRService
}

func NewReceiptService(bills billReader, customers customerReader, settings settingsReader, qr *QRService) *ReceiptService {
	return &ReceiptService{bills: bills, customers: customers, settings: settings, qr: qr}
}

// ForBill assembles the receipt of a posted bill. A UPI QR for the
// customer's outstanding balance is attached when the salon has a UPI id.
func (s *ReceiptService) ForBill(ctx context.Context, billID string) (*Receipt, error) {
	const op = "Receipt"
	bill, err := s.bills.GetBill(ctx, billID)
	if err != nil {
		return nil, wrap(op, err)
	}
	customer, err := s.customers.Get(ctx, bill.CustomerID)
	if err != nil {
		return nil, wrap(op, err)
	}
	salon, err := s.settings.Get(ctx)
	if err != nil {
		return nil, wrap(op, err)
	}

	r := &Receipt{
		Salon:        salon,
		Bill:         bill,
		CustomerName: customer.Name,
		Subtotal:     FormatMinor(bill.Subtotal),
		Discount:     FormatMinor(bill.Discount),
		Tax:          FormatMinor(bill.Tax),
		Total:        FormatMinor(bill.Total),
		Paid:         FormatMinor(bill.PaidAmount),
		Pending:      FormatMinor(bill.PendingAmount),
		Change:       FormatMinor(bill.ChangeGiven),
		BalanceDue:   FormatMinor(customer.PendingBalance),
	}
	if customer.Phone != nil {
		r.CustomerPhone = *customer.Phone
	}
	for _, it := range bill.Items {
		r.Lines = append(r.Lines, ReceiptLine{
			Service:   it.ServiceName,
			Quantity:  it.Quantity,
			UnitPrice: FormatMinor(it.UnitPrice),
			LineTotal: FormatMinor(it.LineTotal),
		})
	}

	if customer.PendingBalance > 0 && salon.UPIVPA != "" {
		qr, err := s.qr.PaymentQR(salon.UPIVPA, salon.Name, customer.PendingBalance, bill.InvoiceNumber)
		if err != nil {
			return nil, wrap(op, err)
		}
		r.PaymentQR = qr
	}
	return r, nil
}

// CollectQR returns a UPI QR for a customer's whole pending balance.
func (s *ReceiptService) CollectQR(ctx context.Context, customerID string) (*PaymentQR, error) {
	const op = "CollectQR"
	customer, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return nil, wrap(op, err)
	}
	if customer.PendingBalance <= 0 {
		return nil, invalid(op, fmt.Errorf("%w: no pending balance", ErrInvalidAmount))
	}
	salon, err := s.settings.Get(ctx)
	if err != nil {
		return nil, wrap(op, err)
	}
	qr, err := s.qr.PaymentQR(salon.UPIVPA, salon.Name, customer.PendingBalance, "Balance "+customer.Name)
	return qr, wrap(op, err)
}
