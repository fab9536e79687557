package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/salonpos/backend/internal/logger"
	"github.com/salonpos/backend/internal/models"
)

type BillItemRequest struct {
	ServiceName string  `json:"service_name" validate:"required,max=120"`
	StaffID     *string `json:"staff_id"`
	Quantity    int     `json:"quantity" validate:"gte=1,lte=100"`
	UnitPrice   int64   `json:"unit_price" validate:"gte=0,lte=100000000"`
}

type PaymentRequest struct {
	Method string `json:"method" validate:"required,oneof=cash card upi wallet"`
	Amount int64  `json:"amount" validate:"gt=0,lte=1000000000"`
}

type CreateBillRequest struct {
	CustomerID string            `json:"customer_id" validate:"required"`
	TicketID   *string           `json:"ticket_id"`
	Items      []BillItemRequest `json:"items" validate:"required,min=1,max=100,dive"`
	Discount   int64             `json:"discount" validate:"gte=0,lte=1000000000"`
	Payments   []PaymentRequest  `json:"payments" validate:"max=10,dive"`
	Notes      string            `json:"notes" validate:"max=500"`
}

// Totals are the computed amounts of a bill, in minor units.
type Totals struct {
	Subtotal   int64
	Discount   int64
	TaxRateBps int
	Tax        int64
	Total      int64
}

// ComputeTotals prices the items, applies the discount and taxes the rest.
func ComputeTotals(items []BillItemRequest, discount int64, rateBps int) (Totals, error) {
	var subtotal int64
	for _, it := range items {
		subtotal += int64(it.Quantity) * it.UnitPrice
	}
	if discount > subtotal {
		return Totals{}, fmt.Errorf("%w: discount %d, subtotal %d", ErrDiscountExceeds, discount, subtotal)
	}
	taxable := subtotal - discount
	tax := ComputeTax(taxable, rateBps)
	return Totals{
		Subtotal:   subtotal,
		Discount:   discount,
		TaxRateBps: rateBps,
		Tax:        tax,
		Total:      taxable + tax,
	}, nil
}

// Settlement splits what the customer handed over against the bill total
// and their existing pending balance.
type Settlement struct {
	Paid          int64
	PendingCharge int64
	Collect       int64
	Change        int64
	Status        string
}

// SettlePayments applies paid against total. A shortfall becomes a pending
// charge. Any excess first clears the existing pending balance and the rest
// is returned as change; no credit balance is ever created. Change comes out
// of the drawer, so it can never be larger than the cash part of paid.
func SettlePayments(total, pendingBalance, paid, cash int64) (Settlement, error) {
	s := Settlement{Paid: paid}
	if paid >= total {
		excess := paid - total
		s.Collect = min(excess, max(pendingBalance, 0))
		s.Change = excess - s.Collect
		if s.Change > cash {
			return Settlement{}, fmt.Errorf("%w: change %d, cash %d", ErrChangeExceedsCash, s.Change, cash)
		}
		s.Status = models.BillPaid
		return s, nil
	}
	s.PendingCharge = total - paid
	if paid > 0 {
		s.Status = models.BillPartial
	} else {
		s.Status = models.BillUnpaid
	}
	return s, nil
}

type settingsReader interface {
	Get(ctx context.Context) (*models.SalonSettings, error)
}

// BillingService posts bills. Posting, ledger movements, numbering and the
// customer's visit aggregates all commit in one transaction.
type BillingService struct {
	db        *sql.DB
	settings  settingsReader
	numbering *NumberingService
	ledger    *LedgerService
	tickets   *TicketService
	audit     *AuditRecorder
	metrics   *Metrics
	validator *ValidationHelper
	log       zerolog.Logger
	now       func() time.Time
}

func NewBillingService(db *sql.DB, settings settingsReader, numbering *NumberingService, ledger *LedgerService,
	tickets *TicketService, audit *AuditRecorder, metrics *Metrics) *BillingService {
	return &BillingService{
		db:        db,
		settings:  settings,
		numbering: numbering,
		ledger:    ledger,
		tickets:   tickets,
		audit:     audit,
		metrics:   metrics,
		validator: NewValidationHelper(),
		log:       logger.WithComponent("billing"),
		now:       time.Now,
	}
}

func (s *BillingService) CreateBill(ctx context.Context, req CreateBillRequest, actor string) (*models.Bill, error) {
	const op = "CreateBill"
	if err := s.validator.ValidateStruct(&req); err != nil {
		return nil, invalid(op, err)
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, wrap(op, err)
	}
	totals, err := ComputeTotals(req.Items, req.Discount, settings.TaxRateBps)
	if err != nil {
		return nil, invalid(op, err)
	}
	var paid, cash int64
	for _, p := range req.Payments {
		paid += p.Amount
		if p.Method == models.PaymentCash {
			cash += p.Amount
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer tx.Rollback()

	balance, err := s.ledger.lockCustomer(ctx, tx, req.CustomerID)
	if err != nil {
		return nil, wrap(op, err)
	}
	if req.TicketID != nil {
		if err := s.tickets.completeForBill(ctx, tx, *req.TicketID, req.CustomerID, actor); err != nil {
			return nil, wrap(op, err)
		}
	}

	settle, err := SettlePayments(totals.Total, balance, paid, cash)
	if err != nil {
		return nil, wrap(op, err)
	}
	now := s.now()

	bill := &models.Bill{
		ID:            models.NewID(),
		CustomerID:    req.CustomerID,
		TicketID:      req.TicketID,
		Subtotal:      totals.Subtotal,
		Discount:      totals.Discount,
		TaxRateBps:    totals.TaxRateBps,
		Tax:           totals.Tax,
		Total:         totals.Total,
		PaidAmount:    settle.Paid,
		PendingAmount: settle.PendingCharge,
		ChangeGiven:   settle.Change,
		Status:        settle.Status,
		Notes:         req.Notes,
		CreatedBy:     actor,
	}
	bill.Touch(now)

	bill.InvoiceNumber, err = s.numbering.NextInvoiceNumber(ctx, tx, settings.InvoicePrefix, now)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bills
			(id, invoice_number, customer_id, ticket_id, subtotal, discount, tax_rate_bps, tax, total,
			 paid_amount, pending_amount, change_given, status, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		bill.ID, bill.InvoiceNumber, bill.CustomerID, bill.TicketID, bill.Subtotal, bill.Discount,
		bill.TaxRateBps, bill.Tax, bill.Total, bill.PaidAmount, bill.PendingAmount, bill.ChangeGiven,
		bill.Status, bill.Notes, bill.CreatedBy, bill.CreatedAt, bill.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, wrap(op, fmt.Errorf("%w: bill for ticket or invoice number", ErrDuplicate))
	}
	if err != nil {
		return nil, wrap(op, err)
	}

	for _, it := range req.Items {
		item := models.BillItem{
			ID:          models.NewID(),
			BillID:      bill.ID,
			ServiceName: it.ServiceName,
			StaffID:     it.StaffID,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   int64(it.Quantity) * it.UnitPrice,
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bill_items (id, bill_id, service_name, staff_id, quantity, unit_price, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			item.ID, item.BillID, item.ServiceName, item.StaffID, item.Quantity, item.UnitPrice, item.LineTotal); err != nil {
			return nil, wrap(op, err)
		}
		bill.Items = append(bill.Items, item)
	}

	for _, p := range req.Payments {
		payment := models.BillPayment{
			ID:        models.NewID(),
			BillID:    bill.ID,
			Method:    p.Method,
			Amount:    p.Amount,
			CreatedAt: now,
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bill_payments (id, bill_id, method, amount, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			payment.ID, payment.BillID, payment.Method, payment.Amount, payment.CreatedAt); err != nil {
			return nil, wrap(op, err)
		}
		bill.Payments = append(bill.Payments, payment)
	}

	if settle.PendingCharge > 0 {
		if _, err := s.ledger.charge(ctx, tx, bill.CustomerID, bill.ID, balance, settle.PendingCharge, actor); err != nil {
			return nil, wrap(op, err)
		}
	}
	if settle.Collect > 0 {
		_, err := s.ledger.collect(ctx, tx, CollectionRequest{
			CustomerID:    bill.CustomerID,
			Amount:        settle.Collect,
			PaymentMethod: req.Payments[len(req.Payments)-1].Method,
			Notes:         "applied from " + bill.InvoiceNumber,
			CollectedBy:   actor,
			BillID:        &bill.ID,
		}, balance)
		if err != nil {
			return nil, wrap(op, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE customers
		SET total_visits = total_visits + 1, total_spent = total_spent + $1,
			last_visit_at = $2, updated_at = $2
		WHERE id = $3`, bill.Total, now, bill.CustomerID); err != nil {
		return nil, wrap(op, err)
	}

	if err := s.audit.RecordEvent(ctx, tx, EventBillPosted, "bill", bill.ID, map[string]any{
		"invoice_number": bill.InvoiceNumber,
		"total":          bill.Total,
		"paid":           bill.PaidAmount,
		"pending":        bill.PendingAmount,
		"collected":      settle.Collect,
		"change":         bill.ChangeGiven,
	}); err != nil {
		return nil, wrap(op, err)
	}
	if err := s.audit.RecordAction(ctx, tx, actor, "bill.create", "bill", bill.ID, nil, bill); err != nil {
		return nil, wrap(op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, wrap(op, err)
	}

	s.metrics.billPosted(bill.Status, bill.Total)
	if settle.Collect > 0 {
		s.metrics.collectionRecorded(req.Payments[len(req.Payments)-1].Method, settle.Collect)
	}
	s.log.Info().
		Str("invoice", bill.InvoiceNumber).
		Str("customer_id", bill.CustomerID).
		Int64("total", bill.Total).
		Str("status", bill.Status).
		Msg("bill posted")
	return bill, nil
}

// GetBill loads a bill with its items and payments.
func (s *BillingService) GetBill(ctx context.Context, id string) (*models.Bill, error) {
	const op = "GetBill"
	var b models.Bill
	err := s.db.QueryRowContext(ctx, `
		SELECT id, invoice_number, customer_id, ticket_id, subtotal, discount, tax_rate_bps, tax, total,
			paid_amount, pending_amount, change_given, status, notes, created_by, created_at, updated_at
		FROM bills WHERE id = $1`, id).Scan(
		&b.ID, &b.InvoiceNumber, &b.CustomerID, &b.TicketID, &b.Subtotal, &b.Discount, &b.TaxRateBps,
		&b.Tax, &b.Total, &b.PaidAmount, &b.PendingAmount, &b.ChangeGiven, &b.Status, &b.Notes,
		&b.CreatedBy, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrap(op, ErrNotFound)
	}
	if err != nil {
		return nil, wrap(op, err)
	}

	if b.Items, err = s.loadItems(ctx, id); err != nil {
		return nil, wrap(op, err)
	}
	if b.Payments, err = s.loadPayments(ctx, id); err != nil {
		return nil, wrap(op, err)
	}
	return &b, nil
}

func (s *BillingService) loadItems(ctx context.Context, billID string) ([]models.BillItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, bill_id, service_name, staff_id, quantity, unit_price, line_total
		FROM bill_items WHERE bill_id = $1 ORDER BY id`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.BillItem
	for rows.Next() {
		var it models.BillItem
		if err := rows.Scan(&it.ID, &it.BillID, &it.ServiceName, &it.StaffID, &it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *BillingService) loadPayments(ctx context.Context, billID string) ([]models.BillPayment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, bill_id, method, amount, created_at
		FROM bill_payments WHERE bill_id = $1 ORDER BY created_at, id`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.BillPayment
	for rows.Next() {
		var p models.BillPayment
		if err := rows.Scan(&p.ID, &p.BillID, &p.Method, &p.Amount, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
