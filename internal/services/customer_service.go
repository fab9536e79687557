package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/salonpos/backend/internal/logger"
	"github.com/salonpos/backend/internal/models"
)

const customerColumns = `id, name, phone, email, notes, total_visits, total_spent,
	pending_balance, last_visit_at, created_at, updated_at, deleted_at`

type CustomerService struct {
	db        *sql.DB
	audit     *AuditRecorder
	validator *ValidationHelper
	log       zerolog.Logger
	now       func() time.Time
}

func NewCustomerService(db *sql.DB, audit *AuditRecorder) *CustomerService {
	return &CustomerService{
		db:        db,
		audit:     audit,
		validator: NewValidationHelper(),
		log:       logger.WithComponent("customers"),
		now:       time.Now,
	}
}

// CustomerRequest is used for both create and update.
type CustomerRequest struct {
	Name  string  `json:"name" validate:"required,max=120"`
	Phone *string `json:"phone" validate:"omitempty,phone"`
	Email *string `json:"email" validate:"omitempty,email"`
	Notes string  `json:"notes" validate:"max=1000"`
}

type CustomerFilter struct {
	Query  string
	Limit  int
	Offset int
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Notes, &c.TotalVisits, &c.TotalSpent,
		&c.PendingBalance, &c.LastVisitAt, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CustomerService) Create(ctx context.Context, req CustomerRequest, actor string) (*models.Customer, error) {
	if err := s.validator.ValidateStruct(&req); err != nil {
		return nil, invalid("CreateCustomer", err)
	}

	c := &models.Customer{
		ID:    models.NewID(),
		Name:  strings.TrimSpace(req.Name),
		Phone: req.Phone,
		Email: req.Email,
		Notes: req.Notes,
	}
	c.Touch(s.now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap("CreateCustomer", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, email, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.Name, c.Phone, c.Email, c.Notes, c.CreatedAt, c.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, wrap("CreateCustomer", ErrDuplicate)
	}
	if err != nil {
		return nil, wrap("CreateCustomer", err)
	}
	if err := s.audit.RecordAction(ctx, tx, actor, "customer.create", "customer", c.ID, nil, c); err != nil {
		return nil, wrap("CreateCustomer", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, wrap("CreateCustomer", err)
	}

	s.log.Info().Str("customer_id", c.ID).Msg("customer created")
	return c, nil
}

func (s *CustomerService) Get(ctx context.Context, id string) (*models.Customer, error) {
	c, err := scanCustomer(s.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1 AND deleted_at IS NULL`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrap("GetCustomer", ErrNotFound)
	}
	return c, wrap("GetCustomer", err)
}

// List searches by name or phone prefix, most recent visitors first.
func (s *CustomerService) List(ctx context.Context, f CustomerFilter) ([]models.Customer, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	pattern := "%" + strings.TrimSpace(f.Query) + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE deleted_at IS NULL AND (name ILIKE $1 OR phone LIKE $1)
		ORDER BY last_visit_at DESC NULLS LAST, name
		LIMIT $2 OFFSET $3`, pattern, f.Limit, f.Offset)
	if err != nil {
		return nil, wrap("ListCustomers", err)
	}
	defer rows.Close()

	customers := []models.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, wrap("ListCustomers", err)
		}
		customers = append(customers, *c)
	}
	return customers, wrap("ListCustomers", rows.Err())
}

// Update changes contact details. Balances and visit aggregates are only
// changed by billing and the ledger.
func (s *CustomerService) Update(ctx context.Context, id string, req CustomerRequest, actor string) (*models.Customer, error) {
	if err := s.validator.ValidateStruct(&req); err != nil {
		return nil, invalid("UpdateCustomer", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap("UpdateCustomer", err)
	}
	defer tx.Rollback()

	before, err := scanCustomer(tx.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrap("UpdateCustomer", ErrNotFound)
	}
	if err != nil {
		return nil, wrap("UpdateCustomer", err)
	}

	after := *before
	after.Name = strings.TrimSpace(req.Name)
	after.Phone = req.Phone
	after.Email = req.Email
	after.Notes = req.Notes
	after.Touch(s.now())

	_, err = tx.ExecContext(ctx, `
		UPDATE customers SET name = $1, phone = $2, email = $3, notes = $4, updated_at = $5
		WHERE id = $6`,
		after.Name, after.Phone, after.Email, after.Notes, after.UpdatedAt, id)
	if isUniqueViolation(err) {
		return nil, wrap("UpdateCustomer", ErrDuplicate)
	}
	if err != nil {
		return nil, wrap("UpdateCustomer", err)
	}
	if err := s.audit.RecordAction(ctx, tx, actor, "customer.update", "customer", id, before, &after); err != nil {
		return nil, wrap("UpdateCustomer", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, wrap("UpdateCustomer", err)
	}
	return &after, nil
}

// Delete soft-deletes a customer with no outstanding balance.
func (s *CustomerService) Delete(ctx context.Context, id, actor string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("DeleteCustomer", err)
	}
	defer tx.Rollback()

	before, err := scanCustomer(tx.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return wrap("DeleteCustomer", ErrNotFound)
	}
	if err != nil {
		return wrap("DeleteCustomer", err)
	}
	if before.PendingBalance > 0 {
		return wrap("DeleteCustomer", ErrOutstandingBalance)
	}

	now := s.now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE customers SET deleted_at = $1, updated_at = $1 WHERE id = $2`, now, id); err != nil {
		return wrap("DeleteCustomer", err)
	}
	after := *before
	after.MarkDeleted(now)
	if err := s.audit.RecordAction(ctx, tx, actor, "customer.delete", "customer", id, before, &after); err != nil {
		return wrap("DeleteCustomer", err)
	}
	return wrap("DeleteCustomer", tx.Commit())
}
