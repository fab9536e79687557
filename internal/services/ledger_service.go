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

// LedgerService owns every mutation of a customer's pending balance. Each
// mutation writes one ledger entry plus event and audit rows in the same
// transaction as the balance update.
type LedgerService struct {
	db        *sql.DB
	audit     *AuditRecorder
	metrics   *Metrics
	validator *ValidationHelper
	log       zerolog.Logger
	now       func() time.Time
}

func NewLedgerService(db *sql.DB, audit *AuditRecorder, metrics *Metrics) *LedgerService {
	return &LedgerService{
		db:        db,
		audit:     audit,
		metrics:   metrics,
		validator: NewValidationHelper(),
		log:       logger.WithComponent("ledger"),
		now:       time.Now,
	}
}

// CollectionRequest records money received against a pending balance.
type CollectionRequest struct {
	CustomerID    string  `json:"-" validate:"required"`
	Amount        int64   `json:"amount" validate:"gt=0,lte=1000000000"`
	PaymentMethod string  `json:"payment_method" validate:"required,oneof=cash card upi wallet"`
	Notes         string  `json:"notes" validate:"max=500"`
	CollectedBy   string  `json:"-" validate:"required"`
	BillID        *string `json:"-"`
}

// BalanceCheck compares the stored pending balance with the ledger.
type BalanceCheck struct {
	CustomerID  string `json:"customer_id"`
	Stored      int64  `json:"stored_balance"`
	Charges     int64  `json:"total_charges"`
	Collections int64  `json:"total_collections"`
	Computed    int64  `json:"computed_balance"`
	Consistent  bool   `json:"consistent"`
}

// RecordCharge adds amount to the customer's pending balance inside tx.
func (s *LedgerService) RecordCharge(ctx context.Context, tx DBTX, customerID, billID string, amount int64, actor string) (*models.LedgerEntry, error) {
	if amount <= 0 {
		return nil, invalid("RecordCharge", ErrInvalidAmount)
	}
	balance, err := s.lockCustomer(ctx, tx, customerID)
	if err != nil {
		return nil, wrap("RecordCharge", err)
	}
	entry, err := s.charge(ctx, tx, customerID, billID, balance, amount, actor)
	return entry, wrap("RecordCharge", err)
}

// RecordCollection records a standalone collection in its own transaction.
func (s *LedgerService) RecordCollection(ctx context.Context, req CollectionRequest) (*models.PendingPaymentCollection, error) {
	if err := s.validator.ValidateStruct(&req); err != nil {
		return nil, invalid("RecordCollection", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap("RecordCollection", err)
	}
	defer tx.Rollback()

	collection, err := s.RecordCollectionTx(ctx, tx, req)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, wrap("RecordCollection", err)
	}

	s.metrics.collectionRecorded(collection.PaymentMethod, collection.Amount)
	s.log.Info().
		Str("customer_id", collection.CustomerID).
		Int64("amount", collection.Amount).
		Int64("new_balance", collection.NewBalance).
		Msg("collection recorded")
	return collection, nil
}

// RecordCollectionTx locks the customer row and records a collection inside tx.
func (s *LedgerService) RecordCollectionTx(ctx context.Context, tx DBTX, req CollectionRequest) (*models.PendingPaymentCollection, error) {
	if req.Amount <= 0 {
		return nil, invalid("RecordCollection", ErrInvalidAmount)
	}
	balance, err := s.lockCustomer(ctx, tx, req.CustomerID)
	if err != nil {
		return nil, wrap("RecordCollection", err)
	}
	collection, err := s.collect(ctx, tx, req, balance)
	return collection, wrap("RecordCollection", err)
}

// VerifyBalance recomputes the pending balance from ledger entries.
// A mismatch returns the check together with ErrLedgerDrift.
func (s *LedgerService) VerifyBalance(ctx context.Context, customerID string) (*BalanceCheck, error) {
	check := &BalanceCheck{CustomerID: customerID}

	err := s.db.QueryRowContext(ctx, `
		SELECT pending_balance FROM customers
		WHERE id = $1 AND deleted_at IS NULL`, customerID).Scan(&check.Stored)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrap("VerifyBalance", ErrNotFound)
	}
	if err != nil {
		return nil, wrap("VerifyBalance", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN entry_type = 'CHARGE' THEN amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN entry_type = 'COLLECTION' THEN amount ELSE 0 END), 0)
		FROM ledger_entries
		WHERE customer_id = $1`, customerID).Scan(&check.Charges, &check.Collections)
	if err != nil {
		return nil, wrap("VerifyBalance", err)
	}

	check.Computed = check.Charges - check.Collections
	check.Consistent = check.Computed == check.Stored
	if !check.Consistent {
		s.log.Warn().
			Str("customer_id", customerID).
			Int64("stored", check.Stored).
			Int64("computed", check.Computed).
			Msg("ledger drift detected")
		return check, wrap("VerifyBalance", fmt.Errorf("%w: stored %d, computed %d", ErrLedgerDrift, check.Stored, check.Computed))
	}
	return check, nil
}

// ListCollections returns a customer's collections, newest first.
func (s *LedgerService) ListCollections(ctx context.Context, customerID string) ([]models.PendingPaymentCollection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, amount, payment_method, bill_id, previous_balance,
			new_balance, collected_by, collected_at, notes
		FROM pending_payment_collections
		WHERE customer_id = $1
		ORDER BY collected_at DESC`, customerID)
	if err != nil {
		return nil, wrap("ListCollections", err)
	}
	defer rows.Close()

	collections := []models.PendingPaymentCollection{}
	for rows.Next() {
		var c models.PendingPaymentCollection
		if err := rows.Scan(&c.ID, &c.CustomerID, &c.Amount, &c.PaymentMethod, &c.BillID,
			&c.PreviousBalance, &c.NewBalance, &c.CollectedBy, &c.CollectedAt, &c.Notes); err != nil {
			return nil, wrap("ListCollections", err)
		}
		collections = append(collections, c)
	}
	return collections, wrap("ListCollections", rows.Err())
}

// lockCustomer returns the pending balance and holds the row lock until tx ends.
func (s *LedgerService) lockCustomer(ctx context.Context, tx DBTX, customerID string) (int64, error) {
	var balance int64
	err := tx.QueryRowContext(ctx, `
		SELECT pending_balance FROM customers
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE`, customerID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("customer %s: %w", customerID, ErrNotFound)
	}
	return balance, err
}

// charge assumes the customer row is already locked at balance.
func (s *LedgerService) charge(ctx context.Context, tx DBTX, customerID, billID string, balance, amount int64, actor string) (*models.LedgerEntry, error) {
	now := s.now()
	entry := &models.LedgerEntry{
		ID:           models.NewID(),
		CustomerID:   customerID,
		BillID:       &billID,
		EntryType:    models.EntryCharge,
		Amount:       amount,
		BalanceAfter: balance + amount,
		CreatedBy:    actor,
		CreatedAt:    now,
	}

	if err := s.setBalance(ctx, tx, customerID, entry.BalanceAfter, now); err != nil {
		return nil, err
	}
	if err := s.insertEntry(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := s.audit.RecordEvent(ctx, tx, EventBalanceCharged, "customer", customerID, entry); err != nil {
		return nil, err
	}
	if err := s.audit.RecordAction(ctx, tx, actor, "balance.charge", "customer", customerID,
		map[string]int64{"pending_balance": balance},
		map[string]int64{"pending_balance": entry.BalanceAfter}); err != nil {
		return nil, err
	}
	return entry, nil
}

// collect assumes the customer row is already locked at balance.
func (s *LedgerService) collect(ctx context.Context, tx DBTX, req CollectionRequest, balance int64) (*models.PendingPaymentCollection, error) {
	if req.Amount > balance {
		return nil, fmt.Errorf("%w: amount %d, balance %d", ErrCollectionExceedsBalance, req.Amount, balance)
	}

	now := s.now()
	c := &models.PendingPaymentCollection{
		ID:              models.NewID(),
		CustomerID:      req.CustomerID,
		Amount:          req.Amount,
		PaymentMethod:   req.PaymentMethod,
		BillID:          req.BillID,
		PreviousBalance: balance,
		NewBalance:      balance - req.Amount,
		CollectedBy:     req.CollectedBy,
		CollectedAt:     now,
		Notes:           req.Notes,
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO pending_payment_collections
			(id, customer_id, amount, payment_method, bill_id, previous_balance,
			 new_balance, collected_by, collected_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.CustomerID, c.Amount, c.PaymentMethod, c.BillID, c.PreviousBalance,
		c.NewBalance, c.CollectedBy, c.CollectedAt, c.Notes); err != nil {
		return nil, err
	}
	if err := s.setBalance(ctx, tx, c.CustomerID, c.NewBalance, now); err != nil {
		return nil, err
	}
	entry := &models.LedgerEntry{
		ID:           models.NewID(),
		CustomerID:   c.CustomerID,
		BillID:       c.BillID,
		CollectionID: &c.ID,
		EntryType:    models.EntryCollection,
		Amount:       c.Amount,
		BalanceAfter: c.NewBalance,
		CreatedBy:    c.CollectedBy,
		CreatedAt:    now,
	}
	if err := s.insertEntry(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := s.audit.RecordEvent(ctx, tx, EventBalanceCollected, "customer", c.CustomerID, c); err != nil {
		return nil, err
	}
	if err := s.audit.RecordAction(ctx, tx, c.CollectedBy, "balance.collect", "customer", c.CustomerID,
		map[string]int64{"pending_balance": c.PreviousBalance},
		map[string]int64{"pending_balance": c.NewBalance}); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *LedgerService) setBalance(ctx context.Context, tx DBTX, customerID string, balance int64, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE customers SET pending_balance = $1, updated_at = $2
		WHERE id = $3`, balance, now, customerID)
	return err
}

func (s *LedgerService) insertEntry(ctx context.Context, tx DBTX, e *models.LedgerEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries
			(id, customer_id, bill_id, collection_id, entry_type, amount, balance_after, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.CustomerID, e.BillID, e.CollectionID, e.EntryType, e.Amount, e.BalanceAfter, e.CreatedBy, e.CreatedAt)
	return err
}
