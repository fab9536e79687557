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

// expectedFigures are what the books say a business day should contain.
type expectedFigures struct {
	Cash      int64
	Revenue   int64
	BillCount int
}

// computeExpected sums a [from, to) window. Expected cash is cash tendered on
// bills, less change handed back, plus standalone cash collections.
// Collections made through a bill are already inside its tendered cash.
func computeExpected(ctx context.Context, q DBTX, from, to time.Time) (expectedFigures, error) {
	var f expectedFigures
	err := q.QueryRowContext(ctx, `
		SELECT
			COALESCE((SELECT SUM(bp.amount) FROM bill_payments bp JOIN bills b ON b.id = bp.bill_id
				WHERE bp.method = 'cash' AND b.status <> 'VOID'
				AND b.created_at >= $1 AND b.created_at < $2), 0)
			- COALESCE((SELECT SUM(change_given) FROM bills
				WHERE status <> 'VOID' AND created_at >= $1 AND created_at < $2), 0)
			+ COALESCE((SELECT SUM(amount) FROM pending_payment_collections
				WHERE payment_method = 'cash' AND bill_id IS NULL
				AND collected_at >= $1 AND collected_at < $2), 0) AS expected_cash,
			COALESCE((SELECT SUM(total) FROM bills
				WHERE status <> 'VOID' AND created_at >= $1 AND created_at < $2), 0) AS expected_revenue,
			(SELECT COUNT(*) FROM bills
				WHERE status <> 'VOID' AND created_at >= $1 AND created_at < $2) AS bill_count`,
		from, to).Scan(&f.Cash, &f.Revenue, &f.BillCount)
	return f, err
}

type ReconciliationService struct {
	db        *sql.DB
	audit     *AuditRecorder
	metrics   *Metrics
	validator *ValidationHelper
	loc       *time.Location
	log       zerolog.Logger
	now       func() time.Time
}

func NewReconciliationService(db *sql.DB, audit *AuditRecorder, metrics *Metrics, loc *time.Location) *ReconciliationService {
	return &ReconciliationService{
		db:        db,
		audit:     audit,
		metrics:   metrics,
		validator: NewValidationHelper(),
		loc:       loc,
		log:       logger.WithComponent("reconciliation"),
		now:       time.Now,
	}
}

type FinalizeRequest struct {
	ActualCash int64  `json:"actual_cash" validate:"gte=0,lte=1000000000"`
	Notes      string `json:"notes" validate:"max=1000"`
}

type CorrectionRequest struct {
	Note        string `json:"note" validate:"required,max=1000"`
	AmountDelta int64  `json:"amount_delta" validate:"gte=-1000000000,lte=1000000000"`
}

const reconciliationColumns = `id, business_date, expected_cash, expected_revenue, bill_count,
	actual_cash, cash_difference, notes, reconciled, reconciled_at, reconciled_by, created_at, updated_at`

func scanReconciliation(row rowScanner) (*models.DailyReconciliation, error) {
	var r models.DailyReconciliation
	var date time.Time
	err := row.Scan(&r.ID, &date, &r.ExpectedCash, &r.ExpectedRevenue, &r.BillCount, &r.ActualCash,
		&r.CashDifference, &r.Notes, &r.Reconciled, &r.ReconciledAt, &r.ReconciledBy, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.BusinessDate = date.Format(dateLayout)
	return &r, nil
}

// Create inserts the reconciliation row for a date. A second call for the
// same date fails with ErrReconciliationExists.
func (s *ReconciliationService) Create(ctx context.Context, date, actor string) (*models.DailyReconciliation, error) {
	const op = "CreateReconciliation"
	from, to, err := dayBounds(date, s.loc)
	if err != nil {
		return nil, invalid(op, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer tx.Rollback()

	figures, err := computeExpected(ctx, tx, from, to)
	if err != nil {
		return nil, wrap(op, err)
	}

	now := s.now()
	r := &models.DailyReconciliation{
		ID:              models.NewID(),
		BusinessDate:    date,
		ExpectedCash:    figures.Cash,
		ExpectedRevenue: figures.Revenue,
		BillCount:       figures.BillCount,
	}
	r.Touch(now)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO daily_reconciliations
			(id, business_date, expected_cash, expected_revenue, bill_count, reconciled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)`,
		r.ID, r.BusinessDate, r.ExpectedCash, r.ExpectedRevenue, r.BillCount, r.CreatedAt, r.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, wrap(op, fmt.Errorf("%w: %s", ErrReconciliationExists, date))
	}
	if err != nil {
		return nil, wrap(op, err)
	}
	if err := s.audit.RecordAction(ctx, tx, actor, "reconciliation.create", "daily_reconciliation", r.ID, nil, r); err != nil {
		return nil, wrap(op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, wrap(op, err)
	}
	return r, nil
}

// Snapshot creates or refreshes the expected figures of an open day.
func (s *ReconciliationService) Snapshot(ctx context.Context, date string) (*models.DailyReconciliation, error) {
	const op = "SnapshotReconciliation"
	from, to, err := dayBounds(date, s.loc)
	if err != nil {
		return nil, invalid(op, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer tx.Rollback()

	figures, err := computeExpected(ctx, tx, from, to)
	if err != nil {
		return nil, wrap(op, err)
	}

	now := s.now()
	r, err := scanReconciliation(tx.QueryRowContext(ctx, `
		INSERT INTO daily_reconciliations
			(id, business_date, expected_cash, expected_revenue, bill_count, reconciled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, $6)
		ON CONFLICT (business_date) DO UPDATE SET
			expected_cash = EXCLUDED.expected_cash,
			expected_revenue = EXCLUDED.expected_revenue,
			bill_count = EXCLUDED.bill_count,
			updated_at = EXCLUDED.updated_at
		WHERE daily_reconciliations.reconciled = FALSE
		RETURNING `+reconciliationColumns,
		models.NewID(), date, figures.Cash, figures.Revenue, figures.BillCount, now))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrap(op, fmt.Errorf("%w: %s", ErrAlreadyReconciled, date))
	}
	if err != nil {
		return nil, wrap(op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, wrap(op, err)
	}
	return r, nil
}

// Finalize records the counted cash and closes the day. The day's drawer
// must already be counted; a CLOSING drawer becomes RECONCILED.
func (s *ReconciliationService) Finalize(ctx context.Context, date string, req FinalizeRequest, actor string) (*models.DailyReconciliation, error) {
	const op = "FinalizeReconciliation"
	if err := s.validator.ValidateStruct(&req); err != nil {
		return nil, invalid(op, err)
	}
	from, to, err := dayBounds(date, s.loc)
	if err != nil {
		return nil, invalid(op, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer tx.Rollback()

	if err := lockBusinessDay(ctx, tx, date); err != nil {
		return nil, wrap(op, err)
	}
	r, err := s.lock(ctx, tx, date)
	if err != nil {
		return nil, wrap(op, err)
	}
	if r.Reconciled {
		return nil, wrap(op, fmt.Errorf("%w: %s", ErrAlreadyReconciled, date))
	}
	before := *r

	var drawerID, drawerStatus string
	err = tx.QueryRowContext(ctx, `
		SELECT id, status FROM cash_drawer_sessions
		WHERE business_date = $1 AND status <> 'RECONCILED'
		FOR UPDATE`, date).Scan(&drawerID, &drawerStatus)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, wrap(op, err)
	}
	if drawerStatus == models.DrawerOpen {
		return nil, wrap(op, ErrDrawerStillOpen)
	}

	figures, err := computeExpected(ctx, tx, from, to)
	if err != nil {
		return nil, wrap(op, err)
	}

	now := s.now()
	diff := req.ActualCash - figures.Cash
	r.ExpectedCash = figures.Cash
	r.ExpectedRevenue = figures.Revenue
	r.BillCount = figures.BillCount
	r.ActualCash = &req.ActualCash
	r.CashDifference = &diff
	r.Notes = req.Notes
	r.Reconciled = true
	r.ReconciledAt = &now
	r.ReconciledBy = &actor
	r.Touch(now)

	_, err = tx.ExecContext(ctx, `
		UPDATE daily_reconciliations
		SET expected_cash = $1, expected_revenue = $2, bill_count = $3, actual_cash = $4,
			cash_difference = $5, notes = $6, reconciled = TRUE, reconciled_at = $7,
			reconciled_by = $8, updated_at = $7
		WHERE id = $9`,
		r.ExpectedCash, r.ExpectedRevenue, r.BillCount, req.ActualCash, diff, r.Notes, now, actor, r.ID)
	if err != nil {
		return nil, wrap(op, err)
	}

	if drawerStatus == models.DrawerClosing {
		if _, err := tx.ExecContext(ctx,
			`UPDATE cash_drawer_sessions SET status = $1 WHERE id = $2`, models.DrawerReconciled, drawerID); err != nil {
			return nil, wrap(op, err)
		}
	}

	if err := s.audit.RecordEvent(ctx, tx, EventReconciliationFinal, "daily_reconciliation", r.ID, map[string]any{
		"business_date":   date,
		"expected_cash":   r.ExpectedCash,
		"actual_cash":     req.ActualCash,
		"cash_difference": diff,
	}); err != nil {
		return nil, wrap(op, err)
	}
	if err := s.audit.RecordAction(ctx, tx, actor, "reconciliation.finalize", "daily_reconciliation", r.ID, &before, r); err != nil {
		return nil, wrap(op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, wrap(op, err)
	}

	s.metrics.reconciled(diff)
	if drawerStatus == models.DrawerClosing {
		s.metrics.drawer(models.DrawerReconciled)
	}
	s.log.Info().
		Str("date", date).
		Int64("expected", r.ExpectedCash).
		Int64("actual", req.ActualCash).
		Int64("difference", diff).
		Msg("day reconciled")
	return r, nil
}

// AddCorrection appends an adjustment to a finalized day.
func (s *ReconciliationService) AddCorrection(ctx context.Context, date string, req CorrectionRequest, actor string) (*models.ReconciliationCorrection, error) {
	const op = "AddCorrection"
	if err := s.validator.ValidateStruct(&req); err != nil {
		return nil, invalid(op, err)
	}
	if _, _, err := dayBounds(date, s.loc); err != nil {
		return nil, invalid(op, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer tx.Rollback()

	r, err := s.lock(ctx, tx, date)
	if err != nil {
		return nil, wrap(op, err)
	}
	if !r.Reconciled {
		return nil, wrap(op, ErrNotReconciled)
	}

	c := &models.ReconciliationCorrection{
		ID:               models.NewID(),
		ReconciliationID: r.ID,
		Note:             req.Note,
		AmountDelta:      req.AmountDelta,
		CreatedBy:        actor,
		CreatedAt:        s.now(),
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO reconciliation_corrections (id, reconciliation_id, note, amount_delta, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.ReconciliationID, c.Note, c.AmountDelta, c.CreatedBy, c.CreatedAt); err != nil {
		return nil, wrap(op, err)
	}
	if err := s.audit.RecordEvent(ctx, tx, EventCorrectionAdded, "daily_reconciliation", r.ID, c); err != nil {
		return nil, wrap(op, err)
	}
	if err := s.audit.RecordAction(ctx, tx, actor, "reconciliation.correct", "daily_reconciliation", r.ID, nil, c); err != nil {
		return nil, wrap(op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, wrap(op, err)
	}
	return c, nil
}

// Get returns the reconciliation for a date with its corrections.
func (s *ReconciliationService) Get(ctx context.Context, date string) (*models.DailyReconciliation, error) {
	const op = "GetReconciliation"
	if _, _, err := dayBounds(date, s.loc); err != nil {
		return nil, invalid(op, err)
	}
	r, err := scanReconciliation(s.db.QueryRowContext(ctx,
		`SELECT `+reconciliationColumns+` FROM daily_reconciliations WHERE business_date = $1`, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrap(op, ErrNotFound)
	}
	if err != nil {
		return nil, wrap(op, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, reconciliation_id, note, amount_delta, created_by, created_at
		FROM reconciliation_corrections
		WHERE reconciliation_id = $1
		ORDER BY created_at`, r.ID)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()
	for rows.Next() {
		var c models.ReconciliationCorrection
		if err := rows.Scan(&c.ID, &c.ReconciliationID, &c.Note, &c.AmountDelta, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, wrap(op, err)
		}
		r.Corrections = append(r.Corrections, c)
	}
	return r, wrap(op, rows.Err())
}

func (s *ReconciliationService) lock(ctx context.Context, tx DBTX, date string) (*models.DailyReconciliation, error) {
	r, err := scanReconciliation(tx.QueryRowContext(ctx,
		`SELECT `+reconciliationColumns+` FROM daily_reconciliations WHERE business_date = $1 FOR UPDATE`, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reconciliation %s: %w", date, ErrNotFound)
	}
	return r, err
}
