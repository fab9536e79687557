package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/salonpos/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reconciliationCols = []string{"id", "business_date", "expected_cash", "expected_revenue", "bill_count",
	"actual_cash", "cash_difference", "notes", "reconciled", "reconciled_at", "reconciled_by", "created_at", "updated_at"}

var businessDay = time.Date(2026, 1, 25, 0, 0, 0, 0, time.UTC)

func newTestReconciliation(t *testing.T) (*ReconciliationService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	audit := NewAuditRecorder()
	audit.now = func() time.Time { return fixedNow }
	svc := NewReconciliationService(db, audit, nil, time.UTC)
	svc.now = func() time.Time { return fixedNow }
	return svc, mock
}

func expectFigures(mock sqlmock.Sqlmock, cash, revenue int64, count int) {
	mock.ExpectQuery("FROM bill_payments").
		WithArgs(businessDay, businessDay.AddDate(0, 0, 1)).
		WillReturnRows(sqlmock.NewRows([]string{"expected_cash", "expected_revenue", "bill_count"}).
			AddRow(cash, revenue, count))
}

func openReconciliationRow(id string, expected int64) *sqlmock.Rows {
	return sqlmock.NewRows(reconciliationCols).
		AddRow(id, businessDay, expected, expected, 12, nil, nil, "", false, nil, nil, fixedNow, fixedNow)
}

func TestReconciliationService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("snapshots expected figures", func(t *testing.T) {
		svc, mock := newTestReconciliation(t)

		mock.ExpectBegin()
		expectFigures(mock, 2100000, 2450000, 14)
		mock.ExpectExec("INSERT INTO daily_reconciliations").
			WithArgs(sqlmock.AnyArg(), "2026-01-25", int64(2100000), int64(2450000), 14, fixedNow, fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		r, err := svc.Create(ctx, "2026-01-25", "owner1")
		require.NoError(t, err)
		assert.Equal(t, int64(2100000), r.ExpectedCash)
		assert.Equal(t, 14, r.BillCount)
		assert.False(t, r.Reconciled)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second create for the same date", func(t *testing.T) {
		svc, mock := newTestReconciliation(t)

		mock.ExpectBegin()
		expectFigures(mock, 0, 0, 0)
		mock.ExpectExec("INSERT INTO daily_reconciliations").
			WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		_, err := svc.Create(ctx, "2026-01-25", "owner1")
		assert.ErrorIs(t, err, ErrReconciliationExists)
		assert.Equal(t, KindConflict, KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("bad date", func(t *testing.T) {
		svc, _ := newTestReconciliation(t)

		_, err := svc.Create(ctx, "25/01/2026", "owner1")
		assert.ErrorIs(t, err, ErrInvalidDate)
		assert.Equal(t, KindValidation, KindOf(err))
	})
}

func TestReconciliationService_Snapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("finalized day is not refreshed", func(t *testing.T) {
		svc, mock := newTestReconciliation(t)

		mock.ExpectBegin()
		expectFigures(mock, 100, 100, 1)
		mock.ExpectQuery("ON CONFLICT \\(business_date\\) DO UPDATE").
			WillReturnRows(sqlmock.NewRows(reconciliationCols))
		mock.ExpectRollback()

		_, err := svc.Snapshot(ctx, "2026-01-25")
		assert.ErrorIs(t, err, ErrAlreadyReconciled)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func expectDayLock(mock sqlmock.Sqlmock, date string) {
	mock.ExpectExec("pg_advisory_xact_lock").
		WithArgs(date).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestReconciliationService_Finalize(t *testing.T) {
	ctx := context.Background()

	t.Run("short cash gives a negative difference", func(t *testing.T) {
		svc, mock := newTestReconciliation(t)

		mock.ExpectBegin()
		expectDayLock(mock, "2026-01-25")
		mock.ExpectQuery("FROM daily_reconciliations WHERE business_date = \\$1 FOR UPDATE").
			WithArgs("2026-01-25").
			WillReturnRows(openReconciliationRow("rec1", 2000000))
		mock.ExpectQuery("FROM cash_drawer_sessions").
			WithArgs("2026-01-25").
			WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow("drw1", models.DrawerClosing))
		expectFigures(mock, 2100000, 2400000, 14)
		mock.ExpectExec("UPDATE daily_reconciliations").
			WithArgs(int64(2100000), int64(2400000), 14, int64(2098500), int64(-1500), "two notes short", fixedNow, "owner1", "rec1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE cash_drawer_sessions SET status").
			WithArgs(models.DrawerReconciled, "drw1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectAudit(mock)
		mock.ExpectCommit()

		r, err := svc.Finalize(ctx, "2026-01-25", FinalizeRequest{ActualCash: 2098500, Notes: "two notes short"}, "owner1")
		require.NoError(t, err)
		require.NotNil(t, r.CashDifference)
		assert.Equal(t, int64(-1500), *r.CashDifference)
		assert.True(t, r.Reconciled)
		assert.Equal(t, "owner1", *r.ReconciledBy)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("drawer still open", func(t *testing.T) {
		svc, mock := newTestReconciliation(t)

		mock.ExpectBegin()
		expectDayLock(mock, "2026-01-25")
		mock.ExpectQuery("FROM daily_reconciliations").
			WillReturnRows(openReconciliationRow("rec1", 0))
		mock.ExpectQuery("FROM cash_drawer_sessions").
			WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow("drw1", models.DrawerOpen))
		mock.ExpectRollback()

		_, err := svc.Finalize(ctx, "2026-01-25", FinalizeRequest{ActualCash: 0}, "owner1")
		assert.ErrorIs(t, err, ErrDrawerStillOpen)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already reconciled", func(t *testing.T) {
		svc, mock := newTestReconciliation(t)
		diff := int64(0)

		mock.ExpectBegin()
		expectDayLock(mock, "2026-01-25")
		mock.ExpectQuery("FROM daily_reconciliations").
			WillReturnRows(sqlmock.NewRows(reconciliationCols).
				AddRow("rec1", businessDay, 100, 100, 1, int64(100), diff, "", true, fixedNow, "owner1", fixedNow, fixedNow))
		mock.ExpectRollback()

		_, err := svc.Finalize(ctx, "2026-01-25", FinalizeRequest{ActualCash: 100}, "owner1")
		assert.ErrorIs(t, err, ErrAlreadyReconciled)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no reconciliation row", func(t *testing.T) {
		svc, mock := newTestReconciliation(t)

		mock.ExpectBegin()
		expectDayLock(mock, "2026-01-25")
		mock.ExpectQuery("FROM daily_reconciliations").WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := svc.Finalize(ctx, "2026-01-25", FinalizeRequest{ActualCash: 100}, "owner1")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, KindNotFound, KindOf(err))
	})

	t.Run("negative count is invalid", func(t *testing.T) {
		svc, _ := newTestReconciliation(t)

		_, err := svc.Finalize(ctx, "2026-01-25", FinalizeRequest{ActualCash: -1}, "owner1")
		assert.Equal(t, KindValidation, KindOf(err))
	})
}

func TestReconciliationService_AddCorrection(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a finalized day", func(t *testing.T) {
		svc, mock := newTestReconciliation(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM daily_reconciliations").
			WillReturnRows(openReconciliationRow("rec1", 0))
		mock.ExpectRollback()

		_, err := svc.AddCorrection(ctx, "2026-01-25", CorrectionRequest{Note: "found 500 under tray", AmountDelta: 500}, "owner1")
		assert.ErrorIs(t, err, ErrNotReconciled)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("appends to a finalized day", func(t *testing.T) {
		svc, mock := newTestReconciliation(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM daily_reconciliations").
			WillReturnRows(sqlmock.NewRows(reconciliationCols).
				AddRow("rec1", businessDay, 100, 100, 1, int64(0), int64(-100), "", true, fixedNow, "owner1", fixedNow, fixedNow))
		mock.ExpectExec("INSERT INTO reconciliation_corrections").
			WithArgs(sqlmock.AnyArg(), "rec1", "found 500 under tray", int64(500), "owner1", fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectAudit(mock)
		mock.ExpectCommit()

		c, err := svc.AddCorrection(ctx, "2026-01-25", CorrectionRequest{Note: "found 500 under tray", AmountDelta: 500}, "owner1")
		require.NoError(t, err)
		assert.Equal(t, "rec1", c.ReconciliationID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReconciliationService_Get(t *testing.T) {
	svc, mock := newTestReconciliation(t)

	mock.ExpectQuery("FROM daily_reconciliations WHERE business_date").
		WithArgs("2026-01-25").
		WillReturnRows(openReconciliationRow("rec1", 100))
	mock.ExpectQuery("FROM reconciliation_corrections").
		WithArgs("rec1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "reconciliation_id", "note", "amount_delta", "created_by", "created_at"}).
			AddRow("cor1", "rec1", "recount", int64(-200), "owner1", fixedNow))

	r, err := svc.Get(context.Background(), "2026-01-25")
	require.NoError(t, err)
	require.Len(t, r.Corrections, 1)
	assert.Equal(t, int64(-200), r.Corrections[0].AmountDelta)
	assert.NoError(t, mock.ExpectationsWereMet())
}
