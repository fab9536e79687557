package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/salonpos/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 1, 25, 6, 30, 0, 0, time.UTC)

func newTestLedger(t *testing.T) (*LedgerService, *sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	audit := NewAuditRecorder()
	audit.now = func() time.Time { return fixedNow }
	svc := NewLedgerService(db, audit, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc, db, mock
}

func balanceRow(balance int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"pending_balance"}).AddRow(balance)
}

func expectAudit(mock sqlmock.Sqlmock) {
	mock.ExpectExec("INSERT INTO events").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestLedgerService_RecordCollection(t *testing.T) {
	ctx := context.Background()

	t.Run("partial collection in cash", func(t *testing.T) {
		svc, _, mock := newTestLedger(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT pending_balance FROM customers WHERE id = \\$1 AND deleted_at IS NULL FOR UPDATE").
			WithArgs("cust1").
			WillReturnRows(balanceRow(500))
		mock.ExpectExec("INSERT INTO pending_payment_collections").
			WithArgs(sqlmock.AnyArg(), "cust1", int64(200), "cash", nil, int64(500), int64(300), "staff1", fixedNow, "").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE customers SET pending_balance").
			WithArgs(int64(300), fixedNow, "cust1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO ledger_entries").
			WithArgs(sqlmock.AnyArg(), "cust1", nil, sqlmock.AnyArg(), models.EntryCollection, int64(200), int64(300), "staff1", fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectAudit(mock)
		mock.ExpectCommit()

		c, err := svc.RecordCollection(ctx, CollectionRequest{
			CustomerID:    "cust1",
			Amount:        200,
			PaymentMethod: models.PaymentCash,
			CollectedBy:   "staff1",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(500), c.PreviousBalance)
		assert.Equal(t, int64(300), c.NewBalance)
		assert.Equal(t, c.PreviousBalance-c.Amount, c.NewBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("collection exceeding balance is rejected", func(t *testing.T) {
		svc, _, mock := newTestLedger(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT pending_balance FROM customers").
			WithArgs("cust1").
			WillReturnRows(balanceRow(500))
		mock.ExpectRollback()

		_, err := svc.RecordCollection(ctx, CollectionRequest{
			CustomerID:    "cust1",
			Amount:        800,
			PaymentMethod: models.PaymentUPI,
			CollectedBy:   "staff1",
		})
		assert.ErrorIs(t, err, ErrCollectionExceedsBalance)
		assert.Equal(t, KindConsistency, KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown customer", func(t *testing.T) {
		svc, _, mock := newTestLedger(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT pending_balance FROM customers").
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"pending_balance"}))
		mock.ExpectRollback()

		_, err := svc.RecordCollection(ctx, CollectionRequest{
			CustomerID:    "ghost",
			Amount:        100,
			PaymentMethod: models.PaymentCash,
			CollectedBy:   "staff1",
		})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, KindNotFound, KindOf(err))
	})

	t.Run("invalid request never opens a transaction", func(t *testing.T) {
		svc, _, mock := newTestLedger(t)

		_, err := svc.RecordCollection(ctx, CollectionRequest{
			CustomerID:    "cust1",
			Amount:        0,
			PaymentMethod: "cheque",
			CollectedBy:   "staff1",
		})
		assert.Equal(t, KindValidation, KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerService_RecordCharge(t *testing.T) {
	svc, db, mock := newTestLedger(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT pending_balance FROM customers").
		WithArgs("cust1").
		WillReturnRows(balanceRow(300))
	mock.ExpectExec("UPDATE customers SET pending_balance").
		WithArgs(int64(1500), fixedNow, "cust1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO ledger_entries").
		WithArgs(sqlmock.AnyArg(), "cust1", "bill1", nil, models.EntryCharge, int64(1200), int64(1500), "staff1", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectAudit(mock)
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)

	entry, err := svc.RecordCharge(ctx, tx, "cust1", "bill1", 1200, "staff1")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, int64(1500), entry.BalanceAfter)
	assert.Equal(t, models.EntryCharge, entry.EntryType)
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = svc.RecordCharge(ctx, db, "cust1", "bill1", 0, "staff1")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestLedgerService_VerifyBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("consistent", func(t *testing.T) {
		svc, _, mock := newTestLedger(t)

		mock.ExpectQuery("SELECT pending_balance FROM customers").
			WithArgs("cust1").
			WillReturnRows(balanceRow(300))
		mock.ExpectQuery("FROM ledger_entries").
			WithArgs("cust1").
			WillReturnRows(sqlmock.NewRows([]string{"charges", "collections"}).AddRow(500, 200))

		check, err := svc.VerifyBalance(ctx, "cust1")
		require.NoError(t, err)
		assert.True(t, check.Consistent)
		assert.Equal(t, int64(300), check.Computed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("drift", func(t *testing.T) {
		svc, _, mock := newTestLedger(t)

		mock.ExpectQuery("SELECT pending_balance FROM customers").
			WithArgs("cust1").
			WillReturnRows(balanceRow(400))
		mock.ExpectQuery("FROM ledger_entries").
			WithArgs("cust1").
			WillReturnRows(sqlmock.NewRows([]string{"charges", "collections"}).AddRow(500, 200))

		check, err := svc.VerifyBalance(ctx, "cust1")
		assert.ErrorIs(t, err, ErrLedgerDrift)
		require.NotNil(t, check)
		assert.False(t, check.Consistent)
		assert.Equal(t, int64(400), check.Stored)
	})
}

func TestLedgerService_ListCollections(t *testing.T) {
	svc, _, mock := newTestLedger(t)
	billID := "bill9"

	mock.ExpectQuery("FROM pending_payment_collections").
		WithArgs("cust1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "customer_id", "amount", "payment_method", "bill_id", "previous_balance",
			"new_balance", "collected_by", "collected_at", "notes",
		}).
			AddRow("c2", "cust1", 300, "upi", billID, 300, 0, "staff1", fixedNow, "").
			AddRow("c1", "cust1", 200, "cash", nil, 500, 300, "staff1", fixedNow.Add(-time.Hour), "first"))

	list, err := svc.ListCollections(context.Background(), "cust1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, &billID, list[0].BillID)
	assert.Nil(t, list[1].BillID)
	assert.Equal(t, int64(300), list[1].NewBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}
