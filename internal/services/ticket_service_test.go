package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/salonpos/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ticketCols = []string{
	"id", "ticket_number", "kind", "customer_id", "staff_id", "scheduled_at", "status",
	"notes", "created_at", "updated_at", "deleted_at",
}

func ticketRow(id, customerID, status string) *sqlmock.Rows {
	return sqlmock.NewRows(ticketCols).
		AddRow(id, "TKT-260125-001", models.TicketWalkIn, customerID, nil, fixedNow, status, "", fixedNow, fixedNow, nil)
}

func newTestTickets(t *testing.T) (*TicketService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := testBillingConfig()
	svc := NewTicketService(db, NewNumberingService(cfg, nil), NewAuditRecorder(), cfg.Location())
	svc.now = func() time.Time { return fixedNow }
	return svc, mock
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(models.TicketBooked, models.TicketCheckedIn))
	assert.True(t, CanTransition(models.TicketBooked, models.TicketNoShow))
	assert.True(t, CanTransition(models.TicketInService, models.TicketCompleted))
	assert.False(t, CanTransition(models.TicketBooked, models.TicketCompleted))
	assert.False(t, CanTransition(models.TicketCompleted, models.TicketCancelled))
	assert.False(t, CanTransition(models.TicketNoShow, models.TicketCheckedIn))
}

func TestTicketService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("walk-in is checked in with a day number", func(t *testing.T) {
		svc, mock := newTestTickets(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT EXISTS").WithArgs("cust1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery("SELECT last_value FROM number_sequences").
			WithArgs(ScopeTicket, "260125").
			WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(2))
		mock.ExpectExec("UPDATE number_sequences").
			WithArgs(int64(3), ScopeTicket, "260125").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO tickets").
			WithArgs(sqlmock.AnyArg(), "TKT-260125-003", models.TicketWalkIn, "cust1", nil, fixedNow,
				models.TicketCheckedIn, "", fixedNow, fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tk, err := svc.Create(ctx, CreateTicketRequest{Kind: models.TicketWalkIn, CustomerID: "cust1"}, "staff1")
		require.NoError(t, err)
		assert.Equal(t, "TKT-260125-003", tk.TicketNumber)
		assert.Equal(t, models.TicketCheckedIn, tk.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("appointment requires a time", func(t *testing.T) {
		svc, _ := newTestTickets(t)
		_, err := svc.Create(ctx, CreateTicketRequest{Kind: models.TicketAppointment, CustomerID: "cust1"}, "staff1")
		assert.Equal(t, KindValidation, KindOf(err))
	})

	t.Run("unknown customer", func(t *testing.T) {
		svc, mock := newTestTickets(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT EXISTS").WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectRollback()

		_, err := svc.Create(ctx, CreateTicketRequest{Kind: models.TicketWalkIn, CustomerID: "ghost"}, "staff1")
		assert.Equal(t, KindNotFound, KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTicketService_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("checked in to in service", func(t *testing.T) {
		svc, mock := newTestTickets(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM tickets WHERE id = \\$1").WithArgs("t1").
			WillReturnRows(ticketRow("t1", "cust1", models.TicketCheckedIn))
		mock.ExpectExec("UPDATE tickets SET status").
			WithArgs(models.TicketInService, fixedNow, "t1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectAudit(mock)
		mock.ExpectCommit()

		tk, err := svc.UpdateStatus(ctx, "t1", models.TicketInService, "staff1")
		require.NoError(t, err)
		assert.Equal(t, models.TicketInService, tk.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("illegal transition", func(t *testing.T) {
		svc, mock := newTestTickets(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM tickets").WithArgs("t1").
			WillReturnRows(ticketRow("t1", "cust1", models.TicketCancelled))
		mock.ExpectRollback()

		_, err := svc.UpdateStatus(ctx, "t1", models.TicketInService, "staff1")
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, KindConsistency, KindOf(err))
	})
}

func TestTicketService_ListByDate(t *testing.T) {
	svc, mock := newTestTickets(t)
	ist := svc.loc
	from := time.Date(2026, 1, 25, 0, 0, 0, 0, ist)

	mock.ExpectQuery("FROM tickets").
		WithArgs(from, from.AddDate(0, 0, 1)).
		WillReturnRows(ticketRow("t1", "cust1", models.TicketBooked))

	list, err := svc.ListByDate(context.Background(), "2026-01-25")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.ListByDate(context.Background(), "25/01/2026")
	assert.ErrorIs(t, err, ErrInvalidDate)
}
