package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/salonpos/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHasher struct{}

func (stubHasher) HashPassword(p string) (string, error) { return "hashed:" + p, nil }

func staffFixture(id, role string) *models.Staff {
	return &models.Staff{ID: id, Name: "Asha", Phone: "+919800000001", Role: role, Active: true}
}

func newTestStaff(t *testing.T) (*StaffService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	audit := NewAuditRecorder()
	audit.now = func() time.Time { return fixedNow }
	svc := NewStaffService(db, stubHasher{}, audit, time.UTC)
	svc.now = func() time.Time { return fixedNow }
	return svc, mock
}

func TestStaffService_Create(t *testing.T) {
	ctx := context.Background()
	req := CreateStaffRequest{Name: "Ravi", Phone: "+919800000002", Role: "staff", Password: "longenough"}

	t.Run("stores the password hash", func(t *testing.T) {
		svc, mock := newTestStaff(t)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO staff").
			WithArgs(sqlmock.AnyArg(), "Ravi", "+919800000002", "staff", "hashed:longenough", fixedNow, fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		st, err := svc.Create(ctx, req, "owner1")
		require.NoError(t, err)
		assert.True(t, st.Active)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate phone", func(t *testing.T) {
		svc, mock := newTestStaff(t)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO staff").WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		_, err := svc.Create(ctx, req, "owner1")
		assert.ErrorIs(t, err, ErrDuplicate)
		assert.Equal(t, KindConflict, KindOf(err))
	})

	t.Run("unknown role", func(t *testing.T) {
		svc, _ := newTestStaff(t)
		bad := req
		bad.Role = "manager"

		_, err := svc.Create(ctx, bad, "owner1")
		assert.Equal(t, KindValidation, KindOf(err))
	})
}

func TestStaffService_Attendance(t *testing.T) {
	ctx := context.Background()

	t.Run("clock in", func(t *testing.T) {
		svc, mock := newTestStaff(t)

		mock.ExpectQuery("SELECT active FROM staff").
			WithArgs("stf1").
			WillReturnRows(sqlmock.NewRows([]string{"active"}).AddRow(true))
		mock.ExpectExec("INSERT INTO attendance").
			WithArgs(sqlmock.AnyArg(), "stf1", "2026-01-25", fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))

		a, err := svc.ClockIn(ctx, "stf1")
		require.NoError(t, err)
		assert.Equal(t, "2026-01-25", a.WorkDate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second clock in on the same day", func(t *testing.T) {
		svc, mock := newTestStaff(t)

		mock.ExpectQuery("SELECT active FROM staff").
			WillReturnRows(sqlmock.NewRows([]string{"active"}).AddRow(true))
		mock.ExpectExec("INSERT INTO attendance").WillReturnError(&pq.Error{Code: "23505"})

		_, err := svc.ClockIn(ctx, "stf1")
		assert.ErrorIs(t, err, ErrAlreadyClockedIn)
	})

	t.Run("clock out without clock in", func(t *testing.T) {
		svc, mock := newTestStaff(t)

		mock.ExpectQuery("UPDATE attendance SET clock_out").
			WithArgs(fixedNow, "stf1", "2026-01-25").
			WillReturnRows(sqlmock.NewRows([]string{"id", "staff_id", "work_date", "clock_in", "clock_out"}))

		_, err := svc.ClockOut(ctx, "stf1")
		assert.ErrorIs(t, err, ErrNotClockedIn)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("list for a range", func(t *testing.T) {
		svc, mock := newTestStaff(t)
		in := fixedNow.Add(-4 * time.Hour)

		mock.ExpectQuery("FROM attendance").
			WithArgs("stf1", "2026-01-01", "2026-01-31").
			WillReturnRows(sqlmock.NewRows([]string{"id", "staff_id", "work_date", "clock_in", "clock_out"}).
				AddRow("att1", "stf1", businessDay, in, fixedNow))

		list, err := svc.ListAttendance(ctx, "stf1", "2026-01-01", "2026-01-31")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "2026-01-25", list[0].WorkDate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inverted range", func(t *testing.T) {
		svc, _ := newTestStaff(t)

		_, err := svc.ListAttendance(ctx, "stf1", "2026-02-01", "2026-01-01")
		assert.ErrorIs(t, err, ErrInvalidDate)
	})
}
