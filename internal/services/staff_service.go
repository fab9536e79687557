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

type passwordHasher interface {
	HashPassword(password string) (string, error)
}

// StaffService manages staff accounts and daily attendance.
type StaffService struct {
	db        *sql.DB
	hasher    passwordHasher
	audit     *AuditRecorder
	validator *ValidationHelper
	loc       *time.Location
	log       zerolog.Logger
	now       func() time.Time
}

func NewStaffService(db *sql.DB, hasher passwordHasher, audit *AuditRecorder, loc *time.Location) *StaffService {
	return &StaffService{
		db:        db,
		hasher:    hasher,
		audit:     audit,
		validator: NewValidationHelper(),
		loc:       loc,
		log:       logger.WithComponent("staff"),
		now:       time.Now,
	}
}

type CreateStaffRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Phone    string `json:"phone" validate:"required,phone"`
	Role     string `json:"role" validate:"required,oneof=owner receptionist staff"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

const staffColumns = `id, name, phone, role, active, created_at, updated_at, deleted_at`

func scanStaff(row rowScanner) (*models.Staff, error) {
	var st models.Staff
	if err := row.Scan(&st.ID, &st.Name, &st.Phone, &st.Role, &st.Active,
		&st.CreatedAt, &st.UpdatedAt, &st.DeletedAt); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *StaffService) Create(ctx context.Context, req CreateStaffRequest, actor string) (*models.Staff, error) {
	const op = "CreateStaff"
	if err := s.validator.ValidateStruct(&req); err != nil {
		return nil, invalid(op, err)
	}
	hash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		return nil, wrap(op, err)
	}

	st := &models.Staff{
		ID:           models.NewID(),
		Name:         req.Name,
		Phone:        req.Phone,
		Role:         req.Role,
		PasswordHash: hash,
		Active:       true,
	}
	st.Touch(s.now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO staff (id, name, phone, role, password_hash, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7)`,
		st.ID, st.Name, st.Phone, st.Role, st.PasswordHash, st.CreatedAt, st.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, wrap(op, fmt.Errorf("%w: phone %s", ErrDuplicate, st.Phone))
	}
	if err != nil {
		return nil, wrap(op, err)
	}
	if err := s.audit.RecordAction(ctx, tx, actor, "staff.create", "staff", st.ID, nil, st); err != nil {
		return nil, wrap(op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, wrap(op, err)
	}

	s.log.Info().Str("staff_id", st.ID).Str("role", st.Role).Msg("staff created")
	return st, nil
}

// Count returns the number of live staff accounts.
func (s *StaffService) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM staff WHERE deleted_at IS NULL`).Scan(&n)
	return n, wrap("CountStaff", err)
}

func (s *StaffService) Get(ctx context.Context, id string) (*models.Staff, error) {
	st, err := scanStaff(s.db.QueryRowContext(ctx,
		`SELECT `+staffColumns+` FROM staff WHERE id = $1 AND deleted_at IS NULL`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrap("GetStaff", ErrNotFound)
	}
	return st, wrap("GetStaff", err)
}

func (s *StaffService) List(ctx context.Context) ([]models.Staff, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+staffColumns+` FROM staff WHERE deleted_at IS NULL ORDER BY name`)
	if err != nil {
		return nil, wrap("ListStaff", err)
	}
	defer rows.Close()

	var out []models.Staff
	for rows.Next() {
		st, err := scanStaff(rows)
		if err != nil {
			return nil, wrap("ListStaff", err)
		}
		out = append(out, *st)
	}
	return out, wrap("ListStaff", rows.Err())
}

// ClockIn opens today's attendance row. One row per staff member per day.
func (s *StaffService) ClockIn(ctx context.Context, staffID string) (*models.Attendance, error) {
	const op = "ClockIn"
	now := s.now()
	a := &models.Attendance{
		ID:       models.NewID(),
		StaffID:  staffID,
		WorkDate: businessDate(now, s.loc),
		ClockIn:  now,
	}

	var active bool
	err := s.db.QueryRowContext(ctx,
		`SELECT active FROM staff WHERE id = $1 AND deleted_at IS NULL`, staffID).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !active) {
		return nil, wrap(op, ErrNotFound)
	}
	if err != nil {
		return nil, wrap(op, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO attendance (id, staff_id, work_date, clock_in)
		VALUES ($1, $2, $3, $4)`,
		a.ID, a.StaffID, a.WorkDate, a.ClockIn)
	if isUniqueViolation(err) {
		return nil, wrap(op, ErrAlreadyClockedIn)
	}
	if err != nil {
		return nil, wrap(op, err)
	}
	s.log.Debug().Str("staff_id", staffID).Str("date", a.WorkDate).Msg("clocked in")
	return a, nil
}

// ClockOut closes today's open attendance row.
func (s *StaffService) ClockOut(ctx context.Context, staffID string) (*models.Attendance, error) {
	const op = "ClockOut"
	now := s.now()
	var a models.Attendance
	var workDate time.Time
	err := s.db.QueryRowContext(ctx, `
		UPDATE attendance SET clock_out = $1
		WHERE staff_id = $2 AND work_date = $3 AND clock_out IS NULL
		RETURNING id, staff_id, work_date, clock_in, clock_out`,
		now, staffID, businessDate(now, s.loc)).
		Scan(&a.ID, &a.StaffID, &workDate, &a.ClockIn, &a.ClockOut)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrap(op, ErrNotClockedIn)
	}
	if err != nil {
		return nil, wrap(op, err)
	}
	a.WorkDate = workDate.Format(dateLayout)
	return &a, nil
}

// ListAttendance returns a staff member's attendance between two dates,
// both inclusive.
func (s *StaffService) ListAttendance(ctx context.Context, staffID, from, to string) ([]models.Attendance, error) {
	const op = "ListAttendance"
	start, _, err := dayBounds(from, s.loc)
	if err != nil {
		return nil, invalid(op, err)
	}
	end, _, err := dayBounds(to, s.loc)
	if err != nil {
		return nil, invalid(op, err)
	}
	if end.Before(start) {
		return nil, invalid(op, fmt.Errorf("%w: range ends before it starts", ErrInvalidDate))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, staff_id, work_date, clock_in, clock_out
		FROM attendance
		WHERE staff_id = $1 AND work_date BETWEEN $2 AND $3
		ORDER BY work_date`, staffID, from, to)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	var out []models.Attendance
	for rows.Next() {
		var a models.Attendance
		var workDate time.Time
		if err := rows.Scan(&a.ID, &a.StaffID, &workDate, &a.ClockIn, &a.ClockOut); err != nil {
			return nil, wrap(op, err)
		}
		a.WorkDate = workDate.Format(dateLayout)
		out = append(out, a)
	}
	return out, wrap(op, rows.Err())
}
