package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/salonpos/backend/internal/logger"
	"github.com/salonpos/backend/internal/models"
)

// CashDrawerService tracks the physical drawer for a business day:
// OPEN with a counted float, CLOSING once counted at day end, and
// RECONCILED when the day is finalized.
type CashDrawerService struct {
	db            *sql.DB
	audit         *AuditRecorder
	metrics       *Metrics
	denominations []int64
	validator     *ValidationHelper
	loc           *time.Location
	log           zerolog.Logger
	now           func() time.Time
}

func NewCashDrawerService(db *sql.DB, audit *AuditRecorder, metrics *Metrics, denominations []int64, loc *time.Location) *CashDrawerService {
	return &CashDrawerService{
		db:            db,
		audit:         audit,
		metrics:       metrics,
		denominations: denominations,
		validator:     NewValidationHelper(),
		loc:           loc,
		log:           logger.WithComponent("cash_drawer"),
		now:           time.Now,
	}
}

type OpenDrawerRequest struct {
	BusinessDate  string               `json:"business_date" validate:"required,datetime=2006-01-02"`
	Denominations models.Denominations `json:"denominations" validate:"required"`
}

type CloseDrawerRequest struct {
	Denominations      models.Denominations `json:"denominations" validate:"required"`
	CashTakenOut       int64                `json:"cash_taken_out" validate:"gte=0,lte=1000000000"`
	CashTakenOutReason string               `json:"cash_taken_out_reason" validate:"required_unless=CashTakenOut 0,max=500"`
}

const drawerColumns = `id, business_date, status, opening_float, opening_denominations,
	closing_denominations, counted_cash, expected_in_drawer, cash_taken_out,
	cash_taken_out_reason, opened_by, closed_by, opened_at, closed_at`

func scanDrawer(row rowScanner) (*models.CashDrawerSession, error) {
	var d models.CashDrawerSession
	var date time.Time
	err := row.Scan(&d.ID, &date, &d.Status, &d.OpeningFloat, &d.OpeningDenominations,
		&d.ClosingDenominations, &d.CountedCash, &d.ExpectedInDrawer, &d.CashTakenOut,
		&d.CashTakenOutReason, &d.OpenedBy, &d.ClosedBy, &d.OpenedAt, &d.ClosedAt)
	if err != nil {
		return nil, err
	}
	d.BusinessDate = date.Format(dateLayout)
	return &d, nil
}

// Open starts the drawer session for a business date with a counted float.
func (s *CashDrawerService) Open(ctx context.Context, req OpenDrawerRequest, actor string) (*models.CashDrawerSession, error) {
	const op = "OpenDrawer"
	if err := s.validator.ValidateStruct(&req); err != nil {
		return nil, invalid(op, err)
	}
	if err := req.Denominations.Validate(s.denominations); err != nil {
		return nil, invalid(op, err)
	}

	session := &models.CashDrawerSession{
		ID:                   models.NewID(),
		BusinessDate:         req.BusinessDate,
		Status:               models.DrawerOpen,
		OpeningFloat:         req.Denominations.Total(),
		OpeningDenominations: req.Denominations,
		OpenedBy:             actor,
		OpenedAt:             s.now(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer tx.Rollback()

	if err := lockBusinessDay(ctx, tx, req.BusinessDate); err != nil {
		return nil, wrap(op, err)
	}
	var reconciled bool
	err = tx.QueryRowContext(ctx,
		`SELECT reconciled FROM daily_reconciliations WHERE business_date = $1 FOR SHARE`,
		req.BusinessDate).Scan(&reconciled)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, wrap(op, err)
	}
	if reconciled {
		return nil, wrap(op, ErrAlreadyReconciled)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cash_drawer_sessions
			(id, business_date, status, opening_float, opening_denominations, cash_taken_out, opened_by, opened_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7)`,
		session.ID, session.BusinessDate, session.Status, session.OpeningFloat,
		session.OpeningDenominations, session.OpenedBy, session.OpenedAt)
	if isUniqueViolation(err) {
		return nil, wrap(op, ErrDrawerAlreadyOpen)
	}
	if err != nil {
		return nil, wrap(op, err)
	}

	if err := s.audit.RecordEvent(ctx, tx, EventDrawerOpened, "cash_drawer_session", session.ID, session); err != nil {
		return nil, wrap(op, err)
	}
	if err := s.audit.RecordAction(ctx, tx, actor, "drawer.open", "cash_drawer_session", session.ID, nil, session); err != nil {
		return nil, wrap(op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, wrap(op, err)
	}

	s.metrics.drawer(models.DrawerOpen)
	s.log.Info().Str("date", session.BusinessDate).Int64("float", session.OpeningFloat).Msg("drawer opened")
	return session, nil
}

// Close counts the drawer at day end and moves the session to CLOSING.
func (s *CashDrawerService) Close(ctx context.Context, sessionID string, req CloseDrawerRequest, actor string) (*models.CashDrawerSession, error) {
	const op = "CloseDrawer"
	req.CashTakenOutReason = strings.TrimSpace(req.CashTakenOutReason)
	if err := s.validator.ValidateStruct(&req); err != nil {
		return nil, invalid(op, err)
	}
	if err := req.Denominations.Validate(s.denominations); err != nil {
		return nil, invalid(op, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer tx.Rollback()

	session, err := scanDrawer(tx.QueryRowContext(ctx,
		`SELECT `+drawerColumns+` FROM cash_drawer_sessions WHERE id = $1 FOR UPDATE`, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrap(op, ErrNotFound)
	}
	if err != nil {
		return nil, wrap(op, err)
	}
	if session.Status != models.DrawerOpen {
		return nil, wrap(op, fmt.Errorf("%w: status %s", ErrDrawerNotOpen, session.Status))
	}
	before := *session

	from, to, err := dayBounds(session.BusinessDate, s.loc)
	if err != nil {
		return nil, wrap(op, err)
	}
	figures, err := computeExpected(ctx, tx, from, to)
	if err != nil {
		return nil, wrap(op, err)
	}

	now := s.now()
	counted := req.Denominations.Total()
	expected := session.OpeningFloat + figures.Cash - req.CashTakenOut
	session.Status = models.DrawerClosing
	session.ClosingDenominations = req.Denominations
	session.CountedCash = &counted
	session.ExpectedInDrawer = &expected
	session.CashTakenOut = req.CashTakenOut
	session.CashTakenOutReason = req.CashTakenOutReason
	session.ClosedBy = &actor
	session.ClosedAt = &now

	_, err = tx.ExecContext(ctx, `
		UPDATE cash_drawer_sessions
		SET status = $1, closing_denominations = $2, counted_cash = $3, expected_in_drawer = $4,
			cash_taken_out = $5, cash_taken_out_reason = $6, closed_by = $7, closed_at = $8
		WHERE id = $9`,
		session.Status, session.ClosingDenominations, counted, expected, session.CashTakenOut,
		session.CashTakenOutReason, actor, now, session.ID)
	if err != nil {
		return nil, wrap(op, err)
	}

	variance := counted - expected
	if err := s.audit.RecordEvent(ctx, tx, EventDrawerClosed, "cash_drawer_session", session.ID, map[string]int64{
		"counted":  counted,
		"expected": expected,
		"variance": variance,
	}); err != nil {
		return nil, wrap(op, err)
	}
	if err := s.audit.RecordAction(ctx, tx, actor, "drawer.close", "cash_drawer_session", session.ID, &before, session); err != nil {
		return nil, wrap(op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, wrap(op, err)
	}

	s.metrics.drawer(models.DrawerClosing)
	s.log.Info().
		Str("date", session.BusinessDate).
		Int64("counted", counted).
		Int64("expected", expected).
		Int64("variance", variance).
		Msg("drawer closed")
	return session, nil
}

// GetByDate returns the most recent session for a business date.
func (s *CashDrawerService) GetByDate(ctx context.Context, date string) (*models.CashDrawerSession, error) {
	if _, _, err := dayBounds(date, s.loc); err != nil {
		return nil, invalid("GetDrawer", err)
	}
	session, err := scanDrawer(s.db.QueryRowContext(ctx, `
		SELECT `+drawerColumns+`
		FROM cash_drawer_sessions
		WHERE business_date = $1
		ORDER BY opened_at DESC
		LIMIT 1`, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wrap("GetDrawer", ErrNotFound)
	}
	return session, wrap("GetDrawer", err)
}
