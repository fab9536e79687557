package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/salonpos/backend/internal/config"
)

// Sequence scopes
const (
	ScopeInvoice = "invoice"
	ScopeTicket  = "ticket"
)

// NumberingService hands out invoice and ticket numbers from the
// number_sequences table. Every call must run inside the caller's
// transaction; the period row stays locked until that transaction ends.
type NumberingService struct {
	prefix        string
	loc           *time.Location
	fyStart       time.Month
	autoProvision bool
	metrics       *Metrics
}

func NewNumberingService(cfg config.BillingConfig, metrics *Metrics) *NumberingService {
	start := time.Month(cfg.FiscalYearStartMonth)
	if start < time.January || start > time.December {
		start = time.January
	}
	return &NumberingService{
		prefix:        cfg.InvoicePrefix,
		loc:           cfg.Location(),
		fyStart:       start,
		autoProvision: cfg.AutoProvisionSequences,
		metrics:       metrics,
	}
}

// FiscalYear returns the calendar year in which the fiscal year containing t began.
func (s *NumberingService) FiscalYear(t time.Time) int {
	local := t.In(s.loc)
	if local.Month() < s.fyStart {
		return local.Year() - 1
	}
	return local.Year()
}

// NextInvoiceNumber returns PREFIX-YY-NNNN for the fiscal year containing at.
// An empty prefix falls back to the configured default.
func (s *NumberingService) NextInvoiceNumber(ctx context.Context, q DBTX, prefix string, at time.Time) (string, error) {
	if prefix == "" {
		prefix = s.prefix
	}
	yy := fmt.Sprintf("%02d", s.FiscalYear(at)%100)
	n, err := s.next(ctx, q, ScopeInvoice, yy, s.autoProvision)
	if err != nil {
		return "", wrap("NextInvoiceNumber", err)
	}
	s.metrics.sequenceIssued(ScopeInvoice)
	return fmt.Sprintf("%s-%s-%04d", prefix, yy, n), nil
}

// NextTicketNumber returns TKT-YYMMDD-NNN. Appointments and walk-ins share
// one counter per business day; day rows are always created on demand.
func (s *NumberingService) NextTicketNumber(ctx context.Context, q DBTX, at time.Time) (string, error) {
	day := at.In(s.loc).Format("060102")
	n, err := s.next(ctx, q, ScopeTicket, day, true)
	if err != nil {
		return "", wrap("NextTicketNumber", err)
	}
	s.metrics.sequenceIssued(ScopeTicket)
	return fmt.Sprintf("TKT-%s-%03d", day, n), nil
}

// ProvisionInvoiceYear creates the invoice counter for a fiscal year ahead of
// time. It reports whether a new row was created.
func (s *NumberingService) ProvisionInvoiceYear(ctx context.Context, q DBTX, year int) (bool, error) {
	if year < 2000 || year > 2099 {
		return false, invalid("ProvisionInvoiceYear", fmt.Errorf("year %d out of range", year))
	}
	created, err := s.provision(ctx, q, ScopeInvoice, fmt.Sprintf("%02d", year%100))
	return created, wrap("ProvisionInvoiceYear", err)
}

func (s *NumberingService) next(ctx context.Context, q DBTX, scope, period string, provision bool) (int64, error) {
	last, err := s.lock(ctx, q, scope, period)
	if errors.Is(err, sql.ErrNoRows) {
		if !provision {
			return 0, fmt.Errorf("%w: %s %s", ErrSequenceMissing, scope, period)
		}
		if _, err := s.provision(ctx, q, scope, period); err != nil {
			return 0, err
		}
		last, err = s.lock(ctx, q, scope, period)
	}
	if err != nil {
		return 0, err
	}

	last++
	if _, err := q.ExecContext(ctx, `
		UPDATE number_sequences SET last_value = $1, updated_at = NOW()
		WHERE scope = $2 AND period = $3`,
		last, scope, period); err != nil {
		return 0, err
	}
	return last, nil
}

func (s *NumberingService) lock(ctx context.Context, q DBTX, scope, period string) (int64, error) {
	var last int64
	err := q.QueryRowContext(ctx, `
		SELECT last_value FROM number_sequences
		WHERE scope = $1 AND period = $2
		FOR UPDATE`, scope, period).Scan(&last)
	return last, err
}

func (s *NumberingService) provision(ctx context.Context, q DBTX, scope, period string) (bool, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO number_sequences (scope, period, last_value, updated_at)
		VALUES ($1, $2, 0, NOW())
		ON CONFLICT (scope, period) DO NOTHING`, scope, period)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
