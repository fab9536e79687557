package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const dateLayout = "2006-01-02"

// dayBounds returns the half-open [from, to) range of a business date in loc.
func dayBounds(date string, loc *time.Location) (time.Time, time.Time, error) {
	from, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return from, from.AddDate(0, 0, 1), nil
}

func businessDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}

// lockBusinessDay takes a transaction-scoped advisory lock for date, so a
// drawer cannot open while the same day is being finalized, even before the
// reconciliation row exists.
func lockBusinessDay(ctx context.Context, tx DBTX, date string) error {
	_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext('business_day:' || $1))`, date)
	return err
}
