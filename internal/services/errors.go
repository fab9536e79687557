package services

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrorKind classifies failures so the HTTP layer can pick a status code.
type ErrorKind int

const (
	KindInfrastructure ErrorKind = iota
	KindValidation
	KindAuthorization
	KindNotFound
	KindConflict
	KindConsistency
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindConsistency:
		return "consistency"
	default:
		return "infrastructure"
	}
}

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidDate        = errors.New("invalid business date")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")

	// ErrCollectionExceedsBalance is returned when a collection is larger than
	// the customer's pending balance.
	ErrCollectionExceedsBalance = errors.New("collection exceeds pending balance")

	// ErrSequenceMissing is returned when a numbering period has not been
	// provisioned and auto-provisioning is disabled.
	ErrSequenceMissing = errors.New("number sequence not provisioned")

	ErrReconciliationExists = errors.New("reconciliation already exists for date")
	ErrAlreadyReconciled    = errors.New("date already reconciled")
	ErrNotReconciled        = errors.New("date not reconciled yet")
	ErrDrawerStillOpen      = errors.New("cash drawer still open for date")

	// ErrLedgerDrift is returned when the stored pending balance no longer
	// matches the ledger entries.
	ErrLedgerDrift = errors.New("pending balance does not match ledger")

	ErrDrawerNotOpen      = errors.New("cash drawer session is not open")
	ErrDrawerAlreadyOpen  = errors.New("cash drawer already open for date")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrDiscountExceeds    = errors.New("discount exceeds subtotal")
	ErrAlreadyClockedIn   = errors.New("already clocked in today")
	ErrNotClockedIn       = errors.New("not clocked in today")
	ErrDuplicate          = errors.New("record already exists")
	ErrTicketNotBillable  = errors.New("ticket cannot be billed")
	ErrOutstandingBalance = errors.New("customer has an outstanding balance")
	ErrUPINotConfigured   = errors.New("salon UPI id is not configured")

	// ErrChangeExceedsCash is returned when a bill's overpayment would be
	// handed back as change larger than the cash tendered.
	ErrChangeExceedsCash = errors.New("change exceeds cash tendered")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// kinds is checked in order, so an error wrapping several sentinels takes
// the kind of the first one listed. Generic sentinels come last.
var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrInvalidCredentials, KindAuthorization},
	{ErrInvalidToken, KindAuthorization},
	{ErrCollectionExceedsBalance, KindConsistency},
	{ErrChangeExceedsCash, KindValidation},
	{ErrInsufficientStock, KindConsistency},
	{ErrSequenceMissing, KindConsistency},
	{ErrReconciliationExists, KindConflict},
	{ErrAlreadyReconciled, KindConflict},
	{ErrNotReconciled, KindConsistency},
	{ErrDrawerStillOpen, KindConsistency},
	{ErrLedgerDrift, KindConsistency},
	{ErrDrawerNotOpen, KindConsistency},
	{ErrDrawerAlreadyOpen, KindConflict},
	{ErrInvalidTransition, KindConsistency},
	{ErrAlreadyClockedIn, KindConflict},
	{ErrNotClockedIn, KindConsistency},
	{ErrTicketNotBillable, KindConsistency},
	{ErrOutstandingBalance, KindConsistency},
	{ErrUPINotConfigured, KindConsistency},
	{ErrDiscountExceeds, KindValidation},
	{ErrInvalidAmount, KindValidation},
	{ErrInvalidDate, KindValidation},
	{ErrDuplicate, KindConflict},
	{ErrNotFound, KindNotFound},
}

// OpError wraps a failure with the operation that produced it.
type OpError struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// wrap attaches op to err, classifying it from the sentinel it carries.
// Errors that are already an *OpError are returned unchanged.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var opErr *OpError
	if errors.As(err, &opErr) {
		return err
	}
	return &OpError{Op: op, Kind: classify(err), Err: err}
}

func invalid(op string, err error) error {
	return &OpError{Op: op, Kind: KindValidation, Err: err}
}

func classify(err error) ErrorKind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	if isUniqueViolation(err) {
		return KindConflict
	}
	return KindInfrastructure
}

// KindOf reports the kind of err, defaulting to infrastructure.
func KindOf(err error) ErrorKind {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return classify(err)
}

// isUniqueViolation reports a postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
