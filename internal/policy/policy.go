package policy

import (
	"context"
	"errors"
)

// Sentinel errors returned by Gate.Authorize.
var (
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
)

type Role string

const (
	RoleOwner        Role = "owner"
	RoleReceptionist Role = "receptionist"
	RoleStaff        Role = "staff"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleReceptionist, RoleStaff:
		return true
	}
	return false
}

type Operation string

const (
	OpCustomerRead          Operation = "customer.read"
	OpCustomerWrite         Operation = "customer.write"
	OpCustomerDelete        Operation = "customer.delete"
	OpCollectionRecord      Operation = "collection.record"
	OpCollectionRead        Operation = "collection.read"
	OpLedgerVerify          Operation = "ledger.verify"
	OpTicketWrite           Operation = "ticket.write"
	OpTicketRead            Operation = "ticket.read"
	OpBillCreate            Operation = "bill.create"
	OpBillRead              Operation = "bill.read"
	OpDrawerOpen            Operation = "drawer.open"
	OpDrawerClose           Operation = "drawer.close"
	OpDrawerRead            Operation = "drawer.read"
	OpReconciliationWrite   Operation = "reconciliation.write"
	OpReconciliationFinal   Operation = "reconciliation.finalize"
	OpReconciliationCorrect Operation = "reconciliation.correct"
	OpReconciliationRead    Operation = "reconciliation.read"
	OpStaffManage           Operation = "staff.manage"
	OpStaffRead             Operation = "staff.read"
	OpAttendanceSelf        Operation = "attendance.self"
	OpAttendanceRead        Operation = "attendance.read"
	OpSettingsRead          Operation = "settings.read"
	OpSettingsWrite         Operation = "settings.write"
	OpInventoryRead         Operation = "inventory.read"
	OpInventoryAdjust       Operation = "inventory.adjust"
	OpInventoryManage       Operation = "inventory.manage"
)

var (
	everyone  = []Role{RoleOwner, RoleReceptionist, RoleStaff}
	frontDesk = []Role{RoleOwner, RoleReceptionist}
	ownerOnly = []Role{RoleOwner}
)

// Table maps each operation to the roles allowed to perform it.
// Operations missing from the table are denied.
var Table = map[Operation][]Role{
	OpCustomerRead:          everyone,
	OpCustomerWrite:         frontDesk,
	OpCustomerDelete:        ownerOnly,
	OpCollectionRecord:      frontDesk,
	OpCollectionRead:        frontDesk,
	OpLedgerVerify:          ownerOnly,
	OpTicketWrite:           everyone,
	OpTicketRead:            everyone,
	OpBillCreate:            frontDesk,
	OpBillRead:              frontDesk,
	OpDrawerOpen:            frontDesk,
	OpDrawerClose:           frontDesk,
	OpDrawerRead:            frontDesk,
	OpReconciliationWrite:   frontDesk,
	OpReconciliationFinal:   ownerOnly,
	OpReconciliationCorrect: ownerOnly,
	OpReconciliationRead:    frontDesk,
	OpStaffManage:           ownerOnly,
	OpStaffRead:             frontDesk,
	OpAttendanceSelf:        everyone,
	OpAttendanceRead:        frontDesk,
	OpSettingsRead:          everyone,
	OpSettingsWrite:         ownerOnly,
	OpInventoryRead:         everyone,
	OpInventoryAdjust:       everyone,
	OpInventoryManage:       frontDesk,
}

// Allowed reports whether role appears in required.
func Allowed(role Role, required []Role) bool {
	for _, r := range required {
		if r == role {
			return true
		}
	}
	return false
}

// Gate answers allow/deny questions against a policy table.
type Gate struct {
	table map[Operation][]Role
}

// NewGate returns a gate over table, or over the default Table when nil.
func NewGate(table map[Operation][]Role) *Gate {
	if table == nil {
		table = Table
	}
	return &Gate{table: table}
}

func (g *Gate) Allowed(role Role, op Operation) bool {
	required, ok := g.table[op]
	if !ok {
		return false
	}
	return Allowed(role, required)
}

// Authorize checks the principal stored in ctx against op.
func (g *Gate) Authorize(ctx context.Context, op Operation) error {
	p, ok := FromContext(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	if !g.Allowed(p.Role, op) {
		return ErrForbidden
	}
	return nil
}

// Principal is the authenticated staff member behind a request.
type Principal struct {
	StaffID string
	Role    Role
	TokenID string
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
