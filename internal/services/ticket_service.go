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

var ticketTransitions = map[string][]string{
	models.TicketBooked:    {models.TicketCheckedIn, models.TicketCancelled, models.TicketNoShow},
	models.TicketCheckedIn: {models.TicketInService, models.TicketCancelled},
	models.TicketInService: {models.TicketCompleted},
}

// CanTransition reports whether a ticket may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range ticketTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type TicketService struct {
	db        *sql.DB
	numbering *NumberingService
	audit     *AuditRecorder
	validator *ValidationHelper
	loc       *time.Location
	log       zerolog.Logger
	now       func() time.Time
}

func NewTicketService(db *sql.DB, numbering *NumberingService, audit *AuditRecorder, loc *time.Location) *TicketService {
	return &TicketService{
		db:        db,
		numbering: numbering,
		audit:     audit,
		validator: NewValidationHelper(),
		loc:       loc,
		log:       logger.WithComponent("tickets"),
		now:       time.Now,
	}
}

type CreateTicketRequest struct {
	Kind        string     `json:"kind" validate:"required,oneof=APPOINTMENT WALK_IN"`
	CustomerID  string     `json:"customer_id" validate:"required"`
	StaffID     *string    `json:"staff_id"`
	ScheduledAt *time.Time `json:"scheduled_at" validate:"required_if=Kind APPOINTMENT"`
	Notes       string     `json:"notes" validate:"max=500"`
}

const ticketColumns = `id, ticket_number, kind, customer_id, staff_id, scheduled_at, status,
	notes, created_at, updated_at, deleted_at`

func scanTicket(row rowScanner) (*models.Ticket, error) {
	var t models.Ticket
	err := row.Scan(&t.ID, &t.TicketNumber, &t.Kind, &t.CustomerID, &t.StaffID, &t.ScheduledAt,
		&t.Status, &t.Notes, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create books an appointment or checks in a walk-in.
func (s *TicketService) Create(ctx context.Context, req CreateTicketRequest, actor string) (*models.Ticket, error) {
	if err := s.validator.ValidateStruct(&req); err != nil {
		return nil, invalid("CreateTicket", err)
	}

	now := s.now()
	t := &models.Ticket{
		ID:          models.NewID(),
		Kind:        req.Kind,
		CustomerID:  req.CustomerID,
		StaffID:     req.StaffID,
		ScheduledAt: now,
		Status:      models.TicketCheckedIn,
		Notes:       req.Notes,
	}
	if req.Kind == models.TicketAppointment {
		t.ScheduledAt = *req.ScheduledAt
		t.Status = models.TicketBooked
	}
	t.Touch(now)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap("CreateTicket", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1 AND deleted_at IS NULL)`,
		req.CustomerID).Scan(&exists); err != nil {
		return nil, wrap("CreateTicket", err)
	}
	if !exists {
		return nil, wrap("CreateTicket", fmt.Errorf("customer %s: %w", req.CustomerID, ErrNotFound))
	}

	t.TicketNumber, err = s.numbering.NextTicketNumber(ctx, tx, now)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tickets (id, ticket_number, kind, customer_id, staff_id, scheduled_at, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.TicketNumber, t.Kind, t.CustomerID, t.StaffID, t.ScheduledAt, t.Status, t.Notes, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return nil, wrap("CreateTicket", err)
	}
	if err := s.audit.RecordAction(ctx, tx, actor, "ticket.create", "ticket", t.ID, nil, t); err != nil {
		return nil, wrap("CreateTicket", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, wrap("CreateTicket", err)
	}

	s.log.Info().Str("ticket", t.TicketNumber).Str("kind", t.Kind).Msg("ticket created")
	return t, nil
}

// ListByDate returns the tickets scheduled on a business date.
func (s *TicketService) ListByDate(ctx context.Context, date string) ([]models.Ticket, error) {
	from, to, err := dayBounds(date, s.loc)
	if err != nil {
		return nil, invalid("ListTickets", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE scheduled_at >= $1 AND scheduled_at < $2 AND deleted_at IS NULL
		ORDER BY scheduled_at, ticket_number`, from, to)
	if err != nil {
		return nil, wrap("ListTickets", err)
	}
	defer rows.Close()

	tickets := []models.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, wrap("ListTickets", err)
		}
		tickets = append(tickets, *t)
	}
	return tickets, wrap("ListTickets", rows.Err())
}

// UpdateStatus moves a ticket along its lifecycle.
func (s *TicketService) UpdateStatus(ctx context.Context, id, status, actor string) (*models.Ticket, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap("UpdateTicketStatus", err)
	}
	defer tx.Rollback()

	t, err := s.lock(ctx, tx, id)
	if err != nil {
		return nil, wrap("UpdateTicketStatus", err)
	}
	if !CanTransition(t.Status, status) {
		return nil, wrap("UpdateTicketStatus", fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, status))
	}
	if err := s.setStatus(ctx, tx, t, status, actor); err != nil {
		return nil, wrap("UpdateTicketStatus", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, wrap("UpdateTicketStatus", err)
	}
	return t, nil
}

// completeForBill marks the ticket COMPLETED inside the billing transaction.
func (s *TicketService) completeForBill(ctx context.Context, tx DBTX, id, customerID, actor string) error {
	t, err := s.lock(ctx, tx, id)
	if err != nil {
		return err
	}
	if t.CustomerID != customerID {
		return fmt.Errorf("%w: ticket belongs to another customer", ErrTicketNotBillable)
	}
	switch t.Status {
	case models.TicketCompleted:
		// completed through a status update but not billed yet
		var billed bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM bills WHERE ticket_id = $1 AND status <> 'VOID')`, id).Scan(&billed); err != nil {
			return err
		}
		if billed {
			return fmt.Errorf("%w: ticket already billed", ErrTicketNotBillable)
		}
		return nil
	case models.TicketCheckedIn, models.TicketInService:
		return s.setStatus(ctx, tx, t, models.TicketCompleted, actor)
	default:
		return fmt.Errorf("%w: status %s", ErrTicketNotBillable, t.Status)
	}
}

func (s *TicketService) lock(ctx context.Context, tx DBTX, id string) (*models.Ticket, error) {
	t, err := scanTicket(tx.QueryRowContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ticket %s: %w", id, ErrNotFound)
	}
	return t, err
}

func (s *TicketService) setStatus(ctx context.Context, tx DBTX, t *models.Ticket, status, actor string) error {
	from := t.Status
	now := s.now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE tickets SET status = $1, updated_at = $2 WHERE id = $3`, status, now, t.ID); err != nil {
		return err
	}
	t.Status = status
	t.Touch(now)

	change := map[string]string{"from": from, "to": status}
	if err := s.audit.RecordEvent(ctx, tx, EventTicketStatus, "ticket", t.ID, change); err != nil {
		return err
	}
	return s.audit.RecordAction(ctx, tx, actor, "ticket.status", "ticket", t.ID,
		map[string]string{"status": from}, map[string]string{"status": status})
}
