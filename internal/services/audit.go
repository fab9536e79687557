package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/salonpos/backend/internal/logger"
	"github.com/salonpos/backend/internal/models"
)

// Event types
const (
	EventBillPosted          = "BILL_POSTED"
	EventBalanceCharged      = "BALANCE_CHARGED"
	EventBalanceCollected    = "BALANCE_COLLECTED"
	EventDrawerOpened        = "DRAWER_OPENED"
	EventDrawerClosed        = "DRAWER_CLOSED"
	EventReconciliationFinal = "RECONCILIATION_FINALIZED"
	EventCorrectionAdded     = "RECONCILIATION_CORRECTED"
	EventTicketStatus        = "TICKET_STATUS_CHANGED"
	EventStockPurchased      = "STOCK_PURCHASED"
	EventStockAdjusted       = "STOCK_ADJUSTED"
)

// AuditRecorder appends event and audit rows inside the caller's transaction
// and mirrors them to the structured log.
type AuditRecorder struct {
	log zerolog.Logger
	now func() time.Time
}

func NewAuditRecorder() *AuditRecorder {
	return &AuditRecorder{log: logger.WithComponent("audit"), now: time.Now}
}

func (a *AuditRecorder) RecordEvent(ctx context.Context, q DBTX, eventType, entityType, entityID string, payload any) error {
	body, err := toJSON(payload)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO events (id, event_type, entity_type, entity_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		models.NewID(), eventType, entityType, entityID, body, a.now())
	if err != nil {
		return err
	}
	a.log.Info().
		Str("event_type", eventType).
		Str("entity_type", entityType).
		Str("entity_id", entityID).
		Msg("event")
	return nil
}

func (a *AuditRecorder) RecordAction(ctx context.Context, q DBTX, actorID, action, entityType, entityID string, before, after any) error {
	beforeJSON, err := toJSON(before)
	if err != nil {
		return err
	}
	afterJSON, err := toJSON(after)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_id, action, entity_type, entity_id, before_state, after_state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		models.NewID(), actorID, action, entityType, entityID, beforeJSON, afterJSON, a.now())
	if err != nil {
		return err
	}
	a.log.Info().
		Str("actor_id", actorID).
		Str("action", action).
		Str("entity_type", entityType).
		Str("entity_id", entityID).
		Msg("audit")
	return nil
}

// toJSON returns nil for a nil value so the column stays NULL.
func toJSON(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}
