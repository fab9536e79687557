package models

import (
	"encoding/json"
	"time"
)

// Event is an append-only business event.
type Event struct {
	ID         string          `json:"id" db:"id"`
	EventType  string          `json:"event_type" db:"event_type"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   string          `json:"entity_id" db:"entity_id"`
	Payload    json.RawMessage `json:"payload" db:"payload"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// AuditLog is an append-only record of a user action with before/after snapshots.
type AuditLog struct {
	ID          string          `json:"id" db:"id"`
	ActorID     string          `json:"actor_id" db:"actor_id"`
	Action      string          `json:"action" db:"action"`
	EntityType  string          `json:"entity_type" db:"entity_type"`
	EntityID    string          `json:"entity_id" db:"entity_id"`
	BeforeState json.RawMessage `json:"before_state,omitempty" db:"before_state"`
	AfterState  json.RawMessage `json:"after_state,omitempty" db:"after_state"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
