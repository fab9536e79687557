package models

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// NewID returns a new lexicographically sortable identifier.
func NewID() string {
	return ulid.Make().String()
}

// Timestamped is implemented by entities that carry created/updated columns.
type Timestamped interface {
	Touch(now time.Time)
}

// SoftDeletable is implemented by entities that are hidden rather than removed.
type SoftDeletable interface {
	MarkDeleted(now time.Time)
	IsDeleted() bool
}

// Timestamps is embedded by entities with created_at/updated_at columns.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Touch stamps UpdatedAt, and CreatedAt on first use.
func (t *Timestamps) Touch(now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
}

// SoftDelete is embedded by entities with a deleted_at column.
type SoftDelete struct {
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

func (s *SoftDelete) MarkDeleted(now time.Time) {
	s.DeletedAt = &now
}

func (s *SoftDelete) IsDeleted() bool {
	return s.DeletedAt != nil
}
