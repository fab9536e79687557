package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"sentinel", fmt.Errorf("ticket t1: %w", ErrNotFound), KindNotFound},
		{"specific sentinel wins over generic", errors.Join(ErrNotFound, ErrDrawerNotOpen), KindConsistency},
		{"order of wrapping does not matter", errors.Join(ErrDrawerNotOpen, ErrNotFound), KindConsistency},
		{"unique violation", &pq.Error{Code: "23505"}, KindConflict},
		{"unknown", errors.New("connection reset"), KindInfrastructure},
		{"op error keeps its kind", invalid("CreateBill", ErrNotFound), KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for range 50 {
				assert.Equal(t, tt.want, KindOf(tt.err))
			}
		})
	}
}
