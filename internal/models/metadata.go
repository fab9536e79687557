package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Metadata type for JSONB fields
type Metadata map[string]any

// Value implements driver.Valuer for Metadata
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for Metadata
func (m *Metadata) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(b, m)
}

// Denominations counts notes and coins by face value (minor units).
type Denominations map[int64]int

// MaxDenominationCount bounds a single count so totals cannot overflow.
const MaxDenominationCount = 100000

// Total returns the cash value of the counted notes and coins.
func (d Denominations) Total() int64 {
	var total int64
	for face, count := range d {
		total += face * int64(count)
	}
	return total
}

// Validate checks every face value is allowed and each count is within range.
func (d Denominations) Validate(allowed []int64) error {
	ok := make(map[int64]struct{}, len(allowed))
	for _, a := range allowed {
		ok[a] = struct{}{}
	}
	faces := make([]int64, 0, len(d))
	for face := range d {
		faces = append(faces, face)
	}
	sort.Slice(faces, func(i, j int) bool { return faces[i] < faces[j] })
	for _, face := range faces {
		if _, found := ok[face]; !found {
			return fmt.Errorf("unknown denomination %d", face)
		}
		if d[face] < 0 {
			return fmt.Errorf("negative count for denomination %d", face)
		}
		if d[face] > MaxDenominationCount {
			return fmt.Errorf("count %d for denomination %d exceeds %d", d[face], face, MaxDenominationCount)
		}
	}
	return nil
}

// Value implements driver.Valuer for Denominations
func (d Denominations) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner for Denominations
func (d *Denominations) Scan(value any) error {
	if value == nil {
		*d = nil
		return nil
	}

	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(b, d)
}
