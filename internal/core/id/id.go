// Package id wraps UUID generation for all entities. New IDs are UUIDv7,
// which are time-ordered: documents and movements sort chronologically on
// their primary key and index locality stays good under insert load.
package id

import (
	"github.com/google/uuid"
)

// ID is the identifier type used across all entities.
type ID = uuid.UUID

// New generates a time-ordered UUIDv7.
func New() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does; fall back to V4
		return uuid.New()
	}
	return id
}

// Parse converts a string to an ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse converts a string to an ID, panicking on error. For constants
// and tests only.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// Nil returns the zero-value ID. The stock ledger stores it as the
// variant slot of base product counters.
func Nil() ID {
	return uuid.Nil
}

// IsNil reports whether the ID is the zero value.
func IsNil(id ID) bool {
	return id == uuid.Nil
}
