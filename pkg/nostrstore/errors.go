package nostrstore

import (
	"errors"
	"fmt"
)

// Sentinel errors for store operations.
var (
	// ErrEventNotFound indicates a direct fetch-by-id found no row. It is the
	// only translated storage outcome; everything else propagates unchanged.
	ErrEventNotFound = errors.New("event not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("store closed")
)

// MigrationError reports a schema setup failure. It is fatal: construction
// and wipe both abort when migrations cannot complete.
type MigrationError struct {
	Version int
	Err     error
}

// Error implements the error interface.
func (e *MigrationError) Error() string {
	return fmt.Sprintf("migrate schema to version %d: %v", e.Version, e.Err)
}

// Unwrap returns the underlying engine error.
func (e *MigrationError) Unwrap() error {
	return e.Err
}
