package domain

import (
	"fmt"
	"time"
)

// NotFoundError is returned when a referenced id is absent from the expected
// collection or partition.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// InvariantViolationError is returned when an operation would leave the
// store in an invalid state (deleting the last harvest, zero or multiple
// active harvests). The triggering transaction is discarded.
type InvariantViolationError struct {
	Reason string
	Result Result
}

func (e InvariantViolationError) Error() string {
	if e.Reason != "" {
		return "invariant violation: " + e.Reason
	}
	return "transaction blocked by invariant rules"
}

// InvalidFormatError rejects a malformed or unrecognized backup document
// before any collection is replaced.
type InvalidFormatError struct {
	Reason string
}

func (e InvalidFormatError) Error() string {
	return "invalid backup format: " + e.Reason
}

// PersistenceWarning reports a non-fatal durable-storage failure. It is
// delivered out-of-band and never unwinds the in-memory mutation that
// triggered the write.
type PersistenceWarning struct {
	Op  string
	Err error
	At  time.Time
}

func (w PersistenceWarning) Error() string {
	return fmt.Sprintf("persistence warning during %s: %v", w.Op, w.Err)
}

func (w PersistenceWarning) Unwrap() error { return w.Err }
