package domain

import (
	"errors"
	"fmt"
)

// Domain-specific errors for report reconstruction.
var (
	// Input errors
	ErrDataShape          = errors.New("malformed transaction record")
	ErrInvariantViolation = errors.New("transaction log invariant violated")
	ErrInvalidTaskName    = errors.New("invalid task name")
	ErrInvalidInterval    = errors.New("interval end must be after start")

	// Lookup errors
	ErrTaskNotFound     = errors.New("task not found")
	ErrSnapshotNotFound = errors.New("board snapshot not found")

	// Auth errors
	ErrInvalidToken = errors.New("invalid authentication token")
)

// DataShapeError reports a recognized transaction record missing a required field.
type DataShapeError struct {
	Index int
	Kind  string
	Field string
}

func (e *DataShapeError) Error() string {
	return fmt.Sprintf("%s: record %d (%s) lacks %s", ErrDataShape, e.Index, e.Kind, e.Field)
}

func (e *DataShapeError) Unwrap() error {
	return ErrDataShape
}

// InvariantViolation reports an authored event without an author.
type InvariantViolation struct {
	TaskID int
	Index  int
	Reason string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("%s: task %d event %d: %s", ErrInvariantViolation, e.TaskID, e.Index, e.Reason)
}

func (e *InvariantViolation) Unwrap() error {
	return ErrInvariantViolation
}
