// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Schema errors.
	ErrSchemaMismatch = errors.New("release schema does not match expected layout")
	ErrRepairFailed   = errors.New("schema repair did not produce a conforming release")
	ErrNoRepairRule   = errors.New("no repair rule for observed column count")

	// Invariant errors.
	ErrRowCountInvariant = errors.New("row count invariant violated")

	// External service errors.
	ErrGeocodeUnavailable = errors.New("geocoding service unavailable")
	ErrLayerUnavailable   = errors.New("polygon layer unavailable")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// StageError identifies the pipeline stage and year where a fatal
// failure occurred.
type StageError struct {
	Err   error
	Stage string
	Year  int
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s (year %d): %v", e.Stage, e.Year, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err with the failing stage and year.
func NewStageError(stage string, year int, err error) error {
	return &StageError{
		Stage: stage,
		Year:  year,
		Err:   err,
	}
}

// CountMismatch builds a row-count invariant error carrying the offending
// counts. Always fatal: it signals a logic defect, not bad input.
func CountMismatch(stage string, year, want, got int) error {
	return NewStageError(stage, year,
		fmt.Errorf("%w: expected %d rows, got %d", ErrRowCountInvariant, want, got))
}
