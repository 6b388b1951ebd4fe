/*
errors.go - Centralized error types for the capacity engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Formula-level degeneracies (division by zero, missing cells) are NOT
  errors: they produce Undefined values. Only structurally invalid input
  and ledger contract violations surface as errors.

ERROR CATEGORIES:
  1. Table errors - Missing identity columns, unreadable tables
  2. Ledger errors - Empty period labels, seeding a non-empty ledger
  3. Configuration errors - Invalid thresholds
  4. Lookup errors - Unknown unit or scenario

USAGE:
  if errors.Is(err, generic.ErrMissingColumn) {
      // the caller uploaded the wrong sheet
  }

SEE ALSO:
  - factory/tables.go: Returns MissingColumnError
  - ledger.go: Returns ErrEmptyPeriod, ErrLedgerNotEmpty
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingColumn is returned when a table lacks a required column.
	ErrMissingColumn = errors.New("missing required column")

	// ErrInvalidTable is returned when a table cannot be read at all
	// (no header row, malformed CSV).
	ErrInvalidTable = errors.New("invalid table")

	// ErrEmptyPeriod is returned when a snapshot is requested without a period label.
	ErrEmptyPeriod = errors.New("period label is required")

	// ErrLedgerNotEmpty is returned when seeding a ledger that already has entries.
	ErrLedgerNotEmpty = errors.New("ledger already has entries")

	// ErrInvalidThresholds is returned when green >= amber or a threshold is undefined.
	ErrInvalidThresholds = errors.New("invalid RAG thresholds")

	// ErrUnitNotFound is returned when a unit key is not in the current session.
	ErrUnitNotFound = errors.New("unit not found")

	// ErrNoUnits is returned when an operation needs unit data and none is loaded.
	ErrNoUnits = errors.New("no unit data loaded")

	// ErrScenarioNotFound is returned for an unknown demo scenario.
	ErrScenarioNotFound = errors.New("scenario not found")

	// ErrStoreFailed is returned when persistence fails.
	ErrStoreFailed = errors.New("store operation failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MissingColumnError names the table and column that were expected.
type MissingColumnError struct {
	Table  string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("table %s: missing required column %q", e.Table, e.Column)
}

func (e *MissingColumnError) Unwrap() error {
	return ErrMissingColumn
}

// ThresholdError describes why a threshold pair was rejected.
type ThresholdError struct {
	Green Value
	Amber Value
}

func (e *ThresholdError) Error() string {
	return fmt.Sprintf("invalid RAG thresholds: green=%s amber=%s (need green < amber)",
		e.Green, e.Amber)
}

func (e *ThresholdError) Unwrap() error {
	return ErrInvalidThresholds
}

// UnitNotFoundError names the unit that was looked up.
type UnitNotFoundError struct {
	Unit string
}

func (e *UnitNotFoundError) Error() string {
	return fmt.Sprintf("unit not found: %s", e.Unit)
}

func (e *UnitNotFoundError) Unwrap() error {
	return ErrUnitNotFound
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingColumn) ||
		errors.Is(err, ErrInvalidTable) ||
		errors.Is(err, ErrEmptyPeriod) ||
		errors.Is(err, ErrInvalidThresholds) ||
		errors.Is(err, ErrNoUnits)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnitNotFound) ||
		errors.Is(err, ErrScenarioNotFound)
}

// IsConflict returns true if the request conflicts with current ledger state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrLedgerNotEmpty)
}
