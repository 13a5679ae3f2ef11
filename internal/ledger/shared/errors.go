package shared

import "errors"

var (
	// ErrEntryNotFound indicates a missing journal entry.
	ErrEntryNotFound = errors.New("ledger: journal entry not found")
	// ErrNotDraft indicates the entry is no longer editable.
	ErrNotDraft = errors.New("ledger: entry is not in draft status")
	// ErrAlreadyPosted indicates a second posting attempt.
	ErrAlreadyPosted = errors.New("ledger: entry already posted")
	// ErrValidationFailed indicates error-level issues blocked the operation.
	ErrValidationFailed = errors.New("ledger: validation failed")
	// ErrSeriesNotFound indicates the numbering series row is missing.
	ErrSeriesNotFound = errors.New("ledger: numbering series not found")
	// ErrCounterpartyExists indicates a duplicate counterparty identifier.
	ErrCounterpartyExists = errors.New("ledger: counterparty identifier already exists")
	// ErrSnapshotUnavailable indicates the catalog snapshot could not be loaded.
	ErrSnapshotUnavailable = errors.New("ledger: catalog snapshot unavailable")
	// ErrEmptyWorkbook indicates the import file had no data rows.
	ErrEmptyWorkbook = errors.New("ledger: workbook contains no rows")
)
