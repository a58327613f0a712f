package document

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrTableNotFound is returned when a named table is not in the document.
	// Read paths treat it as "no data yet".
	ErrTableNotFound = errors.New("table not found")

	// ErrDocumentNotFound is returned when the storage has no document under the id.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrStorageUnavailable is returned when the storage backend cannot be reached
	// or fails mid-operation. It is surfaced as-is; nothing retries.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrRowOutOfRange is returned by DeleteRow for an index outside the table.
	ErrRowOutOfRange = errors.New("row index out of range")

	// ErrMalformedDocument is returned when the codec cannot decode the payload.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrCellTooLong is returned when a value exceeds MaxCellChars.
	ErrCellTooLong = errors.New("cell value too long")
)

// StorageError carries the operation and document id of a backend failure.
type StorageError struct {
	Op         string
	DocumentID string
	Err        error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.DocumentID, e.Err)
}

func (e *StorageError) Unwrap() error {
	return ErrStorageUnavailable
}

// Cause returns the backend error that triggered the failure.
func (e *StorageError) Cause() error {
	return e.Err
}
