package audit

import "errors"

var (
	// ErrEntryValidation indicates a required entry field is missing.
	ErrEntryValidation = errors.New("audit: entry validation failed")

	// ErrInvalidSnapshot indicates a before/after value could not be encoded.
	ErrInvalidSnapshot = errors.New("audit: snapshot cannot be encoded")

	// ErrStorageFailed wraps append and query failures of the backing storage.
	ErrStorageFailed = errors.New("audit: storage failed")

	// ErrExportFailed indicates a CSV export was interrupted.
	ErrExportFailed = errors.New("audit: export failed")
)
