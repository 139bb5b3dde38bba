package errors

import "errors"

// Storage errors. These never escape to callers as-is; the sequencer maps
// absence to ErrNotFound and treats the rest as internal failures.
var (
	// ErrDuplicateReceipt means an insert targeted an identifier that is
	// already present in the store.
	ErrDuplicateReceipt = errors.New("receipt already exists")
	// ErrStorageUnavailable means the backing store could not be reached.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
