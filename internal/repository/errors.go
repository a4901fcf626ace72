package repository

import "errors"

var (
	// ErrNotFound means no document exists yet for the user
	ErrNotFound = errors.New("document not found")
	// ErrCorrupt means the stored document is not a JSON array of cells
	ErrCorrupt = errors.New("document corrupt")
	// ErrStoreUnavailable wraps failures of the underlying storage call
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrVersionConflict means the document changed between read and write
	ErrVersionConflict = errors.New("document version conflict")
)
