package core

import "errors"

// Common errors.
var (
	ErrNotFound    = errors.New("document not found")
	ErrReadOnly    = errors.New("database is in read-only mode")
	ErrUnsupported = errors.New("operation not supported by this adapter")
	ErrClosed      = errors.New("database is closed")
	ErrDuplicateID = errors.New("duplicate document id")
	ErrMissingID   = errors.New("document has no _id")
)
