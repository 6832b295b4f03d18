package store

import "errors"

var (
	// ErrRead wraps failures of find, count, distinct and aggregate.
	ErrRead = errors.New("read failed")
	// ErrWrite wraps failures of save, update and remove.
	ErrWrite = errors.New("write failed")
	// ErrTypeMismatch is returned when a model of another kind is passed to a repository.
	ErrTypeMismatch = errors.New("invalid object provided")
	// ErrNotPersisted is returned when removing a model that has no identity.
	ErrNotPersisted = errors.New("model has no identity")
	// ErrCursorConsumed is reported when a cursor is iterated a second time.
	ErrCursorConsumed = errors.New("cursor already consumed")
)
