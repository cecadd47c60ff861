package storage

import "errors"

// Sentinel errors shared by the journal, bid and cursor backends.
var (
	// ErrNotFound is returned for a missing event, an empty journal or an
	// unsaved cursor.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an event_id is already stored. The
	// journal is append-only, so redelivered logs land here.
	ErrDuplicateKey = errors.New("duplicate event_id")

	// ErrInvalidInput is returned for a nil event, an empty id or an
	// inverted block range.
	ErrInvalidInput = errors.New("invalid input")
)
