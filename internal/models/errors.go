package models

import "errors"

// Error taxonomy shared by the graph, catalog, maintainer and API layers.
// Every layer wraps these with fmt.Errorf("...: %w", err); match with errors.Is.
var (
	// ErrStoreUnavailable means the graph or catalog store could not be reached.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotFound means a referenced user or item does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidOperation rejects a well-formed request that makes no sense,
	// such as a user adding themselves as a friend.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrUnknownUser means an authenticated caller has no catalog record.
	ErrUnknownUser = errors.New("unknown user")

	// ErrConflict means a unique catalog field (username, email) is taken.
	ErrConflict = errors.New("conflict")
)
