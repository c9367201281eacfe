package graph

import "errors"

var (
	// ErrOutOfOrder means an amendment is dated earlier than an existing
	// version. Amendments must be applied chronologically; the engine does
	// not insert into the past.
	ErrOutOfOrder = errors.New("amendment predates existing versions")

	// ErrNoActiveVersion means an ancestor in the propagation chain has no
	// active CTV. That breaks the single-active invariant, so the whole
	// amendment rolls back.
	ErrNoActiveVersion = errors.New("no active version")
)
