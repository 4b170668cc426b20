// internal/database/errors.go
package database

import (
	"errors"
	"fmt"
)

// Domain errors shared by every Store implementation. Handlers map these onto
// HTTP statuses; anything else surfaces as a 500.
var (
	// ErrNotFound means a referenced user or friend request does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means the operation is already satisfied or would duplicate
	// state: sending to an existing friend, a second pending request for the
	// same pair, or reusing a taken email.
	ErrConflict = errors.New("conflict")

	// ErrInvalidRequest means the input is self-referential or malformed.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrForbidden means the acting user may not perform this transition,
	// e.g. accepting a request they did not receive.
	ErrForbidden = errors.New("forbidden")
)

// Conflict refinements; both satisfy errors.Is(err, ErrConflict).
var (
	ErrAlreadyFriends = fmt.Errorf("%w: already friends", ErrConflict)
	ErrRequestExists  = fmt.Errorf("%w: friend request already exists", ErrConflict)
)
