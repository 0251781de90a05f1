package entity

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the application services and store adapters.
// Absence of a user or edge is not an error: lookups return (nil, nil)
// and edge removals return false.
var (
	// ErrInvalidArgument covers malformed input such as pagination bounds
	// outside their allowed range. It is surfaced, never silently corrected.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConstraintViolation is reported by a store adapter when a uniqueness
	// or schema guarantee is breached, typically by a concurrent writer.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrStoreUnavailable wraps transport or connectivity failures against
	// the graph store. It is propagated as-is; retrying is the caller's call.
	ErrStoreUnavailable = errors.New("graph store unavailable")
)

// ErrSelfFollow rejects follow/unfollow where both endpoints are the same
// user. It wraps ErrInvalidArgument so callers may match either sentinel.
var ErrSelfFollow = fmt.Errorf("%w: cannot follow yourself", ErrInvalidArgument)

// ErrNoFields is returned by partial updates that supply nothing to change.
var ErrNoFields = fmt.Errorf("%w: no fields to update", ErrInvalidArgument)
