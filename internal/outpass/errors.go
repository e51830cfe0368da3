package outpass

import "errors"

// Error taxonomy for the lifecycle service. Every operation failure wraps
// exactly one of these sentinels so callers can branch with errors.Is.
var (
	// ErrValidation marks malformed or out-of-range input. The caller can
	// correct the input and resubmit.
	ErrValidation = errors.New("validation failed")

	// ErrForbidden marks a role or scoping mismatch. Never retried.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState marks a transition whose precondition no longer
	// holds, including lost races. The caller may re-fetch and decide.
	ErrInvalidState = errors.New("invalid state for transition")

	// ErrNotFound marks an unknown outpass id or pass token.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable marks a transient storage failure, safe to retry
	// with backoff.
	ErrUnavailable = errors.New("service unavailable")

	// ErrFatal marks an invariant violation (token collision, corrupt
	// record) that must surface to operators rather than be swallowed.
	ErrFatal = errors.New("fatal invariant violation")
)
