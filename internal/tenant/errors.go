package tenant

import "errors"

var (
	// ErrNotFound is the store-level "no rows" result. The resolver maps it
	// to a nil membership, never to a failure.
	ErrNotFound = errors.New("tenant: not found")

	// ErrClaimConflict means the conditional claim update matched zero rows
	// because another request claimed first. Not an error to callers; the
	// resolver recovers by re-fetching.
	ErrClaimConflict = errors.New("tenant: claim conflict")

	// ErrResolutionFailed wraps store failures and malformed rows during
	// resolution. Retryable; never interpreted as unregistered.
	ErrResolutionFailed = errors.New("tenant: resolution failed")

	ErrInvalidInput = errors.New("tenant: invalid input")
	ErrConflict     = errors.New("tenant: resource conflict")
)
