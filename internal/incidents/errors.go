package incidents

import "errors"

var (
	// ErrNotFound means the referenced incident does not exist in the tenant.
	ErrNotFound = errors.New("incident not found")

	// ErrInvalidTransition means the state machine rejected the requested
	// transition (e.g. acknowledging a resolved incident).
	ErrInvalidTransition = errors.New("invalid incident transition")

	// ErrDependencyUnavailable wraps persistence failures. Notification
	// failures are never surfaced through this; they are logged only.
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrValidation means the input was malformed (unknown incident type,
	// unknown severity, empty bulk request, ...).
	ErrValidation = errors.New("validation failed")
)
