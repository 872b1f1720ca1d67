package lifecycle

import "errors"

// The closed error taxonomy for the engine. Every failure returned from this
// package wraps exactly one of these sentinels, so callers can resolve the
// kind with errors.Is and map it to a user-facing message or HTTP status.
var (
	// ErrInvalidTransition: the requested status change is absent from the
	// transition graph for the record's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrForbidden: the acting role may not take this action in this status,
	// even if the transition itself is graph-legal.
	ErrForbidden = errors.New("role not permitted for this action")

	// ErrValidation: the action payload is malformed, e.g. a reschedule with
	// only one of date/time supplied.
	ErrValidation = errors.New("invalid action payload")

	// ErrConflict: a concurrent modification was detected at persistence.
	// Retryable after re-fetching the record; all other kinds are not.
	ErrConflict = errors.New("record was modified concurrently")

	// ErrPolicyViolation: the action is outside deployment policy, e.g. a
	// refund requested after the window or re-requested after a denial.
	ErrPolicyViolation = errors.New("action violates policy")
)
