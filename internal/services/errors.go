package services

import "errors"

// Error taxonomy surfaced by the billing core. Handlers map these to HTTP
// statuses; anything else is an internal error.
var (
	// ErrValidation marks malformed or out-of-range input. Not retried.
	ErrValidation = errors.New("validation failed")

	// ErrConflict marks a concurrent state violation: double-billing,
	// payment on an already-paid bill. The caller must refresh state and
	// retry deliberately.
	ErrConflict = errors.New("conflicting state")

	// ErrNotFound marks an unknown bill, order or payment reference.
	ErrNotFound = errors.New("record not found")

	// ErrReconciliation marks an internal invariant violation, e.g. a bill
	// reaching paid while some of its orders could not be updated. Always
	// logged with full context and never silently tolerated.
	ErrReconciliation = errors.New("reconciliation inconsistency")

	// ErrProvider marks a payment gateway failure. Outbound pushes retry
	// with backoff before this surfaces; inbound callbacks are not retried
	// here because the provider redelivers.
	ErrProvider = errors.New("payment provider error")
)
