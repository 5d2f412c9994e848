package service

import "errors"

// Service-level failure classes.  Repository sentinels (ErrNotFound,
// ErrCapacityExceeded, ErrInvalidState, ErrConflict) pass through the
// service layer unchanged; these cover the failures that only exist
// above the storage boundary.
var (
	// ErrInvalidAmount rejects a refund larger than what was paid.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrGatewayUnavailable means the payment gateway is not
	// configured or could not be reached for a paid operation.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrValidationFailed marks a webhook event whose metadata is
	// missing or malformed.  Such events are recorded as permanently
	// failed rather than retried.
	ErrValidationFailed = errors.New("validation failed")
)
