package broker

import "errors"

// Error taxonomy shared across the engine. Callers classify with
// errors.Is; packages wrap these with fmt.Errorf("...: %w", err).
var (
	// ErrConfig is bad caller input. Never retried.
	ErrConfig = errors.New("invalid configuration")

	// ErrNotFound is an unknown symbol.
	ErrNotFound = errors.New("not found")

	// ErrPriceUnavailable is a transient quote failure, isolated per symbol.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrOrderRejected means the broker refused the order. Not retried.
	ErrOrderRejected = errors.New("order rejected")
)
