// Package guard holds the request guards placed in front of the engine: a
// per-caller rate limiter, an idempotency key store and a circuit breaker for
// the external asset registry.
package guard

import "time"

// Result is the outcome of a guard check.
type Result struct {
	Allowed bool
	Reason  string
	Guard   string
	// RetryAfter is set when a later attempt may succeed.
	RetryAfter time.Duration
}
