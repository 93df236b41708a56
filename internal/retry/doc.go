// Package retry implements bounded retries with exponential backoff and
// jitter for backend operations the circuit breaker allowed through but
// that failed on their first attempt.
package retry
