// Package mesh implements the call-forwarding entry point that composes the
// circuit breaker registry with the retry policy. Callers get back either a
// result or one terminal error that distinguishes "unavailable because the
// circuit is open" from "retries exhausted against a failing backend".
package mesh
