// Package circuitbreaker implements per-service circuit breakers for the
// mesh dispatch path.
//
// A circuit breaker stops calls to a service believed to be failing. Each
// breaker cycles through three states:
//
//   - closed: normal operation, calls pass through
//   - open: calls rejected outright until the open timeout elapses
//   - half-open: one trial call probes whether the service recovered
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(3, 30*time.Second, logger)
//	result, err := registry.Call(ctx, "catalog", catalog.Products)
//	var open *circuitbreaker.OpenError
//	if errors.As(err, &open) {
//	    // rejected without invoking the backend
//	}
package circuitbreaker
