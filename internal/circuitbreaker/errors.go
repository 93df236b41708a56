package circuitbreaker

import "fmt"

// OpenError reports that a call was rejected because the service's breaker
// is open. The backend operation was never invoked. Callers detect it with
// errors.As to distinguish fail-fast rejections from real backend failures.
type OpenError struct {
	Service string
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker open for %s: service unavailable", e.Service)
}
