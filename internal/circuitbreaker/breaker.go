package circuitbreaker

import (
	"sync"
	"time"
)

type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Rejecting calls
	StateHalfOpen              // Probing with one trial call
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker tracks consecutive failures for a single service. It is created
// lazily by the Registry on first dispatch and lives for the process
// lifetime; all mutation goes through the Registry's Call path or a manual
// reset.
type Breaker struct {
	mutex            sync.Mutex
	service          string
	state            State
	failures         int
	lastFailure      time.Time
	failureThreshold int
	openTimeout      time.Duration
}

func newBreaker(service string, threshold int, timeout time.Duration) *Breaker {
	return &Breaker{
		service:          service,
		state:            StateClosed,
		failureThreshold: threshold,
		openTimeout:      timeout,
	}
}

// allow gates one invocation attempt. An open breaker whose timeout has
// elapsed moves to half-open and lets the probe through; an open breaker
// inside the timeout rejects with *OpenError.
func (b *Breaker) allow() (State, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.state == StateOpen {
		if time.Since(b.lastFailure) > b.openTimeout {
			b.state = StateHalfOpen
		} else {
			return b.state, &OpenError{Service: b.service}
		}
	}

	return b.state, nil
}

// recordSuccess resets the failure counter. A half-open breaker closes,
// confirming recovery.
func (b *Breaker) recordSuccess() (recovered bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.state == StateHalfOpen {
		b.state = StateClosed
		b.lastFailure = time.Time{}
		recovered = true
	}
	b.failures = 0

	return recovered
}

// recordFailure counts one failure and opens the breaker once the threshold
// is reached. A failed half-open probe reopens immediately.
func (b *Breaker) recordFailure() (failures int, opened bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.failures++
	b.lastFailure = time.Now()

	if b.state != StateOpen && (b.state == StateHalfOpen || b.failures >= b.failureThreshold) {
		b.state = StateOpen
		opened = true
	}

	return b.failures, opened
}

// reset forces the breaker back to closed with a zeroed counter, bypassing
// the normal transition rules. Used for manual operator intervention.
func (b *Breaker) reset() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.state = StateClosed
	b.failures = 0
	b.lastFailure = time.Time{}
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.state
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.failures
}

// LastFailure returns the time of the most recent failure, or the zero time
// if none has been recorded.
func (b *Breaker) LastFailure() time.Time {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.lastFailure
}

func (b *Breaker) status() BreakerStatus {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	st := BreakerStatus{
		State:        b.state.String(),
		FailureCount: b.failures,
	}
	if !b.lastFailure.IsZero() {
		t := b.lastFailure
		st.LastFailure = &t
	}

	return st
}
