package backend

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Injector simulates the latency and transient failures of a real network
// hop. Services draw from it on every operation; tests construct one with
// zero delays and a fixed seed to stay fast and deterministic.
type Injector struct {
	mutex    sync.Mutex
	rng      *rand.Rand
	minDelay time.Duration
	maxDelay time.Duration
}

// NewInjector creates an injector sleeping uniformly in [minDelay, maxDelay)
// per operation. The seed fixes the failure sequence.
func NewInjector(minDelay, maxDelay time.Duration, seed uint64) *Injector {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}

	return &Injector{
		rng:      rand.New(rand.NewPCG(seed, seed>>1)),
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

// Delay sleeps for a random duration within the configured range, honoring
// context cancellation.
func (in *Injector) Delay(ctx context.Context) error {
	span := in.maxDelay - in.minDelay

	var d time.Duration
	in.mutex.Lock()
	if span > 0 {
		d = in.minDelay + time.Duration(in.rng.Int64N(int64(span)))
	} else {
		d = in.minDelay
	}
	in.mutex.Unlock()

	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Fail reports whether an operation with the given failure probability
// should fail this time.
func (in *Injector) Fail(probability float64) bool {
	in.mutex.Lock()
	defer in.mutex.Unlock()
	return in.rng.Float64() < probability
}
