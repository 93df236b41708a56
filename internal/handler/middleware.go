package handler

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// ReplicaPicker simulates load balancing across service replicas: it picks
// a random replica label and a random forwarding delay per request. It is
// presentation-layer glue, not part of the resilience contract.
type ReplicaPicker struct {
	mutex    sync.Mutex
	rng      *rand.Rand
	minDelay time.Duration
	maxDelay time.Duration
	replicas int
}

func NewReplicaPicker(minDelay, maxDelay time.Duration, replicas int) *ReplicaPicker {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	if replicas < 1 {
		replicas = 1
	}

	return &ReplicaPicker{
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		minDelay: minDelay,
		maxDelay: maxDelay,
		replicas: replicas,
	}
}

func (p *ReplicaPicker) pick() (time.Duration, int) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	span := p.maxDelay - p.minDelay
	delay := p.minDelay
	if span > 0 {
		delay += time.Duration(p.rng.Int64N(int64(span)))
	}

	return delay, 1 + p.rng.IntN(p.replicas)
}

// MeshHeaders wraps a handler with the simulated load-balancing shim: it
// sleeps for the picked delay, then tags the response with the mesh headers.
func MeshHeaders(picker *ReplicaPicker, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delay, replica := picker.pick()

		if delay > 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(delay):
			}
		}

		w.Header().Set("X-Service-Mesh", "enabled")
		w.Header().Set("X-Replica-ID", strconv.Itoa(replica))
		w.Header().Set("X-Response-Time", fmt.Sprintf("%.3fs", delay.Seconds()))

		next.ServeHTTP(w, r)
	})
}
