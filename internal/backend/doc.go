// Package backend implements the simulated catalog, cart, and order
// microservices the gateway forwards calls to. Each operation sleeps for a
// random duration and fails with a configured probability to stand in for
// real network calls; the mesh layer only sees opaque operations that
// succeed or fail.
package backend
