// Package discovery tracks the registered backend services and monitors
// their availability by probing health operations through the mesh
// dispatcher on a fixed interval.
package discovery
