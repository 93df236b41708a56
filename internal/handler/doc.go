// Package handler implements the gateway's HTTP surface. It maps routes to
// backend operations, forwards every call through the mesh dispatcher, and
// translates typed mesh errors into HTTP status codes.
package handler
