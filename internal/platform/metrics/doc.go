// Package metrics exposes Prometheus collectors for batch composition and
// level evaluation, and the HTTP handler that serves them.
package metrics
