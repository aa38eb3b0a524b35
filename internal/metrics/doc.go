// Package metrics exposes Prometheus counters for the event engine.
//
// Counters register with the default registry through promauto. Helpers
// normalize empty label values so callers never emit blank labels.
package metrics
