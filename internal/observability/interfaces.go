// Package observability provides the logging and metrics interfaces used
// throughout the search core and its supporting collaborators.
package observability

import "time"

// Logger is the structured logging interface every component depends on.
// Fields are passed explicitly rather than via variadic key/value pairs so
// call sites read as data, not formatting.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})

	// With returns a logger that always includes the given fields.
	With(fields map[string]interface{}) Logger
	// WithPrefix returns a logger scoped to a sub-component name.
	WithPrefix(prefix string) Logger
}

// MetricsClient is the metrics interface every component depends on.
type MetricsClient interface {
	RecordCounter(name string, value float64, labels map[string]string)
	RecordGauge(name string, value float64, labels map[string]string)
	RecordHistogram(name string, value float64, labels map[string]string)
	RecordLatency(operation string, d time.Duration, labels map[string]string)
}
