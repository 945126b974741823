package observability

import "time"

// NoopLogger discards everything. Used as a safe default when callers pass
// a nil Logger.
type NoopLogger struct{}

func (NoopLogger) Debug(string, map[string]interface{}) {}
func (NoopLogger) Info(string, map[string]interface{})  {}
func (NoopLogger) Warn(string, map[string]interface{})  {}
func (NoopLogger) Error(string, map[string]interface{}) {}
func (NoopLogger) With(map[string]interface{}) Logger    { return NoopLogger{} }
func (NoopLogger) WithPrefix(string) Logger               { return NoopLogger{} }

// NoopMetrics discards everything. Used as a safe default when callers pass
// a nil MetricsClient.
type NoopMetrics struct{}

func (NoopMetrics) RecordCounter(string, float64, map[string]string)            {}
func (NoopMetrics) RecordGauge(string, float64, map[string]string)              {}
func (NoopMetrics) RecordHistogram(string, float64, map[string]string)          {}
func (NoopMetrics) RecordLatency(string, time.Duration, map[string]string)      {}
