package observability

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics implements MetricsClient, lazily registering one
// collector per metric name the first time it is observed.
type PrometheusMetrics struct {
	namespace string

	mu         sync.RWMutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusMetrics creates a MetricsClient under the given namespace
// (e.g. "secureann").
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	return &PrometheusMetrics{
		namespace:  namespace,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	return names
}

func (p *PrometheusMetrics) counter(name string, labels map[string]string) *prometheus.CounterVec {
	p.mu.RLock()
	c, ok := p.counters[name]
	p.mu.RUnlock()
	if ok {
		return c
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.counters[name]; ok {
		return c
	}
	c = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: p.namespace,
		Name:      name,
		Help:      fmt.Sprintf("counter for %s", name),
	}, labelNames(labels))
	p.counters[name] = c
	return c
}

func (p *PrometheusMetrics) gauge(name string, labels map[string]string) *prometheus.GaugeVec {
	p.mu.RLock()
	g, ok := p.gauges[name]
	p.mu.RUnlock()
	if ok {
		return g
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if g, ok := p.gauges[name]; ok {
		return g
	}
	g = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: p.namespace,
		Name:      name,
		Help:      fmt.Sprintf("gauge for %s", name),
	}, labelNames(labels))
	p.gauges[name] = g
	return g
}

func (p *PrometheusMetrics) histogram(name string, labels map[string]string) *prometheus.HistogramVec {
	p.mu.RLock()
	h, ok := p.histograms[name]
	p.mu.RUnlock()
	if ok {
		return h
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.histograms[name]; ok {
		return h
	}
	h = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: p.namespace,
		Name:      name,
		Help:      fmt.Sprintf("histogram for %s", name),
		Buckets:   prometheus.DefBuckets,
	}, labelNames(labels))
	p.histograms[name] = h
	return h
}

func (p *PrometheusMetrics) RecordCounter(name string, value float64, labels map[string]string) {
	p.counter(name, labels).With(labels).Add(value)
}

func (p *PrometheusMetrics) RecordGauge(name string, value float64, labels map[string]string) {
	p.gauge(name, labels).With(labels).Set(value)
}

func (p *PrometheusMetrics) RecordHistogram(name string, value float64, labels map[string]string) {
	p.histogram(name, labels).With(labels).Observe(value)
}

func (p *PrometheusMetrics) RecordLatency(operation string, d time.Duration, labels map[string]string) {
	if labels == nil {
		labels = map[string]string{}
	}
	labels["operation"] = operation
	p.histogram("operation_duration_seconds", labels).With(labels).Observe(d.Seconds())
}
