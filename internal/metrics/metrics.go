// Package metrics exposes Prometheus instruments for report builds.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wbstatus"

// Feed sources.
const (
	SourceCache   = "cache"
	SourceConduit = "conduit"
)

// Metrics holds the service instruments on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	reportsBuilt  *prometheus.CounterVec
	buildDuration prometheus.Histogram
	tasksReduced  prometheus.Counter
	feedLookups   *prometheus.CounterVec
}

// New creates and registers the instruments.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		reportsBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_built_total",
			Help:      "Report builds by outcome.",
		}, []string{"outcome"}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_build_duration_seconds",
			Help:      "Time spent building a report.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		tasksReduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_reduced_total",
			Help:      "Task logs reduced to interval states.",
		}),
		feedLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_lookups_total",
			Help:      "Task transaction feeds served, by source.",
		}, []string{"source"}),
	}
	registry.MustRegister(
		m.reportsBuilt,
		m.buildDuration,
		m.tasksReduced,
		m.feedLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveBuild records one report build.
func (m *Metrics) ObserveBuild(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.reportsBuilt.WithLabelValues(outcome).Inc()
	m.buildDuration.Observe(elapsed.Seconds())
}

// AddTasksReduced counts reduced task logs.
func (m *Metrics) AddTasksReduced(n int) {
	if m == nil {
		return
	}
	m.tasksReduced.Add(float64(n))
}

// AddFeedLookups counts feeds served from source.
func (m *Metrics) AddFeedLookups(source string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.feedLookups.WithLabelValues(source).Add(float64(n))
}
