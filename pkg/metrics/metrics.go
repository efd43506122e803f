package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all metrics for the application
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Snapshot Metrics
	SnapshotNodes        prometheus.Gauge
	SnapshotEdges        prometheus.Gauge
	SnapshotDroppedEdges prometheus.Counter
	SnapshotLoadsTotal   *prometheus.CounterVec
	SummaryUnclassified  prometheus.Gauge
	SummaryBubbles       prometheus.Gauge

	// Exploration Metrics
	SessionsActive       prometheus.Gauge
	OperationsTotal      *prometheus.CounterVec
	LayoutRunsTotal      *prometheus.CounterVec
	LayoutDuration       prometheus.Histogram
	SubscribersActive    prometheus.Gauge
	EventsPublishedTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initHTTPMetrics()
	r.initSnapshotMetrics()
	r.initExplorationMetrics()

	return r
}

// PrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Registry) initHTTPMetrics() {
	r.HTTPRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graph_explorer_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	r.HTTPRequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graph_explorer_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
}

func (r *Registry) initSnapshotMetrics() {
	r.SnapshotNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graph_explorer_snapshot_nodes",
			Help: "Number of nodes in the loaded snapshot",
		},
	)

	r.SnapshotEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graph_explorer_snapshot_edges",
			Help: "Number of validated edges in the loaded snapshot",
		},
	)

	r.SnapshotDroppedEdges = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "graph_explorer_snapshot_dropped_edges_total",
			Help: "Edges dropped because an endpoint did not resolve",
		},
	)

	r.SnapshotLoadsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graph_explorer_snapshot_loads_total",
			Help: "Snapshot loads by source scheme and status",
		},
		[]string{"scheme", "status"},
	)

	r.SummaryUnclassified = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graph_explorer_summary_unclassified_nodes",
			Help: "Nodes left out of the summary because no category matched",
		},
	)

	r.SummaryBubbles = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graph_explorer_summary_bubbles",
			Help: "Number of bubbles in the summary graph",
		},
	)
}

func (r *Registry) initExplorationMetrics() {
	r.SessionsActive = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graph_explorer_sessions_active",
			Help: "Number of open exploration sessions",
		},
	)

	r.OperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graph_explorer_operations_total",
			Help: "Control surface operations by name and status",
		},
		[]string{"operation", "status"},
	)

	r.LayoutRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graph_explorer_layout_runs_total",
			Help: "Layout runs by outcome",
		},
		[]string{"outcome"},
	)

	r.LayoutDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graph_explorer_layout_duration_seconds",
			Help:    "Layout run duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	r.SubscribersActive = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graph_explorer_subscribers_active",
			Help: "Number of connected event stream subscribers",
		},
	)

	r.EventsPublishedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graph_explorer_events_published_total",
			Help: "Events published to subscribers by type",
		},
		[]string{"type"},
	)
}

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordSnapshot records the size of a freshly indexed snapshot
func (r *Registry) RecordSnapshot(nodes, edges, dropped, unclassified, bubbles int) {
	r.SnapshotNodes.Set(float64(nodes))
	r.SnapshotEdges.Set(float64(edges))
	r.SnapshotDroppedEdges.Add(float64(dropped))
	r.SummaryUnclassified.Set(float64(unclassified))
	r.SummaryBubbles.Set(float64(bubbles))
}

// RecordLoad records a snapshot load attempt
func (r *Registry) RecordLoad(scheme string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.SnapshotLoadsTotal.WithLabelValues(scheme, status).Inc()
}

// RecordOperation records a control surface operation
func (r *Registry) RecordOperation(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.OperationsTotal.WithLabelValues(operation, status).Inc()
}

// ObserveLayout records a finished layout run
func (r *Registry) ObserveLayout(outcome string, duration time.Duration) {
	r.LayoutRunsTotal.WithLabelValues(outcome).Inc()
	r.LayoutDuration.Observe(duration.Seconds())
}

// RecordEvent records an event published to subscribers
func (r *Registry) RecordEvent(eventType string) {
	r.EventsPublishedTotal.WithLabelValues(eventType).Inc()
}

// SetSessions records the number of open sessions
func (r *Registry) SetSessions(n int) {
	r.SessionsActive.Set(float64(n))
}

// SetSubscribers records the number of connected subscribers
func (r *Registry) SetSubscribers(n int) {
	r.SubscribersActive.Set(float64(n))
}
