package infra

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps the Prometheus collectors of the execution core.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ordersPlaced      *prometheus.CounterVec
	controlViolations *prometheus.CounterVec
	executionErrors   *prometheus.CounterVec
	correlationFaults *prometheus.CounterVec
	staleSnapshots    prometheus.Counter
	eventsDropped     prometheus.Counter
	simulatedFills    prometheus.Counter
	liveOrders        prometheus.Gauge
	packageLatency    *prometheus.HistogramVec
}

// NewMetrics creates a registry and registers the execution metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		ordersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betexec_orders_placed_total",
			Help: "Orders acknowledged as placed by a venue.",
		}, []string{"exchange"}),
		controlViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betexec_control_violations_total",
			Help: "Orders rejected by a trading control.",
		}, []string{"control"}),
		executionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betexec_execution_errors_total",
			Help: "Order packages abandoned after a venue call failed.",
		}, []string{"exchange", "kind"}),
		correlationFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "betexec_correlation_faults_total",
			Help: "Venue reports whose customer reference did not match the order.",
		}, []string{"exchange"}),
		staleSnapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "betexec_stale_snapshots_total",
			Help: "Current order snapshots dropped for a non-advancing sequence number.",
		}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "betexec_control_events_dropped_total",
			Help: "Control events dropped because the sink was full.",
		}),
		simulatedFills: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "betexec_simulated_fills_total",
			Help: "Simulated fills applied to orders.",
		}),
		liveOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "betexec_live_orders",
			Help: "Current number of live orders across markets.",
		}),
		packageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "betexec_package_latency_seconds",
			Help:    "Venue call latency per order package.",
			Buckets: prometheus.DefBuckets,
		}, []string{"exchange", "type"}),
	}

	registry.MustRegister(
		m.ordersPlaced, m.controlViolations, m.executionErrors, m.correlationFaults,
		m.staleSnapshots, m.eventsDropped, m.simulatedFills, m.liveOrders, m.packageLatency,
	)
	return m
}

// Handler exposes the metrics registry via HTTP.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncOrderPlaced(exchange string) {
	if m == nil {
		return
	}
	m.ordersPlaced.WithLabelValues(exchange).Inc()
}

func (m *Metrics) IncControlViolation(control string) {
	if m == nil {
		return
	}
	m.controlViolations.WithLabelValues(control).Inc()
}

// IncExecutionError counts an abandoned package; kind is "venue" or "unknown".
func (m *Metrics) IncExecutionError(exchange, kind string) {
	if m == nil {
		return
	}
	m.executionErrors.WithLabelValues(exchange, kind).Inc()
}

func (m *Metrics) IncCorrelationFault(exchange string) {
	if m == nil {
		return
	}
	m.correlationFaults.WithLabelValues(exchange).Inc()
}

func (m *Metrics) IncStaleSnapshot() {
	if m == nil {
		return
	}
	m.staleSnapshots.Inc()
}

func (m *Metrics) IncEventDropped() {
	if m == nil {
		return
	}
	m.eventsDropped.Inc()
}

func (m *Metrics) IncSimulatedFill() {
	if m == nil {
		return
	}
	m.simulatedFills.Inc()
}

func (m *Metrics) SetLiveOrders(count int) {
	if m == nil {
		return
	}
	m.liveOrders.Set(float64(count))
}

// ObservePackageLatency records the duration of one venue call.
func (m *Metrics) ObservePackageLatency(exchange, packageType string, seconds float64) {
	if m == nil {
		return
	}
	m.packageLatency.WithLabelValues(exchange, packageType).Observe(seconds)
}
