package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	PatientsCreatedTotal  prometheus.Counter
	TransitionsTotal      *prometheus.CounterVec
	ManualMovesTotal      prometheus.Counter
	PatientsArchivedTotal prometheus.Counter
	PreparationsTotal     prometheus.Counter

	DBQueryDuration *prometheus.HistogramVec
	DBConnections   prometheus.Gauge

	AuditEntriesTotal  prometheus.Counter
	AuditBufferDropped prometheus.Counter
}

func NewCollector(serviceName string) *Collector {
	return &Collector{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		PatientsCreatedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "workflow",
			Name:      "patients_created_total",
			Help:      "Total number of patient records created.",
		}),

		TransitionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "workflow",
			Name:      "transitions_total",
			Help:      "Total completed room transitions by submitted room.",
		}, []string{"room"}),

		ManualMovesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "workflow",
			Name:      "manual_moves_total",
			Help:      "Total manual room moves bypassing the normal sequence.",
		}),

		PatientsArchivedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "workflow",
			Name:      "patients_archived_total",
			Help:      "Total patients that reached the terminal archive room.",
		}),

		PreparationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "hotlab",
			Name:      "preparations_total",
			Help:      "Total doses prepared in the hot lab.",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query latency distribution.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}, []string{"operation", "table"}),

		DBConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "db",
			Name:      "open_connections",
			Help:      "Current number of open database connections.",
		}),

		AuditEntriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Total audit log entries written.",
		}),

		AuditBufferDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "buffer_dropped_total",
			Help:      "Audit entries dropped due to full buffer. Alert if non-zero.",
		}),
	}
}

// Counter helpers are nil-safe so services wired without a collector (tests,
// one-off tools) skip instrumentation instead of panicking.

func (c *Collector) PatientCreated() {
	if c == nil {
		return
	}
	c.PatientsCreatedTotal.Inc()
}

func (c *Collector) TransitionCompleted(roomID string) {
	if c == nil {
		return
	}
	c.TransitionsTotal.WithLabelValues(roomID).Inc()
}

func (c *Collector) ManualMove() {
	if c == nil {
		return
	}
	c.ManualMovesTotal.Inc()
}

func (c *Collector) PatientArchived() {
	if c == nil {
		return
	}
	c.PatientsArchivedTotal.Inc()
}

func (c *Collector) DosePrepared() {
	if c == nil {
		return
	}
	c.PreparationsTotal.Inc()
}

func (c *Collector) AuditEntryWritten() {
	if c == nil {
		return
	}
	c.AuditEntriesTotal.Inc()
}

func (c *Collector) AuditEntryDropped() {
	if c == nil {
		return
	}
	c.AuditBufferDropped.Inc()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
