// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Feed metrics
	MessagesReceived prometheus.Counter
	ConnectionState  prometheus.Gauge
	Disconnects      *prometheus.CounterVec
	Reconnects       prometheus.Counter

	// Decoder metrics
	EventsDecoded  prometheus.Counter
	DecodeErrors   *prometheus.CounterVec
	DecodeDuration prometheus.Histogram

	// Admission metrics
	HistoryDropped  prometheus.Counter
	FilterRejected  *prometheus.CounterVec
	EventsAdmitted  prometheus.Counter
	BufferSize      prometheus.Gauge
	BufferEvictions prometheus.Counter

	// Health metrics
	PingLatency  prometheus.Histogram
	PingFailures *prometheus.CounterVec

	// Audit metrics
	AuditWritten  prometheus.Counter
	AuditDropped  prometheus.Counter
	AuditFailures prometheus.Counter
	AuditFlushes  prometheus.Histogram
}

func newMetrics(factory promauto.Factory, namespace string) *Metrics {
	if namespace == "" {
		namespace = "pump_tracker"
	}

	return &Metrics{
		MessagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "messages_received_total",
			Help:      "Text messages received from the feed",
		}),
		ConnectionState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "connected",
			Help:      "1 while the feed socket is open",
		}),
		Disconnects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "disconnects_total",
			Help:      "Feed disconnects by cause",
		}, []string{"cause"}),
		Reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Automatic reconnect attempts",
		}),

		EventsDecoded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decoder",
			Name:      "events_total",
			Help:      "Token events decoded",
		}),
		DecodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decoder",
			Name:      "errors_total",
			Help:      "Decode failures by kind",
		}, []string{"kind"}),
		DecodeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "decoder",
			Name:      "duration_seconds",
			Help:      "Time spent decoding one message",
			Buckets:   []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .05},
		}),

		HistoryDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "history_dropped_total",
			Help:      "Events older than the session start minus skew",
		}),
		FilterRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "rejected_total",
			Help:      "Events rejected by filter step",
		}, []string{"step"}),
		EventsAdmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "admitted_total",
			Help:      "Events inserted into the recent buffer",
		}),
		BufferSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "buffer",
			Name:      "size",
			Help:      "Events currently buffered",
		}),
		BufferEvictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "buffer",
			Name:      "evictions_total",
			Help:      "Events evicted from the tail",
		}),

		PingLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "ping_latency_seconds",
			Help:      "Round trip of successful health probes",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2},
		}),
		PingFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "ping_failures_total",
			Help:      "Failed health probes by outcome",
		}, []string{"outcome"}),

		AuditWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "records_written_total",
			Help:      "Admission records persisted",
		}),
		AuditDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "records_dropped_total",
			Help:      "Admission records dropped on a full queue",
		}),
		AuditFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "flush_failures_total",
			Help:      "Failed bulk inserts",
		}),
		AuditFlushes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "flush_duration_seconds",
			Help:      "Bulk insert latency",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// NewMetrics creates a Metrics instance registered with reg.
// A nil reg leaves the metrics unregistered.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	return newMetrics(promauto.With(reg), namespace)
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer, "")

// SetConnected updates the connection gauge.
func (m *Metrics) SetConnected(connected bool) {
	if connected {
		m.ConnectionState.Set(1)
		return
	}
	m.ConnectionState.Set(0)
}

// RecordDisconnect counts a disconnect. Causes should be low cardinality.
func (m *Metrics) RecordDisconnect(cause string) {
	m.Disconnects.WithLabelValues(cause).Inc()
}

// RecordDecode records one decoded message.
func (m *Metrics) RecordDecode(events, failed int, elapsed time.Duration) {
	m.EventsDecoded.Add(float64(events))
	if failed > 0 {
		m.DecodeErrors.WithLabelValues("element").Add(float64(failed))
	}
	m.DecodeDuration.Observe(elapsed.Seconds())
}

// RecordDecodeError records a message that could not be parsed at all.
func (m *Metrics) RecordDecodeError() {
	m.DecodeErrors.WithLabelValues("message").Inc()
}

// RecordRejected increments the rejection counter for step.
func (m *Metrics) RecordRejected(step string) {
	m.FilterRejected.WithLabelValues(step).Inc()
}

// RecordAdmitted records a buffer insert and its result.
func (m *Metrics) RecordAdmitted(size, evicted int) {
	m.EventsAdmitted.Inc()
	m.BufferSize.Set(float64(size))
	if evicted > 0 {
		m.BufferEvictions.Add(float64(evicted))
	}
}

// RecordPing records a health probe outcome. Outcome is "ok", "fail" or "timeout".
func (m *Metrics) RecordPing(outcome string, rtt time.Duration) {
	if outcome == "ok" {
		m.PingLatency.Observe(rtt.Seconds())
		return
	}
	m.PingFailures.WithLabelValues(outcome).Inc()
}

// RecordAuditFlush records a bulk insert of n records.
func (m *Metrics) RecordAuditFlush(n int, elapsed time.Duration, err error) {
	m.AuditFlushes.Observe(elapsed.Seconds())
	if err != nil {
		m.AuditFailures.Inc()
		return
	}
	m.AuditWritten.Add(float64(n))
}
