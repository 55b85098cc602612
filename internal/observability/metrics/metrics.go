// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "speech_dictation"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Recognition session metrics
	SessionsTotal   prometheus.Counter
	SessionsActive  prometheus.Gauge
	SessionDuration prometheus.Histogram

	// Hypothesis metrics
	PartialHypotheses prometheus.Counter
	FinalHypotheses   prometheus.Counter
	RecognitionErrors *prometheus.CounterVec

	// Record metrics
	RecordsCreated prometheus.Counter
	RecordsEdited  prometheus.Counter
	RecordsRemoved prometheus.Counter
	RecordsListed  prometheus.Gauge

	// Persistence metrics
	SaveTotal      *prometheus.CounterVec
	SaveErrors     *prometheus.CounterVec
	SaveLatency    *prometheus.HistogramVec
	DeleteTotal    prometheus.Counter
	DeleteErrors   prometheus.Counter
	SaveRejections *prometheus.CounterVec
	StoreConnects  *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of recognition sessions started",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently active recognition sessions",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of recognition sessions in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),

		PartialHypotheses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partial_hypotheses_total",
			Help:      "Total number of partial hypotheses received",
		}),
		FinalHypotheses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "final_hypotheses_total",
			Help:      "Total number of final hypotheses received",
		}),
		RecognitionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognition_errors_total",
			Help:      "Total number of recognition errors by kind",
		}, []string{"kind"}),

		RecordsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_created_total",
			Help:      "Total number of transcript records created",
		}),
		RecordsEdited: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_edited_total",
			Help:      "Total number of committed record edits",
		}),
		RecordsRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_removed_total",
			Help:      "Total number of records removed from the list",
		}),
		RecordsListed: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_listed",
			Help:      "Current number of records in the result list",
		}),

		SaveTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "save_total",
			Help:      "Total number of remote save operations by kind",
		}, []string{"op"}),
		SaveErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "save_errors_total",
			Help:      "Total number of failed remote save operations by kind",
		}, []string{"op"}),
		SaveLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "save_latency_seconds",
			Help:      "Remote save latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"op"}),
		DeleteTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delete_total",
			Help:      "Total number of remote delete operations",
		}),
		DeleteErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delete_errors_total",
			Help:      "Total number of failed remote delete operations",
		}),
		SaveRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "save_rejections_total",
			Help:      "Total number of save requests rejected before any remote call",
		}, []string{"reason"}),
		StoreConnects: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_connects_total",
			Help:      "Total number of document store bring-up attempts",
		}, []string{"outcome"}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP API requests",
		}, []string{"method", "path", "code"}),
		HTTPLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_latency_seconds",
			Help:      "HTTP API request latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"method", "path"}),
	}
}

// RecordSessionStart records a recognition session starting.
func (m *Metrics) RecordSessionStart() {
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a recognition session ending.
func (m *Metrics) RecordSessionEnd(durationSeconds float64) {
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordPartial records a partial hypothesis.
func (m *Metrics) RecordPartial() {
	m.PartialHypotheses.Inc()
}

// RecordFinal records a final hypothesis.
func (m *Metrics) RecordFinal() {
	m.FinalHypotheses.Inc()
}

// RecordRecognitionError records a recognition error by taxonomy kind.
func (m *Metrics) RecordRecognitionError(kind string) {
	m.RecognitionErrors.WithLabelValues(kind).Inc()
}

// RecordSave records a remote save operation outcome.
func (m *Metrics) RecordSave(op string, err error, durationSeconds float64) {
	m.SaveTotal.WithLabelValues(op).Inc()
	m.SaveLatency.WithLabelValues(op).Observe(durationSeconds)
	if err != nil {
		m.SaveErrors.WithLabelValues(op).Inc()
	}
}

// RecordDelete records a remote delete operation outcome.
func (m *Metrics) RecordDelete(err error) {
	m.DeleteTotal.Inc()
	if err != nil {
		m.DeleteErrors.Inc()
	}
}

// RecordSaveRejected records a save rejected before any remote call was made.
func (m *Metrics) RecordSaveRejected(reason string) {
	m.SaveRejections.WithLabelValues(reason).Inc()
}

// RecordStoreConnect records a document store bring-up attempt.
func (m *Metrics) RecordStoreConnect(ready bool) {
	outcome := "ready"
	if !ready {
		outcome = "unavailable"
	}
	m.StoreConnects.WithLabelValues(outcome).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, durationSeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(durationSeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordHTTPRequest records an HTTP API request.
func (m *Metrics) RecordHTTPRequest(method, path, code string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, path, code).Inc()
	m.HTTPLatency.WithLabelValues(method, path).Observe(durationSeconds)
}
