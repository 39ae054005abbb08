package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce             sync.Once
	apiRequestsTotal         *prometheus.CounterVec
	apiLatencySeconds        *prometheus.HistogramVec
	apiErrorsTotal           *prometheus.CounterVec
	submissionLatencySeconds prometheus.Histogram
	auditWriteFailuresTotal  prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peereval_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "peereval_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peereval_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		// The 2s bucket boundary matches the submission latency budget.
		submissionLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "peereval_submission_latency_seconds",
			Help:    "End-to-end latency of evaluation submissions.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		})

		auditWriteFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "peereval_audit_write_failures_total",
			Help: "Audit records that could not be appended for committed operations.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			submissionLatencySeconds,
			auditWriteFailuresTotal,
		)
	})
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// Latency exposes the latency histogram for API requests.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// Errors exposes the counter for API error responses.
func Errors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// SubmissionLatency exposes the histogram tracking evaluation submissions.
func SubmissionLatency() prometheus.Histogram {
	RegisterMetrics()
	return submissionLatencySeconds
}

// AuditWriteFailures exposes the counter for failed audit appends.
func AuditWriteFailures() prometheus.Counter {
	RegisterMetrics()
	return auditWriteFailuresTotal
}
