// Package metrics exposes Prometheus instruments for the claim store, the
// submission workflow and the HTTP layer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

type Metrics struct {
	StoreOperations  *prometheus.CounterVec
	StoreFallbacks   *prometheus.CounterVec
	Submissions      *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	ReceiptsUploaded prometheus.Counter
	registerer       prometheus.Registerer
}

// New registers every instrument on reg. Pass prometheus.NewRegistry() in
// tests to keep them isolated.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		registerer: reg,
		StoreOperations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reimburse_store_operations_total",
			Help: "Claim store operations by name and outcome",
		}, []string{"op", "outcome"}),
		StoreFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reimburse_store_fallbacks_total",
			Help: "Times GetAll served the default claims instead of stored data",
		}, []string{"reason"}),
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reimburse_submissions_total",
			Help: "Claim form submissions by outcome",
		}, []string{"outcome", "reason"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reimburse_http_requests_total",
			Help: "HTTP requests by route, method and status class",
		}, []string{"route", "method", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reimburse_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: durationBuckets,
		}, []string{"route", "method"}),
		ReceiptsUploaded: f.NewCounter(prometheus.CounterOpts{
			Name: "reimburse_receipts_uploaded_total",
			Help: "Receipt files stored",
		}),
	}
}

// StoreOperation implements claims.Observer.
func (m *Metrics) StoreOperation(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.StoreOperations.WithLabelValues(op, outcome).Inc()
}

// StoreFallback implements claims.Observer.
func (m *Metrics) StoreFallback(reason string) {
	m.StoreFallbacks.WithLabelValues(reason).Inc()
}

// SubmitSucceeded implements submission.Recorder.
func (m *Metrics) SubmitSucceeded() {
	m.Submissions.WithLabelValues("success", "").Inc()
}

// SubmitFailed implements submission.Recorder.
func (m *Metrics) SubmitFailed(reason string) {
	m.Submissions.WithLabelValues("failure", reason).Inc()
}

// ObserveHTTP records one request. Call with time.Now() taken at the start.
func (m *Metrics) ObserveHTTP(route, method, status string, start time.Time) {
	m.HTTPRequests.WithLabelValues(route, method, status).Inc()
	m.HTTPDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
}

// TrackOpenForms exposes the number of open form sessions as a gauge.
func (m *Metrics) TrackOpenForms(count func() int) {
	promauto.With(m.registerer).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "reimburse_open_forms",
		Help: "Claim form sessions currently open",
	}, func() float64 { return float64(count()) })
}
