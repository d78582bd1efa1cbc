package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the relay's operational counters.
//
// Each Metrics owns its registry so tests can build as many as they like
// without colliding on the default registerer.
type Metrics struct {
	registry *prometheus.Registry

	// RequestsTotal
	// - every webhook request, labelled with the HTTP status returned.
	// - code="200" is the number of push deliveries acknowledged; anything
	//   else will be redelivered by the subscription.
	RequestsTotal *prometheus.CounterVec

	// ClientErrorsTotal
	// - rejected envelopes by reason (no_message, invalid_json, too_large).
	// - these never reach the blob store.
	ClientErrorsTotal *prometheus.CounterVec

	// StorageErrorsTotal
	// - failed uploads by classified kind (bad_request, not_found,
	//   forbidden, other).
	// - a rising not_found/forbidden usually means bucket or IAM drift,
	//   not a transient outage.
	StorageErrorsTotal *prometheus.CounterVec

	// ObjectsStoredTotal
	// - objects successfully written.
	ObjectsStoredTotal prometheus.Counter

	// PayloadBytes
	// - size of the stored body (after optional gzip).
	PayloadBytes prometheus.Histogram

	// UploadDuration
	// - wall time of the store step (serialize, optional gzip, PutObject),
	//   success or failure.
	UploadDuration prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_requests_total",
			Help: "Webhook requests by response status code.",
		}, []string{"code"}),
		ClientErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_client_errors_total",
			Help: "Rejected webhook envelopes by reason.",
		}, []string{"reason"}),
		StorageErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_storage_errors_total",
			Help: "Failed object uploads by error kind.",
		}, []string{"kind"}),
		ObjectsStoredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webhook_objects_stored_total",
			Help: "Objects written to the blob store.",
		}),
		PayloadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "webhook_payload_bytes",
			Help:    "Size of stored object bodies in bytes.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}),
		UploadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "webhook_upload_duration_seconds",
			Help:    "Duration of the store step (serialize, compress, upload) in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.ClientErrorsTotal,
		m.StorageErrorsTotal,
		m.ObjectsStoredTotal,
		m.PayloadBytes,
		m.UploadDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveRequest counts one finished webhook request.
func (m *Metrics) ObserveRequest(code int) {
	m.RequestsTotal.WithLabelValues(strconv.Itoa(code)).Inc()
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
