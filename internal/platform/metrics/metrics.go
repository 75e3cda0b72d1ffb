package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the slidecast service.
type Metrics struct {
	registry              *prometheus.Registry
	requestsTotal         prometheus.Counter
	imagesUploadedTotal   prometheus.Counter
	rendersSucceededTotal prometheus.Counter
	rendersFailedTotal    prometheus.Counter
	activeRenders         prometheus.Gauge
	errorsTotal           prometheus.Counter
}

// New creates and registers Prometheus metrics for the service.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slidecast_requests_total",
		Help: "Total number of HTTP requests received",
	})
	imagesUploadedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slidecast_images_uploaded_total",
		Help: "Total number of image assets stored",
	})
	rendersSucceededTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slidecast_renders_succeeded_total",
		Help: "Total number of render pipelines that produced an output video",
	})
	rendersFailedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slidecast_renders_failed_total",
		Help: "Total number of render pipelines that ended in failure",
	})
	activeRenders := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "slidecast_active_renders",
		Help: "Number of render pipelines currently in flight",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slidecast_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})

	registry.MustRegister(
		requestsTotal,
		imagesUploadedTotal,
		rendersSucceededTotal,
		rendersFailedTotal,
		activeRenders,
		errorsTotal,
	)

	return &Metrics{
		registry:              registry,
		requestsTotal:         requestsTotal,
		imagesUploadedTotal:   imagesUploadedTotal,
		rendersSucceededTotal: rendersSucceededTotal,
		rendersFailedTotal:    rendersFailedTotal,
		activeRenders:         activeRenders,
		errorsTotal:           errorsTotal,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// AddImagesUploaded adds n to the stored images counter.
func (m *Metrics) AddImagesUploaded(n int) {
	m.imagesUploadedTotal.Add(float64(n))
}

// IncRendersSucceeded increments the successful renders counter.
func (m *Metrics) IncRendersSucceeded() {
	m.rendersSucceededTotal.Inc()
}

// IncRendersFailed increments the failed renders counter.
func (m *Metrics) IncRendersFailed() {
	m.rendersFailedTotal.Inc()
}

// SetActiveRenders sets the in-flight renders gauge.
func (m *Metrics) SetActiveRenders(n int) {
	m.activeRenders.Set(float64(n))
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values
// (e.g. in-flight renders).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
