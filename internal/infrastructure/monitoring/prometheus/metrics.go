package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds the service-level metrics. Model and inference metrics
// live in the intelligence layer and share the same registry.
type AppMetrics struct {
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	EventsPublishedTotal CounterVec
	HealthCheckStatus    GaugeVec
	ErrorsTotal          CounterVec
}

var DefaultHTTPDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// NewAppMetrics registers the service metrics on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	return &AppMetrics{
		HTTPRequestsTotal:    collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code"),
		HTTPRequestDuration:  collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path"),
		HTTPActiveRequests:   collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method", "path"),
		EventsPublishedTotal: collector.RegisterCounter("events_published_total", "Analysis events published", "status"),
		HealthCheckStatus:    collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component"),
		ErrorsTotal:          collector.RegisterCounter("errors_total", "Errors by code", "component", "code"),
	}
}

// RecordHTTPRequest records one finished request.
func (m *AppMetrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordEventPublished counts publish attempts by outcome.
func (m *AppMetrics) RecordEventPublished(err error) {
	status := "ok"
	if err != nil {
		status = "failed"
	}
	m.EventsPublishedTotal.WithLabelValues(status).Inc()
}

// SetHealth records whether component is up.
func (m *AppMetrics) SetHealth(component string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	m.HealthCheckStatus.WithLabelValues(component).Set(v)
}

// RecordError counts an error code reported by component.
func (m *AppMetrics) RecordError(component, code string) {
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}
