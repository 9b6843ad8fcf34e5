package dashboard

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus metrics for the dashboard.
type Metrics struct {
	analysesTotal   *prometheus.CounterVec
	analysisSeconds prometheus.Histogram
	renderSeconds   prometheus.Histogram
	listingFailures prometheus.Counter
	rowsParsed      prometheus.Counter
	httpRequests    *prometheus.CounterVec
	sessions        prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metricsInst *Metrics
)

// NewMetrics returns the process-wide metrics, registering them on first use.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInst = &Metrics{
			analysesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "thermaldash_analyses_total",
					Help: "Thermal CSV analyses by outcome",
				},
				[]string{"outcome"},
			),
			analysisSeconds: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "thermaldash_analysis_duration_seconds",
					Help:    "Time to read, parse and prepare one thermal CSV",
					Buckets: prometheus.DefBuckets,
				},
			),
			renderSeconds: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "thermaldash_render_duration_seconds",
					Help:    "Time to render the four-panel figure",
					Buckets: prometheus.DefBuckets,
				},
			),
			listingFailures: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "thermaldash_folder_listing_failures_total",
					Help: "Directory listings that failed (missing path, permissions)",
				},
			),
			rowsParsed: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "thermaldash_rows_parsed_total",
					Help: "Data rows read from thermal CSV files",
				},
			),
			httpRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "thermaldash_http_requests_total",
					Help: "HTTP requests by route and status code",
				},
				[]string{"route", "code"},
			),
			sessions: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "thermaldash_sessions",
					Help: "Live operator sessions",
				},
			),
		}
	})
	return metricsInst
}

// ObserveHTTP counts one served request.
func (m *Metrics) ObserveHTTP(route, code string) {
	m.httpRequests.WithLabelValues(route, code).Inc()
}

// SetSessions records the number of live sessions.
func (m *Metrics) SetSessions(n int) {
	m.sessions.Set(float64(n))
}
