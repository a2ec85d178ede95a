package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "choropleth"

// Fetch outcomes recorded by the plot view
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeCanceled = "canceled"
)

// Metrics holds the collectors shared by the view, the server and the fetcher
type Metrics struct {
	Fetches       *prometheus.CounterVec
	FetchDuration prometheus.Histogram
	Renders       *prometheus.CounterVec
	ActiveViews   prometheus.Gauge
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which tests use to avoid the global registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payload_fetches_total",
			Help:      "Plot payload fetches, labeled by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payload_fetch_duration_seconds",
			Help:      "Histogram of plot payload fetch durations.",
			Buckets:   prometheus.DefBuckets,
		}),
		Renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_renders_total",
			Help:      "Plot view renders, labeled by view state.",
		}, []string{"state"}),
		ActiveViews: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_views",
			Help:      "Currently mounted plot views.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed, labeled by method and route.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of request durations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Fetches,
			m.FetchDuration,
			m.Renders,
			m.ActiveViews,
			m.HTTPRequests,
			m.HTTPDuration,
		)
	}
	return m
}
