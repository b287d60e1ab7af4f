package cmd

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics is the server's prometheus instrumentation, registered on its own
// registry so several servers can coexist in one process.
type metrics struct {
	reg *prometheus.Registry

	requests  *prometheus.CounterVec
	recompute prometheus.Histogram
	rows      prometheus.Gauge
	sessions  prometheus.Gauge
	events    *prometheus.CounterVec
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &metrics{
		reg: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "evpop_http_requests_total",
			Help: "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		recompute: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "evpop_view_recompute_seconds",
			Help:    "Time to derive a dashboard view from the dataset.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		rows: f.NewGauge(prometheus.GaugeOpts{
			Name: "evpop_dataset_rows",
			Help: "Rows in the loaded dataset.",
		}),
		sessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "evpop_sessions",
			Help: "Open dashboard sessions.",
		}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "evpop_events_total",
			Help: "Dashboard events by type and outcome.",
		}, []string{"type", "outcome"}),
	}
}

func (m *metrics) observeRequest(r *http.Request, status int) {
	route := r.URL.Path
	if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
		route = rc.RoutePattern()
	}
	m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
}

func (m *metrics) observeRecompute(d time.Duration) {
	m.recompute.Observe(d.Seconds())
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
