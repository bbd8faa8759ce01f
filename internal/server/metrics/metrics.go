// Package metrics holds the server's Prometheus collectors. A nil *Metrics
// is valid and records nothing, so services can be built without it.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "civicreport"

type Metrics struct {
	registry *prometheus.Registry

	rpcTotal      *prometheus.CounterVec
	rpcDuration   *prometheus.HistogramVec
	issuesCreated *prometheus.CounterVec
	statusChanges *prometheus.CounterVec
	chatQueries   *prometheus.CounterVec
	tokensPurged  prometheus.Counter
}

// New registers all collectors, plus the Go and process collectors, on a
// fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rpcTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "Handled gRPC requests by method and status code.",
		}, []string{"method", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grpc_request_duration_seconds",
			Help:      "gRPC handler latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		issuesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issues_created_total",
			Help:      "Issues raised by citizens, by category.",
		}, []string{"category"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issue_status_changes_total",
			Help:      "Issue status transitions, by new status.",
		}, []string{"status"}),
		chatQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chatbot_queries_total",
			Help:      "Chatbot queries by detected intent.",
		}, []string{"intent"}),
		tokensPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_tokens_purged_total",
			Help:      "Expired refresh tokens removed by the cleanup job.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.rpcTotal,
		m.rpcDuration,
		m.issuesCreated,
		m.statusChanges,
		m.chatQueries,
		m.tokensPurged,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRPC(method, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.rpcTotal.WithLabelValues(method, code).Inc()
	m.rpcDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) IssueCreated(category string) {
	if m == nil {
		return
	}
	m.issuesCreated.WithLabelValues(category).Inc()
}

func (m *Metrics) StatusChanged(status string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status).Inc()
}

func (m *Metrics) ChatQuery(intent string) {
	if m == nil {
		return
	}
	m.chatQueries.WithLabelValues(intent).Inc()
}

func (m *Metrics) TokensPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.tokensPurged.Add(float64(n))
}
