// Package metrics exposes the ledger's Prometheus counters on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use through a nil pointer; every recorder is then a no-op.
type Metrics struct {
	registry                  *prometheus.Registry
	vouchersCreated           *prometheus.CounterVec
	numberContention          prometheus.Counter
	transfersPartiallyApplied prometheus.Counter
	outboxPublished           *prometheus.CounterVec
	httpRequests              *prometheus.CounterVec
	httpDuration              *prometheus.HistogramVec
}

func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		vouchersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vouchers_created_total",
			Help:      "Vouchers persisted, by kind and currency.",
		}, []string{"kind", "currency"}),
		numberContention: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voucher_number_contention_total",
			Help:      "Voucher number allocations that hit counter contention.",
		}),
		transfersPartiallyApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_partially_applied_total",
			Help:      "Transfers that left an unpaired leg.",
		}),
		outboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_messages_total",
			Help:      "Outbox messages handled by the poller, by outcome.",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.vouchersCreated,
		m.numberContention,
		m.transfersPartiallyApplied,
		m.outboxPublished,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) VoucherCreated(kind, currency string) {
	if m == nil {
		return
	}
	m.vouchersCreated.WithLabelValues(kind, currency).Inc()
}

func (m *Metrics) NumberContention() {
	if m == nil {
		return
	}
	m.numberContention.Inc()
}

func (m *Metrics) TransferPartiallyApplied() {
	if m == nil {
		return
	}
	m.transfersPartiallyApplied.Inc()
}

// OutboxMessage records a poller outcome: published, retried or failed
func (m *Metrics) OutboxMessage(outcome string) {
	if m == nil {
		return
	}
	m.outboxPublished.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
