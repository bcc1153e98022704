package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ddns"

type Metrics struct {
	registry           *prometheus.Registry
	updateRequests     *prometheus.CounterVec // update requests by outcome
	updateDuration     prometheus.Histogram   // time to handle an update
	dnsRequests        *prometheus.CounterVec // dns provider requests
	dnsOperations      *prometheus.CounterVec // planned record changes
	credentialRequests *prometheus.CounterVec // credential backend lookups
	credentialCache    *prometheus.CounterVec // read-through cache hits/misses
}

// Public interface for metrics operations
func (m *Metrics) IncUpdateRequest(outcome string) {
	if !isValidOutcome(outcome) {
		return
	}
	m.updateRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveUpdateDuration(duration time.Duration) {
	m.updateDuration.Observe(duration.Seconds())
}

func (m *Metrics) IncDNSRequest(operation string, success bool) {
	if !isValidOperation(operation) {
		return
	}
	m.dnsRequests.WithLabelValues(operation, boolToResult(success)).Inc()
}

func (m *Metrics) IncDNSOperation(operation, recordType string) {
	if !isValidOperation(operation) || !isValidRecordType(recordType) {
		return
	}
	m.dnsOperations.WithLabelValues(operation, recordType).Inc()
}

func (m *Metrics) IncCredentialRequest(backend string, success bool) {
	if backend == "" {
		return
	}
	m.credentialRequests.WithLabelValues(backend, boolToResult(success)).Inc()
}

func (m *Metrics) IncCredentialCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.credentialCache.WithLabelValues(result).Inc()
}

// Validation helpers
func boolToResult(b bool) string {
	if b {
		return "success"
	}
	return "failure"
}

func isValidOutcome(outcome string) bool {
	switch outcome {
	case "updated", "no-change", "unauthorized", "bad-request", "error":
		return true
	}
	return false
}

func isValidOperation(op string) bool {
	switch op {
	case "read", "create", "update", "delete":
		return true
	}
	return false
}

func isValidRecordType(rt string) bool {
	switch rt {
	case "A", "AAAA":
		return true
	}
	return false
}

// New builds the collectors. Pass register=false for throwaway instances
// in tests that only need the methods to be callable.
func New(register bool) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		updateRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "update_requests_total",
			Help:      "Total update requests by outcome",
		}, []string{"outcome"}),

		updateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_duration_seconds",
			Help:      "Duration of update requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		dnsRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dns_requests_total",
			Help:      "Total DNS provider requests",
		}, []string{"operation", "status"}),

		dnsOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dns_operations_total",
			Help:      "Total record changes planned by the reconciler",
		}, []string{"operation", "type"}),

		credentialRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_requests_total",
			Help:      "Total credential store lookups",
		}, []string{"backend", "status"}),

		credentialCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_cache_total",
			Help:      "Credential cache lookups by result",
		}, []string{"result"}),
	}

	if register {
		registry.MustRegister(
			m.updateRequests,
			m.updateDuration,
			m.dnsRequests,
			m.dnsOperations,
			m.credentialRequests,
			m.credentialCache,
		)
	}
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
