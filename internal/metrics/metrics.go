// Package metrics exposes the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "esusu"

// Metrics holds every collector. The zero value is not usable; use New.
type Metrics struct {
	registry *prometheus.Registry

	verifications       *prometheus.CounterVec
	claims              *prometheus.CounterVec
	contributions       *prometheus.CounterVec
	payouts             prometheus.Counter
	invariantViolations *prometheus.CounterVec
	rpcDuration         *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry, together with the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_verifications_total",
			Help:      "Payment verifications by result code.",
		}, []string{"result"}),
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_claims_total",
			Help:      "Payment ledger claims by outcome.",
		}, []string{"result"}),
		contributions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contributions_total",
			Help:      "Contributions recorded by token.",
		}, []string{"token"}),
		payouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payouts_total",
			Help:      "Payout rounds disbursed.",
		}),
		invariantViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invariant_violations_total",
			Help:      "Fatal errors that indicate a broken invariant or a reconciliation gap.",
		}, []string{"code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency by procedure and result code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure", "code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.verifications,
		m.claims,
		m.contributions,
		m.payouts,
		m.invariantViolations,
		m.rpcDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveVerification counts one verification. result is "ok" or an error code.
func (m *Metrics) ObserveVerification(result string) {
	m.verifications.WithLabelValues(result).Inc()
}

// ObserveClaim counts one ledger claim attempt.
func (m *Metrics) ObserveClaim(result string) {
	m.claims.WithLabelValues(result).Inc()
}

// ObserveContribution counts one recorded contribution.
func (m *Metrics) ObserveContribution(token string) {
	m.contributions.WithLabelValues(token).Inc()
}

// ObservePayout counts one disbursed round.
func (m *Metrics) ObservePayout() {
	m.payouts.Inc()
}

// ObserveInvariantViolation counts one fatal error.
func (m *Metrics) ObserveInvariantViolation(code string) {
	m.invariantViolations.WithLabelValues(code).Inc()
}

// ObserveRPC records the latency of one RPC.
func (m *Metrics) ObserveRPC(procedure, code string, d time.Duration) {
	m.rpcDuration.WithLabelValues(procedure, code).Observe(d.Seconds())
}
