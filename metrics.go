package tenantAuth

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricID identifies one engine counter.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginRateLimited
	MetricSessionCreated
	MetricSessionValidated
	MetricSessionRejected
	MetricSessionInvalidated
	MetricLogoutAll
	MetricAccessGranted
	MetricAccessDenied
	MetricPasswordUpgraded
	MetricAccountProvisioned
	MetricProvisioningFailure
	MetricRateLimitHit
	MetricAccountStatusChanged
	MetricAuditDropped

	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricLoginSuccess:         "login_success",
	MetricLoginFailure:         "login_failure",
	MetricLoginRateLimited:     "login_rate_limited",
	MetricSessionCreated:       "session_created",
	MetricSessionValidated:     "session_validated",
	MetricSessionRejected:      "session_rejected",
	MetricSessionInvalidated:   "session_invalidated",
	MetricLogoutAll:            "logout_all",
	MetricAccessGranted:        "access_granted",
	MetricAccessDenied:         "access_denied",
	MetricPasswordUpgraded:     "password_upgraded",
	MetricAccountProvisioned:   "account_provisioned",
	MetricProvisioningFailure:  "provisioning_failure",
	MetricRateLimitHit:         "rate_limit_hit",
	MetricAccountStatusChanged: "account_status_changed",
	MetricAuditDropped:         "audit_dropped",
}

// String returns the "event" label value for id.
func (id MetricID) String() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

// Metrics holds the Prometheus collectors for one Engine. Every counter is a
// child of a single events_total vector so dashboards can sum by label.
type Metrics struct {
	registry     *prometheus.Registry
	events       *prometheus.CounterVec
	counters     [metricIDCount]prometheus.Counter
	loginLatency prometheus.Histogram
}

// NewMetrics registers the engine collectors on reg. A nil reg gets a fresh
// private registry.
func NewMetrics(cfg MetricsConfig, reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "tenantauth"
	}

	m := &Metrics{
		registry: reg,
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Authentication engine events by type.",
			},
			[]string{"event"},
		),
		loginLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "login_duration_seconds",
			Help:      "Login latency in seconds, including password verification.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if err := reg.Register(m.events); err != nil {
		return nil, err
	}
	if err := reg.Register(m.loginLatency); err != nil {
		return nil, err
	}

	// Pre-create every child so zero counts are exported.
	for id := MetricID(0); id < metricIDCount; id++ {
		m.counters[id] = m.events.WithLabelValues(id.String())
	}

	return m, nil
}

// Inc increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || id >= metricIDCount {
		return
	}
	m.counters[id].Inc()
}

// ObserveLogin records one login duration.
func (m *Metrics) ObserveLogin(d time.Duration) {
	if m == nil {
		return
	}
	m.loginLatency.Observe(d.Seconds())
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// MetricsHandler serves the engine metrics, or 404 when metrics are disabled.
func (e *Engine) MetricsHandler() http.Handler {
	if e == nil {
		return http.NotFoundHandler()
	}
	return e.metrics.Handler()
}

// Metrics returns the engine collectors, or nil when metrics are disabled.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}
