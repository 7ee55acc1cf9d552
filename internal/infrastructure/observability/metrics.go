package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Purchase metrics
	PurchasesTotal   *prometheus.CounterVec
	PurchaseDuration *prometheus.HistogramVec
	ActiveSessions   prometheus.Gauge

	// Biller metrics
	BillerAttempts    *prometheus.CounterVec
	BillerDuration    *prometheus.HistogramVec
	CascadeExhausted  prometheus.Counter
	CascadeAdvances   *prometheus.CounterVec
	ThreeDLookups     *prometheus.CounterVec

	// Session metrics
	SessionConversions *prometheus.CounterVec
	SessionSaveErrors  prometheus.Counter

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState    *prometheus.GaugeVec
	CircuitBreakerRequests *prometheus.CounterVec

	// Postback delivery metrics
	PostbackDeliveries *prometheus.CounterVec
	PostbackDuration   *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics against the given registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := prometheus.WrapRegistererWith(nil, reg)

	m := &Metrics{
		PurchasesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "purchases_total",
				Help:      "Total number of purchase processes by payment type and final state",
			},
			[]string{"payment_type", "state"},
		),
		PurchaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "purchase_duration_seconds",
				Help:      "Purchase processing duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"payment_type"},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Number of currently active purchase sessions",
			},
		),
		BillerAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "biller_attempts_total",
				Help:      "Total number of charge attempts by biller and outcome",
			},
			[]string{"biller", "outcome"},
		),
		BillerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "biller_duration_seconds",
				Help:      "Biller charge duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"biller"},
		),
		CascadeExhausted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cascade_exhausted_total",
				Help:      "Total number of purchases that exhausted the biller cascade",
			},
		),
		CascadeAdvances: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cascade_advances_total",
				Help:      "Total number of cascade advances by biller advanced from",
			},
			[]string{"from_biller"},
		),
		ThreeDLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "three_d_lookups_total",
				Help:      "Total number of 3-D Secure lookups by version",
			},
			[]string{"version"},
		),
		SessionConversions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_conversions_total",
				Help:      "Total number of session payload schema conversions",
			},
			[]string{"from_version"},
		),
		SessionSaveErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_save_errors_total",
				Help:      "Total number of session persistence failures",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
		CircuitBreakerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_requests_total",
				Help:      "Total number of circuit breaker requests",
			},
			[]string{"name", "result"},
		),
		PostbackDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "postback_deliveries_total",
				Help:      "Total number of postback delivery attempts by status",
			},
			[]string{"status"},
		),
		PostbackDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "postback_duration_seconds",
				Help:      "Postback delivery duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"status"},
		),
	}

	// Register all collectors
	factory.MustRegister(
		m.PurchasesTotal,
		m.PurchaseDuration,
		m.ActiveSessions,
		m.BillerAttempts,
		m.BillerDuration,
		m.CascadeExhausted,
		m.CascadeAdvances,
		m.ThreeDLookups,
		m.SessionConversions,
		m.SessionSaveErrors,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CircuitBreakerState,
		m.CircuitBreakerRequests,
		m.PostbackDeliveries,
		m.PostbackDuration,
	)

	return m
}
