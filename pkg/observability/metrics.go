package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Credit use outcomes, used as the result label of solvenote_credits_used_total
const (
	CreditResultSuccess   = "success"
	CreditResultUnlimited = "unlimited"
	CreditResultExhausted = "exhausted"
	CreditResultError     = "error"
)

// Metrics holds all Prometheus metrics.
// All record methods are safe to call on a nil *Metrics.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Credit metrics
	CreditsUsedTotal      *prometheus.CounterVec
	CreditResetsTotal     prometheus.Counter
	UnlimitedGrantsTotal  prometheus.Counter
	WebhookEventsTotal    *prometheus.CounterVec
	SuggestionsTotal      *prometheus.CounterVec
	StoreOperationSeconds *prometheus.HistogramVec

	// Business gauges, refreshed by the stats job
	AccountsTotal          prometheus.Gauge
	UnlimitedAccountsTotal prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solvenote_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solvenote_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		CreditsUsedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solvenote_credits_used_total",
				Help: "Credit use attempts by outcome",
			},
			[]string{"result"},
		),
		CreditResetsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "solvenote_credit_resets_total",
				Help: "Daily credit refills applied",
			},
		),
		UnlimitedGrantsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "solvenote_unlimited_grants_total",
				Help: "Unlimited entitlement grants applied",
			},
		),
		WebhookEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solvenote_webhook_events_total",
				Help: "Payment webhook events by type and result",
			},
			[]string{"type", "result"},
		),
		SuggestionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solvenote_suggestions_total",
				Help: "Suggestion requests by generator source",
			},
			[]string{"source"},
		),
		StoreOperationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solvenote_store_operation_duration_seconds",
				Help:    "Credit store operation duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
			},
			[]string{"operation"},
		),
		AccountsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "solvenote_accounts",
				Help: "Number of credit accounts",
			},
		),
		UnlimitedAccountsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "solvenote_unlimited_accounts",
				Help: "Number of credit accounts with unlimited entitlement",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CreditsUsedTotal,
		m.CreditResetsTotal,
		m.UnlimitedGrantsTotal,
		m.WebhookEventsTotal,
		m.SuggestionsTotal,
		m.StoreOperationSeconds,
		m.AccountsTotal,
		m.UnlimitedAccountsTotal,
	)

	return m
}

// RecordCreditUse counts one credit use attempt
func (m *Metrics) RecordCreditUse(result string) {
	if m == nil {
		return
	}
	m.CreditsUsedTotal.WithLabelValues(result).Inc()
}

// RecordReset counts one applied daily reset
func (m *Metrics) RecordReset() {
	if m == nil {
		return
	}
	m.CreditResetsTotal.Inc()
}

// RecordGrant counts one unlimited grant
func (m *Metrics) RecordGrant() {
	if m == nil {
		return
	}
	m.UnlimitedGrantsTotal.Inc()
}

// RecordWebhookEvent counts one webhook delivery
func (m *Metrics) RecordWebhookEvent(eventType, result string) {
	if m == nil {
		return
	}
	m.WebhookEventsTotal.WithLabelValues(eventType, result).Inc()
}

// RecordSuggestions counts one generated suggestion batch
func (m *Metrics) RecordSuggestions(source string) {
	if m == nil {
		return
	}
	m.SuggestionsTotal.WithLabelValues(source).Inc()
}

// ObserveStoreOperation records how long a store call took
func (m *Metrics) ObserveStoreOperation(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.StoreOperationSeconds.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// SetAccountStats updates the account gauges
func (m *Metrics) SetAccountStats(accounts, unlimited int64) {
	if m == nil {
		return
	}
	m.AccountsTotal.Set(float64(accounts))
	m.UnlimitedAccountsTotal.Set(float64(unlimited))
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// routeLabel prefers the mux route template so path ids do not explode cardinality
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			path := routeLabel(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
