// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// HTTP metrics
	HTTPRequests       *prometheus.CounterVec
	HTTPRequestLatency *prometheus.HistogramVec
	RateLimited        *prometheus.CounterVec

	// Presale metrics
	PurchasesRecorded   *prometheus.CounterVec
	SettlementRaised    *prometheus.CounterVec
	TotalRaised         prometheus.Gauge
	QuotesServed        *prometheus.CounterVec
	ReferralLookups     *prometheus.CounterVec
	ReferralApplied     prometheus.Counter
	PurchaseSinkErrors  prometheus.Counter
	FeedClients         prometheus.Gauge
	FeedMessagesDropped prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	DBConnections   *prometheus.GaugeVec

	// Health metrics
	StartTime prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "token_presale"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// HTTP metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		HTTPRequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		RateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter",
		}, []string{"route"}),

		// Presale metrics
		PurchasesRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "presale",
			Name:      "purchases_recorded_total",
			Help:      "Total number of purchase transactions recorded by currency and wallet kind",
		}, []string{"currency", "wallet_kind"}),
		SettlementRaised: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "presale",
			Name:      "settlement_raised_total",
			Help:      "Settlement units added to the raised total by currency",
		}, []string{"currency"}),
		TotalRaised: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "presale",
			Name:      "total_raised",
			Help:      "Last observed presale raised total in settlement units",
		}),
		QuotesServed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "presale",
			Name:      "quotes_served_total",
			Help:      "Total number of purchase quotes served by currency",
		}, []string{"currency"}),
		ReferralLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "referral",
			Name:      "lookups_total",
			Help:      "Total number of referral code lookups by result",
		}, []string{"result"}),
		ReferralApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "referral",
			Name:      "applied_total",
			Help:      "Total number of referral codes applied",
		}),
		PurchaseSinkErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "sink_errors_total",
			Help:      "Total number of purchase events the analytics sink failed to record",
		}),
		FeedClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "clients",
			Help:      "Number of connected live feed clients",
		}),
		FeedMessagesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "slow_clients_dropped_total",
			Help:      "Total number of feed clients dropped for falling behind",
		}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
		DBConnections: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "connections",
			Help:      "Number of database connections by state",
		}, []string{"database", "state"}),

		// Health metrics
		StartTime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "start_time_seconds",
			Help:      "Unix timestamp of process start",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

func init() {
	DefaultMetrics.StartTime.Set(float64(time.Now().Unix()))
}

// RecordHTTPRequest records one served request. route is the mux path template.
func RecordHTTPRequest(route, method string, status int, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	DefaultMetrics.HTTPRequestLatency.WithLabelValues(route, method).Observe(seconds)
}

// RecordRateLimited records a request rejected by the rate limiter.
func RecordRateLimited(route string) {
	DefaultMetrics.RateLimited.WithLabelValues(route).Inc()
}

// RecordPurchase records a persisted purchase and its settlement value.
func RecordPurchase(currency, walletKind string, settlement float64) {
	DefaultMetrics.PurchasesRecorded.WithLabelValues(currency, walletKind).Inc()
	DefaultMetrics.SettlementRaised.WithLabelValues(currency).Add(settlement)
}

// UpdateTotalRaised sets the raised-total gauge.
func UpdateTotalRaised(total float64) {
	DefaultMetrics.TotalRaised.Set(total)
}

// RecordQuote records a served quote.
func RecordQuote(currency string) {
	DefaultMetrics.QuotesServed.WithLabelValues(currency).Inc()
}

// RecordReferralLookup records a referral lookup; result is "valid" or "invalid".
func RecordReferralLookup(result string) {
	DefaultMetrics.ReferralLookups.WithLabelValues(result).Inc()
}

// RecordReferralApplied increments the applied referral counter.
func RecordReferralApplied() {
	DefaultMetrics.ReferralApplied.Inc()
}

// RecordSinkError increments the analytics sink error counter.
func RecordSinkError() {
	DefaultMetrics.PurchaseSinkErrors.Inc()
}

// UpdateFeedClients sets the connected feed client gauge.
func UpdateFeedClients(n int) {
	DefaultMetrics.FeedClients.Set(float64(n))
}

// RecordFeedClientDropped increments the dropped slow client counter.
func RecordFeedClientDropped() {
	DefaultMetrics.FeedMessagesDropped.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// UpdateDBConnections sets the connection gauges for database.
func UpdateDBConnections(database string, idle, inUse, total int32) {
	DefaultMetrics.DBConnections.WithLabelValues(database, "idle").Set(float64(idle))
	DefaultMetrics.DBConnections.WithLabelValues(database, "in_use").Set(float64(inUse))
	DefaultMetrics.DBConnections.WithLabelValues(database, "total").Set(float64(total))
}
