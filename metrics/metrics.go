// Package metrics exposes Prometheus instrumentation for the charge engine.
// Collectors are registered once at import via promauto; the api package
// serves them on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CalculationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charge_calculations_total",
			Help: "Engine calculations per charge type and outcome",
		},
		[]string{"charge_type", "outcome"},
	)

	ChargesPostedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charge_charges_posted_total",
			Help: "Charges written to the ledger per charge type and source",
		},
		[]string{"charge_type", "source"},
	)

	ChargesVoidedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charge_charges_voided_total",
			Help: "Charges voided per charge type",
		},
		[]string{"charge_type"},
	)
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charge_http_requests_total",
			Help: "HTTP requests per method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "charge_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds per method and route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

var (
	SchedulerRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charge_scheduler_runs_total",
			Help: "Billing runs per outcome",
		},
		[]string{"outcome"},
	)

	SchedulerLastRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "charge_scheduler_last_run_timestamp",
			Help: "Unix timestamp of the last completed billing run",
		},
	)

	SchedulerLastDurationSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "charge_scheduler_last_duration_seconds",
			Help: "Duration of the last completed billing run",
		},
	)
)

// ObserveCalculation records one engine invocation. Unknown type strings
// collapse to a single label value to keep cardinality bounded.
func ObserveCalculation(chargeType string, err error) {
	switch chargeType {
	case "rent", "utilities", "transport", "other":
	default:
		chargeType = "invalid"
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	CalculationsTotal.WithLabelValues(chargeType, outcome).Inc()
}

// ObserveChargePosted records one charge written to the ledger.
func ObserveChargePosted(chargeType, source string) {
	ChargesPostedTotal.WithLabelValues(chargeType, source).Inc()
}

// ObserveSchedulerRun records one billing run.
func ObserveSchedulerRun(startedAt time.Time, err error) {
	SchedulerLastDurationSeconds.Set(time.Since(startedAt).Seconds())
	SchedulerLastRun.Set(float64(time.Now().Unix()))
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	SchedulerRunsTotal.WithLabelValues(outcome).Inc()
}
