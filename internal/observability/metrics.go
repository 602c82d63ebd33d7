package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ridebud", Name: "match_requests_total", Help: "Ride match requests by outcome",
	}, []string{"result"})
	MatchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ridebud", Name: "match_latency_seconds", Help: "Ride match latency seconds",
	})

	ReconcileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ridebud", Name: "reconcile_operations_total", Help: "Journey/ride reconciliation operations by outcome",
	}, []string{"op", "result"})

	FareEstimatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ridebud", Name: "fare_estimates_total", Help: "Fare estimates by transport mode",
	}, []string{"mode"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ridebud", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ridebud",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Outcome labels an operation result for the counters above.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
