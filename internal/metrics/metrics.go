// Package metrics declares the Prometheus collectors for risk decisions and challenges.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RiskAssessments = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adaptive_auth",
		Subsystem: "risk",
		Name:      "assessments_total",
		Help:      "Total risk assessments by resulting level.",
	}, []string{"level"}) // "low", "high"

	RiskSignalsFlagged = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adaptive_auth",
		Subsystem: "risk",
		Name:      "signals_flagged_total",
		Help:      "Total flagged risk signals by signal name.",
	}, []string{"signal"})

	RiskScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "adaptive_auth",
		Subsystem: "risk",
		Name:      "score",
		Help:      "Distribution of aggregated risk scores.",
		Buckets:   []float64{0, 30, 90, 100, 105, 150, 200, 300, 375},
	})

	ReputationFailOpen = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "adaptive_auth",
		Subsystem: "risk",
		Name:      "reputation_fail_open_total",
		Help:      "Total reputation lookups that failed and were treated as unflagged.",
	})

	ChallengesIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "adaptive_auth",
		Subsystem: "challenge",
		Name:      "issued_total",
		Help:      "Total second-factor challenges created.",
	})

	ChallengeRedemptions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adaptive_auth",
		Subsystem: "challenge",
		Name:      "redemptions_total",
		Help:      "Total challenge redemption attempts by outcome.",
	}, []string{"outcome"}) // "success", "invalid_code", "expired", "attempts_exhausted", "not_found"

	LoginDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adaptive_auth",
		Subsystem: "login",
		Name:      "decisions_total",
		Help:      "Total login decisions by outcome.",
	}, []string{"outcome"}) // "success", "failure", "challenge_required"

	AuditWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "adaptive_auth",
		Subsystem: "audit",
		Name:      "write_failures_total",
		Help:      "Total audit records that could not be persisted.",
	})

	DeliveryFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "adaptive_auth",
		Subsystem: "challenge",
		Name:      "delivery_failures_total",
		Help:      "Total out-of-band code deliveries that returned an error.",
	})
)

func init() {
	prometheus.MustRegister(
		RiskAssessments,
		RiskSignalsFlagged,
		RiskScore,
		ReputationFailOpen,
		ChallengesIssued,
		ChallengeRedemptions,
		LoginDecisions,
		AuditWriteFailures,
		DeliveryFailures,
	)
}

// Handler serves the default registry for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
