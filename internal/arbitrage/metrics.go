package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// OpportunitiesDetectedTotal tracks opportunities emitted per strategy.
	OpportunitiesDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aubit_arb_opportunities_detected_total",
			Help: "Total number of arbitrage opportunities detected",
		},
		[]string{"kind"},
	)

	// OpportunityProfitBPS tracks profit margins in basis points.
	OpportunityProfitBPS = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aubit_arb_opportunity_profit_bps",
			Help:    "Arbitrage opportunity profit margin in basis points",
			Buckets: []float64{10, 25, 50, 100, 200, 500, 1000, 2000, 5000},
		},
		[]string{"kind"},
	)

	// DetectionDurationSeconds tracks how long one detector scan takes.
	DetectionDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aubit_arb_detection_duration_seconds",
			Help:    "Duration of a single detector scan",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// OpportunitiesRejectedTotal tracks candidates dropped by reason.
	OpportunitiesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aubit_arb_opportunities_rejected_total",
			Help: "Total number of arbitrage candidates rejected",
		},
		[]string{"kind", "reason"},
	)

	// MatchedPairsTotal tracks cross-venue market matches by strategy.
	MatchedPairsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aubit_arb_matched_pairs_total",
			Help: "Total number of cross-venue market matches",
		},
		[]string{"strategy"},
	)

	// OracleLookupsTotal tracks implied probability lookups by result.
	OracleLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aubit_arb_oracle_lookups_total",
			Help: "Total number of implied probability lookups",
		},
		[]string{"result"},
	)
)

func recordDetected(opp *Opportunity) {
	kind := string(opp.Kind)
	OpportunitiesDetectedTotal.WithLabelValues(kind).Inc()
	OpportunityProfitBPS.WithLabelValues(kind).Observe(float64(opp.ProfitBPS()))
}
