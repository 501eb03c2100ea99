package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// CyclesTotal tracks scan cycles by result.
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aubit_scan_cycles_total",
			Help: "Total number of scan cycles",
		},
		[]string{"result"},
	)

	// CycleDurationSeconds tracks successful cycle latency.
	CycleDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aubit_scan_cycle_duration_seconds",
		Help:    "Duration of a successful scan cycle",
		Buckets: prometheus.DefBuckets,
	})

	// MarketsFetched tracks how many markets each venue served last cycle.
	MarketsFetched = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aubit_scan_markets_fetched",
			Help: "Markets fetched per venue in the last cycle",
		},
		[]string{"venue"},
	)

	// FetchFailuresTotal tracks market fetch failures per venue.
	FetchFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aubit_scan_fetch_failures_total",
			Help: "Total number of market fetch failures",
		},
		[]string{"venue"},
	)
)
