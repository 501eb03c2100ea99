package venues

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// RequestFailuresTotal tracks failed venue API calls.
	RequestFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aubit_venue_request_failures_total",
			Help: "Total number of failed venue API requests",
		},
		[]string{"venue", "op"},
	)
)
