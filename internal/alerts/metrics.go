package alerts

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// AlertsDispatchedTotal tracks opportunities that passed dedup and were fanned out.
	AlertsDispatchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aubit_alerts_dispatched_total",
			Help: "Total number of opportunities dispatched to channels",
		},
	)

	// AlertsSuppressedTotal tracks opportunities skipped as already dispatched.
	AlertsSuppressedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aubit_alerts_duplicates_suppressed_total",
			Help: "Total number of opportunities suppressed by the dedup window",
		},
	)

	// ChannelSentTotal tracks opportunities accepted per channel.
	ChannelSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aubit_alerts_channel_sent_total",
			Help: "Total number of opportunities accepted by each channel",
		},
		[]string{"channel"},
	)

	// ChannelFailuresTotal tracks delivery failures per channel.
	ChannelFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aubit_alerts_channel_failures_total",
			Help: "Total number of failed deliveries per channel",
		},
		[]string{"channel"},
	)

	// BroadcastClients tracks connected WebSocket clients.
	BroadcastClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aubit_alerts_broadcast_clients",
			Help: "Number of connected WebSocket alert clients",
		},
	)
)
