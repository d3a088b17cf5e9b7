package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	// activeConnections gauges the number of registered chat connections.
	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_active_connections",
			Help: "Current number of registered chat connections.",
		},
	)

	// messagesAccepted counts messages persisted through the chat channel.
	messagesAccepted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_accepted_total",
			Help: "Total number of chat messages accepted and persisted.",
		},
	)

	// broadcastDeliveries counts per-recipient broadcast outcomes.
	broadcastDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_broadcast_deliveries_total",
			Help: "Per-recipient broadcast delivery outcomes.",
		},
		[]string{"outcome"}, // "delivered" | "failed"
	)
)

func init() {
	prometheus.MustRegister(activeConnections, messagesAccepted, broadcastDeliveries)
}
