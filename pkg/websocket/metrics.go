package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SubscribersConnected tracks currently connected fill-feed subscribers.
	SubscribersConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timeflow_websocket_subscribers_connected",
		Help: "Number of connected fill-feed subscribers",
	})

	// MessagesBroadcastTotal tracks fill events delivered to subscriber buffers.
	MessagesBroadcastTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timeflow_websocket_messages_broadcast_total",
		Help: "Total number of fill events queued for delivery",
	})

	// SubscribersDroppedTotal tracks messages dropped due to full send buffers.
	SubscribersDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timeflow_websocket_messages_dropped_total",
		Help: "Total number of fill events dropped for slow subscribers",
	})
)
