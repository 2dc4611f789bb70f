package orderbook

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersPostedTotal tracks resting orders accepted, by side.
	OrdersPostedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeflow_orderbook_orders_posted_total",
			Help: "Total number of resting orders accepted",
		},
		[]string{"side"},
	)

	// OrderRejectsTotal tracks rejected order submissions by reason.
	OrderRejectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeflow_orderbook_order_rejects_total",
			Help: "Total number of rejected order submissions",
		},
		[]string{"reason"},
	)

	// TradesMatchedTotal tracks executed fills.
	TradesMatchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timeflow_orderbook_trades_matched_total",
		Help: "Total number of executed fills",
	})

	// MatchRejectsTotal tracks rejected match attempts by reason.
	MatchRejectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeflow_orderbook_match_rejects_total",
			Help: "Total number of rejected match attempts",
		},
		[]string{"reason"},
	)

	// CancelsTotal tracks cancelled orders.
	CancelsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timeflow_orderbook_cancels_total",
		Help: "Total number of cancelled orders",
	})
)
