package factory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MarketsCreatedTotal tracks markets created over the process lifetime.
	MarketsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timeflow_factory_markets_created_total",
		Help: "Total number of markets created",
	})
)
