package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreErrorsTotal tracks failed audit writes.
	StoreErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timeflow_storage_store_errors_total",
		Help: "Total number of failed audit store writes",
	})
)
