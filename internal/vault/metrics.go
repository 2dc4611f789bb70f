package vault

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MintsTotal tracks successful Dust mints.
	MintsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timeflow_vault_mints_total",
		Help: "Total number of successful Dust mints",
	})

	// MintRejectsTotal tracks rejected mint attempts by reason.
	MintRejectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeflow_vault_mint_rejects_total",
			Help: "Total number of rejected Dust mint attempts",
		},
		[]string{"reason"},
	)

	// WhitelistedTokens tracks the number of whitelisted collateral tokens.
	WhitelistedTokens = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timeflow_vault_whitelisted_tokens",
		Help: "Number of whitelisted collateral tokens",
	})
)
