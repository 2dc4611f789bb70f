package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PercentScale is the denominator for mint ratios and fee rates, which are
// configured as whole percents (95 means 95%). Combined ratio/fee math
// therefore divides by PercentScale*PercentScale. Integer arithmetic only,
// rounding down, so re-execution is deterministic and minting never rounds up.
const PercentScale = 100

// PriceScale is the fixed-point scale of reference prices (18 decimals,
// matching wei-denominated price feeds).
var PriceScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// CollateralConfig describes one whitelisted deposit token. Entries are
// never deleted; they are disabled instead.
type CollateralConfig struct {
	Token        common.Address `json:"token"`
	MintRatioPct uint64         `json:"mint_ratio_pct"` // e.g. 95 == 95%
	FeePct       uint64         `json:"fee_pct"`        // e.g. 10 == 10%
	Enabled      bool           `json:"enabled"`
}

// CollateralInfo is the read projection of a CollateralConfig plus the
// vault's current pooled balance for the token.
type CollateralInfo struct {
	CollateralConfig
	PooledBalance *big.Int `json:"pooled_balance"`
}

// MarketConfig is the governance-held configuration for one market id.
// GetMarketConfig returns the zero value for unknown ids.
type MarketConfig struct {
	MarketID        uint64         `json:"market_id"`
	CollateralToken common.Address `json:"collateral_token"`
	PriceFeedA      common.Address `json:"price_feed_a"`
	PriceFeedB      common.Address `json:"price_feed_b"`
	Duration        time.Duration  `json:"duration"`
	PriceToken      common.Address `json:"price_token"`
	Initialized     bool           `json:"initialized"`
}

// MarketInfo is the factory's creation record for one market.
type MarketInfo struct {
	MarketID  uint64    `json:"market_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
