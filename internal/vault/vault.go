package vault

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/timeflowlabs/timeflow/internal/ledger"
	"github.com/timeflowlabs/timeflow/pkg/types"
	"go.uber.org/zap"
)

// Vault mints the Dust synthetic unit against whitelisted collateral
// deposits. Mint ratios and fees are whole percents; all arithmetic is
// integer with a single floor division, so identical inputs always mint
// identical amounts and rounding never favors the depositor.
type Vault struct {
	mu        sync.RWMutex
	admin     common.Address
	dustToken common.Address
	ledger    *ledger.Ledger
	configs   map[common.Address]types.CollateralConfig
	pooled    map[common.Address]*big.Int
	logger    *zap.Logger
}

// Config holds vault construction parameters.
type Config struct {
	Admin     common.Address
	DustToken common.Address
	Ledger    *ledger.Ledger
	Logger    *zap.Logger
}

// New creates an empty vault with no whitelisted tokens.
func New(cfg *Config) (*Vault, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil: %w", types.ErrConfig)
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ledger cannot be nil: %w", types.ErrConfig)
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil: %w", types.ErrConfig)
	}

	return &Vault{
		admin:     cfg.Admin,
		dustToken: cfg.DustToken,
		ledger:    cfg.Ledger,
		configs:   make(map[common.Address]types.CollateralConfig),
		pooled:    make(map[common.Address]*big.Int),
		logger:    cfg.Logger,
	}, nil
}

// DustToken returns the address identifying the synthetic unit in the ledger.
func (v *Vault) DustToken() common.Address {
	return v.dustToken
}

// Whitelist registers collateral tokens with their mint ratios and fee rates,
// both whole percents. Additive: repeated calls extend or overwrite entries.
// Admin only.
func (v *Vault) Whitelist(caller common.Address, tokens []common.Address, mintRatios, feeRates []uint64) error {
	if caller != v.admin {
		return fmt.Errorf("whitelist: %w", types.ErrPermission)
	}
	if len(tokens) != len(mintRatios) || len(tokens) != len(feeRates) {
		return fmt.Errorf("whitelist: %d tokens, %d ratios, %d fees: %w",
			len(tokens), len(mintRatios), len(feeRates), types.ErrConfig)
	}
	for i, token := range tokens {
		if mintRatios[i] > types.PercentScale || feeRates[i] > types.PercentScale {
			return fmt.Errorf("whitelist %s: ratio %d or fee %d exceeds 100%%: %w",
				token.Hex(), mintRatios[i], feeRates[i], types.ErrConfig)
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	for i, token := range tokens {
		v.configs[token] = types.CollateralConfig{
			Token:        token,
			MintRatioPct: mintRatios[i],
			FeePct:       feeRates[i],
			Enabled:      true,
		}
		if _, ok := v.pooled[token]; !ok {
			v.pooled[token] = big.NewInt(0)
		}
		v.logger.Info("collateral-whitelisted",
			zap.String("token", token.Hex()),
			zap.Uint64("mint-ratio-pct", mintRatios[i]),
			zap.Uint64("fee-pct", feeRates[i]))
	}
	WhitelistedTokens.Set(float64(len(v.configs)))
	return nil
}

// SetEnabled toggles a whitelisted token. Entries are never removed, only
// disabled. Admin only.
func (v *Vault) SetEnabled(caller, token common.Address, enabled bool) error {
	if caller != v.admin {
		return fmt.Errorf("set enabled: %w", types.ErrPermission)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	cfg, ok := v.configs[token]
	if !ok {
		return fmt.Errorf("set enabled %s: %w", token.Hex(), types.ErrUnknownToken)
	}
	cfg.Enabled = enabled
	v.configs[token] = cfg

	v.logger.Info("collateral-toggled",
		zap.String("token", token.Hex()),
		zap.Bool("enabled", enabled))
	return nil
}

// HasToken reports whether token is whitelisted (enabled or not). Used by
// governance when rebinding a market's collateral.
func (v *Vault) HasToken(token common.Address) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.configs[token]
	return ok
}

// IsEnabled reports whether token is whitelisted and currently enabled.
// Markets may only be created against enabled collateral.
func (v *Vault) IsEnabled(token common.Address) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	cfg, ok := v.configs[token]
	return ok && cfg.Enabled
}

// GetExpectedAmount computes the Dust minted for depositAmount of token at
// referencePrice, without mutating anything. The amount is
//
//	depositAmount * ratio * (100 - fee) * referencePrice / (100 * 100 * 1e18)
//
// floored once at the end. A nil or zero referencePrice means no price
// adjustment (unit price).
func (v *Vault) GetExpectedAmount(token common.Address, depositAmount, referencePrice *big.Int) (*big.Int, error) {
	v.mu.RLock()
	cfg, ok := v.configs[token]
	v.mu.RUnlock()

	if !ok || !cfg.Enabled {
		return nil, fmt.Errorf("expected amount %s: %w", token.Hex(), types.ErrUnknownToken)
	}
	if depositAmount == nil || depositAmount.Sign() < 0 {
		return nil, fmt.Errorf("expected amount: negative deposit: %w", types.ErrInsufficientDeposit)
	}

	num := new(big.Int).Mul(depositAmount, big.NewInt(int64(cfg.MintRatioPct)))
	num.Mul(num, big.NewInt(int64(types.PercentScale-cfg.FeePct)))
	den := big.NewInt(types.PercentScale * types.PercentScale)

	if referencePrice != nil && referencePrice.Sign() > 0 {
		num.Mul(num, referencePrice)
		den.Mul(den, types.PriceScale)
	}

	return num.Div(num, den), nil
}

// MintDust pulls depositAmount of token from the caller into the vault pool
// and credits the caller with the Dust amount GetExpectedAmount reports.
// The whole call commits or nothing does: the deposit transfer is unwound
// if issuance fails.
func (v *Vault) MintDust(caller, token common.Address, depositAmount, referencePrice *big.Int) (*big.Int, error) {
	if depositAmount == nil || depositAmount.Sign() <= 0 {
		MintRejectsTotal.WithLabelValues("zero_deposit").Inc()
		return nil, fmt.Errorf("mint dust: zero deposit: %w", types.ErrInsufficientDeposit)
	}

	minted, err := v.GetExpectedAmount(token, depositAmount, referencePrice)
	if err != nil {
		MintRejectsTotal.WithLabelValues("unknown_token").Inc()
		return nil, err
	}
	if minted.Sign() == 0 {
		MintRejectsTotal.WithLabelValues("dust_rounds_to_zero").Inc()
		return nil, fmt.Errorf("mint dust: deposit %s mints nothing: %w",
			depositAmount, types.ErrInsufficientDeposit)
	}

	if err := v.ledger.TransferIn(token, caller, depositAmount); err != nil {
		MintRejectsTotal.WithLabelValues("insufficient_balance").Inc()
		return nil, fmt.Errorf("mint dust deposit: %w", err)
	}

	if err := v.ledger.Mint(v.dustToken, caller, minted); err != nil {
		// Unwind the deposit so the failed call leaves no trace.
		if rbErr := v.ledger.TransferOut(token, caller, depositAmount); rbErr != nil {
			v.logger.Error("mint-rollback-failed",
				zap.String("token", token.Hex()),
				zap.Error(rbErr))
		}
		return nil, fmt.Errorf("mint dust issue: %w", err)
	}

	v.mu.Lock()
	v.pooled[token] = new(big.Int).Add(v.pooled[token], depositAmount)
	v.mu.Unlock()

	MintsTotal.Inc()
	v.logger.Info("dust-minted",
		zap.String("caller", caller.Hex()),
		zap.String("token", token.Hex()),
		zap.String("deposit", depositAmount.String()),
		zap.String("minted", minted.String()))
	return minted, nil
}

// GetDustCollateralInfo returns the token's configuration plus the vault's
// pooled balance. Read only.
func (v *Vault) GetDustCollateralInfo(token common.Address) (types.CollateralInfo, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	cfg, ok := v.configs[token]
	if !ok {
		return types.CollateralInfo{}, fmt.Errorf("collateral info %s: %w", token.Hex(), types.ErrUnknownToken)
	}

	pooled := big.NewInt(0)
	if p, ok := v.pooled[token]; ok {
		pooled = new(big.Int).Set(p)
	}
	return types.CollateralInfo{
		CollateralConfig: cfg,
		PooledBalance:    pooled,
	}, nil
}
