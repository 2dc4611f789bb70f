package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/timeflowlabs/timeflow/pkg/types"
	"go.uber.org/zap"
)

// CollateralSource answers whether a token is known to the collateral vault.
// Satisfied by *vault.Vault.
type CollateralSource interface {
	HasToken(token common.Address) bool
}

// Registry is the governance-held market configuration table: one
// MarketConfig per market id, created once and adjusted afterwards. All
// mutating calls are restricted to the administrator.
type Registry struct {
	mu      sync.RWMutex
	admin   common.Address
	vault   CollateralSource
	configs map[uint64]types.MarketConfig
	logger  *zap.Logger
}

// Config holds registry construction parameters.
type Config struct {
	Admin  common.Address
	Vault  CollateralSource
	Logger *zap.Logger
}

// New creates an empty registry.
func New(cfg *Config) (*Registry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil: %w", types.ErrConfig)
	}
	if cfg.Vault == nil {
		return nil, fmt.Errorf("vault cannot be nil: %w", types.ErrConfig)
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil: %w", types.ErrConfig)
	}

	return &Registry{
		admin:   cfg.Admin,
		vault:   cfg.Vault,
		configs: make(map[uint64]types.MarketConfig),
		logger:  cfg.Logger,
	}, nil
}

// InitMarketConfig creates the config for marketID. One-shot per id.
func (r *Registry) InitMarketConfig(caller common.Address, marketID uint64, collateralToken, priceFeedA, priceFeedB common.Address) error {
	if caller != r.admin {
		return fmt.Errorf("init market config: %w", types.ErrPermission)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.configs[marketID]; ok {
		return fmt.Errorf("init market config %d: %w", marketID, types.ErrAlreadyInitialized)
	}

	r.configs[marketID] = types.MarketConfig{
		MarketID:        marketID,
		CollateralToken: collateralToken,
		PriceFeedA:      priceFeedA,
		PriceFeedB:      priceFeedB,
		Initialized:     true,
	}

	r.logger.Info("market-config-initialized",
		zap.Uint64("market-id", marketID),
		zap.String("collateral-token", collateralToken.Hex()))
	return nil
}

// SetMarketConfig updates the mutable fields of an initialized config.
func (r *Registry) SetMarketConfig(caller common.Address, marketID uint64, duration time.Duration, priceToken common.Address) error {
	if caller != r.admin {
		return fmt.Errorf("set market config: %w", types.ErrPermission)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.configs[marketID]
	if !ok {
		return fmt.Errorf("set market config %d: %w", marketID, types.ErrNotInitialized)
	}

	cfg.Duration = duration
	cfg.PriceToken = priceToken
	r.configs[marketID] = cfg

	r.logger.Info("market-config-updated",
		zap.Uint64("market-id", marketID),
		zap.Duration("duration", duration),
		zap.String("price-token", priceToken.Hex()))
	return nil
}

// ChangeCollateral rebinds the market's collateral token. The new token
// must already be known to the vault.
func (r *Registry) ChangeCollateral(caller common.Address, marketID uint64, newToken common.Address) error {
	if caller != r.admin {
		return fmt.Errorf("change collateral: %w", types.ErrPermission)
	}
	if !r.vault.HasToken(newToken) {
		return fmt.Errorf("change collateral %d to %s: %w", marketID, newToken.Hex(), types.ErrUnknownToken)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.configs[marketID]
	if !ok {
		return fmt.Errorf("change collateral %d: %w", marketID, types.ErrNotInitialized)
	}

	cfg.CollateralToken = newToken
	r.configs[marketID] = cfg

	r.logger.Info("market-collateral-changed",
		zap.Uint64("market-id", marketID),
		zap.String("new-token", newToken.Hex()))
	return nil
}

// GetMarketConfig returns the config for marketID, or the zero value when
// the id is unknown. Never fails.
func (r *Registry) GetMarketConfig(marketID uint64) types.MarketConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.configs[marketID]
}
