package factory

import (
	"fmt"
	"sync"
	"time"

	"github.com/timeflowlabs/timeflow/internal/ledger"
	"github.com/timeflowlabs/timeflow/internal/orderbook"
	"github.com/timeflowlabs/timeflow/internal/registry"
	"github.com/timeflowlabs/timeflow/internal/vault"
	"github.com/timeflowlabs/timeflow/pkg/types"
	"go.uber.org/zap"
)

// Factory creates order book engines, one per market. Market ids come from
// an explicit monotonic counter starting at 0; ids are never reused, even
// for markets that are long expired.
type Factory struct {
	mu       sync.RWMutex
	registry *registry.Registry
	vault    *vault.Vault
	ledger   *ledger.Ledger
	sink     orderbook.FillSink
	engines  map[uint64]*orderbook.Engine
	infos    map[uint64]types.MarketInfo
	nextID   uint64
	logger   *zap.Logger
	now      func() time.Time
}

// Config holds factory construction parameters.
type Config struct {
	Registry *registry.Registry
	Vault    *vault.Vault
	Ledger   *ledger.Ledger
	Sink     orderbook.FillSink // optional, passed to every engine
	Logger   *zap.Logger
	Now      func() time.Time // optional
}

// New creates a factory with no markets.
func New(cfg *Config) (*Factory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil: %w", types.ErrConfig)
	}
	if cfg.Registry == nil || cfg.Vault == nil || cfg.Ledger == nil {
		return nil, fmt.Errorf("registry, vault and ledger are required: %w", types.ErrConfig)
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil: %w", types.ErrConfig)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Factory{
		registry: cfg.Registry,
		vault:    cfg.Vault,
		ledger:   cfg.Ledger,
		sink:     cfg.Sink,
		engines:  make(map[uint64]*orderbook.Engine),
		infos:    make(map[uint64]types.MarketInfo),
		logger:   cfg.Logger,
		now:      now,
	}, nil
}

// CreateMarket allocates the next market id and instantiates its engine
// from the governance config for that id. The registry must already hold a
// config for the id about to be assigned.
func (f *Factory) CreateMarket() (uint64, *orderbook.Engine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	cfg := f.registry.GetMarketConfig(id)
	if !cfg.Initialized {
		return 0, nil, fmt.Errorf("create market %d: no governance config: %w", id, types.ErrConfig)
	}
	if !f.vault.IsEnabled(cfg.CollateralToken) {
		return 0, nil, fmt.Errorf("create market %d: collateral %s is not enabled: %w",
			id, cfg.CollateralToken.Hex(), types.ErrConfig)
	}

	engine, err := orderbook.New(&orderbook.Config{
		MarketID:   id,
		QuoteToken: cfg.CollateralToken,
		DustToken:  f.vault.DustToken(),
		Ledger:     f.ledger,
		Duration:   cfg.Duration,
		Sink:       f.sink,
		Logger:     f.logger,
		Now:        f.now,
	})
	if err != nil {
		return 0, nil, fmt.Errorf("create market %d: %w", id, err)
	}

	f.nextID++
	f.engines[id] = engine
	f.infos[id] = types.MarketInfo{
		MarketID:  id,
		CreatedAt: engine.CreatedAt(),
		ExpiresAt: engine.ExpiresAt(),
	}

	MarketsCreatedTotal.Inc()
	f.logger.Info("market-created",
		zap.Uint64("market-id", id),
		zap.String("collateral-token", cfg.CollateralToken.Hex()),
		zap.Duration("duration", cfg.Duration))
	return id, engine, nil
}

// MarketID returns the current counter value: the id the next market will
// get, which is also the number of markets created so far.
func (f *Factory) MarketID() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.nextID
}

// GetMarketInfo returns the engine handle and creation metadata for an
// existing market.
func (f *Factory) GetMarketInfo(marketID uint64) (*orderbook.Engine, types.MarketInfo, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	engine, ok := f.engines[marketID]
	if !ok {
		return nil, types.MarketInfo{}, fmt.Errorf("market %d: %w", marketID, types.ErrNotFound)
	}
	return engine, f.infos[marketID], nil
}
