package app

import (
	"context"
	"fmt"

	"github.com/timeflowlabs/timeflow/internal/circuitbreaker"
	"github.com/timeflowlabs/timeflow/internal/factory"
	"github.com/timeflowlabs/timeflow/internal/ledger"
	"github.com/timeflowlabs/timeflow/internal/orderbook"
	"github.com/timeflowlabs/timeflow/internal/registry"
	"github.com/timeflowlabs/timeflow/internal/storage"
	"github.com/timeflowlabs/timeflow/internal/vault"
	"github.com/timeflowlabs/timeflow/pkg/cache"
	"github.com/timeflowlabs/timeflow/pkg/config"
	"github.com/timeflowlabs/timeflow/pkg/healthprobe"
	"github.com/timeflowlabs/timeflow/pkg/httpserver"
	"github.com/timeflowlabs/timeflow/pkg/types"
	"github.com/timeflowlabs/timeflow/pkg/websocket"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	readCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: cfg.CacheNumCounters,
		MaxCost:     cfg.CacheMaxCost,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	auditStorage, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	fillHub := websocket.NewHub(&websocket.Config{
		SendBufferSize: cfg.WSSendBufferSize,
		Logger:         logger,
	})

	storageBreaker, err := circuitbreaker.New(&circuitbreaker.Config{
		FailureThreshold: cfg.StorageBreakerThreshold,
		Cooldown:         cfg.StorageBreakerCooldown,
		Logger:           logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage breaker: %w", err)
	}

	sharedLedger := ledger.New(logger)

	coreVault, err := vault.New(&vault.Config{
		Admin:     cfg.AdminAddress,
		DustToken: cfg.DustTokenAddress,
		Ledger:    sharedLedger,
		Logger:    logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup vault: %w", err)
	}

	govRegistry, err := registry.New(&registry.Config{
		Admin:  cfg.AdminAddress,
		Vault:  coreVault,
		Logger: logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup registry: %w", err)
	}

	marketFactory, err := factory.New(&factory.Config{
		Registry: govRegistry,
		Vault:    coreVault,
		Ledger:   sharedLedger,
		Sink: &fillRecorder{
			ctx:     ctx,
			storage: auditStorage,
			breaker: storageBreaker,
			hub:     fillHub,
			logger:  logger,
		},
		Logger: logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup factory: %w", err)
	}

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Registry:      govRegistry,
		Factory:       marketFactory,
		Vault:         coreVault,
		Cache:         readCache,
		CacheTTL:      cfg.CacheTTL,
		FillHub:       fillHub,
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		Ledger:        sharedLedger,
		Vault:         coreVault,
		Registry:      govRegistry,
		Factory:       marketFactory,
		storage:       auditStorage,
		fillHub:       fillHub,
		readCache:     readCache,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		return storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
	}
	return storage.NewConsoleStorage(logger), nil
}

// fillRecorder fans executed fills out to the audit store and the websocket
// feed. Implements orderbook.FillSink.
type fillRecorder struct {
	ctx     context.Context
	storage storage.Storage
	breaker *circuitbreaker.StorageCircuitBreaker
	hub     *websocket.Hub
	logger  *zap.Logger
}

var (
	_ orderbook.FillSink  = (*fillRecorder)(nil)
	_ orderbook.OrderSink = (*fillRecorder)(nil)
)

func (f *fillRecorder) OnFill(fill types.Fill) {
	f.write("fill-audit", fill.ID, func() error {
		return f.storage.StoreFill(f.ctx, &fill)
	})
	f.hub.OnFill(fill)
}

// OnOrder persists an order snapshot on every lifecycle change: posted,
// partially filled, filled, cancelled.
func (f *fillRecorder) OnOrder(order types.Order) {
	f.write("order-audit", fmt.Sprintf("%d/%d", order.MarketID, order.ID), func() error {
		return f.storage.StoreOrder(f.ctx, &order)
	})
}

// write runs one storage write behind the circuit breaker.
func (f *fillRecorder) write(kind, id string, store func() error) {
	if !f.breaker.Allow() {
		f.logger.Warn(kind+"-write-skipped", zap.String("id", id))
		return
	}
	if err := store(); err != nil {
		f.breaker.RecordFailure()
		f.logger.Error(kind+"-write-failed",
			zap.String("id", id),
			zap.Error(err))
		return
	}
	f.breaker.RecordSuccess()
}
