package storage

import (
	"context"

	"github.com/timeflowlabs/timeflow/pkg/types"
	"go.uber.org/zap"
)

// ConsoleStorage implements Storage by logging every record. Used when no
// database is configured.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		logger: logger,
	}
}

// StoreFill logs an executed fill.
func (c *ConsoleStorage) StoreFill(ctx context.Context, fill *types.Fill) error {
	c.logger.Info("fill-executed",
		zap.String("fill-id", fill.ID),
		zap.Uint64("market-id", fill.MarketID),
		zap.Uint64("buy-order-id", fill.BuyOrderID),
		zap.Uint64("sell-order-id", fill.SellOrderID),
		zap.String("maker", fill.Maker.Hex()),
		zap.String("taker", fill.Taker.Hex()),
		zap.String("quantity", fill.Quantity.String()),
		zap.String("price", fill.Price.String()))
	return nil
}

// StoreOrder logs an order snapshot.
func (c *ConsoleStorage) StoreOrder(ctx context.Context, order *types.Order) error {
	c.logger.Info("order-snapshot",
		zap.Uint64("market-id", order.MarketID),
		zap.Uint64("order-id", order.ID),
		zap.String("side", order.Side.String()),
		zap.String("state", order.State.String()),
		zap.String("remaining", order.Remaining.String()))
	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
