package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/timeflowlabs/timeflow/pkg/types"
	"go.uber.org/zap"
)

// PostgresStorage implements Storage using PostgreSQL. Amounts are stored
// as NUMERIC strings so 18-decimal values survive round trips.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// StoreFill inserts an executed fill into the audit table.
func (p *PostgresStorage) StoreFill(ctx context.Context, fill *types.Fill) error {
	query := `
		INSERT INTO fills (
			id, market_id, buy_order_id, sell_order_id,
			maker, taker, quantity, price, executed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		fill.ID,
		fill.MarketID,
		fill.BuyOrderID,
		fill.SellOrderID,
		fill.Maker.Hex(),
		fill.Taker.Hex(),
		fill.Quantity.String(),
		fill.Price.String(),
		fill.Timestamp,
	)
	if err != nil {
		StoreErrorsTotal.Inc()
		return fmt.Errorf("insert fill: %w", err)
	}

	p.logger.Debug("fill-stored",
		zap.String("fill-id", fill.ID),
		zap.Uint64("market-id", fill.MarketID))
	return nil
}

// StoreOrder upserts the latest snapshot of an order.
func (p *PostgresStorage) StoreOrder(ctx context.Context, order *types.Order) error {
	query := `
		INSERT INTO orders (
			market_id, order_id, side, owner,
			quantity, unit_price, remaining, state, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (market_id, order_id) DO UPDATE SET
			remaining = EXCLUDED.remaining,
			state = EXCLUDED.state
	`

	_, err := p.db.ExecContext(ctx, query,
		order.MarketID,
		order.ID,
		order.Side.String(),
		order.Owner.Hex(),
		order.Quantity.String(),
		order.UnitPrice.String(),
		order.Remaining.String(),
		order.State.String(),
		order.CreatedAt,
	)
	if err != nil {
		StoreErrorsTotal.Inc()
		return fmt.Errorf("upsert order: %w", err)
	}

	p.logger.Debug("order-stored",
		zap.Uint64("market-id", order.MarketID),
		zap.Uint64("order-id", order.ID),
		zap.String("state", order.State.String()))
	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
