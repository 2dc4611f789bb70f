package storage

import (
	"context"

	"github.com/timeflowlabs/timeflow/pkg/types"
)

// Storage is the audit sink for executed fills and order snapshots.
type Storage interface {
	// StoreFill persists an executed fill.
	StoreFill(ctx context.Context, fill *types.Fill) error

	// StoreOrder persists an order snapshot (posted, filled or cancelled).
	StoreOrder(ctx context.Context, order *types.Order) error

	// Close closes the storage connection.
	Close() error
}
