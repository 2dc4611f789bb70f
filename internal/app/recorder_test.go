package app

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/timeflowlabs/timeflow/internal/circuitbreaker"
	"github.com/timeflowlabs/timeflow/pkg/types"
	"github.com/timeflowlabs/timeflow/pkg/websocket"
	"go.uber.org/zap"
)

type fakeStorage struct {
	fills  []types.Fill
	orders []types.Order
	fail   bool
}

func (s *fakeStorage) StoreFill(_ context.Context, fill *types.Fill) error {
	if s.fail {
		return fmt.Errorf("db down")
	}
	s.fills = append(s.fills, *fill)
	return nil
}

func (s *fakeStorage) StoreOrder(_ context.Context, order *types.Order) error {
	if s.fail {
		return fmt.Errorf("db down")
	}
	s.orders = append(s.orders, *order)
	return nil
}

func (s *fakeStorage) Close() error { return nil }

func newRecorder(t *testing.T, store *fakeStorage, threshold int) *fillRecorder {
	t.Helper()

	breaker, err := circuitbreaker.New(&circuitbreaker.Config{
		FailureThreshold: threshold,
		Cooldown:         time.Hour,
		Logger:           zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("circuitbreaker.New failed: %v", err)
	}
	return &fillRecorder{
		ctx:     context.Background(),
		storage: store,
		breaker: breaker,
		hub:     websocket.NewHub(&websocket.Config{SendBufferSize: 1, Logger: zap.NewNop()}),
		logger:  zap.NewNop(),
	}
}

func TestRecorderPersistsFillsAndOrders(t *testing.T) {
	store := &fakeStorage{}
	rec := newRecorder(t, store, 3)

	rec.OnFill(types.Fill{ID: "f-1", MarketID: 0, Quantity: big.NewInt(10), Price: big.NewInt(100)})
	rec.OnOrder(types.Order{
		ID:        7,
		MarketID:  0,
		Quantity:  big.NewInt(10),
		UnitPrice: big.NewInt(100),
		Remaining: big.NewInt(0),
		State:     types.Filled,
	})

	if len(store.fills) != 1 || store.fills[0].ID != "f-1" {
		t.Errorf("Expected 1 stored fill, got %+v", store.fills)
	}
	if len(store.orders) != 1 || store.orders[0].ID != 7 || store.orders[0].State != types.Filled {
		t.Errorf("Expected order 7 FILLED stored, got %+v", store.orders)
	}
}

func TestRecorderOpensBreakerOnFailures(t *testing.T) {
	store := &fakeStorage{fail: true}
	rec := newRecorder(t, store, 2)

	order := types.Order{ID: 1, Quantity: big.NewInt(1), UnitPrice: big.NewInt(1), Remaining: big.NewInt(1)}
	rec.OnOrder(order)
	rec.OnOrder(order)

	// The breaker is open now; a recovered store sees no writes until the
	// cooldown elapses.
	store.fail = false
	rec.OnOrder(order)
	if len(store.orders) != 0 {
		t.Errorf("Expected writes skipped while open, got %d", len(store.orders))
	}
	if status := rec.breaker.Status(); status.Closed {
		t.Error("Breaker should be open after consecutive failures")
	}
}
