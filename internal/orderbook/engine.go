package orderbook

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/timeflowlabs/timeflow/internal/ledger"
	"github.com/timeflowlabs/timeflow/pkg/types"
	"go.uber.org/zap"
)

// FillSink receives executed fills after they commit. Implementations must
// not call back into the engine.
type FillSink interface {
	OnFill(fill types.Fill)
}

// OrderSink is optionally implemented by a FillSink to also receive order
// snapshots whenever an order is posted or changes state. Same contract as
// FillSink: no calls back into the engine.
type OrderSink interface {
	OnOrder(order types.Order)
}

// Engine is the per-market order book. Posting (PutTrade) and matching
// (MatchTrade) are deliberately separate state transitions: the engine never
// matches on its own, callers pick the counter-orders. Buy orders lock
// quantity*price of the market's quote token, sell orders lock quantity of
// Dust; matching settles between the taker's free balances and the maker's
// locked ones at the maker's posted price.
//
// Each mutating call commits fully or not at all: MatchTrade plans the whole
// walk against the supplied counter-orders first and touches neither orders
// nor balances unless every step validates.
type Engine struct {
	mu          sync.RWMutex
	marketID    uint64
	quoteToken  common.Address
	dustToken   common.Address
	ledger      *ledger.Ledger
	orders      map[uint64]*types.Order
	nextOrderID uint64
	createdAt   time.Time
	expiresAt   time.Time
	sink        FillSink
	logger      *zap.Logger
	now         func() time.Time
}

// Config holds engine construction parameters.
type Config struct {
	MarketID   uint64
	QuoteToken common.Address
	DustToken  common.Address
	Ledger     *ledger.Ledger
	Duration   time.Duration
	Sink       FillSink // optional
	Logger     *zap.Logger
	Now        func() time.Time // optional, defaults to time.Now
}

// New creates an engine with an empty book.
func New(cfg *Config) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil: %w", types.ErrConfig)
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ledger cannot be nil: %w", types.ErrConfig)
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil: %w", types.ErrConfig)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	createdAt := now()

	return &Engine{
		marketID:   cfg.MarketID,
		quoteToken: cfg.QuoteToken,
		dustToken:  cfg.DustToken,
		ledger:     cfg.Ledger,
		orders:     make(map[uint64]*types.Order),
		createdAt:  createdAt,
		expiresAt:  createdAt.Add(cfg.Duration),
		sink:       cfg.Sink,
		logger:     cfg.Logger,
		now:        now,
	}, nil
}

// MarketID returns the market this engine serves.
func (e *Engine) MarketID() uint64 { return e.marketID }

// CreatedAt returns the engine's creation time.
func (e *Engine) CreatedAt() time.Time { return e.createdAt }

// ExpiresAt returns creation time plus the configured market duration.
func (e *Engine) ExpiresAt() time.Time { return e.expiresAt }

// PutTrade posts a resting limit order and locks the funds backing it.
// Returns the new order's id. No matching is attempted.
func (e *Engine) PutTrade(caller common.Address, side types.Side, quantity, unitPrice *big.Int) (uint64, error) {
	if err := validateOrderParams(side, quantity, unitPrice); err != nil {
		OrderRejectsTotal.WithLabelValues("invalid_params").Inc()
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Lock the backing funds before the order exists, so a shortfall
	// leaves the book untouched.
	var err error
	if side == types.Buy {
		cost := new(big.Int).Mul(quantity, unitPrice)
		err = e.ledger.Lock(e.quoteToken, caller, cost)
	} else {
		err = e.ledger.Lock(e.dustToken, caller, quantity)
	}
	if err != nil {
		OrderRejectsTotal.WithLabelValues("insufficient_balance").Inc()
		return 0, fmt.Errorf("put trade: %w", err)
	}

	id := e.nextOrderID
	e.nextOrderID++

	e.orders[id] = &types.Order{
		ID:        id,
		MarketID:  e.marketID,
		Side:      side,
		Owner:     caller,
		Quantity:  new(big.Int).Set(quantity),
		UnitPrice: new(big.Int).Set(unitPrice),
		Remaining: new(big.Int).Set(quantity),
		State:     types.Open,
		CreatedAt: e.now(),
	}

	OrdersPostedTotal.WithLabelValues(side.String()).Inc()
	e.logger.Info("order-posted",
		zap.Uint64("market-id", e.marketID),
		zap.Uint64("order-id", id),
		zap.String("side", side.String()),
		zap.String("quantity", quantity.String()),
		zap.String("unit-price", unitPrice.String()),
		zap.String("owner", caller.Hex()))
	e.emitOrder(e.orders[id])
	return id, nil
}

// plannedFill is one step of a MatchTrade walk, computed before anything
// commits.
type plannedFill struct {
	maker    *types.Order
	quantity *big.Int
	cost     *big.Int // quantity * maker price
}

// MatchTrade fills an incoming taker order against the named resting
// counter-orders, in the caller-supplied sequence, at each maker's posted
// price. It stops once the incoming quantity is exhausted; surplus ids are
// ignored. An unfilled remainder is NOT posted to the book — the taker
// order record closes as Cancelled for whatever did not fill, and the
// caller posts the remainder with PutTrade if it wants it resting.
//
// Any failure on an id reached before the incoming quantity is exhausted
// aborts the entire call with no effects. A ledger error during the commit
// phase is different: the plan phase guarantees funds, so one indicates
// locked accounting no longer matches the book. The call returns the error
// without rolling back fills already settled.
func (e *Engine) MatchTrade(caller common.Address, side types.Side, quantity, unitPrice *big.Int, counterOrderIDs []uint64) (types.Order, []types.Fill, error) {
	if err := validateOrderParams(side, quantity, unitPrice); err != nil {
		MatchRejectsTotal.WithLabelValues("invalid_params").Inc()
		return types.Order{}, nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Plan phase: walk the counter-orders and validate every step against
	// a scratch view of their remaining quantities. Nothing mutates here.
	remaining := new(big.Int).Set(quantity)
	scratch := make(map[uint64]*big.Int)
	var planned []plannedFill
	takerOwed := big.NewInt(0) // quote for a buy, Dust for a sell

	for _, counterID := range counterOrderIDs {
		if remaining.Sign() == 0 {
			break // leftover ids are ignored, not validated
		}

		maker, ok := e.orders[counterID]
		if !ok {
			MatchRejectsTotal.WithLabelValues("order_not_found").Inc()
			return types.Order{}, nil, fmt.Errorf("match trade: counter order %d: %w", counterID, types.ErrOrderNotFound)
		}

		makerRemaining, seen := scratch[counterID]
		if !seen {
			makerRemaining = new(big.Int).Set(maker.Remaining)
		}
		if maker.State.Terminal() || makerRemaining.Sign() == 0 {
			MatchRejectsTotal.WithLabelValues("order_not_open").Inc()
			return types.Order{}, nil, fmt.Errorf("match trade: counter order %d is %s: %w",
				counterID, maker.State, types.ErrOrderNotOpen)
		}
		if maker.Side != side.Opposite() {
			MatchRejectsTotal.WithLabelValues("same_side").Inc()
			return types.Order{}, nil, fmt.Errorf("match trade: counter order %d is also %s: %w",
				counterID, maker.Side, types.ErrPriceMismatch)
		}
		if !pricesCross(side, unitPrice, maker.UnitPrice) {
			MatchRejectsTotal.WithLabelValues("price_mismatch").Inc()
			return types.Order{}, nil, fmt.Errorf("match trade: %s at %s does not cross counter order %d at %s: %w",
				side, unitPrice, counterID, maker.UnitPrice, types.ErrPriceMismatch)
		}

		fillQty := new(big.Int).Set(remaining)
		if makerRemaining.Cmp(fillQty) < 0 {
			fillQty.Set(makerRemaining)
		}
		cost := new(big.Int).Mul(fillQty, maker.UnitPrice)

		if side == types.Buy {
			takerOwed.Add(takerOwed, cost)
		} else {
			takerOwed.Add(takerOwed, fillQty)
		}

		planned = append(planned, plannedFill{maker: maker, quantity: fillQty, cost: cost})
		remaining.Sub(remaining, fillQty)
		scratch[counterID] = new(big.Int).Sub(makerRemaining, fillQty)
	}

	// The taker settles from free balance; verify it covers the whole walk
	// before committing anything.
	takerToken := e.quoteToken
	if side == types.Sell {
		takerToken = e.dustToken
	}
	if e.ledger.Balance(takerToken, caller).Cmp(takerOwed) < 0 {
		MatchRejectsTotal.WithLabelValues("insufficient_balance").Inc()
		return types.Order{}, nil, fmt.Errorf("match trade: taker owes %s: %w", takerOwed, types.ErrInsufficientBalance)
	}

	// Commit phase. The taker balance is checked above and each maker's
	// locked funds cover its remaining by construction of PutTrade.
	takerID := e.nextOrderID
	e.nextOrderID++

	taker := &types.Order{
		ID:        takerID,
		MarketID:  e.marketID,
		Side:      side,
		Owner:     caller,
		Quantity:  new(big.Int).Set(quantity),
		UnitPrice: new(big.Int).Set(unitPrice),
		Remaining: remaining,
		CreatedAt: e.now(),
	}
	e.orders[takerID] = taker

	fills := make([]types.Fill, 0, len(planned))
	for _, pf := range planned {
		maker := pf.maker

		// The plan phase verified taker free balance and PutTrade locked
		// the maker funds, so a failure here means locked accounting has
		// diverged from the book. Abort loudly; fills settled earlier in
		// this loop are not rolled back.
		if err := e.settle(caller, side, pf); err != nil {
			delete(e.orders, takerID) // the id stays burned
			e.logger.Error("settlement-invariant-breach",
				zap.Uint64("market-id", e.marketID),
				zap.Uint64("taker-order-id", takerID),
				zap.Uint64("maker-order-id", maker.ID),
				zap.Error(err))
			return types.Order{}, nil, fmt.Errorf("match trade: settle against order %d: %w", maker.ID, err)
		}

		maker.Remaining = new(big.Int).Sub(maker.Remaining, pf.quantity)
		refreshState(maker)

		fill := types.Fill{
			ID:        uuid.New().String(),
			MarketID:  e.marketID,
			Maker:     maker.Owner,
			Taker:     caller,
			Quantity:  new(big.Int).Set(pf.quantity),
			Price:     new(big.Int).Set(maker.UnitPrice),
			Timestamp: e.now(),
		}
		if side == types.Buy {
			fill.BuyOrderID = takerID
			fill.SellOrderID = maker.ID
		} else {
			fill.BuyOrderID = maker.ID
			fill.SellOrderID = takerID
		}
		fills = append(fills, fill)
		TradesMatchedTotal.Inc()
	}

	// Close the taker record: Filled when fully matched, otherwise the
	// remainder is discarded rather than rested on the book.
	if remaining.Sign() == 0 {
		taker.State = types.Filled
	} else {
		taker.State = types.Cancelled
	}

	e.logger.Info("trade-matched",
		zap.Uint64("market-id", e.marketID),
		zap.Uint64("taker-order-id", takerID),
		zap.String("side", side.String()),
		zap.Int("fills", len(fills)),
		zap.String("unfilled", remaining.String()))

	if e.sink != nil {
		for _, f := range fills {
			e.sink.OnFill(f)
		}
	}
	for _, pf := range planned {
		e.emitOrder(pf.maker)
	}
	e.emitOrder(taker)
	return *taker, fills, nil
}

// CancelOrder transitions an Open or PartiallyFilled order to Cancelled and
// releases its remaining locked funds. Owner only.
func (e *Engine) CancelOrder(caller common.Address, orderID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	if !ok {
		return fmt.Errorf("cancel order %d: %w", orderID, types.ErrOrderNotFound)
	}
	if order.Owner != caller {
		return fmt.Errorf("cancel order %d: %w", orderID, types.ErrPermission)
	}
	if order.State.Terminal() {
		return fmt.Errorf("cancel order %d is %s: %w", orderID, order.State, types.ErrOrderNotOpen)
	}

	var err error
	if order.Side == types.Buy {
		refund := new(big.Int).Mul(order.Remaining, order.UnitPrice)
		err = e.ledger.Release(e.quoteToken, order.Owner, refund)
	} else {
		err = e.ledger.Release(e.dustToken, order.Owner, order.Remaining)
	}
	if err != nil {
		return fmt.Errorf("cancel order %d release: %w", orderID, err)
	}

	order.State = types.Cancelled
	CancelsTotal.Inc()
	e.logger.Info("order-cancelled",
		zap.Uint64("market-id", e.marketID),
		zap.Uint64("order-id", orderID),
		zap.String("released", order.Remaining.String()))
	e.emitOrder(order)
	return nil
}

// GetOrderInfo returns a copy of the order.
func (e *Engine) GetOrderInfo(orderID uint64) (types.Order, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	order, ok := e.orders[orderID]
	if !ok {
		return types.Order{}, fmt.Errorf("order %d: %w", orderID, types.ErrOrderNotFound)
	}
	return copyOrder(order), nil
}

// GetOrderState returns the order's lifecycle state.
func (e *Engine) GetOrderState(orderID uint64) (types.OrderState, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	order, ok := e.orders[orderID]
	if !ok {
		return 0, fmt.Errorf("order %d: %w", orderID, types.ErrOrderNotFound)
	}
	return order.State, nil
}

// Orders returns a snapshot of every order on the market, resting or
// terminal, in id order.
func (e *Engine) Orders() []types.Order {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]types.Order, 0, len(e.orders))
	for id := uint64(0); id < e.nextOrderID; id++ {
		if order, ok := e.orders[id]; ok {
			out = append(out, copyOrder(order))
		}
	}
	return out
}

// settle moves one planned fill's funds: the taker pays from free balance,
// the maker delivers from the funds locked when its order was posted.
func (e *Engine) settle(taker common.Address, side types.Side, pf plannedFill) error {
	if side == types.Buy {
		if err := e.ledger.Transfer(e.quoteToken, taker, pf.maker.Owner, pf.cost); err != nil {
			return err
		}
		return e.ledger.SpendLocked(e.dustToken, pf.maker.Owner, taker, pf.quantity)
	}
	if err := e.ledger.Transfer(e.dustToken, taker, pf.maker.Owner, pf.quantity); err != nil {
		return err
	}
	return e.ledger.SpendLocked(e.quoteToken, pf.maker.Owner, taker, pf.cost)
}

// emitOrder hands a detached snapshot to the sink when it also implements
// OrderSink.
func (e *Engine) emitOrder(o *types.Order) {
	if os, ok := e.sink.(OrderSink); ok {
		os.OnOrder(copyOrder(o))
	}
}

func validateOrderParams(side types.Side, quantity, unitPrice *big.Int) error {
	if side != types.Buy && side != types.Sell {
		return fmt.Errorf("unknown side %d: %w", side, types.ErrInvalidOrder)
	}
	if quantity == nil || quantity.Sign() <= 0 {
		return fmt.Errorf("non-positive quantity: %w", types.ErrInvalidOrder)
	}
	if unitPrice == nil || unitPrice.Sign() <= 0 {
		return fmt.Errorf("non-positive price: %w", types.ErrInvalidOrder)
	}
	return nil
}

// pricesCross implements the inclusive crossing rule: a buy crosses a
// resting sell when buy price >= sell price, a sell crosses a resting buy
// when sell price <= buy price.
func pricesCross(takerSide types.Side, takerPrice, makerPrice *big.Int) bool {
	if takerSide == types.Buy {
		return takerPrice.Cmp(makerPrice) >= 0
	}
	return takerPrice.Cmp(makerPrice) <= 0
}

// refreshState derives the state from remaining quantity; cancellation is
// the only transition not derivable this way.
func refreshState(o *types.Order) {
	if o.State == types.Cancelled {
		return
	}
	switch {
	case o.Remaining.Sign() == 0:
		o.State = types.Filled
	case o.Remaining.Cmp(o.Quantity) < 0:
		o.State = types.PartiallyFilled
	default:
		o.State = types.Open
	}
}

func copyOrder(o *types.Order) types.Order {
	cp := *o
	cp.Quantity = new(big.Int).Set(o.Quantity)
	cp.UnitPrice = new(big.Int).Set(o.UnitPrice)
	cp.Remaining = new(big.Int).Set(o.Remaining)
	return cp
}
