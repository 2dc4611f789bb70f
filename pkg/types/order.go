package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Side represents the buy/sell direction of an order. Values match the
// on-chain OrderType enum (buy=0, sell=1).
type Side uint8

const (
	Buy Side = iota
	Sell
)

// String returns "BUY" or "SELL".
func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the counter side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderState is the lifecycle state of an order. Transitions are monotonic:
// Open -> PartiallyFilled -> Filled, or (Open|PartiallyFilled) -> Cancelled.
// Filled and Cancelled are terminal.
type OrderState uint8

const (
	Open OrderState = iota
	PartiallyFilled
	Filled
	Cancelled
)

// String returns the state name.
func (s OrderState) String() string {
	switch s {
	case Open:
		return "OPEN"
	case PartiallyFilled:
		return "PARTIALLY_FILLED"
	case Filled:
		return "FILLED"
	case Cancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transitions are possible.
func (s OrderState) Terminal() bool {
	return s == Filled || s == Cancelled
}

// Order is a resting limit order on a market's book. Quantity and UnitPrice
// are integer token amounts (18-decimal wei scale for prices); the engine is
// the sole mutator of Remaining and State.
type Order struct {
	ID        uint64         `json:"id"`
	MarketID  uint64         `json:"market_id"`
	Side      Side           `json:"side"`
	Owner     common.Address `json:"owner"`
	Quantity  *big.Int       `json:"quantity"`
	UnitPrice *big.Int       `json:"unit_price"`
	Remaining *big.Int       `json:"remaining"`
	State     OrderState     `json:"state"`
	CreatedAt time.Time      `json:"created_at"`
}

// FilledQuantity derives the filled amount; Quantity == FilledQuantity + Remaining
// holds at all times.
func (o *Order) FilledQuantity() *big.Int {
	return new(big.Int).Sub(o.Quantity, o.Remaining)
}

// Fill records a single trade between a resting maker order and an incoming
// taker. Price is always the maker's posted price.
type Fill struct {
	ID          string         `json:"id"`
	MarketID    uint64         `json:"market_id"`
	BuyOrderID  uint64         `json:"buy_order_id"`
	SellOrderID uint64         `json:"sell_order_id"`
	Maker       common.Address `json:"maker"`
	Taker       common.Address `json:"taker"`
	Quantity    *big.Int       `json:"quantity"`
	Price       *big.Int       `json:"price"`
	Timestamp   time.Time      `json:"timestamp"`
}
