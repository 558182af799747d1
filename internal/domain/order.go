package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string
type OrderKind string
type OrderStatus string
type Exchange string

const (
	Buy  Side = "buy"
	Sell Side = "sell"

	KindBid      OrderKind = "bid"
	KindStopLoss OrderKind = "stoploss"

	Active    OrderStatus = "active"
	Fulfilled OrderStatus = "fulfilled"
	Canceled  OrderStatus = "canceled"
	Expired   OrderStatus = "expired"

	MCX Exchange = "MCX"
	NSE Exchange = "NSE"
)

// Order is a client's conditional intent against an instrument. For a bid,
// Price is the limit price; for a stop-loss it is the stop price.
type Order struct {
	ID         string
	OwnerID    string
	Instrument string
	Kind       OrderKind
	Side       Side
	Price      decimal.Decimal
	Quantity   decimal.Decimal
	Status     OrderStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Terminal reports whether the status permits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == Fulfilled || s == Canceled || s == Expired
}

// CanTransition encodes the one-directional lifecycle: active may move to
// any terminal state, terminal states never move again.
func (o *Order) CanTransition(to OrderStatus) bool {
	return o.Status == Active && to.Terminal()
}

func ValidSide(s Side) bool {
	return s == Buy || s == Sell
}

func ValidExchange(e Exchange) bool {
	return e == MCX || e == NSE
}

// Opposite returns the closing direction for a trade of the given side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}
