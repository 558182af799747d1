package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is the immutable record of a settled order. Action is the direction
// that will close the position later; the ledger never updates a trade.
type Trade struct {
	ID         string
	OwnerID    string
	Instrument string
	Exchange   Exchange
	Side       Side
	Action     Side
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	OrderID    string
	CreatedAt  time.Time
}
