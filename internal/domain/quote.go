package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the latest known market snapshot for one instrument. It is owned
// by the price feed store; the engine only ever reads a copy.
type Quote struct {
	Instrument     string          `json:"instrument"`
	Exchange       Exchange        `json:"exchange"`
	Bid            decimal.Decimal `json:"bid"`
	Ask            decimal.Decimal `json:"ask"`
	LastTradePrice decimal.Decimal `json:"last_trade_price"`
	LotSize        int64           `json:"lot_size"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
