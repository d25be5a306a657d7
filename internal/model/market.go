package model

import (
	"MomentumDashboard/internal/calendar"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
)

// PricePoint is a dividend-adjusted close on an actual trading day, which may
// be earlier than the day that was asked for.
type PricePoint struct {
	Ticker string
	Date   calendar.Date
	Close  decimal.Decimal
}

// Quote is the most recent market snapshot for a ticker. Every field may be
// missing independently of the others.
type Quote struct {
	Ticker    string
	Name      null.String
	MarketCap null.Float // raw, in the listing currency
	Beta      null.Float
	Price     decimal.NullDecimal
	Time      null.Time
}
