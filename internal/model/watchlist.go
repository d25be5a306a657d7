package model

import (
	"MomentumDashboard/internal/calendar"

	"github.com/shopspring/decimal"
)

// WatchlistEntry is one ticker of the watchlist with its last purchase, if any.
type WatchlistEntry struct {
	Ticker        string
	PurchaseDate  calendar.NullDate
	PurchasePrice decimal.NullDecimal
}
