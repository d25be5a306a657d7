package model

import (
	"MomentumDashboard/internal/calendar"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
)

// Anchor is one historical lookback point of a record.
type Anchor struct {
	Months int
	Target calendar.Date
	Point  *PricePoint // nil when no close was found in the lookback window
	Change null.Float  // annualized % change from Point to the recent price
}

// MomentumRecord is the fully computed row of one ticker.
type MomentumRecord struct {
	Ticker              string
	Name                null.String
	Beta                null.Float
	MarketCapBillions   null.Float
	RecentPrice         decimal.NullDecimal
	RecentPriceTime     null.Time
	Anchors             []Anchor
	PurchaseDate        calendar.NullDate
	PurchasePrice       decimal.NullDecimal
	DaysSincePurchase   null.Int
	SincePurchaseChange null.Float
}

// Changes returns the anchor changes in anchor order.
func (r *MomentumRecord) Changes() []null.Float {
	out := make([]null.Float, len(r.Anchors))
	for i, a := range r.Anchors {
		out[i] = a.Change
	}
	return out
}

// Unresolved returns the month counts whose anchor price could not be found.
func (r *MomentumRecord) Unresolved() []int {
	var out []int
	for _, a := range r.Anchors {
		if a.Point == nil {
			out = append(out, a.Months)
		}
	}
	return out
}
