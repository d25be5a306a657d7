package calculator

import (
	"math"
	"time"

	"MomentumDashboard/internal/calendar"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
)

// DaysPerYear is the annualization base for day-counted changes.
const DaysPerYear = 365

// AnnualizedChange returns ((recent/anchor)^(12/months) - 1) * 100.
// The result is undefined when either price is missing or not positive.
func AnnualizedChange(recent, anchor decimal.NullDecimal, months int) null.Float {
	if months <= 0 {
		return null.Float{}
	}
	return compound(recent, anchor, 12/float64(months))
}

// SincePurchaseChange returns ((recent/purchase)^(365/days) - 1) * 100.
// Zero or negative day counts (bought today, or a future-dated purchase)
// are undefined rather than infinite.
func SincePurchaseChange(recent, purchase decimal.NullDecimal, days null.Int) null.Float {
	if !days.Valid || days.Int64 <= 0 {
		return null.Float{}
	}
	return compound(recent, purchase, DaysPerYear/float64(days.Int64))
}

// DaysBetween counts calendar days from the purchase date to the local date
// of the quote timestamp.
func DaysBetween(purchase calendar.NullDate, quoted null.Time) null.Int {
	if !purchase.Valid || !quoted.Valid {
		return null.Int{}
	}
	on := calendar.FromTime(quoted.Time.In(time.Local))
	return null.IntFrom(int64(on.Sub(purchase.Date)))
}

// MarketCapBillions converts a raw market capitalization to billions.
func MarketCapBillions(cap null.Float) null.Float {
	if !cap.Valid {
		return null.Float{}
	}
	return null.FloatFrom(cap.Float64 / 1e9)
}

func compound(recent, base decimal.NullDecimal, exponent float64) null.Float {
	if !recent.Valid || !base.Valid || !recent.Decimal.IsPositive() || !base.Decimal.IsPositive() {
		return null.Float{}
	}
	ratio := recent.Decimal.InexactFloat64() / base.Decimal.InexactFloat64()
	pct := (math.Pow(ratio, exponent) - 1) * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return null.Float{}
	}
	return null.FloatFrom(pct)
}
