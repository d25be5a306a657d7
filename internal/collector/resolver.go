package collector

import (
	"context"
	"fmt"

	"MomentumDashboard/internal/calendar"
	"MomentumDashboard/internal/model"
)

// DefaultLookbackDays covers a long weekend next to a holiday.
const DefaultLookbackDays = 5

// LookbackWindow returns the inclusive day range searched for target, the
// lookbackDays days before it: [target-lookbackDays, target-1]. The range
// never reaches today: an unclosed session is not a historical close.
func LookbackWindow(target, today calendar.Date, lookbackDays int) (from, to calendar.Date) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	to = target.Add(-1)
	if !to.Before(today) {
		to = today.Add(-1)
	}
	return to.Add(-(lookbackDays - 1)), to
}

// ResolveClose returns the close of the latest trading day before target
// within the lookback window. The target day itself is excluded. The query covers this ticker alone, so
// a holiday on another exchange cannot blank it out. It returns ErrNotFound
// when the window holds no trading day; callers must not widen the window.
func ResolveClose(ctx context.Context, src Source, ticker string, target, today calendar.Date, lookbackDays int) (model.PricePoint, error) {
	from, to := LookbackWindow(target, today, lookbackDays)
	points, err := src.DailyCloses(ctx, ticker, from, to)
	if err != nil {
		return model.PricePoint{}, fmt.Errorf("daily closes %s..%s: %w", from, to, err)
	}

	var best *model.PricePoint
	for i := range points {
		p := &points[i]
		if p.Date.Before(from) || p.Date.After(to) {
			continue
		}
		if best == nil || p.Date.After(best.Date) {
			best = p
		}
	}
	if best == nil {
		return model.PricePoint{}, fmt.Errorf("%s before %s: %w", ticker, target, ErrNotFound)
	}
	pp := *best
	pp.Ticker = ticker
	return pp, nil
}
