package collector

import (
	"context"
	"errors"
	"fmt"

	"MomentumDashboard/internal/calculator"
	"MomentumDashboard/internal/calendar"
	"MomentumDashboard/internal/logger"
	"MomentumDashboard/internal/model"

	"github.com/phuslu/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Collector resolves quotes and anchor closes for each watchlist entry and
// computes its momentum record.
type Collector struct {
	Source       Source
	Months       []int
	LookbackDays int
	// Parallelism bounds how many tickers are resolved at once.
	Parallelism int
	// TolerateErrors degrades fetch failures to missing values instead of
	// failing the run.
	TolerateErrors bool
	Logger         *log.Logger
	// Today returns the run date; calendar.Today when nil.
	Today func() calendar.Date
}

// NewCollector creates a sequential Collector. A nil logger discards output.
func NewCollector(src Source, months []int, lookbackDays int, lg *log.Logger) *Collector {
	if lg == nil {
		lg = logger.Nop()
	}
	return &Collector{
		Source:       src,
		Months:       months,
		LookbackDays: lookbackDays,
		Parallelism:  1,
		Logger:       lg,
	}
}

func (c *Collector) today() calendar.Date {
	if c.Today != nil {
		return c.Today()
	}
	return calendar.Today()
}

// CollectAll builds one record per entry, in entry order. Each ticker is an
// independent task; results are merged only after every task finished.
func (c *Collector) CollectAll(ctx context.Context, entries []model.WatchlistEntry) ([]model.MomentumRecord, error) {
	today := c.today()
	anchors := calendar.AnchorDates(today, c.Months)
	records := make([]model.MomentumRecord, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	limit := c.Parallelism
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, entry := range entries {
		g.Go(func() error {
			rec, err := c.collect(gctx, entry, today, anchors)
			if err != nil {
				return err
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// Collect builds the record of a single entry as of today.
func (c *Collector) Collect(ctx context.Context, entry model.WatchlistEntry) (model.MomentumRecord, error) {
	today := c.today()
	return c.collect(ctx, entry, today, calendar.AnchorDates(today, c.Months))
}

func (c *Collector) collect(ctx context.Context, entry model.WatchlistEntry, today calendar.Date, targets []calendar.Date) (model.MomentumRecord, error) {
	rec := model.MomentumRecord{
		Ticker:        entry.Ticker,
		PurchaseDate:  entry.PurchaseDate,
		PurchasePrice: entry.PurchasePrice,
		Anchors:       make([]model.Anchor, len(c.Months)),
	}

	q, err := c.Source.Quote(ctx, entry.Ticker)
	if err != nil {
		if ferr := c.fail(ctx, entry.Ticker, StageQuote, err); ferr != nil {
			return rec, ferr
		}
		q = model.Quote{}
	}
	rec.Name = q.Name
	rec.Beta = q.Beta
	rec.MarketCapBillions = calculator.MarketCapBillions(q.MarketCap)
	rec.RecentPrice = q.Price
	rec.RecentPriceTime = q.Time
	if !q.Price.Valid && err == nil {
		c.Logger.Warn().Str("ticker", entry.Ticker).Msg("quote has no price")
	}

	for i, months := range c.Months {
		a := model.Anchor{Months: months, Target: targets[i]}
		pt, err := ResolveClose(ctx, c.Source, entry.Ticker, a.Target, today, c.LookbackDays)
		switch {
		case err == nil:
			a.Point = &pt
			a.Change = calculator.AnnualizedChange(rec.RecentPrice, decimal.NewNullDecimal(pt.Close), months)
		case errors.Is(err, ErrNotFound):
			c.Logger.Warn().Str("ticker", entry.Ticker).Int("months", months).Stringer("target", a.Target).Msg("anchor close not found")
		default:
			stage := fmt.Sprintf("%s -%dmo", StageAnchor, months)
			if ferr := c.fail(ctx, entry.Ticker, stage, err); ferr != nil {
				return rec, ferr
			}
		}
		rec.Anchors[i] = a
	}

	rec.DaysSincePurchase = calculator.DaysBetween(entry.PurchaseDate, rec.RecentPriceTime)
	rec.SincePurchaseChange = calculator.SincePurchaseChange(rec.RecentPrice, entry.PurchasePrice, rec.DaysSincePurchase)

	c.Logger.Debug().Str("ticker", entry.Ticker).Ints("unresolved", rec.Unresolved()).Msg("ticker collected")
	return rec, nil
}

// fail returns the error that aborts the run, or nil when the failure is
// tolerated and only logged.
func (c *Collector) fail(ctx context.Context, ticker, stage string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if !c.TolerateErrors {
		return &StageError{Ticker: ticker, Stage: stage, Err: err}
	}
	c.Logger.Warn().Err(err).Str("ticker", ticker).Str("stage", stage).Msg("fetch failed, leaving value undefined")
	return nil
}
