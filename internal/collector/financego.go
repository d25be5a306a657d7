package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"MomentumDashboard/internal/calendar"
	"MomentumDashboard/internal/model"

	"github.com/guregu/null/v6"
	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// FinanceGoOptions configures a FinanceGoSource.
type FinanceGoOptions struct {
	BaseURL   string
	Proxy     string
	Timeout   time.Duration
	RateLimit float64
}

// FinanceGoSource implements Source with the piquette/finance-go client.
// Each source owns its backend, so the package level default stays untouched.
type FinanceGoSource struct {
	charts   chart.Client
	equities equity.Client
	limiter  *rate.Limiter
}

// NewFinanceGoSource creates a finance-go backed source.
func NewFinanceGoSource(opts FinanceGoOptions) *FinanceGoSource {
	if opts.BaseURL == "" {
		opts.BaseURL = finance.YFinURL
	}
	backend := &finance.BackendConfiguration{
		Type:       finance.YFinBackend,
		URL:        strings.TrimSuffix(opts.BaseURL, "/"),
		HTTPClient: newHTTPClient(opts.Proxy, opts.Timeout),
	}
	return &FinanceGoSource{
		charts:   chart.Client{B: backend},
		equities: equity.Client{B: backend},
		limiter:  newLimiter(opts.RateLimit),
	}
}

func (f *FinanceGoSource) Name() string { return "financego" }

// DailyCloses dates each bar in the exchange's time zone, like YahooSource.
func (f *FinanceGoSource) DailyCloses(ctx context.Context, ticker string, from, to calendar.Date) ([]model.PricePoint, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	start := from.Add(-1).Time(time.UTC)
	end := to.Add(2).Time(time.UTC)
	iter := f.charts.Get(&chart.Params{
		Params:   finance.Params{Context: &ctx},
		Symbol:   ticker,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("finance-go chart %s: %w", ticker, err)
	}

	meta := iter.Meta()
	loc := exchangeLocation(meta.ExchangeTimezoneName, meta.Gmtoffset)
	var points []model.PricePoint
	for iter.Next() {
		bar := iter.Bar()
		adj := bar.AdjClose
		if adj.IsZero() {
			adj = bar.Close
		}
		if adj.IsZero() {
			continue // null bar
		}
		on := calendar.FromTime(time.Unix(int64(bar.Timestamp), 0).In(loc))
		if on.Before(from) || on.After(to) {
			continue
		}
		points = append(points, model.PricePoint{
			Ticker: ticker,
			Date:   on,
			Close:  adj,
		})
	}
	return points, nil
}

func (f *FinanceGoSource) Quote(ctx context.Context, ticker string) (model.Quote, error) {
	q := model.Quote{Ticker: ticker}
	if err := f.limiter.Wait(ctx); err != nil {
		return q, err
	}
	iter := f.equities.ListP(&equity.Params{
		Params:  finance.Params{Context: &ctx},
		Symbols: []string{ticker},
	})
	if !iter.Next() {
		if err := iter.Err(); err != nil {
			return q, fmt.Errorf("finance-go equity %s: %w", ticker, err)
		}
		return q, fmt.Errorf("finance-go: unknown symbol %s", ticker)
	}
	eq := iter.Equity()
	switch {
	case eq.LongName != "":
		q.Name = null.StringFrom(eq.LongName)
	case eq.ShortName != "":
		q.Name = null.StringFrom(eq.ShortName)
	}
	if eq.RegularMarketPrice > 0 {
		q.Price = decimal.NewNullDecimal(decimal.NewFromFloat(eq.RegularMarketPrice))
	}
	if eq.RegularMarketTime > 0 {
		q.Time = null.TimeFrom(time.Unix(int64(eq.RegularMarketTime), 0))
	}
	if eq.MarketCap > 0 {
		q.MarketCap = null.FloatFrom(float64(eq.MarketCap))
	}
	// finance-go does not expose beta
	return q, nil
}
