package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"MomentumDashboard/internal/calendar"
	"MomentumDashboard/internal/model"

	"github.com/go-resty/resty/v2"
	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const eodhdBaseURL = "https://eodhd.com/api"

// EODHDOptions configures an EODHDSource.
type EODHDOptions struct {
	BaseURL string
	APIKey  string
	// DefaultExchange is appended to tickers without an exchange suffix.
	DefaultExchange string
	Proxy           string
	Timeout         time.Duration
	RateLimit       float64
}

// EODHDSource implements Source using the EODHD REST API.
type EODHDSource struct {
	client          *resty.Client
	limiter         *rate.Limiter
	defaultExchange string
}

// NewEODHDSource creates an EODHD source.
func NewEODHDSource(opts EODHDOptions) *EODHDSource {
	if opts.BaseURL == "" {
		opts.BaseURL = eodhdBaseURL
	}
	client := resty.NewWithClient(newHTTPClient(opts.Proxy, opts.Timeout)).
		SetBaseURL(opts.BaseURL).
		SetQueryParams(map[string]string{"api_token": opts.APIKey, "fmt": "json"})
	return &EODHDSource{
		client:          client,
		limiter:         newLimiter(opts.RateLimit),
		defaultExchange: opts.DefaultExchange,
	}
}

func (f *EODHDSource) Name() string { return "eodhd" }

// eodhdBar is one row of the /eod endpoint.
type eodhdBar struct {
	Date          string   `json:"date"`
	Close         *float64 `json:"close"`
	AdjustedClose *float64 `json:"adjusted_close"`
}

// eodhdRealTime is the /real-time answer. Fields are "NA" strings when the
// market has no data, so they are decoded loosely.
type eodhdRealTime struct {
	Code      string      `json:"code"`
	Timestamp interface{} `json:"timestamp"`
	Close     interface{} `json:"close"`
}

type eodhdFundamentals struct {
	General struct {
		Name string `json:"Name"`
	} `json:"General"`
	Highlights struct {
		MarketCapitalization *float64 `json:"MarketCapitalization"`
	} `json:"Highlights"`
	Technicals struct {
		Beta *float64 `json:"Beta"`
	} `json:"Technicals"`
}

// symbol maps a watchlist ticker to EODHD's TICKER.EXCHANGE form.
func (f *EODHDSource) symbol(ticker string) string {
	if f.defaultExchange == "" || strings.Contains(ticker, ".") {
		return ticker
	}
	return ticker + "." + f.defaultExchange
}

func (f *EODHDSource) get(ctx context.Context, path, ticker string, params map[string]string, result interface{}) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := f.client.R().
		SetContext(ctx).
		SetPathParam("symbol", f.symbol(ticker)).
		SetQueryParams(params).
		SetResult(result).
		Get(path)
	if err != nil {
		return fmt.Errorf("eodhd fetch: %w", err)
	}
	if resp.IsError() {
		return &APIError{Source: "eodhd", StatusCode: resp.StatusCode(), Endpoint: strings.ReplaceAll(path, "{symbol}", f.symbol(ticker)), Body: resp.String()}
	}
	return nil
}

func (f *EODHDSource) DailyCloses(ctx context.Context, ticker string, from, to calendar.Date) ([]model.PricePoint, error) {
	var bars []eodhdBar
	err := f.get(ctx, "/eod/{symbol}", ticker, map[string]string{
		"from":   from.String(),
		"to":     to.String(),
		"period": "d",
		"order":  "a",
	}, &bars)
	if err != nil {
		return nil, err
	}
	points := make([]model.PricePoint, 0, len(bars))
	for _, b := range bars {
		on, err := calendar.Parse(b.Date)
		if err != nil {
			return nil, fmt.Errorf("eodhd: bad bar date: %w", err)
		}
		v := b.AdjustedClose
		if v == nil {
			v = b.Close
		}
		if v == nil {
			continue
		}
		points = append(points, model.PricePoint{Ticker: ticker, Date: on, Close: decimal.NewFromFloat(*v)})
	}
	return points, nil
}

func (f *EODHDSource) Quote(ctx context.Context, ticker string) (model.Quote, error) {
	q := model.Quote{Ticker: ticker}
	var rt eodhdRealTime
	if err := f.get(ctx, "/real-time/{symbol}", ticker, nil, &rt); err != nil {
		return q, err
	}
	if v, ok := rt.Close.(float64); ok {
		q.Price = decimal.NewNullDecimal(decimal.NewFromFloat(v))
	}
	if ts, ok := rt.Timestamp.(float64); ok {
		q.Time = null.TimeFrom(time.Unix(int64(ts), 0))
	}

	var fund eodhdFundamentals
	if err := f.get(ctx, "/fundamentals/{symbol}", ticker, nil, &fund); err != nil {
		// fundamentals are a paid add-on; a quote without them is still a quote
		if ctx.Err() != nil {
			return q, ctx.Err()
		}
		return q, nil
	}
	if fund.General.Name != "" {
		q.Name = null.StringFrom(fund.General.Name)
	}
	q.MarketCap = null.FloatFromPtr(fund.Highlights.MarketCapitalization)
	q.Beta = null.FloatFromPtr(fund.Technicals.Beta)
	return q, nil
}
