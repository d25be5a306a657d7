package collector

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"MomentumDashboard/internal/calendar"
	"MomentumDashboard/internal/model"

	"github.com/go-resty/resty/v2"
	"github.com/guregu/null/v6"
	"github.com/phuslu/log"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	yahooBaseURL   = "https://query2.finance.yahoo.com"
	yahooCookieURL = "https://fc.yahoo.com"
)

// YahooOptions configures a YahooSource.
type YahooOptions struct {
	BaseURL   string
	CookieURL string
	Proxy     string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 means unlimited
	Logger    *log.Logger
}

// YahooSource implements Source using the public Yahoo Finance chart and
// quoteSummary endpoints.
type YahooSource struct {
	client    *resty.Client
	cookieURL string
	limiter   *rate.Limiter
	logger    *log.Logger

	mu    sync.Mutex
	crumb string
}

// NewYahooSource creates a Yahoo Finance source.
func NewYahooSource(opts YahooOptions) *YahooSource {
	if opts.BaseURL == "" {
		opts.BaseURL = yahooBaseURL
	}
	if opts.CookieURL == "" {
		opts.CookieURL = yahooCookieURL
	}
	client := resty.NewWithClient(newHTTPClient(opts.Proxy, opts.Timeout)).
		SetBaseURL(opts.BaseURL).
		SetHeader("User-Agent", "Mozilla/5.0")
	return &YahooSource{
		client:    client,
		cookieURL: opts.CookieURL,
		limiter:   newLimiter(opts.RateLimit),
		logger:    opts.Logger,
	}
}

func (f *YahooSource) Name() string { return "yahoo" }

// yahooChart is the response structure of the v8 chart API. Values are
// pointers because Yahoo reports holidays and halts as null rows.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol               string   `json:"symbol"`
				LongName             string   `json:"longName"`
				ShortName            string   `json:"shortName"`
				ExchangeTimezoneName string   `json:"exchangeTimezoneName"`
				GMTOffset            int      `json:"gmtoffset"`
				RegularMarketPrice   *float64 `json:"regularMarketPrice"`
				RegularMarketTime    *int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type yahooRaw struct {
	Raw *float64 `json:"raw"`
}

type yahooSummary struct {
	QuoteSummary struct {
		Result []struct {
			SummaryDetail struct {
				Beta      yahooRaw `json:"beta"`
				MarketCap yahooRaw `json:"marketCap"`
			} `json:"summaryDetail"`
			Price struct {
				LongName  string   `json:"longName"`
				MarketCap yahooRaw `json:"marketCap"`
			} `json:"price"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"quoteSummary"`
}

func (f *YahooSource) fetchChart(ctx context.Context, ticker string, params map[string]string) (*yahooChart, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var chart yahooChart
	resp, err := f.client.R().
		SetContext(ctx).
		SetPathParam("ticker", ticker).
		SetQueryParams(params).
		SetResult(&chart).
		SetError(&chart).
		Get("/v8/finance/chart/{ticker}")
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	// Yahoo answers unknown symbols with 404 and a JSON error body
	if chart.Chart.Error != nil {
		if resp.StatusCode() == http.StatusNotFound {
			return &yahooChart{}, nil
		}
		return nil, fmt.Errorf("yahoo api error: %s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if resp.IsError() {
		return nil, &APIError{Source: "yahoo", StatusCode: resp.StatusCode(), Endpoint: "/v8/finance/chart/" + ticker, Body: resp.String()}
	}
	return &chart, nil
}

// DailyCloses pads the requested range by a day on each side so exchanges
// far from UTC are covered, then keeps the days that fall in range in the
// exchange's own time zone.
func (f *YahooSource) DailyCloses(ctx context.Context, ticker string, from, to calendar.Date) ([]model.PricePoint, error) {
	chart, err := f.fetchChart(ctx, ticker, map[string]string{
		"period1":              strconv.FormatInt(from.Add(-1).Time(time.UTC).Unix(), 10),
		"period2":              strconv.FormatInt(to.Add(2).Time(time.UTC).Unix(), 10),
		"interval":             "1d",
		"events":               "div,split",
		"includeAdjustedClose": "true",
	})
	if err != nil {
		return nil, err
	}
	if len(chart.Chart.Result) == 0 {
		return nil, nil
	}

	result := chart.Chart.Result[0]
	loc := exchangeLocation(result.Meta.ExchangeTimezoneName, result.Meta.GMTOffset)
	var closes []*float64
	if len(result.Indicators.AdjClose) > 0 {
		closes = result.Indicators.AdjClose[0].AdjClose
	} else if len(result.Indicators.Quote) > 0 {
		closes = result.Indicators.Quote[0].Close
	}

	points := make([]model.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue // null bar (holiday, halt)
		}
		on := calendar.FromTime(time.Unix(ts, 0).In(loc))
		if on.Before(from) || on.After(to) {
			continue
		}
		points = append(points, model.PricePoint{
			Ticker: ticker,
			Date:   on,
			Close:  decimal.NewFromFloat(*closes[i]),
		})
	}
	return points, nil
}

// Quote reads price, time and name from the chart metadata, then adds
// beta and market cap from quoteSummary when Yahoo lets us.
func (f *YahooSource) Quote(ctx context.Context, ticker string) (model.Quote, error) {
	chart, err := f.fetchChart(ctx, ticker, map[string]string{"range": "1d", "interval": "1d"})
	if err != nil {
		return model.Quote{}, err
	}
	q := model.Quote{Ticker: ticker}
	if len(chart.Chart.Result) == 0 {
		return q, fmt.Errorf("yahoo: unknown symbol %s", ticker)
	}
	meta := chart.Chart.Result[0].Meta
	if meta.RegularMarketPrice != nil {
		q.Price = decimal.NewNullDecimal(decimal.NewFromFloat(*meta.RegularMarketPrice))
	}
	if meta.RegularMarketTime != nil {
		q.Time = null.TimeFrom(time.Unix(*meta.RegularMarketTime, 0))
	}
	switch {
	case meta.LongName != "":
		q.Name = null.StringFrom(meta.LongName)
	case meta.ShortName != "":
		q.Name = null.StringFrom(meta.ShortName)
	}

	if err := f.addSummary(ctx, ticker, &q); err != nil {
		if ctx.Err() != nil {
			return q, ctx.Err()
		}
		if f.logger != nil {
			f.logger.Warn().Err(err).Str("ticker", ticker).Msg("yahoo quoteSummary unavailable, beta and market cap left blank")
		}
	}
	return q, nil
}

func (f *YahooSource) addSummary(ctx context.Context, ticker string, q *model.Quote) error {
	crumb, err := f.getCrumb(ctx)
	if err != nil {
		return err
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}
	var summary yahooSummary
	resp, err := f.client.R().
		SetContext(ctx).
		SetPathParam("ticker", ticker).
		SetQueryParams(map[string]string{"modules": "summaryDetail,price", "crumb": crumb}).
		SetResult(&summary).
		SetError(&summary).
		Get("/v10/finance/quoteSummary/{ticker}")
	if err != nil {
		return fmt.Errorf("yahoo quoteSummary: %w", err)
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		f.resetCrumb()
	}
	if summary.QuoteSummary.Error != nil {
		return fmt.Errorf("yahoo quoteSummary: %s", summary.QuoteSummary.Error.Description)
	}
	if resp.IsError() {
		return &APIError{Source: "yahoo", StatusCode: resp.StatusCode(), Endpoint: "/v10/finance/quoteSummary/" + ticker, Body: resp.String()}
	}
	if len(summary.QuoteSummary.Result) == 0 {
		return nil
	}
	r := summary.QuoteSummary.Result[0]
	if r.SummaryDetail.Beta.Raw != nil {
		q.Beta = null.FloatFrom(*r.SummaryDetail.Beta.Raw)
	}
	switch {
	case r.Price.MarketCap.Raw != nil:
		q.MarketCap = null.FloatFrom(*r.Price.MarketCap.Raw)
	case r.SummaryDetail.MarketCap.Raw != nil:
		q.MarketCap = null.FloatFrom(*r.SummaryDetail.MarketCap.Raw)
	}
	if !q.Name.Valid && r.Price.LongName != "" {
		q.Name = null.StringFrom(r.Price.LongName)
	}
	return nil
}

// getCrumb performs the cookie + crumb handshake quoteSummary requires. The
// crumb is kept for the life of the source.
func (f *YahooSource) getCrumb(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.crumb != "" {
		return f.crumb, nil
	}
	// The cookie endpoint answers 404 but sets the session cookie.
	if _, err := f.client.R().SetContext(ctx).Get(f.cookieURL); err != nil {
		return "", fmt.Errorf("yahoo cookie: %w", err)
	}
	resp, err := f.client.R().SetContext(ctx).Get("/v1/test/getcrumb")
	if err != nil {
		return "", fmt.Errorf("yahoo crumb: %w", err)
	}
	crumb := strings.TrimSpace(resp.String())
	if resp.IsError() || crumb == "" || strings.ContainsAny(crumb, "<{ ") {
		return "", &APIError{Source: "yahoo", StatusCode: resp.StatusCode(), Endpoint: "/v1/test/getcrumb", Body: crumb}
	}
	f.crumb = crumb
	return crumb, nil
}

func (f *YahooSource) resetCrumb() {
	f.mu.Lock()
	f.crumb = ""
	f.mu.Unlock()
}

func exchangeLocation(name string, gmtOffset int) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.FixedZone("exchange", gmtOffset)
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
