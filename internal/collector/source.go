package collector

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"MomentumDashboard/internal/calendar"
	"MomentumDashboard/internal/model"
)

// Source is an upstream price provider. Every call covers exactly one ticker.
type Source interface {
	// DailyCloses returns dividend-adjusted daily closes between from and to,
	// both inclusive, in any order. An empty result is not an error.
	DailyCloses(ctx context.Context, ticker string, from, to calendar.Date) ([]model.PricePoint, error)
	// Quote returns the most recent quote, which may be intraday.
	Quote(ctx context.Context, ticker string) (model.Quote, error)
	Name() string
}

// newHTTPClient builds the client shared by HTTP sources, with optional
// proxy and a cookie jar for session cookies.
func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	jar, _ := cookiejar.New(nil)
	return &http.Client{Timeout: timeout, Transport: transport, Jar: jar}
}
