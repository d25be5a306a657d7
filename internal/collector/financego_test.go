package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// asxOpen returns the unix time of a 10:00 session open in Sydney (UTC+11
// in summer), which is the previous calendar day in UTC.
func asxOpen(m time.Month, day int) int64 {
	return time.Date(2025, m, day, 10, 0, 0, 0, time.FixedZone("AEDT", 11*3600)).Unix()
}

func newFinanceGoServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v8/finance/chart/BHP.AX", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"chart": map[string]interface{}{"result": []interface{}{map[string]interface{}{
				"meta": map[string]interface{}{
					"symbol":               "BHP.AX",
					"exchangeTimezoneName": "Australia/Sydney",
					"gmtoffset":            39600,
				},
				"timestamp": []int64{
					asxOpen(time.December, 19),
					asxOpen(time.December, 22),
					asxOpen(time.December, 23),
					asxOpen(time.December, 24),
				},
				"indicators": map[string]interface{}{
					"quote": []interface{}{map[string]interface{}{
						"open":   []interface{}{44.0, 45.0, nil, 46.0},
						"high":   []interface{}{44.5, 45.5, nil, 46.5},
						"low":    []interface{}{43.5, 44.5, nil, 45.5},
						"close":  []interface{}{44.2, 45.2, nil, 46.2},
						"volume": []interface{}{100, 200, nil, 300},
					}},
					"adjclose": []interface{}{map[string]interface{}{
						"adjclose": []interface{}{44.1, 45.1, nil, 46.1},
					}},
				},
			}}},
		})
	})
	mux.HandleFunc("/v6/finance/quote", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BHP.AX", r.URL.Query().Get("symbols"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"quoteResponse": map[string]interface{}{"result": []interface{}{map[string]interface{}{
				"symbol":             "BHP.AX",
				"longName":           "BHP Group Limited",
				"regularMarketPrice": 46.3,
				"regularMarketTime":  asxOpen(time.December, 29),
				"marketCap":          int64(235e9),
			}}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestFinanceGo(srv *httptest.Server) *FinanceGoSource {
	return NewFinanceGoSource(FinanceGoOptions{BaseURL: srv.URL, Timeout: 5 * time.Second})
}

func TestFinanceGoSource_DailyClosesUseExchangeDay(t *testing.T) {
	src := newTestFinanceGo(newFinanceGoServer(t))

	points, err := src.DailyCloses(context.Background(), "BHP.AX", d("2025-12-22"), d("2025-12-24"))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "2025-12-22", points[0].Date.String())
	assert.Equal(t, "45.1", points[0].Close.String())
	assert.Equal(t, "2025-12-24", points[1].Date.String())
	assert.Equal(t, "46.1", points[1].Close.String())
	assert.Equal(t, "BHP.AX", points[1].Ticker)
}

func TestFinanceGoSource_ResolveThroughHTTP(t *testing.T) {
	src := newTestFinanceGo(newFinanceGoServer(t))

	pt, err := ResolveClose(context.Background(), src, "BHP.AX", d("2025-12-24"), d("2026-01-15"), 5)
	require.NoError(t, err)
	assert.Equal(t, "2025-12-22", pt.Date.String())
	assert.True(t, pt.Date.Before(d("2025-12-24")))
}

func TestFinanceGoSource_Quote(t *testing.T) {
	src := newTestFinanceGo(newFinanceGoServer(t))

	q, err := src.Quote(context.Background(), "BHP.AX")
	require.NoError(t, err)
	assert.Equal(t, "BHP Group Limited", q.Name.String)
	assert.Equal(t, "46.3", q.Price.Decimal.String())
	assert.Equal(t, asxOpen(time.December, 29), q.Time.Time.Unix())
	assert.InDelta(t, 235e9, q.MarketCap.Float64, 1)
	assert.False(t, q.Beta.Valid)
}

func TestFinanceGoSource_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	_, err := newTestFinanceGo(srv).DailyCloses(context.Background(), "BHP.AX", d("2025-12-22"), d("2025-12-24"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
