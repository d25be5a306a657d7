package collector

import (
	"context"
	"fmt"
	"sync"

	"MomentumDashboard/internal/calendar"
	"MomentumDashboard/internal/model"

	"github.com/shopspring/decimal"
)

// Query records one DailyCloses call made against a MemorySource.
type Query struct {
	Ticker   string
	From, To calendar.Date
}

// MemorySource serves fixed histories and quotes. It is used by tests and
// offline demos.
type MemorySource struct {
	Closes map[string][]model.PricePoint
	Quotes map[string]model.Quote
	// Errs makes every call for a ticker fail with the given error.
	Errs map[string]error

	mu      sync.Mutex
	queries []Query
}

// NewMemorySource returns an empty MemorySource.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		Closes: map[string][]model.PricePoint{},
		Quotes: map[string]model.Quote{},
		Errs:   map[string]error{},
	}
}

func (m *MemorySource) Name() string { return "memory" }

// AddClose appends one trading day to the ticker's history.
func (m *MemorySource) AddClose(ticker string, on calendar.Date, close float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closes[ticker] = append(m.Closes[ticker], model.PricePoint{
		Ticker: ticker,
		Date:   on,
		Close:  decimal.NewFromFloat(close),
	})
}

// SetQuote stores the quote returned for its ticker.
func (m *MemorySource) SetQuote(q model.Quote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Quotes[q.Ticker] = q
}

func (m *MemorySource) DailyCloses(ctx context.Context, ticker string, from, to calendar.Date) ([]model.PricePoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, Query{Ticker: ticker, From: from, To: to})
	if err := m.Errs[ticker]; err != nil {
		return nil, err
	}
	var out []model.PricePoint
	for _, p := range m.Closes[ticker] {
		if !p.Date.Before(from) && !p.Date.After(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemorySource) Quote(ctx context.Context, ticker string) (model.Quote, error) {
	if err := ctx.Err(); err != nil {
		return model.Quote{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Errs[ticker]; err != nil {
		return model.Quote{}, err
	}
	q, ok := m.Quotes[ticker]
	if !ok {
		return model.Quote{}, fmt.Errorf("memory: no quote for %s", ticker)
	}
	return q, nil
}

// Queries returns the DailyCloses calls seen so far.
func (m *MemorySource) Queries() []Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Query(nil), m.queries...)
}
