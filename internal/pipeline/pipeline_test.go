package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"MomentumDashboard/internal/calendar"
	"MomentumDashboard/internal/collector"
	"MomentumDashboard/internal/config"
	"MomentumDashboard/internal/logger"
	"MomentumDashboard/internal/model"
	"MomentumDashboard/internal/report"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var runAt = time.Date(2025, 3, 31, 16, 0, 0, 0, time.Local)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) Notify(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, text)
	return nil
}

func quote(ticker, name string, price float64) model.Quote {
	return model.Quote{
		Ticker:    ticker,
		Name:      null.StringFrom(name),
		Beta:      null.FloatFrom(1),
		MarketCap: null.FloatFrom(2e9),
		Price:     decimal.NewNullDecimal(decimal.NewFromFloat(price)),
		Time:      null.TimeFrom(time.Date(2025, 3, 31, 15, 0, 0, 0, time.Local)),
	}
}

// fixture returns a source holding three tickers: UPUP rallied against every
// anchor, FLAT has no purchase record, NEW listed five months ago and has a
// future-dated purchase.
func fixture() *collector.MemorySource {
	src := collector.NewMemorySource()
	today := calendar.FromTime(runAt)
	anchors := calendar.AnchorDates(today, []int{1, 3, 6, 12})

	src.SetQuote(quote("UPUP", "Rally Corp", 200))
	src.SetQuote(quote("FLAT", "Flat Fund", 50))
	src.SetQuote(quote("NEW", "New Listing", 20))
	for i, a := range anchors {
		// closes on the anchor date itself are never used
		src.AddClose("UPUP", a.Add(-1), 150)
		src.AddClose("UPUP", a, 999)
		src.AddClose("FLAT", a.Add(-2), 50)
		if i < 2 {
			src.AddClose("NEW", a.Add(-1), 10)
		}
	}
	return src
}

func writeWatchlist(t *testing.T, path string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := report.DefaultSheetName
	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	rows := [][]interface{}{
		{"Tickers", "Date", "Name", "Beta", "Mkt Cap Bllns", "Last Purchase Date", "Last Purchase Price"},
		{"UPUP", nil, nil, nil, nil, "2024-03-31", 100},
		{"FLAT"},
		{"NEW", nil, nil, nil, nil, "2025-04-10", 15},
	}
	for i, row := range rows {
		require.NoError(t, f.SetSheetRow(sheet, "A"+string(rune('3'+i)), &row))
	}
	require.NoError(t, f.SaveAs(path))
}

func testConfig(dir string) *config.Config {
	cfg := config.Default()
	cfg.WatchlistPath = filepath.Join(dir, "momentum.xlsx")
	cfg.OutputPath = cfg.WatchlistPath
	return cfg
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	writeWatchlist(t, cfg.WatchlistPath)

	notes := &recordingNotifier{}
	var console bytes.Buffer
	p := New(cfg, fixture(), logger.Nop())
	p.Notifier = notes
	p.Console = &console
	p.Now = func() time.Time { return runAt }

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []string{"UPUP"}, res.Summary.Up)
	assert.Equal(t, []int{6, 12}, res.Summary.Unresolved["NEW"])

	upup := res.Records[0]
	assert.Equal(t, "2025-02-27", upup.Anchors[0].Point.Date.String())
	assert.InDelta(t, 33.333333, upup.Anchors[3].Change.Float64, 1e-4)
	assert.Equal(t, null.IntFrom(365), upup.DaysSincePurchase)
	assert.InDelta(t, 100, upup.SincePurchaseChange.Float64, 1e-9)

	f, err := excelize.OpenFile(cfg.OutputPath)
	require.NoError(t, err)
	defer f.Close()
	sheet := report.DefaultSheetName

	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	for i, want := range []string{"UPUP", "FLAT", "NEW"} {
		assert.Equal(t, want, rows[3+i][0])
	}

	// undefined values are error markers, missing purchase inputs are blank
	for _, ref := range []string{"M5", "K6", "L6", "M6"} {
		formula, err := f.GetCellFormula(sheet, ref)
		require.NoError(t, err)
		assert.Equal(t, "NA()", formula, ref)
	}
	v, _ := f.GetCellValue(sheet, "F5")
	assert.Empty(t, v)
	v, _ = f.GetCellValue(sheet, "I5")
	assert.Equal(t, "0.0", v)
	v, _ = f.GetCellValue(sheet, "F6")
	assert.Equal(t, "2025-04-10", v)

	assert.True(t, hasFill(t, f, sheet, "C4", "C6EFCE"), "all-up name is green")
	assert.False(t, hasFill(t, f, sheet, "C5", "C6EFCE"))

	require.Len(t, notes.msgs, 1)
	assert.Contains(t, notes.msgs[0], "Rows written: 3")
	assert.Contains(t, notes.msgs[0], "NEW: 6mo, 12mo")
	assert.Contains(t, console.String(), "UPUP")
}

func hasFill(t *testing.T, f *excelize.File, sheet, ref, color string) bool {
	t.Helper()
	id, err := f.GetCellStyle(sheet, ref)
	require.NoError(t, err)
	style, err := f.GetStyle(id)
	require.NoError(t, err)
	return strings.Contains(strings.ToUpper(strings.Join(style.Fill.Color, ",")), color)
}

func TestRun_SecondRunReadsPreviousReport(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	writeWatchlist(t, cfg.WatchlistPath)

	p := New(cfg, fixture(), nil)
	p.Now = func() time.Time { return runAt }
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	assert.Equal(t, "2024-03-31", res.Records[0].PurchaseDate.String())
	assert.Equal(t, "100", res.Records[0].PurchasePrice.Decimal.String())
	assert.False(t, res.Records[1].PurchaseDate.Valid)
}

func TestRun_BootstrapFromTickers(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.Tickers = []string{"FLAT", "UPUP"}

	p := New(cfg, fixture(), nil)
	p.Now = func() time.Time { return runAt }
	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "FLAT", res.Records[0].Ticker)
	_, err = os.Stat(cfg.OutputPath)
	assert.NoError(t, err)
}

func TestRun_ReadsBackWithCustomHeaderRows(t *testing.T) {
	for _, headerRows := range []int{0, 1, 4} {
		dir := t.TempDir()
		cfg := testConfig(dir)
		cfg.HeaderRows = headerRows
		cfg.Tickers = []string{"UPUP", "FLAT"}

		p := New(cfg, fixture(), nil)
		p.Now = func() time.Time { return runAt }
		_, err := p.Run(context.Background())
		require.NoError(t, err, "header_rows %d", headerRows)

		// the second run reads the first run's report as its watchlist
		res, err := p.Run(context.Background())
		require.NoError(t, err, "header_rows %d", headerRows)
		require.Len(t, res.Records, 2, "header_rows %d", headerRows)
		assert.Equal(t, "UPUP", res.Records[0].Ticker)
		assert.Equal(t, "FLAT", res.Records[1].Ticker)
	}
}

func TestRun_FetchFailureKeepsPreviousReport(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	writeWatchlist(t, cfg.WatchlistPath)
	before, err := os.ReadFile(cfg.OutputPath)
	require.NoError(t, err)

	src := fixture()
	src.Errs["FLAT"] = errors.New("connection refused")
	notes := &recordingNotifier{}
	p := New(cfg, src, nil)
	p.Notifier = notes
	p.Now = func() time.Time { return runAt }

	_, err = p.Run(context.Background())
	require.Error(t, err)
	var se *collector.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "FLAT", se.Ticker)

	after, err := os.ReadFile(cfg.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	require.Len(t, notes.msgs, 1)
	assert.Contains(t, notes.msgs[0], "run failed")
}

func TestRun_TolerateFetchErrors(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.TolerateFetchErrors = true
	writeWatchlist(t, cfg.WatchlistPath)

	src := fixture()
	src.Errs["FLAT"] = errors.New("connection refused")
	p := New(cfg, src, nil)
	p.Now = func() time.Time { return runAt }

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Records[1].RecentPrice.Valid)
}

func TestNewSource(t *testing.T) {
	cfg := config.Default()
	for _, provider := range []string{config.ProviderYahoo, config.ProviderEODHD, config.ProviderFinanceGo} {
		cfg.Source.Provider = provider
		src, err := NewSource(cfg, nil)
		require.NoError(t, err)
		assert.Equal(t, provider, src.Name())
	}
	cfg.Source.Provider = "bloomberg"
	_, err := NewSource(cfg, nil)
	assert.Error(t, err)
}
