// Package watchlist reads the tickers and purchase records of a run from
// the previous report workbook.
package watchlist

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"MomentumDashboard/internal/calendar"
	"MomentumDashboard/internal/model"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Column headers the loader looks for.
const (
	HeaderTicker        = "Tickers"
	HeaderPurchaseDate  = "Last Purchase Date"
	HeaderPurchasePrice = "Last Purchase Price"
)

// DefaultHeaderRows is the number of banner rows above the header row.
const DefaultHeaderRows = 2

// Options controls how a workbook is read.
type Options struct {
	// SheetName is read when present, otherwise the first sheet.
	SheetName string
	// HeaderRows banner rows precede the column header row.
	HeaderRows int
	// Tickers seed the watchlist when the workbook does not exist yet.
	Tickers []string
}

// ErrNoWatchlist is returned when neither a workbook nor seed tickers exist.
var ErrNoWatchlist = errors.New("no watchlist workbook and no configured tickers")

// Load returns the watchlist entries in row order.
func Load(path string, opts Options) ([]model.WatchlistEntry, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if len(opts.Tickers) == 0 {
			return nil, fmt.Errorf("watchlist %s: %w", path, ErrNoWatchlist)
		}
		return FromTickers(opts.Tickers), nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open watchlist %s: %w", path, err)
	}
	defer f.Close()

	sheet := opts.SheetName
	if idx, err := f.GetSheetIndex(sheet); sheet == "" || err != nil || idx < 0 {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	headerRows := opts.HeaderRows
	if headerRows < 0 {
		headerRows = DefaultHeaderRows
	}
	if len(rows) <= headerRows {
		return nil, fmt.Errorf("watchlist %s: sheet %q has no header row", path, sheet)
	}
	cols := locate(rows[headerRows])
	date1904 := uses1904(f)

	var entries []model.WatchlistEntry
	seen := map[string]bool{}
	for _, row := range rows[headerRows+1:] {
		ticker := strings.TrimSpace(cell(row, cols.ticker))
		if ticker == "" || seen[ticker] {
			continue
		}
		seen[ticker] = true
		entries = append(entries, model.WatchlistEntry{
			Ticker:        ticker,
			PurchaseDate:  parseDate(cell(row, cols.date), date1904),
			PurchasePrice: parsePrice(cell(row, cols.price)),
		})
	}
	return entries, nil
}

// FromTickers returns entries without purchase records, skipping blanks and
// duplicates.
func FromTickers(tickers []string) []model.WatchlistEntry {
	var entries []model.WatchlistEntry
	seen := map[string]bool{}
	for _, t := range tickers {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		entries = append(entries, model.WatchlistEntry{Ticker: t})
	}
	return entries
}

type columns struct {
	ticker, date, price int
}

func locate(header []string) columns {
	c := columns{ticker: -1, date: -1, price: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case strings.ToLower(HeaderTicker):
			c.ticker = i
		case strings.ToLower(HeaderPurchaseDate):
			c.date = i
		case strings.ToLower(HeaderPurchasePrice):
			c.price = i
		}
	}
	if c.ticker < 0 {
		c.ticker = 0
	}
	return c
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func uses1904(f *excelize.File) bool {
	props, err := f.GetWorkbookProps()
	return err == nil && props.Date1904 != nil && *props.Date1904
}

// parseDate accepts text dates and Excel serial numbers. Anything else is
// treated as no purchase recorded.
func parseDate(s string, date1904 bool) calendar.NullDate {
	s = strings.TrimSpace(s)
	if s == "" {
		return calendar.NullDate{}
	}
	if d, err := calendar.Parse(s); err == nil {
		return calendar.DateFrom(d)
	}
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil || serial <= 0 {
		return calendar.NullDate{}
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return calendar.NullDate{}
	}
	return calendar.DateFrom(calendar.FromTime(t))
}

func parsePrice(s string) decimal.NullDecimal {
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(v)
}
