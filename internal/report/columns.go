// Package report renders momentum records to the xlsx dashboard and to the
// terminal.
package report

import (
	"fmt"

	"MomentumDashboard/internal/watchlist"
)

// Fixed leading columns. Anchor change columns follow RecentPrice, and the
// since-purchase column is last.
const (
	colTicker = iota
	colDate
	colName
	colBeta
	colMarketCap
	colPurchaseDate
	colPurchasePrice
	colRecentPrice
	fixedColumns
)

// layout holds the 1-based sheet rows. headerRows rows precede the column
// headers, matching what the watchlist loader skips on the next run; the
// banner takes the first of them.
type layout struct {
	banner, header, first int
}

func newLayout(headerRows int) layout {
	l := layout{header: headerRows + 1, first: headerRows + 2}
	if headerRows > 0 {
		l.banner = 1
	}
	return l
}

var fixedHeaders = [fixedColumns]string{
	colTicker:        watchlist.HeaderTicker,
	colDate:          "Date",
	colName:          "Name",
	colBeta:          "Beta",
	colMarketCap:     "Mkt Cap Bllns",
	colPurchaseDate:  watchlist.HeaderPurchaseDate,
	colPurchasePrice: watchlist.HeaderPurchasePrice,
	colRecentPrice:   "Recent Price",
}

// SincePurchaseHeader titles the last column.
const SincePurchaseHeader = "Annualized % Price Change Since Last Purchase"

// ChangeHeader titles the change column of one anchor. A 12 month change is
// already annual.
func ChangeHeader(months int) string {
	if months == 12 {
		return "12mo % Price Change"
	}
	return fmt.Sprintf("Annualized %dmo %% Price Change", months)
}

// Headers returns every column title for the given anchors.
func Headers(months []int) []string {
	out := append([]string(nil), fixedHeaders[:]...)
	for _, m := range months {
		out = append(out, ChangeHeader(m))
	}
	return append(out, SincePurchaseHeader)
}

// columnWidths are in Excel character units, indexed like fixedHeaders.
var columnWidths = [fixedColumns]float64{
	colTicker:        10,
	colDate:          12,
	colName:          27,
	colBeta:          9,
	colMarketCap:     9,
	colPurchaseDate:  11,
	colPurchasePrice: 15,
	colRecentPrice:   15,
}

const changeColumnWidth = 11
