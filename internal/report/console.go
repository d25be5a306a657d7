package report

import (
	"fmt"
	"io"
	"time"

	"MomentumDashboard/internal/calendar"
	"MomentumDashboard/internal/model"
	"MomentumDashboard/internal/signal"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/guregu/null/v6"
)

var (
	consoleHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6")).Padding(0, 1)
	consoleCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	consoleUpStyle     = consoleCellStyle.Foreground(lipgloss.Color("#10B981"))
	consoleDownStyle   = consoleCellStyle.Foreground(lipgloss.Color("#EF4444"))
	consoleBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// PrintTable writes a terminal preview of the report rows to w. Colors
// follow the same highlight rules as the workbook.
func PrintTable(w io.Writer, records []model.MomentumRecord, months []int, threshold float64) error {
	if threshold <= 0 {
		threshold = signal.DefaultThreshold
	}
	headers := []string{"Ticker", "Date", "Name", "Beta", "Cap B", "Bought", "Cost", "Price"}
	for _, m := range months {
		headers = append(headers, fmt.Sprintf("%dmo %%", m))
	}
	headers = append(headers, "Held %")

	rows := make([][]string, len(records))
	trends := make([][]signal.Trend, len(records))
	for i := range records {
		rec := &records[i]
		sig := signal.Evaluate(rec, threshold)
		row := []string{
			rec.Ticker,
			quoteDate(rec.RecentPriceTime),
			truncate(rec.Name.ValueOrZero(), 24),
			fixed(rec.Beta, 2),
			fixed(rec.MarketCapBillions, 2),
			rec.PurchaseDate.String(),
			blankOr(price(rec.PurchasePrice), 2),
			fixed(price(rec.RecentPrice), 2),
		}
		cells := make([]signal.Trend, fixedColumns, len(headers))
		cells[colName] = sig.Trend
		for j, a := range rec.Anchors {
			row = append(row, fixed(a.Change, 1))
			cells = append(cells, sig.Cells[j])
		}
		row = append(row, fixed(rec.SincePurchaseChange, 1))
		cells = append(cells, signal.Flat)
		rows[i] = row
		trends[i] = cells
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(consoleBorderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return consoleHeaderStyle
			}
			if row < 0 || row >= len(trends) || col >= len(trends[row]) {
				return consoleCellStyle
			}
			switch trends[row][col] {
			case signal.Up:
				return consoleUpStyle
			case signal.Down:
				return consoleDownStyle
			}
			return consoleCellStyle
		})
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func quoteDate(t null.Time) string {
	if !t.Valid {
		return ""
	}
	return calendar.FromTime(t.Time.In(time.Local)).String()
}

// fixed formats v with the given decimals, NA when undefined.
func fixed(v null.Float, decimals int) string {
	if !v.Valid {
		return "NA"
	}
	return fmt.Sprintf("%.*f", decimals, v.Float64)
}

func blankOr(v null.Float, decimals int) string {
	if !v.Valid {
		return ""
	}
	return fixed(v, decimals)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
