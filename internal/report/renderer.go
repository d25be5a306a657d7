package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"MomentumDashboard/internal/calendar"
	"MomentumDashboard/internal/model"
	"MomentumDashboard/internal/signal"
	"MomentumDashboard/internal/watchlist"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// DefaultSheetName is the report sheet, also read back as the next watchlist.
const DefaultSheetName = "Stock Momentum"

// naFormula marks a value that could not be computed.
const naFormula = "NA()"

// Options configures a Renderer.
type Options struct {
	SheetName string
	// Months are the anchor month counts, one change column each.
	Months []int
	// Threshold is the highlight threshold in percent.
	Threshold float64
	// Source names the price provider in the banner.
	Source string
	// HeaderRows rows precede the column headers; unset means
	// watchlist.DefaultHeaderRows. With zero rows there is no banner.
	HeaderRows null.Int
}

// Renderer writes the dashboard workbook.
type Renderer struct {
	opts   Options
	layout layout
}

// NewRenderer creates a Renderer, filling unset options with defaults.
func NewRenderer(opts Options) *Renderer {
	if opts.SheetName == "" {
		opts.SheetName = DefaultSheetName
	}
	if opts.Threshold <= 0 {
		opts.Threshold = signal.DefaultThreshold
	}
	headerRows := int(opts.HeaderRows.ValueOrZero())
	if !opts.HeaderRows.Valid || headerRows < 0 {
		headerRows = watchlist.DefaultHeaderRows
	}
	return &Renderer{opts: opts, layout: newLayout(headerRows)}
}

// Banner returns the provenance line written in the first row.
func Banner(source string, at time.Time) string {
	return fmt.Sprintf("Data pulled by momentum dashboard from %s. No guarantees of correctness. "+
		"The prices and changes are DIVIDEND ADJUSTED. Not for trading purposes or advice. Last run at %s",
		source, at.Format("2006-01-02_15-04-05"))
}

// Write renders records to path, replacing any previous report only once
// the new one is complete on disk.
func (r *Renderer) Write(path string, records []model.MomentumRecord, at time.Time) error {
	f, _, err := r.build(records, at)
	if err != nil {
		return fmt.Errorf("report: render: %w", err)
	}
	defer f.Close()
	if err := writeAtomic(path, f); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}

type styles struct {
	header, pct, pctUp, pctDown, number, date, nameUp, nameDown int
}

func newStyles(f *excelize.File) (styles, error) {
	var st styles
	pctFmt, numFmt, dateFmt := "0.0", "0.00", "yyyy-mm-dd"
	green := excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"C6EFCE"}}
	red := excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFC7CE"}}

	defs := []struct {
		id    *int
		style *excelize.Style
	}{
		{&st.header, &excelize.Style{
			Font:      &excelize.Font{Bold: true},
			Alignment: &excelize.Alignment{WrapText: true, Horizontal: "center", Vertical: "center"},
		}},
		{&st.pct, &excelize.Style{CustomNumFmt: &pctFmt}},
		{&st.pctUp, &excelize.Style{CustomNumFmt: &pctFmt, Fill: green}},
		{&st.pctDown, &excelize.Style{CustomNumFmt: &pctFmt, Fill: red}},
		{&st.number, &excelize.Style{CustomNumFmt: &numFmt}},
		{&st.date, &excelize.Style{CustomNumFmt: &dateFmt}},
		{&st.nameUp, &excelize.Style{Fill: green}},
		{&st.nameDown, &excelize.Style{Fill: red}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return st, err
		}
		*d.id = id
	}
	return st, nil
}

func (r *Renderer) build(records []model.MomentumRecord, at time.Time) (*excelize.File, styles, error) {
	f := excelize.NewFile()
	sheet := r.opts.SheetName
	if def := f.GetSheetName(0); def != sheet {
		if err := f.SetSheetName(def, sheet); err != nil {
			f.Close()
			return nil, styles{}, err
		}
	}
	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, styles{}, err
	}
	w := &sheetWriter{f: f, sheet: sheet}

	rows := r.layout
	firstRow := rows.first
	if rows.banner > 0 {
		w.str(cellName(0, rows.banner), Banner(r.opts.Source, at))
	}
	headers := Headers(r.opts.Months)
	for i, h := range headers {
		w.str(cellName(i, rows.header), h)
	}
	w.style(cellName(0, rows.header), cellName(len(headers)-1, rows.header), st.header)

	for i := range records {
		r.writeRow(w, st, firstRow+i, &records[i])
	}

	lastRow := firstRow + len(records) - 1
	if len(records) > 0 {
		w.style(cellName(colBeta, firstRow), cellName(colMarketCap, lastRow), st.number)
		w.style(cellName(colPurchasePrice, firstRow), cellName(colRecentPrice, lastRow), st.number)
		w.style(cellName(colDate, firstRow), cellName(colDate, lastRow), st.date)
		w.style(cellName(colPurchaseDate, firstRow), cellName(colPurchaseDate, lastRow), st.date)
		// change cells are styled per row with their fill
		for i := range records {
			r.styleRow(w, st, firstRow+i, &records[i])
		}
	} else {
		lastRow = rows.header
	}

	for i, width := range columnWidths {
		w.width(i, width)
	}
	for i := fixedColumns; i < len(headers); i++ {
		w.width(i, changeColumnWidth)
	}
	if w.err == nil {
		w.err = f.AutoFilter(sheet, cellName(0, rows.header)+":"+cellName(len(headers)-1, lastRow), nil)
	}
	if w.err != nil {
		f.Close()
		return nil, styles{}, w.err
	}
	return f, st, nil
}

func (r *Renderer) writeRow(w *sheetWriter, st styles, row int, rec *model.MomentumRecord) {
	w.str(cellName(colTicker, row), rec.Ticker)
	if rec.RecentPriceTime.Valid {
		w.date(cellName(colDate, row), calendar.FromTime(rec.RecentPriceTime.Time.In(time.Local)))
	}
	if rec.Name.Valid {
		w.str(cellName(colName, row), rec.Name.String)
	}
	w.number(cellName(colBeta, row), rec.Beta)
	w.number(cellName(colMarketCap, row), rec.MarketCapBillions)

	// purchase inputs stay blank when absent so they can be filled in
	if rec.PurchaseDate.Valid {
		w.date(cellName(colPurchaseDate, row), rec.PurchaseDate.Date)
	}
	if rec.PurchasePrice.Valid {
		w.number(cellName(colPurchasePrice, row), price(rec.PurchasePrice))
	}
	w.number(cellName(colRecentPrice, row), price(rec.RecentPrice))

	for i, a := range rec.Anchors {
		w.number(cellName(fixedColumns+i, row), a.Change)
	}
	w.number(cellName(fixedColumns+len(rec.Anchors), row), rec.SincePurchaseChange)
}

func (r *Renderer) styleRow(w *sheetWriter, st styles, row int, rec *model.MomentumRecord) {
	sig := signal.Evaluate(rec, r.opts.Threshold)
	for i, trend := range sig.Cells {
		ref := cellName(fixedColumns+i, row)
		w.style(ref, ref, pctStyle(st, trend))
	}
	// since-purchase is formatted but never filled
	ref := cellName(fixedColumns+len(sig.Cells), row)
	w.style(ref, ref, st.pct)

	name := cellName(colName, row)
	switch sig.Trend {
	case signal.Up:
		w.style(name, name, st.nameUp)
	case signal.Down:
		w.style(name, name, st.nameDown)
	}
}

func pctStyle(st styles, t signal.Trend) int {
	switch t {
	case signal.Up:
		return st.pctUp
	case signal.Down:
		return st.pctDown
	default:
		return st.pct
	}
}

func price(d decimal.NullDecimal) null.Float {
	if !d.Valid {
		return null.Float{}
	}
	return null.FloatFrom(d.Decimal.InexactFloat64())
}

// cellName converts a 0-based column and 1-based row to an A1 reference.
func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col+1, row)
	return name
}

// sheetWriter keeps the first error so rows can be written without checks
// after every cell.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *sheetWriter) str(ref, v string) {
	if w.err == nil {
		w.err = w.f.SetCellStr(w.sheet, ref, v)
	}
}

// number writes v, or the NA() error marker when v is undefined.
func (w *sheetWriter) number(ref string, v null.Float) {
	if w.err != nil {
		return
	}
	if !v.Valid {
		w.err = w.f.SetCellFormula(w.sheet, ref, naFormula)
		return
	}
	w.err = w.f.SetCellFloat(w.sheet, ref, v.Float64, -1, 64)
}

func (w *sheetWriter) date(ref string, d calendar.Date) {
	if w.err == nil {
		w.err = w.f.SetCellValue(w.sheet, ref, d.Time(time.UTC))
	}
}

func (w *sheetWriter) style(from, to string, id int) {
	if w.err == nil {
		w.err = w.f.SetCellStyle(w.sheet, from, to, id)
	}
}

func (w *sheetWriter) width(col int, width float64) {
	if w.err != nil {
		return
	}
	name, err := excelize.ColumnNumberToName(col + 1)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetColWidth(w.sheet, name, name, width)
}

// reportMode is the permission of a report that replaces no previous file.
const reportMode os.FileMode = 0o644

// writeAtomic saves f next to path and renames it into place, keeping the
// permissions of the file it replaces. The previous file is left untouched
// on any failure.
func writeAtomic(path string, f *excelize.File) (err error) {
	mode := reportMode
	if fi, statErr := os.Stat(path); statErr == nil && fi.Mode().IsRegular() {
		mode = fi.Mode().Perm()
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	if _, err = f.WriteTo(tmp); err != nil {
		return err
	}
	if err = tmp.Chmod(mode); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
