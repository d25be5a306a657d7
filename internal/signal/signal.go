// Package signal classifies momentum changes against a highlight threshold.
package signal

import (
	"MomentumDashboard/internal/model"

	"github.com/guregu/null/v6"
)

// DefaultThreshold is the percentage beyond which a change is highlighted.
const DefaultThreshold = 10.0

// Trend is the direction of one change or of a whole row.
type Trend int

const (
	Flat Trend = iota
	Up
	Down
)

func (t Trend) String() string {
	switch t {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "flat"
	}
}

// Signal is the classification of one record.
type Signal struct {
	Ticker string
	// Trend is Up or Down only when every anchor change agrees.
	Trend Trend
	// Cells holds one trend per anchor change, in anchor order. The
	// since-purchase change is not classified.
	Cells []Trend
}

// Cell classifies a single change. Undefined changes are Flat.
func Cell(change null.Float, threshold float64) Trend {
	if !change.Valid {
		return Flat
	}
	switch {
	case change.Float64 > threshold:
		return Up
	case change.Float64 < -threshold:
		return Down
	default:
		return Flat
	}
}

// Classify returns Up when every change is above +threshold and Down when
// every change is below -threshold. Any undefined change makes the row Flat.
func Classify(changes []null.Float, threshold float64) Trend {
	if len(changes) == 0 {
		return Flat
	}
	first := Cell(changes[0], threshold)
	if first == Flat {
		return Flat
	}
	for _, c := range changes[1:] {
		if Cell(c, threshold) != first {
			return Flat
		}
	}
	return first
}

// Evaluate classifies a record's anchor changes.
func Evaluate(rec *model.MomentumRecord, threshold float64) Signal {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	changes := rec.Changes()
	cells := make([]Trend, len(changes))
	for i, c := range changes {
		cells[i] = Cell(c, threshold)
	}
	return Signal{
		Ticker: rec.Ticker,
		Trend:  Classify(changes, threshold),
		Cells:  cells,
	}
}

// Summary groups the tickers of a run by outcome.
type Summary struct {
	Rows       int
	Up         []string
	Down       []string
	Unresolved map[string][]int // ticker -> anchor months without a close
}

// Summarize classifies every record, keeping watchlist order in each group.
func Summarize(records []model.MomentumRecord, threshold float64) Summary {
	s := Summary{Rows: len(records), Unresolved: map[string][]int{}}
	for i := range records {
		rec := &records[i]
		switch Evaluate(rec, threshold).Trend {
		case Up:
			s.Up = append(s.Up, rec.Ticker)
		case Down:
			s.Down = append(s.Down, rec.Ticker)
		}
		if missing := rec.Unresolved(); len(missing) > 0 {
			s.Unresolved[rec.Ticker] = missing
		}
	}
	return s
}
