// Package calendar models trading calendar dates with day granularity and the
// month arithmetic used to place momentum anchors.
package calendar

import (
	"fmt"
	"time"
)

// Format is the ISO-8601 layout used to print dates.
const Format = "2006-01-02"

// readFormats are accepted by Parse, most specific first.
var readFormats = []string{"2006-1-2", "2006/1/2", "01-02-06", "1/2/2006"}

// Date is a calendar day with no time of day and no time zone.
type Date struct {
	y int
	m time.Month
	d int
}

// New returns a normalized Date (2025-02-30 becomes 2025-03-02).
func New(year int, month time.Month, day int) Date {
	y, m, d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Date()
	return Date{y, m, d}
}

// FromTime returns the calendar day of t in t's own location.
func FromTime(t time.Time) Date { return New(t.Date()) }

// Today returns the current local date.
func Today() Date { return FromTime(time.Now()) }

// Year returns the year of d.
func (d Date) Year() int { return d.y }

// Month returns the month of d.
func (d Date) Month() time.Month { return d.m }

// Day returns the day of the month.
func (d Date) Day() int { return d.d }

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d == Date{} }

// Time returns midnight of d in loc.
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, loc)
}

func (d Date) utc() time.Time { return d.Time(time.UTC) }

// Add returns d shifted by n days.
func (d Date) Add(n int) Date { return New(d.y, d.m, d.d+n) }

// Sub returns the number of days from x to d.
func (d Date) Sub(x Date) int { return int(d.utc().Sub(x.utc()).Hours() / 24) }

// Before reports whether d is before x.
func (d Date) Before(x Date) bool { return d.utc().Before(x.utc()) }

// After reports whether d is after x.
func (d Date) After(x Date) bool { return d.utc().After(x.utc()) }

// String formats d as yyyy-mm-dd.
func (d Date) String() string { return d.utc().Format(Format) }

// Parse reads a date. It accepts 2025-7-1 as well as 2025-07-01.
func Parse(s string) (Date, error) {
	for _, layout := range readFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return FromTime(t), nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q want format %q", s, Format)
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err.Error())
	}
	return d
}

// MarshalYAML writes d as yyyy-mm-dd.
func (d Date) MarshalYAML() (interface{}, error) { return d.String(), nil }

// UnmarshalYAML reads a yyyy-mm-dd scalar.
func (d *Date) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// NullDate is a Date that may be absent.
type NullDate struct {
	Date  Date
	Valid bool
}

// DateFrom returns a valid NullDate holding d.
func DateFrom(d Date) NullDate { return NullDate{Date: d, Valid: true} }

// String returns the date or the empty string when absent.
func (n NullDate) String() string {
	if !n.Valid {
		return ""
	}
	return n.Date.String()
}
