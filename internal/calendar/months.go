package calendar

import "time"

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthsBefore subtracts n calendar months from d, keeping the day of the
// month. When that day does not exist in the target month the result is the
// last day of that month: 2025-03-31 minus one month is 2025-02-28.
func MonthsBefore(d Date, n int) Date {
	// normalize on the 1st so time.Date does not roll into the next month
	first := time.Date(d.y, d.m-time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	y, m := first.Year(), first.Month()
	day := d.d
	if last := DaysIn(y, m); day > last {
		day = last
	}
	return Date{y, m, day}
}

// AnchorDates returns one anchor per month count, in the given order.
func AnchorDates(today Date, months []int) []Date {
	out := make([]Date, len(months))
	for i, n := range months {
		out[i] = MonthsBefore(today, n)
	}
	return out
}
