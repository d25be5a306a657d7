package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthsBefore(t *testing.T) {
	tests := []struct {
		from   string
		months int
		want   string
	}{
		{"2025-03-31", 1, "2025-02-28"},
		{"2024-03-31", 1, "2024-02-29"},
		{"2025-03-15", 1, "2025-02-15"},
		{"2025-05-31", 3, "2025-02-28"},
		{"2025-08-31", 6, "2025-02-28"},
		{"2025-01-31", 1, "2024-12-31"},
		{"2025-01-15", 12, "2024-01-15"},
		{"2024-02-29", 12, "2023-02-28"},
		{"2025-07-31", 1, "2025-06-30"},
	}
	for _, tt := range tests {
		got := MonthsBefore(MustParse(tt.from), tt.months)
		assert.Equal(t, tt.want, got.String(), "%s - %d months", tt.from, tt.months)
	}
}

func TestAnchorDates(t *testing.T) {
	got := AnchorDates(MustParse("2025-03-31"), []int{1, 3, 6, 12})
	want := []string{"2025-02-28", "2024-12-31", "2024-09-30", "2024-03-31"}
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i], got[i].String())
	}
}

func TestParse(t *testing.T) {
	for _, s := range []string{"2025-07-01", "2025-7-1", "2025/7/1", "07-01-25", "7/1/2025"} {
		d, err := Parse(s)
		require.NoError(t, err, s)
		assert.Equal(t, New(2025, time.July, 1), d, s)
	}
	_, err := Parse("not a date")
	assert.Error(t, err)
	_, err = Parse("")
	assert.Error(t, err)
}

func TestDateArithmetic(t *testing.T) {
	d := MustParse("2025-12-29")
	assert.Equal(t, "2025-12-24", d.Add(-5).String())
	assert.Equal(t, 5, d.Sub(d.Add(-5)))
	assert.Equal(t, -31, MustParse("2025-01-01").Sub(MustParse("2025-02-01")))
	assert.True(t, d.Add(-1).Before(d))
	assert.True(t, d.After(d.Add(-1)))
	assert.False(t, d.Before(d))
	assert.Equal(t, New(2025, time.March, 2), New(2025, time.February, 30))
}

func TestFromTimeUsesLocation(t *testing.T) {
	toronto := time.FixedZone("EST", -5*3600)
	ts := time.Date(2025, 12, 24, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-12-23", FromTime(ts.In(toronto)).String())
	assert.Equal(t, "2025-12-24", FromTime(ts).String())
}

func TestNullDate(t *testing.T) {
	assert.Equal(t, "", NullDate{}.String())
	assert.Equal(t, "2025-01-02", DateFrom(MustParse("2025-1-2")).String())
	assert.True(t, Date{}.IsZero())
}
