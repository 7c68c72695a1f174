package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func iv(start, end string) Interval {
	return Interval{Start: MustClock(start), End: MustClock(end)}
}

func TestIntervalOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{name: "disjoint", a: iv("09:00", "10:00"), b: iv("11:00", "12:00"), want: false},
		{name: "back to back", a: iv("09:00", "10:00"), b: iv("10:00", "11:00"), want: false},
		{name: "partial", a: iv("09:00", "10:00"), b: iv("09:30", "10:30"), want: true},
		{name: "contained", a: iv("09:00", "12:00"), b: iv("10:00", "10:30"), want: true},
		{name: "identical", a: iv("09:00", "10:00"), b: iv("09:00", "10:00"), want: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Overlaps(tc.b))
			assert.Equal(t, tc.want, tc.b.Overlaps(tc.a), "overlap must be symmetric")
		})
	}
}

func TestIntervalExpandClampsToDay(t *testing.T) {
	assert.Equal(t, iv("00:00", "00:40"), iv("00:05", "00:35").Expand(5))
	assert.Equal(t, Interval{Start: MustClock("23:30"), End: MinutesPerDay}, iv("23:35", "23:55").Expand(5))
}

func TestSubtract(t *testing.T) {
	open := []Interval{iv("09:00", "17:00")}

	t.Run("break inside splits the interval", func(t *testing.T) {
		got := subtract(open, iv("12:00", "13:00"))
		require.Equal(t, []Interval{iv("09:00", "12:00"), iv("13:00", "17:00")}, got)
	})

	t.Run("break at the edge trims", func(t *testing.T) {
		got := subtract(open, iv("09:00", "10:00"))
		require.Equal(t, []Interval{iv("10:00", "17:00")}, got)
	})

	t.Run("break covering everything empties", func(t *testing.T) {
		got := subtract(open, iv("08:00", "18:00"))
		assert.Empty(t, got)
	})

	t.Run("non-intersecting break is a no-op", func(t *testing.T) {
		got := subtract(open, iv("07:00", "08:00"))
		require.Equal(t, open, got)
	})
}

func TestCoalesce(t *testing.T) {
	got := coalesce([]Interval{iv("09:00", "12:00"), iv("12:00", "14:00"), iv("15:00", "17:00")})
	require.Equal(t, []Interval{iv("09:00", "14:00"), iv("15:00", "17:00")}, got)
}

func TestValidateIntervalSet(t *testing.T) {
	assert.NoError(t, ValidateIntervalSet(nil))
	assert.NoError(t, ValidateIntervalSet([]Interval{iv("09:00", "12:00"), iv("14:00", "17:00")}))
	assert.Error(t, ValidateIntervalSet([]Interval{iv("12:00", "09:00")}), "inverted")
	assert.Error(t, ValidateIntervalSet([]Interval{iv("14:00", "17:00"), iv("09:00", "12:00")}), "out of order")
	assert.Error(t, ValidateIntervalSet([]Interval{iv("09:00", "12:00"), iv("11:00", "13:00")}), "overlapping")
}
