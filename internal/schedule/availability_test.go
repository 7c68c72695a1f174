package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2025-03-10 is a Monday.
var monday = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func standardWeek() WeeklyTemplate {
	return WeeklyTemplate{
		time.Monday:  {iv("09:00", "12:00"), iv("14:00", "17:00")},
		time.Tuesday: {iv("09:00", "13:00")},
	}
}

func TestOpenIntervalsUsesWeekdayTemplate(t *testing.T) {
	s := Schedule{Weekly: standardWeek()}

	require.Equal(t, []Interval{iv("09:00", "12:00"), iv("14:00", "17:00")}, s.OpenIntervals(monday))

	tuesday := monday.AddDate(0, 0, 1)
	require.Equal(t, []Interval{iv("09:00", "13:00")}, s.OpenIntervals(tuesday))

	sunday := monday.AddDate(0, 0, -1)
	assert.Empty(t, s.OpenIntervals(sunday), "a day with no template is closed")
}

func TestOpenIntervalsClosureException(t *testing.T) {
	s := Schedule{
		Weekly:     standardWeek(),
		Exceptions: []DateException{{Date: monday, Closed: true}},
	}

	assert.Empty(t, s.OpenIntervals(monday), "closure wins over the weekly template")
	assert.NotEmpty(t, s.OpenIntervals(monday.AddDate(0, 0, 7)), "next week is unaffected")
}

func TestOpenIntervalsReplacementException(t *testing.T) {
	s := Schedule{
		Weekly: standardWeek(),
		Exceptions: []DateException{
			{Date: monday, Hours: []Interval{iv("10:00", "13:00")}},
		},
	}

	require.Equal(t, []Interval{iv("10:00", "13:00")}, s.OpenIntervals(monday),
		"replacement hours displace the template entirely")
}

func TestOpenIntervalsSubtractsBreaks(t *testing.T) {
	wd := time.Monday
	s := Schedule{
		Weekly: WeeklyTemplate{time.Monday: {iv("09:00", "17:00")}},
		Breaks: []Break{
			{Weekday: &wd, Window: iv("12:00", "13:00")},
		},
	}

	require.Equal(t, []Interval{iv("09:00", "12:00"), iv("13:00", "17:00")}, s.OpenIntervals(monday))
}

func TestOpenIntervalsDateScopedBreak(t *testing.T) {
	s := Schedule{
		Weekly: standardWeek(),
		Breaks: []Break{
			{Date: &monday, Window: iv("09:00", "10:00")},
		},
	}

	require.Equal(t, []Interval{iv("10:00", "12:00"), iv("14:00", "17:00")}, s.OpenIntervals(monday))
	require.Equal(t, []Interval{iv("09:00", "12:00"), iv("14:00", "17:00")},
		s.OpenIntervals(monday.AddDate(0, 0, 7)), "date-scoped break applies to one date only")
}

func TestOpenIntervalsBreaksApplyToReplacementHours(t *testing.T) {
	wd := time.Monday
	s := Schedule{
		Weekly: standardWeek(),
		Breaks: []Break{
			{Weekday: &wd, Window: iv("11:00", "11:30")},
		},
		Exceptions: []DateException{
			{Date: monday, Hours: []Interval{iv("10:00", "13:00")}},
		},
	}

	require.Equal(t, []Interval{iv("10:00", "11:00"), iv("11:30", "13:00")}, s.OpenIntervals(monday))
}

func TestOpenIntervalsEmptyScheduleIsNotAnError(t *testing.T) {
	var s Schedule
	assert.Empty(t, s.OpenIntervals(monday))
}
