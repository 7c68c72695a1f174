package schedule

import "time"

// OpenIntervals resolves the practitioner's bookable windows for one date.
//
// Resolution order: weekday template, then the date's exception (a closure
// empties the day, replacement hours displace the template entirely), then
// subtraction of every applicable break. The result is sorted by start time.
// An empty day is a normal outcome, never an error.
func (s Schedule) OpenIntervals(date time.Time) []Interval {
	open := s.baseIntervals(date)
	open = subtractBreaks(open, s.Breaks, date)
	return sortIntervals(open)
}

// baseIntervals applies exception precedence over the weekly template.
func (s Schedule) baseIntervals(date time.Time) []Interval {
	for _, exc := range s.Exceptions {
		if !SameDate(exc.Date, date) {
			continue
		}
		if exc.Closed {
			return nil
		}
		return sortIntervals(exc.Hours)
	}
	return sortIntervals(s.Weekly[date.Weekday()])
}

func subtractBreaks(open []Interval, breaks []Break, date time.Time) []Interval {
	for _, b := range breaks {
		if b.AppliesTo(date) {
			open = subtract(open, b.Window)
		}
	}
	return open
}
