package schedule

import (
	"time"

	"github.com/google/uuid"
)

// Candidate is an appointment request under validation: a fresh booking, or
// an edit when ExcludeAppointmentID names the appointment being moved.
type Candidate struct {
	PractitionerID       uuid.UUID
	Date                 time.Time
	Start                ClockTime
	DurationMinutes      int
	ExcludeAppointmentID uuid.UUID
}

func (c Candidate) Interval() Interval {
	return Interval{Start: c.Start, End: c.Start + ClockTime(c.DurationMinutes)}
}

// Conflicts is the authoritative booking guard. It reports true when the
// candidate would overlap another occupying appointment's buffered span, or
// does not fit inside any open interval for the date.
//
// The same buffer drives slot generation and this check, so a start time the
// generator emitted always commits cleanly against the same snapshot. With
// buffer 0 the check degrades to strict half-open overlap and back-to-back
// bookings are allowed.
//
// Malformed input (non-positive duration, span leaving the day) and absent
// availability both resolve to "conflict": the safe default blocks the write
// instead of risking a double booking. The check itself never fails.
func Conflicts(snap Snapshot, cand Candidate, bufferMinutes int) bool {
	if cand.DurationMinutes <= 0 || !cand.Start.Valid() {
		return true
	}

	want := cand.Interval()
	if want.End > MinutesPerDay {
		return true
	}

	if !fitsOpen(coalesce(snap.Schedule.OpenIntervals(cand.Date)), want, bufferMinutes) {
		return true
	}

	for _, a := range snap.Appointments {
		if !a.Status.Occupies() {
			continue
		}
		if a.PractitionerID != cand.PractitionerID || !SameDate(a.Date, cand.Date) {
			continue
		}
		if cand.ExcludeAppointmentID != uuid.Nil && a.ID == cand.ExcludeAppointmentID {
			continue
		}
		if want.Overlaps(a.Interval().Expand(bufferMinutes)) {
			return true
		}
	}

	return false
}

// fitsOpen requires the candidate plus its trailing buffer to sit inside a
// single open interval. The trailing edge is held against the interval
// boundary so a booking cannot spill buffer time into a break or closure;
// the leading edge is unbuffered so the first slot of a window stays
// bookable.
func fitsOpen(open []Interval, want Interval, bufferMinutes int) bool {
	for _, iv := range open {
		if iv.Start <= want.Start && want.End+ClockTime(bufferMinutes) <= iv.End {
			return true
		}
	}
	return false
}
