package schedule

import "time"

// SlotPolicy holds the presentation knobs for slot generation. The values
// come from configuration and are never mutated at runtime.
type SlotPolicy struct {
	DurationMinutes    int
	BufferMinutes      int
	GranularityMinutes int
}

// GenerateSlots enumerates the bookable start times for a date, walking each
// open interval at granularity steps from its start. A candidate is emitted
// iff the span plus trailing buffer fits inside the interval and the raw span
// clears every occupying booking's buffered interval. Output is chronological
// with no duplicate starts.
//
// Acceptance here matches Conflicts exactly for the same buffer, which keeps
// the advertised slot list and the commit-time guard in agreement.
func GenerateSlots(snap Snapshot, date time.Time, pol SlotPolicy) []ClockTime {
	if pol.DurationMinutes <= 0 || pol.GranularityMinutes <= 0 {
		return nil
	}

	open := coalesce(snap.Schedule.OpenIntervals(date))
	blocked := bufferedBookings(snap, date, pol.BufferMinutes)

	var out []ClockTime
	seen := make(map[ClockTime]struct{})

	for _, iv := range open {
		last := iv.End - ClockTime(pol.DurationMinutes+pol.BufferMinutes)
		for s := iv.Start; s <= last; s += ClockTime(pol.GranularityMinutes) {
			if _, dup := seen[s]; dup {
				continue
			}
			want := Interval{Start: s, End: s + ClockTime(pol.DurationMinutes)}
			if overlapsAny(want, blocked) {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}

	return out
}

// bufferedBookings collects the buffer-expanded spans of every appointment
// still occupying the practitioner's date.
func bufferedBookings(snap Snapshot, date time.Time, bufferMinutes int) []Interval {
	var out []Interval
	for _, a := range snap.Appointments {
		if !a.Status.Occupies() {
			continue
		}
		if a.PractitionerID != snap.Schedule.PractitionerID || !SameDate(a.Date, date) {
			continue
		}
		out = append(out, a.Interval().Expand(bufferMinutes))
	}
	return out
}

func overlapsAny(want Interval, blocked []Interval) bool {
	for _, b := range blocked {
		if want.Overlaps(b) {
			return true
		}
	}
	return false
}
