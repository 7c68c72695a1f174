package schedule

import (
	"fmt"
	"sort"
)

// Interval is a half-open [Start, End) span of clock time on a single date.
type Interval struct {
	Start ClockTime `json:"start"`
	End   ClockTime `json:"end"`
}

func NewInterval(start, end ClockTime) Interval {
	return Interval{Start: start, End: end}
}

func (iv Interval) Minutes() int {
	return int(iv.End - iv.Start)
}

// Overlaps reports strict overlap of two half-open intervals. Touching
// endpoints do not overlap, so back-to-back spans are compatible.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

// Contains reports whether other lies entirely within iv.
func (iv Interval) Contains(other Interval) bool {
	return iv.Start <= other.Start && other.End <= iv.End
}

// Expand widens the interval by pad minutes on both sides, clamped to the day.
func (iv Interval) Expand(pad int) Interval {
	out := Interval{Start: iv.Start - ClockTime(pad), End: iv.End + ClockTime(pad)}
	if out.Start < 0 {
		out.Start = 0
	}
	if out.End > MinutesPerDay {
		out.End = MinutesPerDay
	}
	return out
}

func (iv Interval) String() string {
	return fmt.Sprintf("%s-%s", iv.Start, iv.End)
}

// validInterval rejects empty, inverted or out-of-day spans.
func validInterval(iv Interval) bool {
	return iv.Start.Valid() && iv.Start < iv.End && iv.End <= MinutesPerDay
}

// ValidateIntervalSet enforces the day invariant for stored availability:
// every interval well formed, sorted by start, no two overlapping.
func ValidateIntervalSet(ivs []Interval) error {
	for i, iv := range ivs {
		if !validInterval(iv) {
			return fmt.Errorf("interval %s is not a valid clock span", iv)
		}
		if i > 0 {
			prev := ivs[i-1]
			if iv.Start < prev.Start {
				return fmt.Errorf("intervals out of order: %s before %s", prev, iv)
			}
			if prev.Overlaps(iv) {
				return fmt.Errorf("intervals %s and %s overlap", prev, iv)
			}
		}
	}
	return nil
}

// sortIntervals returns a copy ordered by start time. Inputs are never
// mutated; the resolver pipeline works on fresh slices at every stage.
func sortIntervals(ivs []Interval) []Interval {
	out := make([]Interval, len(ivs))
	copy(out, ivs)
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// coalesce merges touching or overlapping intervals in a sorted set. The
// resolver keeps touching windows distinct because they may carry different
// metadata, but for booking decisions they act as one contiguous span.
func coalesce(ivs []Interval) []Interval {
	if len(ivs) < 2 {
		return ivs
	}
	out := make([]Interval, 0, len(ivs))
	cur := ivs[0]
	for _, iv := range ivs[1:] {
		if iv.Start <= cur.End {
			if iv.End > cur.End {
				cur.End = iv.End
			}
			continue
		}
		out = append(out, cur)
		cur = iv
	}
	return append(out, cur)
}

// subtract removes blocked from each open interval, splitting an interval
// in two when blocked falls strictly inside it.
func subtract(open []Interval, blocked Interval) []Interval {
	out := make([]Interval, 0, len(open)+1)
	for _, iv := range open {
		if !iv.Overlaps(blocked) {
			out = append(out, iv)
			continue
		}
		if iv.Start < blocked.Start {
			out = append(out, Interval{Start: iv.Start, End: blocked.Start})
		}
		if blocked.End < iv.End {
			out = append(out, Interval{Start: blocked.End, End: iv.End})
		}
	}
	return out
}
