package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

// ClockTime is a clinic-local time of day in minutes since midnight.
// Appointments, breaks and availability windows all live on this axis;
// dates are carried separately.
type ClockTime int

const MinutesPerDay = 24 * 60

// ParseClock parses "HH:MM" in 24h form.
func ParseClock(s string) (ClockTime, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}

	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}

	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}

	return ClockTime(h*60 + m), nil
}

// MustClock is ParseClock for trusted literals (seed data, tests).
func MustClock(s string) ClockTime {
	t, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Valid reports whether t falls within a single day.
func (t ClockTime) Valid() bool {
	return t >= 0 && t < MinutesPerDay
}
