package schedule

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusConfirmed  AppointmentStatus = "confirmed"
	StatusWaiting    AppointmentStatus = "waiting"
	StatusInProgress AppointmentStatus = "in_progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
	StatusNoShow     AppointmentStatus = "no_show"
)

// Occupies reports whether an appointment in this status still holds its
// interval on the schedule. Cancellation releases the interval immediately;
// every other status keeps it blocked for conflict checks.
func (s AppointmentStatus) Occupies() bool {
	return s != StatusCancelled
}

func (s AppointmentStatus) Known() bool {
	switch s {
	case StatusConfirmed, StatusWaiting, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

type Appointment struct {
	ID              uuid.UUID
	PractitionerID  uuid.UUID
	PatientID       uuid.UUID
	Date            time.Time // clinic-local calendar day, normalized to midnight
	Start           ClockTime
	DurationMinutes int
	Status          AppointmentStatus
	Reason          *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Interval is the raw booked span [Start, Start+Duration).
func (a Appointment) Interval() Interval {
	return Interval{Start: a.Start, End: a.Start + ClockTime(a.DurationMinutes)}
}

func (a Appointment) PractitionerRef() uuid.UUID { return a.PractitionerID }
func (a Appointment) PatientRef() uuid.UUID      { return a.PatientID }

// WeeklyTemplate maps weekday to that day's open intervals, sorted and
// non-overlapping.
type WeeklyTemplate map[time.Weekday][]Interval

// Validate checks the per-day invariant for every weekday in the template.
func (t WeeklyTemplate) Validate() error {
	for _, ivs := range t {
		if err := ValidateIntervalSet(ivs); err != nil {
			return err
		}
	}
	return nil
}

// Break blocks a window either every week on a fixed weekday (lunch, ward
// rounds) or on one specific date.
type Break struct {
	ID      uuid.UUID
	Weekday *time.Weekday // recurring when set
	Date    *time.Time    // date-scoped when set
	Window  Interval
	Label   *string
}

// AppliesTo reports whether the break blocks time on the given date.
func (b Break) AppliesTo(date time.Time) bool {
	if b.Date != nil {
		return SameDate(*b.Date, date)
	}
	if b.Weekday != nil {
		return *b.Weekday == date.Weekday()
	}
	return false
}

// DateException overrides the weekly template for one date: a full closure,
// or a replacement set of open hours.
type DateException struct {
	ID     uuid.UUID
	Date   time.Time
	Closed bool
	Hours  []Interval // replacement hours when not closed
	Label  *string
}

// Schedule is a practitioner's availability configuration.
type Schedule struct {
	PractitionerID uuid.UUID
	Weekly         WeeklyTemplate
	Breaks         []Break
	Exceptions     []DateException
}

// WaitingListEntry queues a patient for a practitioner/date that had no
// acceptable open slot at booking time.
type WaitingListEntry struct {
	ID              uuid.UUID
	PractitionerID  uuid.UUID
	PatientID       uuid.UUID
	Date            time.Time
	DurationMinutes int
	Note            *string
	CreatedAt       time.Time
}

func (w WaitingListEntry) PractitionerRef() uuid.UUID { return w.PractitionerID }
func (w WaitingListEntry) PatientRef() uuid.UUID      { return w.PatientID }

// CalendarEvent is a non-appointment calendar item on a practitioner's day
// (meetings, training). Read-only through the API; it does not block booking.
type CalendarEvent struct {
	ID             uuid.UUID
	PractitionerID uuid.UUID
	Date           time.Time
	Window         Interval
	Title          string
}

func (e CalendarEvent) PractitionerRef() uuid.UUID { return e.PractitionerID }

// PatientRef returns uuid.Nil: events have no patient dimension, so patient
// actors never see them.
func (e CalendarEvent) PatientRef() uuid.UUID { return uuid.Nil }

// Snapshot is a consistent point-in-time read of one practitioner's schedule
// plus the non-cancelled appointments for one date. It is the sole input to a
// single conflict decision; the core never reads storage itself.
type Snapshot struct {
	Schedule     Schedule
	Appointments []Appointment
}

// DateOnly normalizes t to a bare calendar day in UTC. All schedule dates are
// stored and compared in this form.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ParseDate parses the wire form of a calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
