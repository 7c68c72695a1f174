package schedule

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(start string, minutes int) Candidate {
	return Candidate{
		PractitionerID:  practitionerA,
		Date:            monday,
		Start:           MustClock(start),
		DurationMinutes: minutes,
	}
}

func TestConflictsAgainstExistingBooking(t *testing.T) {
	snap := daySnapshot(booked("10:00", 30, StatusConfirmed))

	cases := []struct {
		name  string
		start string
		want  bool
	}{
		{name: "well before", start: "09:00", want: false},
		{name: "overlapping the start", start: "09:45", want: true},
		{name: "same start", start: "10:00", want: true},
		{name: "inside", start: "10:10", want: true},
		{name: "overlapping the end", start: "10:25", want: true},
		{name: "well after", start: "11:00", want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Conflicts(snap, candidate(tc.start, 30), 0)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestConflictsBackToBackPermittedWithZeroBuffer(t *testing.T) {
	snap := daySnapshot(booked("10:00", 30, StatusConfirmed))

	assert.False(t, Conflicts(snap, candidate("09:30", 30), 0),
		"ending exactly when the booking starts is not a conflict")
	assert.False(t, Conflicts(snap, candidate("10:30", 30), 0),
		"starting exactly when the booking ends is not a conflict")
}

func TestConflictsBufferAppliedAtCommit(t *testing.T) {
	snap := daySnapshot(booked("10:00", 30, StatusConfirmed))

	assert.True(t, Conflicts(snap, candidate("09:30", 30), 5),
		"the buffered span 09:55-10:35 blocks a 09:30-10:00 candidate")
	assert.False(t, Conflicts(snap, candidate("10:40", 30), 5))
}

func TestConflictsOutsideOpenIntervals(t *testing.T) {
	snap := daySnapshot()

	// 13:50-14:20 straddles the midday gap between 12:00 and 14:00; no
	// single open interval holds it.
	assert.True(t, Conflicts(snap, candidate("13:50", 30), 0))

	assert.True(t, Conflicts(snap, candidate("08:30", 30), 0), "before opening")
	assert.True(t, Conflicts(snap, candidate("16:45", 30), 0), "runs past closing")
	assert.False(t, Conflicts(snap, candidate("16:30", 30), 0), "ends exactly at closing")
}

func TestConflictsTrailingBufferAgainstIntervalEnd(t *testing.T) {
	snap := daySnapshot()

	assert.True(t, Conflicts(snap, candidate("11:30", 30), 5),
		"raw span fits but its trailing buffer crosses into the midday break")
	assert.False(t, Conflicts(snap, candidate("09:00", 30), 5),
		"the leading edge of a window is not buffered")
}

func TestConflictsIgnoresCancelled(t *testing.T) {
	snap := daySnapshot(booked("10:00", 30, StatusCancelled))
	assert.False(t, Conflicts(snap, candidate("10:00", 30), 0),
		"a cancelled appointment releases its interval immediately")
}

func TestConflictsSelfExclusionForEdits(t *testing.T) {
	existing := booked("10:00", 30, StatusConfirmed)
	snap := daySnapshot(existing, booked("11:00", 30, StatusConfirmed))

	same := candidate("10:00", 30)
	same.ExcludeAppointmentID = existing.ID
	assert.False(t, Conflicts(snap, same, 0),
		"moving an appointment onto its own current time must not self-conflict")

	ontoOther := candidate("11:00", 30)
	ontoOther.ExcludeAppointmentID = existing.ID
	assert.True(t, Conflicts(snap, ontoOther, 0),
		"exclusion covers only the edited appointment")
}

func TestConflictsClosureException(t *testing.T) {
	snap := daySnapshot()
	snap.Schedule.Exceptions = []DateException{{Date: monday, Closed: true}}

	assert.True(t, Conflicts(snap, candidate("10:00", 30), 0))
}

func TestConflictsMalformedInputBlocksBooking(t *testing.T) {
	snap := daySnapshot()

	assert.True(t, Conflicts(snap, candidate("10:00", 0), 0), "zero duration")
	assert.True(t, Conflicts(snap, candidate("10:00", -15), 0), "negative duration")

	bad := candidate("10:00", 30)
	bad.Start = ClockTime(-10)
	assert.True(t, Conflicts(snap, bad, 0), "negative start")

	assert.True(t, Conflicts(Snapshot{}, candidate("10:00", 30), 0),
		"absent availability means everything conflicts")
}

func TestConflictsIdempotent(t *testing.T) {
	snap := daySnapshot(booked("10:00", 30, StatusConfirmed))
	cand := candidate("10:15", 30)

	first := Conflicts(snap, cand, 5)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, Conflicts(snap, cand, 5))
	}
}

func TestConflictsIgnoresOtherPractitioner(t *testing.T) {
	other := booked("10:00", 30, StatusConfirmed)
	other.PractitionerID = uuid.MustParse("33333333-3333-3333-3333-333333333333")

	snap := daySnapshot()
	snap.Appointments = append(snap.Appointments, other)

	assert.False(t, Conflicts(snap, candidate("10:00", 30), 0))
}
