package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	practitionerA = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	patientA      = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

func daySnapshot(appts ...Appointment) Snapshot {
	return Snapshot{
		Schedule: Schedule{
			PractitionerID: practitionerA,
			Weekly:         standardWeek(),
		},
		Appointments: appts,
	}
}

func booked(start string, minutes int, status AppointmentStatus) Appointment {
	return Appointment{
		ID:              uuid.New(),
		PractitionerID:  practitionerA,
		PatientID:       patientA,
		Date:            monday,
		Start:           MustClock(start),
		DurationMinutes: minutes,
		Status:          status,
	}
}

func slotStrings(slots []ClockTime) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.String())
	}
	return out
}

var standardPolicy = SlotPolicy{DurationMinutes: 30, BufferMinutes: 5, GranularityMinutes: 10}

// Availability 09:00-12:00 and 14:00-17:00, one 30-minute booking at 10:00.
// The booking's buffered span is 09:55-10:35, so every candidate whose raw
// span touches it goes; the trailing buffer also keeps 11:30 and 16:30 out
// because 30+5 minutes no longer fit before the interval ends.
func TestGenerateSlotsAroundBooking(t *testing.T) {
	snap := daySnapshot(booked("10:00", 30, StatusConfirmed))

	got := slotStrings(GenerateSlots(snap, monday, standardPolicy))

	want := []string{
		"09:00", "09:10", "09:20",
		"10:40", "10:50", "11:00", "11:10", "11:20",
		"14:00", "14:10", "14:20", "14:30", "14:40", "14:50",
		"15:00", "15:10", "15:20", "15:30", "15:40", "15:50",
		"16:00", "16:10", "16:20",
	}
	require.Equal(t, want, got)
}

func TestGenerateSlotsEmptyDay(t *testing.T) {
	snap := daySnapshot()
	sunday := monday.AddDate(0, 0, -1)
	assert.Empty(t, GenerateSlots(snap, sunday, standardPolicy))
}

func TestGenerateSlotsCancelledBookingFreesItsSpan(t *testing.T) {
	snap := daySnapshot(booked("10:00", 30, StatusCancelled))

	got := slotStrings(GenerateSlots(snap, monday, standardPolicy))
	assert.Contains(t, got, "10:00")
	assert.Contains(t, got, "10:10")
}

func TestGenerateSlotsZeroBufferAllowsBackToBack(t *testing.T) {
	snap := daySnapshot(booked("10:00", 30, StatusConfirmed))
	pol := SlotPolicy{DurationMinutes: 30, BufferMinutes: 0, GranularityMinutes: 10}

	got := slotStrings(GenerateSlots(snap, monday, pol))
	assert.Contains(t, got, "09:30", "ends exactly when the booking starts")
	assert.Contains(t, got, "10:30", "starts exactly when the booking ends")
	assert.NotContains(t, got, "09:40")
	assert.NotContains(t, got, "10:20")
}

// Every generated slot must lie inside some resolver open interval and pass
// the authoritative guard with the same policy.
func TestGeneratedSlotsAreSubsetOfOpenIntervalsAndCommitCleanly(t *testing.T) {
	snap := daySnapshot(
		booked("09:30", 20, StatusConfirmed),
		booked("15:00", 45, StatusInProgress),
	)

	open := snap.Schedule.OpenIntervals(monday)
	slots := GenerateSlots(snap, monday, standardPolicy)
	require.NotEmpty(t, slots)

	for _, s := range slots {
		span := Interval{Start: s, End: s + ClockTime(standardPolicy.DurationMinutes)}

		inOpen := false
		for _, o := range open {
			if o.Contains(span) {
				inOpen = true
				break
			}
		}
		assert.True(t, inOpen, "slot %s escapes the open intervals", s)

		cand := Candidate{
			PractitionerID:  practitionerA,
			Date:            monday,
			Start:           s,
			DurationMinutes: standardPolicy.DurationMinutes,
		}
		assert.False(t, Conflicts(snap, cand, standardPolicy.BufferMinutes),
			"slot %s would be rejected at commit time", s)
	}
}

func TestGenerateSlotsTouchingIntervalsActContiguous(t *testing.T) {
	snap := Snapshot{
		Schedule: Schedule{
			PractitionerID: practitionerA,
			Weekly: WeeklyTemplate{
				time.Monday: {iv("09:00", "10:00"), iv("10:00", "11:00")},
			},
		},
	}

	got := slotStrings(GenerateSlots(snap, monday, standardPolicy))
	assert.Contains(t, got, "09:40",
		"a span crossing a touching boundary books against the merged window")

	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1], got[i], "slots must be strictly increasing")
	}
}

func TestGenerateSlotsRejectsBadPolicy(t *testing.T) {
	snap := daySnapshot()
	assert.Nil(t, GenerateSlots(snap, monday, SlotPolicy{DurationMinutes: 0, GranularityMinutes: 10}))
	assert.Nil(t, GenerateSlots(snap, monday, SlotPolicy{DurationMinutes: 30, GranularityMinutes: 0}))
}
