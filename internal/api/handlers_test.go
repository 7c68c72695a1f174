package api

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinova/clinic-scheduling/internal/booking"
	redisclient "github.com/clinova/clinic-scheduling/internal/redis"
	"github.com/clinova/clinic-scheduling/internal/schedule"
)

func TestServiceErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{booking.ErrInvalidInput, 400, "invalid_input"},
		{booking.ErrForbidden, 403, "forbidden"},
		{booking.ErrPractitionerNotFound, 404, "practitioner_not_found"},
		{booking.ErrPatientNotFound, 404, "patient_not_found"},
		{booking.ErrAppointmentNotFound, 404, "appointment_not_found"},
		{booking.ErrSlotUnavailable, 409, "slot_unavailable"},
		{booking.ErrInvalidTransition, 409, "invalid_status_transition"},
		{booking.ErrScheduleBusy, 409, "schedule_busy"},
		{redisclient.ErrLockNotAcquired, 409, "schedule_busy"},
		{assert.AnError, 500, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			serviceError(rec, tc.err)

			assert.Equal(t, tc.status, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Error)
		})
	}
}

func TestParseWeekday(t *testing.T) {
	day, ok := parseWeekday("monday")
	require.True(t, ok)
	assert.Equal(t, time.Monday, day)

	day, ok = parseWeekday("Friday")
	require.True(t, ok, "weekday names are case-insensitive")
	assert.Equal(t, time.Friday, day)

	_, ok = parseWeekday("someday")
	assert.False(t, ok)
}

func TestParseInterval(t *testing.T) {
	iv, err := parseInterval(IntervalPayload{Start: "09:00", End: "12:30"})
	require.NoError(t, err)
	assert.Equal(t, schedule.MustClock("09:00"), iv.Start)
	assert.Equal(t, schedule.MustClock("12:30"), iv.End)

	_, err = parseInterval(IntervalPayload{Start: "9am", End: "12:30"})
	assert.Error(t, err)
	_, err = parseInterval(IntervalPayload{Start: "09:00", End: "25:00"})
	assert.Error(t, err)
}

func TestParseIntervals(t *testing.T) {
	ivs, err := parseIntervals([]IntervalPayload{
		{Start: "09:00", End: "12:00"},
		{Start: "14:00", End: "17:00"},
	})
	require.NoError(t, err)
	assert.Len(t, ivs, 2)

	_, err = parseIntervals([]IntervalPayload{{Start: "bad", End: "12:00"}})
	assert.Error(t, err)
}

func TestToAppointmentResponseWireFormat(t *testing.T) {
	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	appt := schedule.Appointment{
		Date:            date,
		Start:           schedule.MustClock("10:00"),
		DurationMinutes: 30,
		Status:          schedule.StatusConfirmed,
	}

	resp := toAppointmentResponse(appt)
	assert.Equal(t, "2025-03-10", resp.Date)
	assert.Equal(t, "10:00", resp.Start)
	assert.Equal(t, "10:30", resp.End)
	assert.Equal(t, "confirmed", resp.Status)
}
