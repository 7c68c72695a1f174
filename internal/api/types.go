package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinova/clinic-scheduling/internal/schedule"
)

type BookAppointmentRequest struct {
	PractitionerID  string  `json:"practitioner_id"`
	PatientID       string  `json:"patient_id"`
	Date            string  `json:"date"`  // YYYY-MM-DD, clinic-local
	Start           string  `json:"start"` // HH:MM
	DurationMinutes int     `json:"duration_minutes,omitempty"`
	Reason          *string `json:"reason,omitempty"`
}

type RescheduleAppointmentRequest struct {
	Date            string `json:"date,omitempty"`
	Start           string `json:"start,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

type StatusChangeRequest struct {
	Status string `json:"status"`
}

type AppointmentResponse struct {
	ID              uuid.UUID `json:"id"`
	PractitionerID  uuid.UUID `json:"practitioner_id"`
	PatientID       uuid.UUID `json:"patient_id"`
	Date            string    `json:"date"`
	Start           string    `json:"start"`
	End             string    `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	Reason          *string   `json:"reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toAppointmentResponse(a schedule.Appointment) AppointmentResponse {
	iv := a.Interval()
	return AppointmentResponse{
		ID:              a.ID,
		PractitionerID:  a.PractitionerID,
		PatientID:       a.PatientID,
		Date:            schedule.FormatDate(a.Date),
		Start:           iv.Start.String(),
		End:             iv.End.String(),
		DurationMinutes: a.DurationMinutes,
		Status:          string(a.Status),
		Reason:          a.Reason,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

// IntervalPayload is a clock span on the wire, HH:MM endpoints.
type IntervalPayload struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func toIntervalPayload(iv schedule.Interval) IntervalPayload {
	return IntervalPayload{Start: iv.Start.String(), End: iv.End.String()}
}

// WeeklyTemplateRequest keys lowercase weekday names to that day's open
// windows. Omitted days are closed.
type WeeklyTemplateRequest map[string][]IntervalPayload

type BreakRequest struct {
	Weekday *string         `json:"weekday,omitempty"` // recurring: lowercase day name
	Date    *string         `json:"date,omitempty"`    // date-scoped: YYYY-MM-DD
	Window  IntervalPayload `json:"window"`
	Label   *string         `json:"label,omitempty"`
}

type ExceptionRequest struct {
	Date   string            `json:"date"`
	Closed bool              `json:"closed"`
	Hours  []IntervalPayload `json:"hours,omitempty"`
	Label  *string           `json:"label,omitempty"`
}

type SlotsResponse struct {
	PractitionerID  uuid.UUID `json:"practitioner_id"`
	Date            string    `json:"date"`
	DurationMinutes int       `json:"duration_minutes"`
	Slots           []string  `json:"slots"`
}

type OpenHoursResponse struct {
	PractitionerID uuid.UUID         `json:"practitioner_id"`
	Date           string            `json:"date"`
	OpenIntervals  []IntervalPayload `json:"open_intervals"`
}

type WaitingListRequest struct {
	PractitionerID  string  `json:"practitioner_id"`
	PatientID       string  `json:"patient_id"`
	Date            string  `json:"date"`
	DurationMinutes int     `json:"duration_minutes,omitempty"`
	Note            *string `json:"note,omitempty"`
}

type WaitingListEntryResponse struct {
	ID              uuid.UUID `json:"id"`
	PractitionerID  uuid.UUID `json:"practitioner_id"`
	PatientID       uuid.UUID `json:"patient_id"`
	Date            string    `json:"date"`
	DurationMinutes int       `json:"duration_minutes"`
	Note            *string   `json:"note,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func toWaitingListEntryResponse(e schedule.WaitingListEntry) WaitingListEntryResponse {
	return WaitingListEntryResponse{
		ID:              e.ID,
		PractitionerID:  e.PractitionerID,
		PatientID:       e.PatientID,
		Date:            schedule.FormatDate(e.Date),
		DurationMinutes: e.DurationMinutes,
		Note:            e.Note,
		CreatedAt:       e.CreatedAt,
	}
}

type CalendarEventResponse struct {
	ID     uuid.UUID       `json:"id"`
	Window IntervalPayload `json:"window"`
	Title  string          `json:"title"`
}

type CalendarResponse struct {
	PractitionerID uuid.UUID               `json:"practitioner_id"`
	Date           string                  `json:"date"`
	OpenIntervals  []IntervalPayload       `json:"open_intervals"`
	Appointments   []AppointmentResponse   `json:"appointments"`
	Events         []CalendarEventResponse `json:"events"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
