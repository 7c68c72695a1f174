package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinova/clinic-scheduling/internal/schedule"
)

var (
	ErrPractitionerNotFound = errors.New("practitioner not found")
	ErrPatientNotFound      = errors.New("patient not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
)

// AppointmentFilter narrows appointment listings. Zero-value fields are
// ignored.
type AppointmentFilter struct {
	PractitionerID uuid.UUID
	PatientID      uuid.UUID
	Date           *time.Time
	Limit          int
	Offset         int
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPractitionerByID(ctx context.Context, id uuid.UUID) (*Practitioner, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// Snapshot reads for conflict decisions
	GetSchedule(ctx context.Context, practitionerID uuid.UUID) (schedule.Schedule, error)
	ListDayAppointments(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]schedule.Appointment, error)

	// Appointment reads and writes
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error)
	ListAppointments(ctx context.Context, f AppointmentFilter) ([]schedule.Appointment, error)
	CreateAppointment(ctx context.Context, appt schedule.Appointment) (*schedule.Appointment, error)
	UpdateAppointmentTime(ctx context.Context, id uuid.UUID, date time.Time, start schedule.ClockTime, durationMinutes int) (*schedule.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to schedule.AppointmentStatus) (*schedule.Appointment, error)

	// No-show worker
	ListConfirmedBefore(ctx context.Context, lastDate time.Time) ([]schedule.Appointment, error)

	// Practitioner schedule configuration
	SaveWeeklyTemplate(ctx context.Context, practitionerID uuid.UUID, tmpl schedule.WeeklyTemplate) error
	AddBreak(ctx context.Context, practitionerID uuid.UUID, br schedule.Break) error
	PutException(ctx context.Context, practitionerID uuid.UUID, exc schedule.DateException) error
	DeleteException(ctx context.Context, practitionerID uuid.UUID, date time.Time) error

	// Waiting list and calendar
	AddWaitingListEntry(ctx context.Context, entry schedule.WaitingListEntry) (*schedule.WaitingListEntry, error)
	ListWaitingList(ctx context.Context, practitionerID uuid.UUID, date *time.Time) ([]schedule.WaitingListEntry, error)
	ListCalendarEvents(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]schedule.CalendarEvent, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
