package access

import (
	"github.com/google/uuid"

	"github.com/clinova/clinic-scheduling/internal/schedule"
)

// Record is any scheduling datum the filter can scope: appointments,
// waiting-list entries, calendar events. A record with no patient dimension
// returns uuid.Nil from PatientRef.
type Record interface {
	PractitionerRef() uuid.UUID
	PatientRef() uuid.UUID
}

// CanView applies the role scope table to a single record.
func CanView(actor Actor, rec Record) bool {
	switch {
	case actor.fullScope():
		return true
	case actor.Role == RolePractitioner:
		return actor.PractitionerID != uuid.Nil && rec.PractitionerRef() == actor.PractitionerID
	case actor.Role == RolePatient:
		return actor.ID != uuid.Nil && rec.PatientRef() == actor.ID
	}
	return false
}

// CanMutate mirrors CanView scope for writes. Patients may touch only their
// own records, and the service layer further restricts them to
// non-destructive fields.
func CanMutate(actor Actor, rec Record) bool {
	return CanView(actor, rec)
}

// Visible filters records down to the actor's scope, preserving order.
func Visible[T Record](actor Actor, records []T) []T {
	if actor.fullScope() {
		return records
	}
	out := make([]T, 0, len(records))
	for _, rec := range records {
		if CanView(actor, rec) {
			out = append(out, rec)
		}
	}
	return out
}

// CanManageSchedule guards mutations of practitioner-owned configuration
// (availability template, breaks, exceptions): admins, or the bound
// practitioner themself. Staff and nurses book appointments but do not
// rewrite a practitioner's hours.
func CanManageSchedule(actor Actor, practitionerID uuid.UUID) bool {
	if actor.Role == RoleAdmin {
		return true
	}
	return actor.Role == RolePractitioner &&
		actor.PractitionerID != uuid.Nil &&
		actor.PractitionerID == practitionerID
}

// CanBookFor decides whether the actor may create or move an appointment for
// the given practitioner/patient pair. Patients book for themselves only;
// practitioners only onto their own calendar.
func CanBookFor(actor Actor, practitionerID, patientID uuid.UUID) bool {
	switch {
	case actor.fullScope():
		return true
	case actor.Role == RolePractitioner:
		return actor.PractitionerID != uuid.Nil && actor.PractitionerID == practitionerID
	case actor.Role == RolePatient:
		return actor.ID != uuid.Nil && actor.ID == patientID
	}
	return false
}

// Metrics is the dashboard aggregate. The shape is fixed: consumers always
// receive every field, zeroed when the actor has no aggregate scope. Scoped
// marks figures recomputed over a practitioner's own subset.
type Metrics struct {
	Total      int  `json:"total"`
	Confirmed  int  `json:"confirmed"`
	Waiting    int  `json:"waiting"`
	InProgress int  `json:"in_progress"`
	Completed  int  `json:"completed"`
	Cancelled  int  `json:"cancelled"`
	NoShow     int  `json:"no_show"`
	Scoped     bool `json:"scoped"`
}

// AppointmentMetrics computes dashboard counts under the actor's scope:
// full-scope roles get unfiltered counts, a bound practitioner gets counts
// over their own appointments tagged as scoped, everyone else gets the
// zeroed object.
func AppointmentMetrics(actor Actor, appts []schedule.Appointment) Metrics {
	switch {
	case actor.fullScope():
		return countAppointments(appts, false)
	case actor.Role == RolePractitioner && actor.PractitionerID != uuid.Nil:
		return countAppointments(Visible(actor, appts), true)
	}
	return Metrics{}
}

func countAppointments(appts []schedule.Appointment, scoped bool) Metrics {
	m := Metrics{Total: len(appts), Scoped: scoped}
	for _, a := range appts {
		switch a.Status {
		case schedule.StatusConfirmed:
			m.Confirmed++
		case schedule.StatusWaiting:
			m.Waiting++
		case schedule.StatusInProgress:
			m.InProgress++
		case schedule.StatusCompleted:
			m.Completed++
		case schedule.StatusCancelled:
			m.Cancelled++
		case schedule.StatusNoShow:
			m.NoShow++
		}
	}
	return m
}
