package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/clinova/clinic-scheduling/internal/access"
	"github.com/clinova/clinic-scheduling/internal/config"
	redisclient "github.com/clinova/clinic-scheduling/internal/redis"
	"github.com/clinova/clinic-scheduling/internal/schedule"
)

const (
	EventAppointmentBooked      = "APPOINTMENT_BOOKED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventAppointmentStatus      = "APPOINTMENT_STATUS_CHANGED"
	EventScheduleUpdated        = "SCHEDULE_UPDATED"
	EventWaitingListJoined      = "WAITING_LIST_JOINED"
)

var (
	ErrSlotUnavailable   = errors.New("requested slot is not available")
	ErrForbidden         = errors.New("actor is not permitted to perform this action")
	ErrInvalidInput      = errors.New("invalid scheduling input")
	ErrInvalidTransition = errors.New("invalid appointment status transition")
	ErrScheduleBusy      = errors.New("schedule is being modified, please retry")
)

// statusTransitions is the explicit lifecycle table. Completed, cancelled and
// no_show are terminal.
var statusTransitions = map[schedule.AppointmentStatus][]schedule.AppointmentStatus{
	schedule.StatusConfirmed:  {schedule.StatusInProgress, schedule.StatusCancelled, schedule.StatusNoShow},
	schedule.StatusWaiting:    {schedule.StatusConfirmed, schedule.StatusCancelled},
	schedule.StatusInProgress: {schedule.StatusCompleted},
}

func transitionAllowed(from, to schedule.AppointmentStatus) bool {
	for _, t := range statusTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

type Service struct {
	repo        Repository
	locker      redisclient.Locker
	buffer      int // minutes, applied by slot listing and commit guard alike
	granularity int
	defaultDur  int
	noShowGrace time.Duration
}

func NewService(repo Repository, locker redisclient.Locker, cfg config.Config) *Service {
	return &Service{
		repo:        repo,
		locker:      locker,
		buffer:      cfg.SlotBufferMin,
		granularity: cfg.SlotGranularityMin,
		defaultDur:  cfg.DefaultDurationMin,
		noShowGrace: cfg.NoShowGrace,
	}
}

type BookingRequest struct {
	PractitionerID  uuid.UUID
	PatientID       uuid.UUID
	Date            time.Time
	Start           schedule.ClockTime
	DurationMinutes int
	Reason          *string
}

func (r BookingRequest) validate() error {
	if r.PractitionerID == uuid.Nil {
		return fmt.Errorf("%w: practitioner id is required", ErrInvalidInput)
	}
	if r.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patient id is required", ErrInvalidInput)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	if !r.Start.Valid() {
		return fmt.Errorf("%w: start time is out of range", ErrInvalidInput)
	}
	if r.DurationMinutes <= 0 || r.DurationMinutes > schedule.MinutesPerDay {
		return fmt.Errorf("%w: duration must be a positive number of minutes", ErrInvalidInput)
	}
	return nil
}

// BookAppointment validates the request, checks the actor's scope, and then
// runs conflict-check-and-persist under the per-practitioner-day lock so two
// racing requests can never both commit against the same snapshot.
func (s *Service) BookAppointment(ctx context.Context, actor access.Actor, req BookingRequest) (*schedule.Appointment, error) {
	if req.DurationMinutes == 0 {
		req.DurationMinutes = s.defaultDur
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	if !access.CanBookFor(actor, req.PractitionerID, req.PatientID) {
		return nil, ErrForbidden
	}

	if _, err := s.repo.GetPractitionerByID(ctx, req.PractitionerID); err != nil {
		return nil, fmt.Errorf("load practitioner: %w", err)
	}
	if _, err := s.repo.GetPatientByID(ctx, req.PatientID); err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}

	date := schedule.DateOnly(req.Date)
	var created *schedule.Appointment

	err := s.locker.WithScheduleLock(ctx, req.PractitionerID, date, func(lockCtx context.Context) error {
		snap, err := s.loadSnapshot(lockCtx, req.PractitionerID, date)
		if err != nil {
			return err
		}

		cand := schedule.Candidate{
			PractitionerID:  req.PractitionerID,
			Date:            date,
			Start:           req.Start,
			DurationMinutes: req.DurationMinutes,
		}
		if schedule.Conflicts(snap, cand, s.buffer) {
			return ErrSlotUnavailable
		}

		appt, err := s.repo.CreateAppointment(lockCtx, schedule.Appointment{
			ID:              uuid.New(),
			PractitionerID:  req.PractitionerID,
			PatientID:       req.PatientID,
			Date:            date,
			Start:           req.Start,
			DurationMinutes: req.DurationMinutes,
			Status:          schedule.StatusConfirmed,
			Reason:          req.Reason,
		})
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt
		s.logEvent(lockCtx, appt.ID, EventAppointmentBooked, map[string]any{
			"practitioner_id": req.PractitionerID.String(),
			"patient_id":      req.PatientID.String(),
			"date":            schedule.FormatDate(date),
			"start":           req.Start.String(),
			"duration_min":    req.DurationMinutes,
		})
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		return nil, err
	}

	return created, nil
}

type RescheduleRequest struct {
	Date            time.Time // zero keeps the current date
	Start           *schedule.ClockTime
	DurationMinutes int // zero keeps the current duration
}

// Reschedule moves an existing appointment. The fully merged candidate is
// re-checked with the appointment's own interval excluded, so moving an
// appointment onto its current time never self-conflicts.
func (s *Service) Reschedule(ctx context.Context, actor access.Actor, id uuid.UUID, req RescheduleRequest) (*schedule.Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if !access.CanMutate(actor, *appt) {
		return nil, ErrForbidden
	}
	if appt.Status != schedule.StatusConfirmed && appt.Status != schedule.StatusWaiting {
		return nil, ErrInvalidTransition
	}

	// Merge the request over the current appointment before checking;
	// partially applying only the non-conflicting fields is not a thing.
	date := appt.Date
	if !req.Date.IsZero() {
		date = schedule.DateOnly(req.Date)
	}
	start := appt.Start
	if req.Start != nil {
		start = *req.Start
	}
	duration := appt.DurationMinutes
	if req.DurationMinutes != 0 {
		duration = req.DurationMinutes
	}
	if !start.Valid() || duration <= 0 || duration > schedule.MinutesPerDay {
		return nil, fmt.Errorf("%w: rescheduled time is out of range", ErrInvalidInput)
	}

	var updated *schedule.Appointment

	err = s.locker.WithScheduleLock(ctx, appt.PractitionerID, date, func(lockCtx context.Context) error {
		snap, err := s.loadSnapshot(lockCtx, appt.PractitionerID, date)
		if err != nil {
			return err
		}

		cand := schedule.Candidate{
			PractitionerID:       appt.PractitionerID,
			Date:                 date,
			Start:                start,
			DurationMinutes:      duration,
			ExcludeAppointmentID: appt.ID,
		}
		if schedule.Conflicts(snap, cand, s.buffer) {
			return ErrSlotUnavailable
		}

		updated, err = s.repo.UpdateAppointmentTime(lockCtx, appt.ID, date, start, duration)
		if err != nil {
			return fmt.Errorf("update appointment time: %w", err)
		}

		s.logEvent(lockCtx, appt.ID, EventAppointmentRescheduled, map[string]any{
			"date":         schedule.FormatDate(date),
			"start":        start.String(),
			"duration_min": duration,
		})
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		return nil, err
	}

	return updated, nil
}

// ChangeStatus applies one explicit lifecycle transition. Patient actors may
// only cancel; every other status change is a staff-side action.
func (s *Service) ChangeStatus(ctx context.Context, actor access.Actor, id uuid.UUID, to schedule.AppointmentStatus) (*schedule.Appointment, error) {
	if !to.Known() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, to)
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if !access.CanMutate(actor, *appt) {
		return nil, ErrForbidden
	}
	if actor.Role == access.RolePatient && to != schedule.StatusCancelled {
		return nil, ErrForbidden
	}
	if !transitionAllowed(appt.Status, to) {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, appt.Status, to)
	if err != nil {
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventAppointmentStatus, map[string]any{
		"from": string(appt.Status),
		"to":   string(to),
	})

	return updated, nil
}

// CancelAppointment releases the occupied interval immediately: the
// cancelled row no longer participates in conflict checks.
func (s *Service) CancelAppointment(ctx context.Context, actor access.Actor, id uuid.UUID) (*schedule.Appointment, error) {
	return s.ChangeStatus(ctx, actor, id, schedule.StatusCancelled)
}

// AvailableSlots lists bookable start times for a practitioner's date.
// Read-only; takes no lock.
func (s *Service) AvailableSlots(ctx context.Context, practitionerID uuid.UUID, date time.Time, durationMinutes int) ([]schedule.ClockTime, error) {
	if durationMinutes == 0 {
		durationMinutes = s.defaultDur
	}
	if durationMinutes < 0 || durationMinutes > schedule.MinutesPerDay {
		return nil, fmt.Errorf("%w: duration must be a positive number of minutes", ErrInvalidInput)
	}
	if _, err := s.repo.GetPractitionerByID(ctx, practitionerID); err != nil {
		return nil, fmt.Errorf("load practitioner: %w", err)
	}

	day := schedule.DateOnly(date)
	snap, err := s.loadSnapshot(ctx, practitionerID, day)
	if err != nil {
		return nil, err
	}

	return schedule.GenerateSlots(snap, day, schedule.SlotPolicy{
		DurationMinutes:    durationMinutes,
		BufferMinutes:      s.buffer,
		GranularityMinutes: s.granularity,
	}), nil
}

// OpenHours returns the resolved open intervals for calendar rendering.
func (s *Service) OpenHours(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]schedule.Interval, error) {
	sched, err := s.repo.GetSchedule(ctx, practitionerID)
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	return sched.OpenIntervals(schedule.DateOnly(date)), nil
}

func (s *Service) GetAppointment(ctx context.Context, actor access.Actor, id uuid.UUID) (*schedule.Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if !access.CanView(actor, *appt) {
		return nil, ErrForbidden
	}
	return appt, nil
}

func (s *Service) ListAppointments(ctx context.Context, actor access.Actor, f AppointmentFilter) ([]schedule.Appointment, error) {
	appts, err := s.repo.ListAppointments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return access.Visible(actor, appts), nil
}

// DashboardMetrics returns role-scoped aggregate counts for one date, or for
// all dates when date is nil.
func (s *Service) DashboardMetrics(ctx context.Context, actor access.Actor, date *time.Time) (access.Metrics, error) {
	appts, err := s.repo.ListAppointments(ctx, AppointmentFilter{Date: date})
	if err != nil {
		return access.Metrics{}, fmt.Errorf("list appointments: %w", err)
	}
	return access.AppointmentMetrics(actor, appts), nil
}

// SetWeeklyTemplate replaces a practitioner's recurring availability.
func (s *Service) SetWeeklyTemplate(ctx context.Context, actor access.Actor, practitionerID uuid.UUID, tmpl schedule.WeeklyTemplate) error {
	if !access.CanManageSchedule(actor, practitionerID) {
		return ErrForbidden
	}
	if err := tmpl.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := s.repo.GetPractitionerByID(ctx, practitionerID); err != nil {
		return fmt.Errorf("load practitioner: %w", err)
	}
	if err := s.repo.SaveWeeklyTemplate(ctx, practitionerID, tmpl); err != nil {
		return fmt.Errorf("save weekly template: %w", err)
	}
	s.logEvent(ctx, uuid.Nil, EventScheduleUpdated, map[string]any{
		"practitioner_id": practitionerID.String(),
		"change":          "weekly_template",
	})
	return nil
}

// PutBreak records a recurring or date-scoped blocked window.
func (s *Service) PutBreak(ctx context.Context, actor access.Actor, practitionerID uuid.UUID, br schedule.Break) error {
	if !access.CanManageSchedule(actor, practitionerID) {
		return ErrForbidden
	}
	if (br.Weekday == nil) == (br.Date == nil) {
		return fmt.Errorf("%w: a break is scoped to exactly one of weekday or date", ErrInvalidInput)
	}
	if err := schedule.ValidateIntervalSet([]schedule.Interval{br.Window}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if br.ID == uuid.Nil {
		br.ID = uuid.New()
	}
	if err := s.repo.AddBreak(ctx, practitionerID, br); err != nil {
		return fmt.Errorf("save break: %w", err)
	}
	s.logEvent(ctx, uuid.Nil, EventScheduleUpdated, map[string]any{
		"practitioner_id": practitionerID.String(),
		"change":          "break",
	})
	return nil
}

// PutException records a date override: closure or replacement hours.
// Existing bookings that the override strands are left in place for staff to
// resolve; they are surfaced by listings but never auto-cancelled.
func (s *Service) PutException(ctx context.Context, actor access.Actor, practitionerID uuid.UUID, exc schedule.DateException) error {
	if !access.CanManageSchedule(actor, practitionerID) {
		return ErrForbidden
	}
	if exc.Date.IsZero() {
		return fmt.Errorf("%w: exception date is required", ErrInvalidInput)
	}
	if !exc.Closed {
		if err := schedule.ValidateIntervalSet(exc.Hours); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	if exc.ID == uuid.Nil {
		exc.ID = uuid.New()
	}
	exc.Date = schedule.DateOnly(exc.Date)
	if err := s.repo.PutException(ctx, practitionerID, exc); err != nil {
		return fmt.Errorf("save exception: %w", err)
	}
	s.logEvent(ctx, uuid.Nil, EventScheduleUpdated, map[string]any{
		"practitioner_id": practitionerID.String(),
		"change":          "exception",
		"date":            schedule.FormatDate(exc.Date),
	})
	return nil
}

func (s *Service) DeleteException(ctx context.Context, actor access.Actor, practitionerID uuid.UUID, date time.Time) error {
	if !access.CanManageSchedule(actor, practitionerID) {
		return ErrForbidden
	}
	if err := s.repo.DeleteException(ctx, practitionerID, schedule.DateOnly(date)); err != nil {
		return fmt.Errorf("delete exception: %w", err)
	}
	return nil
}

type WaitingRequest struct {
	PractitionerID  uuid.UUID
	PatientID       uuid.UUID
	Date            time.Time
	DurationMinutes int
	Note            *string
}

// JoinWaitingList queues a patient for a day with no acceptable open slot.
func (s *Service) JoinWaitingList(ctx context.Context, actor access.Actor, req WaitingRequest) (*schedule.WaitingListEntry, error) {
	if req.PractitionerID == uuid.Nil || req.PatientID == uuid.Nil || req.Date.IsZero() {
		return nil, fmt.Errorf("%w: practitioner, patient and date are required", ErrInvalidInput)
	}
	if !access.CanBookFor(actor, req.PractitionerID, req.PatientID) {
		return nil, ErrForbidden
	}
	if req.DurationMinutes == 0 {
		req.DurationMinutes = s.defaultDur
	}
	if _, err := s.repo.GetPatientByID(ctx, req.PatientID); err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}

	entry, err := s.repo.AddWaitingListEntry(ctx, schedule.WaitingListEntry{
		ID:              uuid.New(),
		PractitionerID:  req.PractitionerID,
		PatientID:       req.PatientID,
		Date:            schedule.DateOnly(req.Date),
		DurationMinutes: req.DurationMinutes,
		Note:            req.Note,
	})
	if err != nil {
		return nil, fmt.Errorf("add waiting list entry: %w", err)
	}

	s.logEvent(ctx, uuid.Nil, EventWaitingListJoined, map[string]any{
		"practitioner_id": req.PractitionerID.String(),
		"patient_id":      req.PatientID.String(),
		"date":            schedule.FormatDate(entry.Date),
	})
	return entry, nil
}

func (s *Service) ListWaitingList(ctx context.Context, actor access.Actor, practitionerID uuid.UUID, date *time.Time) ([]schedule.WaitingListEntry, error) {
	entries, err := s.repo.ListWaitingList(ctx, practitionerID, date)
	if err != nil {
		return nil, fmt.Errorf("list waiting list: %w", err)
	}
	return access.Visible(actor, entries), nil
}

// CalendarView is the merged day view for one practitioner.
type CalendarView struct {
	OpenHours    []schedule.Interval
	Appointments []schedule.Appointment
	Events       []schedule.CalendarEvent
}

func (s *Service) Calendar(ctx context.Context, actor access.Actor, practitionerID uuid.UUID, date time.Time) (*CalendarView, error) {
	day := schedule.DateOnly(date)

	sched, err := s.repo.GetSchedule(ctx, practitionerID)
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	appts, err := s.repo.ListDayAppointments(ctx, practitionerID, day)
	if err != nil {
		return nil, fmt.Errorf("list day appointments: %w", err)
	}
	events, err := s.repo.ListCalendarEvents(ctx, practitionerID, day)
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}

	return &CalendarView{
		OpenHours:    sched.OpenIntervals(day),
		Appointments: access.Visible(actor, appts),
		Events:       access.Visible(actor, events),
	}, nil
}

// SweepNoShows marks confirmed appointments whose booked span ended more than
// the grace period ago as no_show. Called periodically by the worker.
func (s *Service) SweepNoShows(ctx context.Context, now time.Time) error {
	candidates, err := s.repo.ListConfirmedBefore(ctx, schedule.DateOnly(now))
	if err != nil {
		return fmt.Errorf("find stale confirmed appointments: %w", err)
	}

	for _, appt := range candidates {
		end := appt.Date.Add(time.Duration(int(appt.Start)+appt.DurationMinutes) * time.Minute)
		if now.Sub(end) < s.noShowGrace {
			continue
		}
		_, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, schedule.StatusConfirmed, schedule.StatusNoShow)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			log.Printf("failed to mark appointment %s as no-show: %v", appt.ID, err)
			continue
		}
		s.logEvent(ctx, appt.ID, EventAppointmentStatus, map[string]any{
			"from":   string(schedule.StatusConfirmed),
			"to":     string(schedule.StatusNoShow),
			"reason": "worker",
		})
	}

	return nil
}

// loadSnapshot builds the consistent per-decision view of one practitioner's
// day: schedule configuration plus non-cancelled appointments.
func (s *Service) loadSnapshot(ctx context.Context, practitionerID uuid.UUID, date time.Time) (schedule.Snapshot, error) {
	sched, err := s.repo.GetSchedule(ctx, practitionerID)
	if err != nil {
		return schedule.Snapshot{}, fmt.Errorf("load schedule: %w", err)
	}
	appts, err := s.repo.ListDayAppointments(ctx, practitionerID, date)
	if err != nil {
		return schedule.Snapshot{}, fmt.Errorf("list day appointments: %w", err)
	}
	return schedule.Snapshot{Schedule: sched, Appointments: appts}, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	ev := EventLog{
		EventType: eventType,
		Payload:   data,
		CreatedAt: time.Now(),
	}
	if appointmentID != uuid.Nil {
		apptID := appointmentID
		ev.AppointmentID = &apptID
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s: %v", eventType, err)
	}
}
