package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinova/clinic-scheduling/internal/schedule"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPractitioner(row pgx.Row) (*Practitioner, error) {
	var p Practitioner
	var specialty *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&specialty,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPractitionerNotFound
		}
		return nil, err
	}

	p.Specialty = specialty
	return &p, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Email = email
	return &p, nil
}

func scanAppointment(row pgx.Row) (*schedule.Appointment, error) {
	var a schedule.Appointment
	var start, duration int
	var reason *string

	err := row.Scan(
		&a.ID,
		&a.PractitionerID,
		&a.PatientID,
		&a.Date,
		&start,
		&duration,
		&a.Status,
		&reason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Date = schedule.DateOnly(a.Date)
	a.Start = schedule.ClockTime(start)
	a.DurationMinutes = duration
	a.Reason = reason
	return &a, nil
}

const appointmentColumns = `
	id, practitioner_id, patient_id, date, start_min, duration_min,
	status, reason, created_at, updated_at`

func collectAppointments(rows pgx.Rows) ([]schedule.Appointment, error) {
	defer rows.Close()

	var out []schedule.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *appt)
	}
	return out, rows.Err()
}

// Interface methods

func (r *PgRepository) GetPractitionerByID(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, created_at, updated_at
		FROM practitioners
		WHERE id = $1
	`, id)
	return scanPractitioner(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

// GetSchedule assembles the availability configuration from its three
// tables. Absent rows simply mean an empty template, no breaks or no
// exceptions, never an error.
func (r *PgRepository) GetSchedule(ctx context.Context, practitionerID uuid.UUID) (schedule.Schedule, error) {
	sched := schedule.Schedule{
		PractitionerID: practitionerID,
		Weekly:         schedule.WeeklyTemplate{},
	}

	rows, err := r.pool.Query(ctx, `
		SELECT weekday, start_min, end_min
		FROM weekly_availability
		WHERE practitioner_id = $1
		ORDER BY weekday, start_min
	`, practitionerID)
	if err != nil {
		return schedule.Schedule{}, fmt.Errorf("query weekly availability: %w", err)
	}
	for rows.Next() {
		var weekday, start, end int
		if err := rows.Scan(&weekday, &start, &end); err != nil {
			rows.Close()
			return schedule.Schedule{}, err
		}
		day := time.Weekday(weekday)
		sched.Weekly[day] = append(sched.Weekly[day], schedule.Interval{
			Start: schedule.ClockTime(start),
			End:   schedule.ClockTime(end),
		})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return schedule.Schedule{}, err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT id, weekday, date, start_min, end_min, label
		FROM schedule_breaks
		WHERE practitioner_id = $1
		ORDER BY start_min
	`, practitionerID)
	if err != nil {
		return schedule.Schedule{}, fmt.Errorf("query breaks: %w", err)
	}
	for rows.Next() {
		var br schedule.Break
		var weekday *int
		var date *time.Time
		var start, end int
		if err := rows.Scan(&br.ID, &weekday, &date, &start, &end, &br.Label); err != nil {
			rows.Close()
			return schedule.Schedule{}, err
		}
		if weekday != nil {
			day := time.Weekday(*weekday)
			br.Weekday = &day
		}
		if date != nil {
			d := schedule.DateOnly(*date)
			br.Date = &d
		}
		br.Window = schedule.Interval{Start: schedule.ClockTime(start), End: schedule.ClockTime(end)}
		sched.Breaks = append(sched.Breaks, br)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return schedule.Schedule{}, err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT id, date, closed, hours, label
		FROM schedule_exceptions
		WHERE practitioner_id = $1
		ORDER BY date
	`, practitionerID)
	if err != nil {
		return schedule.Schedule{}, fmt.Errorf("query exceptions: %w", err)
	}
	for rows.Next() {
		var exc schedule.DateException
		var hours []byte
		if err := rows.Scan(&exc.ID, &exc.Date, &exc.Closed, &hours, &exc.Label); err != nil {
			rows.Close()
			return schedule.Schedule{}, err
		}
		exc.Date = schedule.DateOnly(exc.Date)
		if len(hours) > 0 {
			if err := json.Unmarshal(hours, &exc.Hours); err != nil {
				rows.Close()
				return schedule.Schedule{}, fmt.Errorf("decode exception hours: %w", err)
			}
		}
		sched.Exceptions = append(sched.Exceptions, exc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return schedule.Schedule{}, err
	}

	return sched, nil
}

// ListDayAppointments returns the occupying (non-cancelled) appointments for
// one practitioner/date, the appointment half of a conflict snapshot.
func (r *PgRepository) ListDayAppointments(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]schedule.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE practitioner_id = $1 AND date = $2 AND status <> 'cancelled'
		ORDER BY start_min
	`, practitionerID, date)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, f AppointmentFilter) ([]schedule.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE 1=1`
	args := []any{}

	if f.PractitionerID != uuid.Nil {
		args = append(args, f.PractitionerID)
		query += fmt.Sprintf(" AND practitioner_id = $%d", len(args))
	}
	if f.PatientID != uuid.Nil {
		args = append(args, f.PatientID)
		query += fmt.Sprintf(" AND patient_id = $%d", len(args))
	}
	if f.Date != nil {
		args = append(args, schedule.DateOnly(*f.Date))
		query += fmt.Sprintf(" AND date = $%d", len(args))
	}

	query += " ORDER BY date, start_min"

	limit := f.Limit
	if limit <= 0 {
		limit = 200
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, appt schedule.Appointment) (*schedule.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (
			id, practitioner_id, patient_id, date, start_min, duration_min,
			status, reason, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING `+appointmentColumns+`
	`, appt.ID, appt.PractitionerID, appt.PatientID, appt.Date,
		int(appt.Start), appt.DurationMinutes, appt.Status, appt.Reason)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentTime(ctx context.Context, id uuid.UUID, date time.Time, start schedule.ClockTime, durationMinutes int) (*schedule.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET date = $2, start_min = $3, duration_min = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, date, int(start), durationMinutes)
	return scanAppointment(row)
}

// UpdateAppointmentStatus is a compare-and-set: the row must still be in the
// expected source status or the update reports not found.
func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to schedule.AppointmentStatus) (*schedule.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+appointmentColumns+`
	`, id, from, to)
	return scanAppointment(row)
}

func (r *PgRepository) ListConfirmedBefore(ctx context.Context, lastDate time.Time) ([]schedule.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'confirmed' AND date <= $1
		ORDER BY date, start_min
	`, lastDate)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// SaveWeeklyTemplate replaces the template atomically: delete then insert in
// one transaction.
func (r *PgRepository) SaveWeeklyTemplate(ctx context.Context, practitionerID uuid.UUID, tmpl schedule.WeeklyTemplate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM weekly_availability WHERE practitioner_id = $1
	`, practitionerID); err != nil {
		return err
	}

	for weekday, ivs := range tmpl {
		for _, iv := range ivs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO weekly_availability (practitioner_id, weekday, start_min, end_min)
				VALUES ($1, $2, $3, $4)
			`, practitionerID, int(weekday), int(iv.Start), int(iv.End)); err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) AddBreak(ctx context.Context, practitionerID uuid.UUID, br schedule.Break) error {
	var weekday *int
	if br.Weekday != nil {
		w := int(*br.Weekday)
		weekday = &w
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO schedule_breaks (id, practitioner_id, weekday, date, start_min, end_min, label)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, br.ID, practitionerID, weekday, br.Date, int(br.Window.Start), int(br.Window.End), br.Label)
	return err
}

func (r *PgRepository) PutException(ctx context.Context, practitionerID uuid.UUID, exc schedule.DateException) error {
	var hours []byte
	if !exc.Closed {
		var err error
		hours, err = json.Marshal(exc.Hours)
		if err != nil {
			return fmt.Errorf("encode exception hours: %w", err)
		}
	}

	// One exception per practitioner/date; a second write replaces the first.
	_, err := r.pool.Exec(ctx, `
		INSERT INTO schedule_exceptions (id, practitioner_id, date, closed, hours, label)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (practitioner_id, date)
		DO UPDATE SET closed = EXCLUDED.closed, hours = EXCLUDED.hours, label = EXCLUDED.label
	`, exc.ID, practitionerID, exc.Date, exc.Closed, hours, exc.Label)
	return err
}

func (r *PgRepository) DeleteException(ctx context.Context, practitionerID uuid.UUID, date time.Time) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM schedule_exceptions
		WHERE practitioner_id = $1 AND date = $2
	`, practitionerID, date)
	return err
}

func (r *PgRepository) AddWaitingListEntry(ctx context.Context, entry schedule.WaitingListEntry) (*schedule.WaitingListEntry, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO waiting_list (id, practitioner_id, patient_id, date, duration_min, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id, practitioner_id, patient_id, date, duration_min, note, created_at
	`, entry.ID, entry.PractitionerID, entry.PatientID, entry.Date, entry.DurationMinutes, entry.Note)
	return scanWaitingListEntry(row)
}

func scanWaitingListEntry(row pgx.Row) (*schedule.WaitingListEntry, error) {
	var e schedule.WaitingListEntry
	var duration int

	err := row.Scan(&e.ID, &e.PractitionerID, &e.PatientID, &e.Date, &duration, &e.Note, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	e.Date = schedule.DateOnly(e.Date)
	e.DurationMinutes = duration
	return &e, nil
}

func (r *PgRepository) ListWaitingList(ctx context.Context, practitionerID uuid.UUID, date *time.Time) ([]schedule.WaitingListEntry, error) {
	query := `
		SELECT id, practitioner_id, patient_id, date, duration_min, note, created_at
		FROM waiting_list
		WHERE 1=1`
	args := []any{}

	if practitionerID != uuid.Nil {
		args = append(args, practitionerID)
		query += fmt.Sprintf(" AND practitioner_id = $%d", len(args))
	}
	if date != nil {
		args = append(args, schedule.DateOnly(*date))
		query += fmt.Sprintf(" AND date = $%d", len(args))
	}
	query += " ORDER BY created_at"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.WaitingListEntry
	for rows.Next() {
		e, err := scanWaitingListEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *PgRepository) ListCalendarEvents(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]schedule.CalendarEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, practitioner_id, date, start_min, end_min, title
		FROM calendar_events
		WHERE practitioner_id = $1 AND date = $2
		ORDER BY start_min
	`, practitionerID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.CalendarEvent
	for rows.Next() {
		var ev schedule.CalendarEvent
		var start, end int
		if err := rows.Scan(&ev.ID, &ev.PractitionerID, &ev.Date, &start, &end, &ev.Title); err != nil {
			return nil, err
		}
		ev.Date = schedule.DateOnly(ev.Date)
		ev.Window = schedule.Interval{Start: schedule.ClockTime(start), End: schedule.ClockTime(end)}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_log (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`, ev.EventType, ev.AppointmentID, ev.Payload, ev.CreatedAt)
	return err
}
