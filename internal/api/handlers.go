package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinova/clinic-scheduling/internal/booking"
	redisclient "github.com/clinova/clinic-scheduling/internal/redis"
	"github.com/clinova/clinic-scheduling/internal/schedule"
)

func bookAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		practitionerID, err := uuid.Parse(req.PractitionerID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "practitioner_id must be a valid UUID")
			return
		}
		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		date, err := schedule.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
		start, err := schedule.ParseClock(req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start", "start must be HH:MM")
			return
		}

		appt, err := svc.BookAppointment(r.Context(), GetActor(r.Context()), booking.BookingRequest{
			PractitionerID:  practitionerID,
			PatientID:       patientID,
			Date:            date,
			Start:           start,
			DurationMinutes: req.DurationMinutes,
			Reason:          req.Reason,
		})
		if err != nil {
			serviceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(*appt))
	}
}

func getAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		appt, err := svc.GetAppointment(r.Context(), GetActor(r.Context()), id)
		if err != nil {
			serviceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func listAppointmentsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f booking.AppointmentFilter

		q := r.URL.Query()
		if v := q.Get("practitioner_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "practitioner_id must be a valid UUID")
				return
			}
			f.PractitionerID = id
		}
		if v := q.Get("patient_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			f.PatientID = id
		}
		if v := q.Get("date"); v != "" {
			date, err := schedule.ParseDate(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			f.Date = &date
		}
		f.Limit, _ = strconv.Atoi(q.Get("limit"))
		f.Offset, _ = strconv.Atoi(q.Get("offset"))

		appts, err := svc.ListAppointments(r.Context(), GetActor(r.Context()), f)
		if err != nil {
			serviceError(w, err)
			return
		}

		out := make([]AppointmentResponse, 0, len(appts))
		for _, a := range appts {
			out = append(out, toAppointmentResponse(a))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func rescheduleAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		var req RescheduleAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		var sreq booking.RescheduleRequest
		if req.Date != "" {
			date, err := schedule.ParseDate(req.Date)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			sreq.Date = date
		}
		if req.Start != "" {
			start, err := schedule.ParseClock(req.Start)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_start", "start must be HH:MM")
				return
			}
			sreq.Start = &start
		}
		sreq.DurationMinutes = req.DurationMinutes

		appt, err := svc.Reschedule(r.Context(), GetActor(r.Context()), id, sreq)
		if err != nil {
			serviceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func changeStatusHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		var req StatusChangeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.ChangeStatus(r.Context(), GetActor(r.Context()), id, schedule.AppointmentStatus(req.Status))
		if err != nil {
			serviceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func cancelAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		appt, err := svc.CancelAppointment(r.Context(), GetActor(r.Context()), id)
		if err != nil {
			serviceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func availableSlotsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		date, ok := dateQuery(w, r)
		if !ok {
			return
		}
		duration, _ := strconv.Atoi(r.URL.Query().Get("duration"))

		slots, err := svc.AvailableSlots(r.Context(), id, date, duration)
		if err != nil {
			serviceError(w, err)
			return
		}

		out := make([]string, 0, len(slots))
		for _, s := range slots {
			out = append(out, s.String())
		}
		writeJSON(w, http.StatusOK, SlotsResponse{
			PractitionerID:  id,
			Date:            schedule.FormatDate(date),
			DurationMinutes: duration,
			Slots:           out,
		})
	}
}

func openHoursHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		date, ok := dateQuery(w, r)
		if !ok {
			return
		}

		open, err := svc.OpenHours(r.Context(), id, date)
		if err != nil {
			serviceError(w, err)
			return
		}

		out := make([]IntervalPayload, 0, len(open))
		for _, iv := range open {
			out = append(out, toIntervalPayload(iv))
		}
		writeJSON(w, http.StatusOK, OpenHoursResponse{
			PractitionerID: id,
			Date:           schedule.FormatDate(date),
			OpenIntervals:  out,
		})
	}
}

func setWeeklyTemplateHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		var req WeeklyTemplateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		tmpl := schedule.WeeklyTemplate{}
		for dayName, payloads := range req {
			day, ok := parseWeekday(dayName)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_weekday", "unknown weekday "+dayName)
				return
			}
			ivs, err := parseIntervals(payloads)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_interval", err.Error())
				return
			}
			tmpl[day] = ivs
		}

		if err := svc.SetWeeklyTemplate(r.Context(), GetActor(r.Context()), id, tmpl); err != nil {
			serviceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

func putBreakHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		var req BreakRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		br := schedule.Break{Label: req.Label}
		if req.Weekday != nil {
			day, ok := parseWeekday(*req.Weekday)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_weekday", "unknown weekday "+*req.Weekday)
				return
			}
			br.Weekday = &day
		}
		if req.Date != nil {
			date, err := schedule.ParseDate(*req.Date)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			d := schedule.DateOnly(date)
			br.Date = &d
		}
		window, err := parseInterval(req.Window)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_interval", err.Error())
			return
		}
		br.Window = window

		if err := svc.PutBreak(r.Context(), GetActor(r.Context()), id, br); err != nil {
			serviceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
	}
}

func putExceptionHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		var req ExceptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		date, err := schedule.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
		hours, err := parseIntervals(req.Hours)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_interval", err.Error())
			return
		}

		exc := schedule.DateException{
			Date:   date,
			Closed: req.Closed,
			Hours:  hours,
			Label:  req.Label,
		}
		if err := svc.PutException(r.Context(), GetActor(r.Context()), id, exc); err != nil {
			serviceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

func deleteExceptionHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		date, ok := dateQuery(w, r)
		if !ok {
			return
		}

		if err := svc.DeleteException(r.Context(), GetActor(r.Context()), id, date); err != nil {
			serviceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func metricsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var date *time.Time
		if v := r.URL.Query().Get("date"); v != "" {
			d, err := schedule.ParseDate(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			date = &d
		}

		metrics, err := svc.DashboardMetrics(r.Context(), GetActor(r.Context()), date)
		if err != nil {
			serviceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, metrics)
	}
}

func joinWaitingListHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req WaitingListRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		practitionerID, err := uuid.Parse(req.PractitionerID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "practitioner_id must be a valid UUID")
			return
		}
		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		date, err := schedule.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		entry, err := svc.JoinWaitingList(r.Context(), GetActor(r.Context()), booking.WaitingRequest{
			PractitionerID:  practitionerID,
			PatientID:       patientID,
			Date:            date,
			DurationMinutes: req.DurationMinutes,
			Note:            req.Note,
		})
		if err != nil {
			serviceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toWaitingListEntryResponse(*entry))
	}
}

func listWaitingListHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var practitionerID uuid.UUID
		if v := r.URL.Query().Get("practitioner_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "practitioner_id must be a valid UUID")
				return
			}
			practitionerID = id
		}
		var date *time.Time
		if v := r.URL.Query().Get("date"); v != "" {
			d, err := schedule.ParseDate(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			date = &d
		}

		entries, err := svc.ListWaitingList(r.Context(), GetActor(r.Context()), practitionerID, date)
		if err != nil {
			serviceError(w, err)
			return
		}

		out := make([]WaitingListEntryResponse, 0, len(entries))
		for _, e := range entries {
			out = append(out, toWaitingListEntryResponse(e))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func calendarHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "practitionerID")
		if !ok {
			return
		}
		date, ok := dateQuery(w, r)
		if !ok {
			return
		}

		view, err := svc.Calendar(r.Context(), GetActor(r.Context()), id, date)
		if err != nil {
			serviceError(w, err)
			return
		}

		resp := CalendarResponse{
			PractitionerID: id,
			Date:           schedule.FormatDate(date),
			OpenIntervals:  make([]IntervalPayload, 0, len(view.OpenHours)),
			Appointments:   make([]AppointmentResponse, 0, len(view.Appointments)),
			Events:         make([]CalendarEventResponse, 0, len(view.Events)),
		}
		for _, iv := range view.OpenHours {
			resp.OpenIntervals = append(resp.OpenIntervals, toIntervalPayload(iv))
		}
		for _, a := range view.Appointments {
			resp.Appointments = append(resp.Appointments, toAppointmentResponse(a))
		}
		for _, ev := range view.Events {
			resp.Events = append(resp.Events, CalendarEventResponse{
				ID:     ev.ID,
				Window: toIntervalPayload(ev.Window),
				Title:  ev.Title,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// serviceError maps the service error taxonomy onto HTTP statuses. A
// conflict ("slot unavailable") is deliberately distinct from not-found and
// forbidden so callers can offer alternate slots.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, booking.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, booking.ErrPractitionerNotFound):
		writeError(w, http.StatusNotFound, "practitioner_not_found", err.Error())
	case errors.Is(err, booking.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, booking.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, booking.ErrScheduleBusy),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "schedule_busy", "schedule is being modified, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// Parsing helpers

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func dateQuery(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	date, err := schedule.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date query parameter must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekday(name string) (time.Weekday, bool) {
	day, ok := weekdayNames[strings.ToLower(name)]
	return day, ok
}

func parseInterval(p IntervalPayload) (schedule.Interval, error) {
	start, err := schedule.ParseClock(p.Start)
	if err != nil {
		return schedule.Interval{}, err
	}
	end, err := schedule.ParseClock(p.End)
	if err != nil {
		return schedule.Interval{}, err
	}
	return schedule.Interval{Start: start, End: end}, nil
}

func parseIntervals(ps []IntervalPayload) ([]schedule.Interval, error) {
	out := make([]schedule.Interval, 0, len(ps))
	for _, p := range ps {
		iv, err := parseInterval(p)
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, nil
}
