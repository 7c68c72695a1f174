package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/clinova/clinic-scheduling/internal/booking"
)

type RouterConfig struct {
	Service *booking.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(ActorMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Appointment lifecycle
	r.Post("/appointments", bookAppointmentHandler(cfg.Service))
	r.Get("/appointments", listAppointmentsHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/reschedule", rescheduleAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/status", changeStatusHandler(cfg.Service))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))

	// Practitioner availability
	r.Get("/practitioners/{id}/availability", openHoursHandler(cfg.Service))
	r.Get("/practitioners/{id}/slots", availableSlotsHandler(cfg.Service))
	r.Put("/practitioners/{id}/availability", setWeeklyTemplateHandler(cfg.Service))
	r.Post("/practitioners/{id}/breaks", putBreakHandler(cfg.Service))
	r.Put("/practitioners/{id}/exceptions", putExceptionHandler(cfg.Service))
	r.Delete("/practitioners/{id}/exceptions", deleteExceptionHandler(cfg.Service))

	// Dashboard, waiting list, calendar
	r.Get("/metrics/appointments", metricsHandler(cfg.Service))
	r.Post("/waiting-list", joinWaitingListHandler(cfg.Service))
	r.Get("/waiting-list", listWaitingListHandler(cfg.Service))
	r.Get("/calendar/{practitionerID}", calendarHandler(cfg.Service))

	return r
}
