package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/zelo-saude/agendamento/internal/appointment"
)

type RouterConfig struct {
	Bookings     BookingService
	Availability AvailabilityService
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	JWTSecret    string
	Env          string
	Version      string
	Log          zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	// Unauthenticated surface
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Everything else requires an authenticated actor
	r.Group(func(r chi.Router) {
		r.Use(ActorMiddleware(cfg.JWTSecret))

		r.Get("/practitioners/{id}/availability", getAvailabilityHandler(cfg.Availability))
		r.Put("/practitioners/{id}/availability", setAvailabilityHandler(cfg.Availability))
		r.Get("/practitioners/{id}/slots", listSlotsHandler(cfg.Bookings))

		r.Post("/appointments", bookHandler(cfg.Bookings))
		r.Get("/appointments", listAppointmentsHandler(cfg.Bookings))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Bookings))

		r.Post("/appointments/{id}/confirm", transitionHandler(appointment.EventConfirm,
			func(ctx context.Context, actor appointment.Actor, id uuid.UUID, req TransitionRequest) (*appointment.Appointment, error) {
				return cfg.Bookings.Confirm(ctx, actor, id)
			}))
		r.Post("/appointments/{id}/reject", transitionHandler(appointment.EventReject,
			func(ctx context.Context, actor appointment.Actor, id uuid.UUID, req TransitionRequest) (*appointment.Appointment, error) {
				return cfg.Bookings.Reject(ctx, actor, id, req.Reason)
			}))
		r.Post("/appointments/{id}/cancel", transitionHandler(appointment.EventCancel,
			func(ctx context.Context, actor appointment.Actor, id uuid.UUID, req TransitionRequest) (*appointment.Appointment, error) {
				return cfg.Bookings.Cancel(ctx, actor, id, req.Reason)
			}))
		r.Post("/appointments/{id}/start", transitionHandler(appointment.EventStart,
			func(ctx context.Context, actor appointment.Actor, id uuid.UUID, req TransitionRequest) (*appointment.Appointment, error) {
				return cfg.Bookings.Start(ctx, actor, id)
			}))
		r.Post("/appointments/{id}/finish", transitionHandler(appointment.EventFinish,
			func(ctx context.Context, actor appointment.Actor, id uuid.UUID, req TransitionRequest) (*appointment.Appointment, error) {
				return cfg.Bookings.Finish(ctx, actor, id, req.Notes)
			}))
		r.Post("/appointments/{id}/no-show", transitionHandler(appointment.EventNoShow,
			func(ctx context.Context, actor appointment.Actor, id uuid.UUID, req TransitionRequest) (*appointment.Appointment, error) {
				return cfg.Bookings.MarkNoShow(ctx, actor, id)
			}))
	})

	return r
}
