package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/clinicware/session-scheduler/internal/scheduling"
)

type RouterConfig struct {
	Service *scheduling.Service
	Repo    scheduling.Repository
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

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Scheduling endpoints
	r.Get("/therapists/{id}/availability", availabilityHandler(cfg.Service))
	r.Post("/sessions", createSessionHandler(cfg.Service))
	r.Post("/sessions/bulk", bulkScheduleHandler(cfg.Service))
	r.Get("/sessions/{id}", getSessionHandler(cfg.Repo))
	r.Post("/sessions/{id}/reschedule", rescheduleSessionHandler(cfg.Service))

	return r
}
