package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/hackgods/hospital-booking/internal/catalog"
)

type RouterConfig struct {
	Service            AppointmentService
	Catalog            *catalog.Catalog
	Health             []Dependency
	Log                *zap.Logger
	Env                string
	Version            string
	ExposeErrors       bool
	RequestTimeout     time.Duration
	RateLimitPerSecond int
	CORSAllowedOrigins []string
	AuthJWTSecret      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	if cfg.RateLimitPerSecond > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimitPerSecond, time.Second))
	}
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(RecoverMiddleware(log))
	if cfg.RequestTimeout > 0 {
		r.Use(TimeoutMiddleware(cfg.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Resource not found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
	})

	health := NewHealthHandler(cfg.Health, cfg.Env, cfg.Version)
	r.Get("/health", health.Liveness)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	appts := &appointmentHandlers{svc: cfg.Service, log: log, exposeErrors: cfg.ExposeErrors}

	r.Route("/api", func(r chi.Router) {
		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", appts.create)
			r.With(AdminOnly(cfg.AuthJWTSecret, log)).Get("/all", appts.listAll)
			r.Get("/user", appts.listByUser)
			r.Get("/user/", appts.listByUser)
			r.Get("/user/{userId}", appts.listByUser)
			r.Get("/{id}", appts.get)
			r.Delete("/{id}", appts.delete)
			r.Patch("/{id}/confirm", appts.confirm)
			r.Patch("/{id}/cancel", appts.cancel)
		})

		if cfg.Catalog != nil {
			hospitals := &catalogHandlers{catalog: cfg.Catalog}
			r.Get("/catalog/hospitals", hospitals.listHospitals)
			r.Get("/catalog/hospitals/{id}", hospitals.getHospital)
		}
	})

	return r
}
