// Package adminapi exposes operator endpoints over a bruteguard.Engine.
package adminapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/bruteguard"
	"github.com/MrEthical07/bruteguard/metrics/export/prometheus"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
)

type Settings struct {
	// RateLimit caps admin requests per client IP within RateWindow. Zero disables it.
	RateLimit      int
	RateWindow     time.Duration
	RequestTimeout time.Duration
}

type API struct {
	engine   *bruteguard.Engine
	metrics  *prometheus.Exporter
	logger   *slog.Logger
	settings Settings
}

func New(engine *bruteguard.Engine, settings Settings, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.RequestTimeout <= 0 {
		settings.RequestTimeout = 15 * time.Second
	}
	return &API{
		engine:   engine,
		metrics:  prometheus.NewExporter(engine),
		logger:   logger,
		settings: settings,
	}
}

func (a *API) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(requestUUID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(a.settings.RequestTimeout))
	if a.settings.RateLimit > 0 && a.settings.RateWindow > 0 {
		router.Use(httprate.Limit(a.settings.RateLimit, a.settings.RateWindow, httprate.WithKeyFuncs(httprate.KeyByIP)))
	}

	router.Get("/health", a.handleHealth)
	router.Get("/metrics", a.metrics.Handler().ServeHTTP)

	router.Route("/v1", func(r chi.Router) {
		r.Get("/report", a.handleReport)
		r.Get("/identifiers/banned", a.handleListBanned)
		r.Get("/identifiers/challenged", a.handleListChallenged)
		r.Get("/identifiers/{id}", a.handleInspect)
		r.Delete("/identifiers/{id}", a.handleReset)
		r.Post("/identifiers/{id}/challenge-passed", a.handleChallengePassed)
	})

	return router
}

// requestUUID seeds X-Request-Id with a UUID so chi's RequestID and audit metadata share it.
func requestUUID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(middleware.RequestIDHeader, id)
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}
