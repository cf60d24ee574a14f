// Package server exposes the group backend and the ref-updated webhook over
// HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/GerritCodeReview/plugins-gitgroups/internal/groups"
)

// RouterOptions controls the construction of the HTTP router.
type RouterOptions struct {
	Backend *groups.Backend
	Index   *groups.RefIndex
	Logger  zerolog.Logger

	// HealthHandler overrides the default /healthz handler when set.
	HealthHandler http.HandlerFunc
}

// NewRouter assembles the chi router.
func NewRouter(opts RouterOptions) chi.Router {
	h := &handlers{
		backend: opts.Backend,
		index:   opts.Index,
		log:     opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(opts.Logger))
	r.Use(middleware.Recoverer)

	health := opts.HealthHandler
	if health == nil {
		health = defaultHealthHandler
	}
	r.Get("/healthz", health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/refs-updated", h.refsUpdated)
		r.Get("/membership", h.membership)
		r.Get("/suggest", h.suggest)
		r.Get("/groups/*", h.describeGroup)
	})

	return r
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// requestLogger emits one log line per request with status and duration.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
