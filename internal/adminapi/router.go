// Package adminapi exposes a read-mostly HTTP admin surface over the same
// session.Handler command set the memcache text protocol drives, for
// HTTP-based tooling (duraqctl, dashboards, curl) that would rather not
// speak the wire protocol.
package adminapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/duraqio/duraq/internal/adminapi/auth"
	"github.com/duraqio/duraq/internal/adminapi/handlers"
	adminmw "github.com/duraqio/duraq/internal/adminapi/middleware"
	"github.com/duraqio/duraq/internal/logger"
	"github.com/duraqio/duraq/internal/session"
)

// NewRouter builds the chi router for the admin API.
//
// Routes:
//   - GET  /health              - liveness probe, unauthenticated
//   - GET  /health/status       - broker up/readonly/quiescent state
//   - GET  /queues              - list every queue with its stats
//   - GET  /queues/{name}       - stats for one queue
//   - POST /queues/{name}/flush - unconditional flush (JWT required)
//   - POST /queues/{name}/flush_expired - sweep expired items (JWT required)
//   - POST /flush_all           - flush every queue (JWT required)
func NewRouter(cmd *session.Handler, jwtService *auth.JWTService) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	healthHandler := handlers.NewHealthHandler(cmd)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/status", healthHandler.Status)
	})

	queueHandler := handlers.NewQueueHandler(cmd)
	r.Route("/queues", func(r chi.Router) {
		r.Get("/", queueHandler.List)
		r.Get("/{name}", queueHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(adminmw.JWTAuth(jwtService))
			r.Post("/{name}/flush", queueHandler.Flush)
			r.Post("/{name}/flush_expired", queueHandler.FlushExpired)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(adminmw.JWTAuth(jwtService))
		r.Post("/flush_all", queueHandler.FlushAll)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("admin API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
		)
	})
}
