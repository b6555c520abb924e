// Package api exposes the fines engine over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Veraticus/the-fines-must-flow/internal/common"
	"github.com/Veraticus/the-fines-must-flow/internal/engine"
	"github.com/Veraticus/the-fines-must-flow/internal/roster"
	"github.com/Veraticus/the-fines-must-flow/internal/service"
)

// Server is the fines HTTP API server.
type Server struct {
	engine         *engine.Engine
	store          service.Storage
	roster         *roster.Roster
	logger         *slog.Logger
	metricsEnabled bool
}

// NewServer creates a new API server. roster may be nil.
func NewServer(eng *engine.Engine, store service.Storage, names *roster.Roster, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{engine: eng, store: store, roster: names, logger: logger}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/amount", s.handleAmount)
		r.Get("/categories", s.handleCategories)
		r.Get("/summary", s.handleSummary)
		r.Get("/dashboard", s.handleDashboard)

		r.Route("/subjects/{subject}", func(r chi.Router) {
			r.Get("/balance", s.handleBalance)
			r.Post("/settle", s.handleSettle)
		})

		r.Post("/infractions", s.handleRecord)
		r.Delete("/infractions/{id}", s.handleDelete)
		r.Post("/infractions/{id}/complaints", s.handleComplaint)

		r.Get("/complaints", s.handleComplaints)
		r.Post("/complaints/{id}/resolve", s.handleResolveComplaint)

		r.Get("/roster", s.handleRoster)
		r.Post("/roster/refresh", s.handleRosterRefresh)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// requestLogger logs one line per request with slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, kind, msg string, fields map[string]string) {
	body := map[string]any{
		"message": msg,
		"type":    kind,
	}
	if len(fields) > 0 {
		body["fields"] = fields
	}
	writeJSON(w, status, map[string]any{"error": body})
}

// fail maps an engine error onto a status code. Unexpected errors are
// logged and hidden from the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *common.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "validation", err.Error(), verr.Fields)
	case errors.Is(err, common.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation", err.Error(), nil)
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal", http.StatusText(http.StatusInternalServerError), nil)
	}
}
