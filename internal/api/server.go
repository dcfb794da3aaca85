// Package api exposes the HTTP interface for the archive service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/h4dihastam/archive/internal/archive"
	"github.com/h4dihastam/archive/internal/config"
	"github.com/h4dihastam/archive/internal/metrics"
	"github.com/h4dihastam/archive/internal/storage"
)

// Capturer runs the capture pipeline for one URL.
type Capturer interface {
	Archive(ctx context.Context, rawURL string) (archive.Artifact, error)
}

// Persister publishes a finished capture and returns the stored row.
type Persister interface {
	Save(ctx context.Context, art archive.Artifact) (storage.Record, error)
}

// Server wires HTTP handlers to the capture pipeline and the archive index.
type Server struct {
	router   chi.Router
	capturer Capturer
	saver    Persister
	index    storage.IndexStore
	cfg      config.Config
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes. Captures can run
// for the full render budget, so the request timeout is generous.
func NewServer(
	capturer Capturer,
	saver Persister,
	index storage.IndexStore,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	s := &Server{
		capturer: capturer,
		saver:    saver,
		index:    index,
		cfg:      cfg,
		logger:   logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(150 * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/archives", func(r chi.Router) {
			r.Post("/", s.createArchive)
			r.Get("/", s.listArchives)
			r.Get("/{archive_id}", s.getArchive)
		})
	})

	// Captured artifact files served directly from the archive tree.
	fileServer := http.StripPrefix("/archives/", http.FileServer(http.Dir(cfg.Archive.BaseDir)))
	r.Get("/archives/*", fileServer.ServeHTTP)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type createArchiveRequest struct {
	URL string `json:"url"`
}

func (s *Server) createArchive(w http.ResponseWriter, r *http.Request) {
	var req createArchiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := archive.ValidateURL(req.URL); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	art, err := s.capturer.Archive(r.Context(), req.URL)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, archive.ErrInvalidURL):
			status = http.StatusBadRequest
		case errors.Is(err, context.DeadlineExceeded):
			status = http.StatusRequestTimeout
		}
		writeError(w, status, err.Error())
		return
	}

	rec, err := s.saver.Save(r.Context(), art)
	if err != nil {
		s.logger.Error("persist archive failed",
			zap.String("url", req.URL),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to persist archive")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) getArchive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "archive_id")
	rec, err := s.index.GetArchive(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "archive not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) listArchives(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	recs, err := s.index.ListArchives(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list archives")
		return
	}
	if recs == nil {
		recs = []storage.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"archives": recs})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
