// Package server exposes the session's stores over a local HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/GetAnima/anima-memory/internal/session"
	"github.com/GetAnima/anima-memory/internal/storage"
)

// Server is the anima-memory HTTP API server. The stores assume a single
// writer, so session access is serialized: one request (or watcher
// invalidation) at a time.
type Server struct {
	sess    *session.Session
	mu      sync.Mutex
	router  chi.Router
	version string
	started time.Time
}

// New creates a Server over an open session.
func New(sess *session.Session, version string) *Server {
	s := &Server{
		sess:    sess,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// WatchIndices starts the fsnotify watcher that invalidates store caches
// when index files change on disk outside this process.
func (s *Server) WatchIndices() (*storage.Watcher, error) {
	return storage.Watch(s.sess.Layout, func(store string) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.sess.Invalidate(store)
	})
}

// serialize holds the session lock for the duration of each request.
func (s *Server) serialize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(s.serialize)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/memories", s.handleRemember)
		r.Get("/memories/recall", s.handleRecall)
		r.Post("/memories/decay", s.handleDecay)
		r.Post("/memories/curate", s.handleCurate)

		r.Post("/episodes", s.handleRecordEpisode)
		r.Get("/episodes", s.handleQueryEpisodes)
		r.Post("/episodes/consolidate", s.handleConsolidate)
		r.Post("/episodes/{id}/lessons", s.handleAddLesson)
		r.Post("/episodes/{id}/connections", s.handleConnect)

		r.Post("/knowledge", s.handleLearn)
		r.Get("/knowledge/{topic}", s.handleGetKnowledge)

		r.Post("/decisions", s.handleDecide)
		r.Get("/decisions/best", s.handleBestAction)
		r.Post("/hypotheses", s.handleHypothesize)
		r.Post("/hypotheses/evidence", s.handleEvidence)
		r.Put("/params/{key}", s.handleSetParam)
		r.Get("/params", s.handleListParams)
		r.Post("/failures", s.handleRecordFailure)
		r.Get("/failures/check", s.handleCheckFailures)

		r.Post("/opinions", s.handleSetOpinion)
		r.Get("/conflicts", s.handleListConflicts)
		r.Post("/conflicts/{id}/resolve", s.handleResolveConflict)

		r.Post("/relations", s.handleRecordInteraction)

		r.Get("/boot", s.handleBoot)
		r.Post("/reflect", s.handleReflect)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"session": s.sess.ID,
		"root":    s.sess.Layout.Root,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

var errInvalidJSON = errors.New("invalid json body")

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errInvalidJSON
	}
	return nil
}
