// Package api exposes downloads, training and exams over HTTP.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/p-n-ai/cloudmaster/internal/catalog"
	"github.com/p-n-ai/cloudmaster/internal/coursestatus"
	"github.com/p-n-ai/cloudmaster/internal/exam"
	"github.com/p-n-ai/cloudmaster/internal/favorites"
	"github.com/p-n-ai/cloudmaster/internal/ingest"
	"github.com/p-n-ai/cloudmaster/internal/question"
	"github.com/p-n-ai/cloudmaster/internal/questionset"
	"github.com/p-n-ai/cloudmaster/internal/training"
)

// CheckFunc reports whether a dependency is reachable.
type CheckFunc func(ctx context.Context) error

// Deps are the collaborators the HTTP layer serves.
type Deps struct {
	Catalog   *catalog.Catalog
	Ingest    *ingest.Service
	Sets      *questionset.Store
	Training  training.Store
	Exams     exam.Store
	Sessions  *exam.Sessions
	Status    coursestatus.Store
	Favorites favorites.Store

	// Checks are run by /readyz, keyed by dependency name.
	Checks map[string]CheckFunc
}

// Server routes HTTP requests to the course services.
type Server struct {
	Deps
	// baseCtx outlives requests; ingestions started over HTTP run under it.
	baseCtx context.Context

	mu        sync.Mutex
	downloads map[question.CourseID]*download
}

// NewServer creates a server. Downloads it starts stop when ctx is canceled.
func NewServer(ctx context.Context, d Deps) *Server {
	if d.Sessions == nil {
		d.Sessions = exam.NewSessions()
	}
	if d.Favorites == nil {
		d.Favorites = favorites.NewMemoryStore()
	}
	return &Server{
		Deps:      d,
		baseCtx:   ctx,
		downloads: make(map[question.CourseID]*download),
	}
}

// Handler returns the HTTP router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("GET /courses", s.handleListCourses)
	mux.HandleFunc("GET /courses/{course}", s.handleGetCourse)
	mux.HandleFunc("DELETE /courses/{course}", s.handleRemoveCourse)
	mux.HandleFunc("POST /courses/{course}/download", s.handleStartDownload)
	mux.HandleFunc("GET /courses/{course}/download", s.handleDownloadStatus)
	mux.HandleFunc("DELETE /courses/{course}/download", s.handleCancelDownload)

	mux.HandleFunc("GET /favorites", s.handleListFavorites)
	mux.HandleFunc("PUT /favorites/{course}", s.handleAddFavorite)
	mux.HandleFunc("DELETE /favorites/{course}", s.handleRemoveFavorite)

	mux.HandleFunc("POST /downloads", s.handleStartBatch)
	mux.HandleFunc("GET /downloads/{id}", s.handleBatchStatus)
	mux.HandleFunc("DELETE /downloads/{id}", s.handleCancelBatch)
	mux.HandleFunc("GET /downloads/{id}/ws", s.handleBatchStream)

	mux.HandleFunc("GET /courses/{course}/questions", s.handleQuestions)
	mux.HandleFunc("GET /courses/{course}/training", s.handleTrainingStats)
	mux.HandleFunc("DELETE /courses/{course}/training", s.handleResetTraining)
	mux.HandleFunc("POST /courses/{course}/training/answers", s.handleAnswer)

	mux.HandleFunc("GET /courses/{course}/bookmarks", s.handleListBookmarks)
	mux.HandleFunc("PUT /courses/{course}/bookmarks/{question}", s.handleAddBookmark)
	mux.HandleFunc("DELETE /courses/{course}/bookmarks/{question}", s.handleRemoveBookmark)

	mux.HandleFunc("POST /courses/{course}/exams", s.handleStartExam)
	mux.HandleFunc("GET /courses/{course}/exams", s.handleListExams)
	mux.HandleFunc("DELETE /courses/{course}/exams", s.handleResetExams)
	mux.HandleFunc("GET /courses/{course}/exams/export", s.handleExport)
	mux.HandleFunc("POST /exams/{id}/submit", s.handleSubmitExam)
	mux.HandleFunc("GET /exams/{id}", s.handleGetExam)
	mux.HandleFunc("DELETE /exams/{id}", s.handleDeleteExam)

	images := filepath.Join(s.Sets.Layout().Root, "images")
	mux.Handle("GET /images/", http.StripPrefix("/images/", http.FileServer(http.Dir(images))))
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(s.Checks))
	for name := range s.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := map[string]string{}
	for _, name := range names {
		if err := s.Checks[name](ctx); err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// course resolves the {course} path value against the catalog, writing a
// 404 when it is unknown.
func (s *Server) course(w http.ResponseWriter, r *http.Request) (catalog.Course, bool) {
	id := question.CourseID(r.PathValue("course"))
	c, ok := s.Catalog.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown course "+string(id))
		return catalog.Course{}, false
	}
	return c, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
