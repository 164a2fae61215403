package api

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/p-n-ai/cloudmaster/internal/catalog"
	"github.com/p-n-ai/cloudmaster/internal/coursestatus"
	"github.com/p-n-ai/cloudmaster/internal/ingest"
	"github.com/p-n-ai/cloudmaster/internal/question"
)

type courseResponse struct {
	catalog.Course
	CompanyName string               `json:"company_name"`
	Downloaded  bool                 `json:"downloaded"`
	Downloading bool                 `json:"downloading"`
	Favorite    bool                 `json:"favorite"`
	Status      *coursestatus.Status `json:"status,omitempty"`
}

func (s *Server) describe(r *http.Request, c catalog.Course, favs map[question.CourseID]bool) courseResponse {
	resp := courseResponse{
		Course:      c,
		CompanyName: c.Company.DisplayName(),
		Downloaded:  s.Sets.Exists(c.ShortName),
		Downloading: s.Ingest.Running(c.ShortName),
		Favorite:    favs[c.ShortName],
	}
	if s.Status != nil {
		st, ok, err := s.Status.Get(r.Context(), c.ShortName)
		if err != nil {
			slog.Warn("failed to read course status", "course", c.ShortName, "error", err)
		} else if ok {
			resp.Status = &st
		}
	}
	return resp
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	courses := s.Catalog.All()
	if company := r.URL.Query().Get("company"); company != "" {
		courses = s.Catalog.ByCompany(catalog.Company(company))
	}
	favs := s.favoriteSet(r)
	out := make([]courseResponse, 0, len(courses))
	for _, c := range courses {
		out = append(out, s.describe(r, c, favs))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	c, ok := s.course(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.describe(r, c, s.favoriteSet(r)))
}

func (s *Server) handleRemoveCourse(w http.ResponseWriter, r *http.Request) {
	c, ok := s.course(w, r)
	if !ok {
		return
	}
	if err := s.Ingest.Remove(r.Context(), c.ShortName); err != nil {
		slog.Error("failed to remove course", "course", c.ShortName, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove course data")
		return
	}
	s.mu.Lock()
	delete(s.downloads, c.ShortName)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// download tracks the latest single-course download started over HTTP.
type download struct {
	mu        sync.Mutex
	state     ingest.CourseState
	progress  float64
	err       *ingest.Error
	result    *ingest.Result
	startedAt time.Time
}

type downloadResponse struct {
	Course    question.CourseID  `json:"course"`
	State     ingest.CourseState `json:"state"`
	Progress  float64            `json:"progress"`
	Error     string             `json:"error,omitempty"`
	ErrorKind string             `json:"error_kind,omitempty"`
	Result    *ingest.Result     `json:"result,omitempty"`
	StartedAt time.Time          `json:"started_at"`
}

func (d *download) snapshot(course question.CourseID) downloadResponse {
	d.mu.Lock()
	defer d.mu.Unlock()
	resp := downloadResponse{
		Course:    course,
		State:     d.state,
		Progress:  d.progress,
		Result:    d.result,
		StartedAt: d.startedAt,
	}
	if d.err != nil {
		resp.Error = d.err.Error()
		resp.ErrorKind = d.err.Kind.String()
	}
	return resp
}

func (s *Server) handleStartDownload(w http.ResponseWriter, r *http.Request) {
	c, ok := s.course(w, r)
	if !ok {
		return
	}

	d := &download{state: ingest.StateRunning, startedAt: time.Now().UTC()}
	s.mu.Lock()
	s.downloads[c.ShortName] = d
	s.mu.Unlock()

	s.Ingest.Ingest(s.baseCtx, c,
		func(f float64) {
			d.mu.Lock()
			d.progress = f
			d.mu.Unlock()
		},
		func(res ingest.Result, err error) {
			d.mu.Lock()
			defer d.mu.Unlock()
			if err != nil {
				d.state = ingest.StateFailed
				var ie *ingest.Error
				if errors.As(err, &ie) {
					d.err = ie
				} else {
					d.err = &ingest.Error{Course: c.ShortName, Err: err}
				}
				return
			}
			d.state = ingest.StateSucceeded
			d.progress = 1
			d.result = &res
		},
	)
	writeJSON(w, http.StatusAccepted, d.snapshot(c.ShortName))
}

func (s *Server) handleDownloadStatus(w http.ResponseWriter, r *http.Request) {
	c, ok := s.course(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	d := s.downloads[c.ShortName]
	s.mu.Unlock()
	if d == nil {
		writeError(w, http.StatusNotFound, "no download started for "+string(c.ShortName))
		return
	}
	writeJSON(w, http.StatusOK, d.snapshot(c.ShortName))
}

func (s *Server) handleCancelDownload(w http.ResponseWriter, r *http.Request) {
	c, ok := s.course(w, r)
	if !ok {
		return
	}
	if !s.Ingest.Cancel(c.ShortName) {
		writeError(w, http.StatusNotFound, "no download in progress for "+string(c.ShortName))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
