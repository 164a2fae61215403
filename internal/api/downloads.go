package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/cloudmaster/internal/catalog"
	"github.com/p-n-ai/cloudmaster/internal/question"
)

type startBatchRequest struct {
	Courses []question.CourseID `json:"courses"`
}

func (s *Server) handleStartBatch(w http.ResponseWriter, r *http.Request) {
	var req startBatchRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	// Without an explicit list the batch downloads the favorite courses.
	if len(req.Courses) == 0 {
		favs, err := s.Favorites.Favorites(r.Context())
		if err != nil {
			slog.Error("failed to read favorites", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to read favorites")
			return
		}
		req.Courses = favs
	}
	if len(req.Courses) == 0 {
		writeError(w, http.StatusBadRequest, "courses is required when there are no favorites")
		return
	}

	seen := make(map[question.CourseID]bool, len(req.Courses))
	courses := make([]catalog.Course, 0, len(req.Courses))
	for _, id := range req.Courses {
		if seen[id] {
			continue
		}
		seen[id] = true
		c, ok := s.Catalog.Get(id)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown course "+string(id))
			return
		}
		courses = append(courses, c)
	}

	b := s.Ingest.StartBatch(s.baseCtx, courses)
	writeJSON(w, http.StatusAccepted, b.Status())
}

func (s *Server) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	b, ok := s.Ingest.Batch(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown download")
		return
	}
	writeJSON(w, http.StatusOK, b.Status())
}

func (s *Server) handleCancelBatch(w http.ResponseWriter, r *http.Request) {
	b, ok := s.Ingest.Batch(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown download")
		return
	}
	b.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

// handleBatchStream pushes batch snapshots over a WebSocket until the batch
// finishes or the client goes away.
func (s *Server) handleBatchStream(w http.ResponseWriter, r *http.Request) {
	b, ok := s.Ingest.Batch(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown download")
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "batch_id", b.ID(), "error", err)
		return
	}
	defer conn.CloseNow()

	// The client never sends; CloseRead cancels ctx when it disconnects.
	ctx := conn.CloseRead(r.Context())

	updates, stop := b.Subscribe()
	defer stop()

	for {
		select {
		case st, open := <-updates:
			if !open {
				conn.Close(websocket.StatusNormalClosure, "download finished")
				return
			}
			if err := wsjson.Write(ctx, conn, st); err != nil {
				if !errors.Is(err, context.Canceled) {
					slog.Debug("websocket write failed", "batch_id", b.ID(), "error", err)
				}
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
