package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/p-n-ai/cloudmaster/internal/favorites"
	"github.com/p-n-ai/cloudmaster/internal/question"
)

// favoriteSet returns the favorite courses as a set. A store failure is
// logged and yields an empty set so course listings still render.
func (s *Server) favoriteSet(r *http.Request) map[question.CourseID]bool {
	ids, err := s.Favorites.Favorites(r.Context())
	if err != nil {
		slog.Warn("failed to read favorites", "error", err)
		return nil
	}
	set := make(map[question.CourseID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Favorites.Favorites(r.Context())
	if err != nil {
		slog.Error("failed to read favorites", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read favorites")
		return
	}
	favs := make(map[question.CourseID]bool, len(ids))
	for _, id := range ids {
		favs[id] = true
	}

	out := make([]courseResponse, 0, len(ids))
	for _, id := range ids {
		c, ok := s.Catalog.Get(id)
		if !ok {
			slog.Warn("favorite course missing from catalog", "course", id)
			continue
		}
		out = append(out, s.describe(r, c, favs))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	c, ok := s.course(w, r)
	if !ok {
		return
	}
	if err := s.Favorites.AddFavorite(r.Context(), c.ShortName); err != nil {
		slog.Error("failed to add favorite", "course", c.ShortName, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add favorite")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	c, ok := s.course(w, r)
	if !ok {
		return
	}
	if err := s.Favorites.RemoveFavorite(r.Context(), c.ShortName); err != nil {
		slog.Error("failed to remove favorite", "course", c.ShortName, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove favorite")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bookmarkResponse struct {
	QuestionID question.ID `json:"question_id"`
	Text       string      `json:"text"`
	CreatedAt  time.Time   `json:"created_at"`

	// Question is nil when the course is not downloaded or no longer has
	// the question.
	Question *questionResponse `json:"question,omitempty"`
}

func (s *Server) handleListBookmarks(w http.ResponseWriter, r *http.Request) {
	c, ok := s.course(w, r)
	if !ok {
		return
	}
	list, err := s.Favorites.Bookmarks(r.Context(), c.ShortName)
	if err != nil {
		slog.Error("failed to read bookmarks", "course", c.ShortName, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read bookmarks")
		return
	}
	set, err := s.Sets.Read(c.ShortName)
	if err != nil {
		slog.Warn("bookmarks listed without question details", "course", c.ShortName, "error", err)
		set = nil
	}

	out := make([]bookmarkResponse, 0, len(list))
	for _, b := range list {
		br := bookmarkResponse{QuestionID: b.QuestionID, Text: b.Text, CreatedAt: b.CreatedAt}
		if q, found := findQuestion(set, b.QuestionID); found {
			br.Question = &toQuestions(question.Set{q})[0]
		}
		out = append(out, br)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddBookmark(w http.ResponseWriter, r *http.Request) {
	c, ok := s.course(w, r)
	if !ok {
		return
	}
	set, err := s.Sets.Read(c.ShortName)
	if err != nil {
		slog.Error("failed to read questions", "course", c.ShortName, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read questions")
		return
	}
	id := question.ID(r.PathValue("question"))
	q, found := findQuestion(set, id)
	if !found {
		writeError(w, http.StatusNotFound, "unknown question "+string(id))
		return
	}

	b, err := s.Favorites.AddBookmark(r.Context(), favorites.Bookmark{
		Course:     c.ShortName,
		QuestionID: q.ID,
		Text:       q.Text,
	})
	if err != nil {
		slog.Error("failed to add bookmark", "course", c.ShortName, "question_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add bookmark")
		return
	}
	writeJSON(w, http.StatusOK, bookmarkResponse{QuestionID: b.QuestionID, Text: b.Text, CreatedAt: b.CreatedAt})
}

func (s *Server) handleRemoveBookmark(w http.ResponseWriter, r *http.Request) {
	c, ok := s.course(w, r)
	if !ok {
		return
	}
	id := question.ID(r.PathValue("question"))
	err := s.Favorites.RemoveBookmark(r.Context(), c.ShortName, id)
	switch {
	case errors.Is(err, favorites.ErrNotFound):
		writeError(w, http.StatusNotFound, "question "+string(id)+" is not bookmarked")
	case err != nil:
		slog.Error("failed to remove bookmark", "course", c.ShortName, "question_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove bookmark")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
