package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/p-n-ai/cloudmaster/internal/question"
	"github.com/p-n-ai/cloudmaster/internal/questionset"
	"github.com/p-n-ai/cloudmaster/internal/training"
)

type choiceResponse struct {
	ID      question.ChoiceID `json:"id"`
	Text    string            `json:"text"`
	Correct bool              `json:"correct"`
}

type imageResponse struct {
	Path       string `json:"path"`
	URL        string `json:"url,omitempty"`
	Downloaded bool   `json:"downloaded"`
}

type questionResponse struct {
	ID                     question.ID      `json:"id"`
	Text                   string           `json:"text"`
	Choices                []choiceResponse `json:"choices"`
	MultipleResponse       bool             `json:"multiple_response"`
	RequiredSelectionCount int              `json:"required_selection_count"`
	Images                 []imageResponse  `json:"images"`
}

func toQuestions(set question.Set) []questionResponse {
	out := make([]questionResponse, 0, len(set))
	for _, q := range set {
		qr := questionResponse{
			ID:                     q.ID,
			Text:                   q.Text,
			Choices:                make([]choiceResponse, 0, len(q.Choices)),
			MultipleResponse:       q.IsMultipleResponse,
			RequiredSelectionCount: q.RequiredSelectionCount,
			Images:                 make([]imageResponse, 0, len(q.Images)),
		}
		for _, c := range q.Choices {
			qr.Choices = append(qr.Choices, choiceResponse{ID: c.ID, Text: c.Text, Correct: c.IsCorrect})
		}
		for _, img := range q.Images {
			qr.Images = append(qr.Images, imageResponse{Path: img.RelativePath, URL: img.SourceURL, Downloaded: img.Downloaded})
		}
		out = append(out, qr)
	}
	return out
}

func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	c, ok := s.course(w, r)
	if !ok {
		return
	}
	mode, err := questionset.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	set, err := s.Sets.Load(r.Context(), c.ShortName, mode)
	if err != nil {
		slog.Error("failed to load questions", "course", c.ShortName, "mode", mode, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load questions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"course":    c.ShortName,
		"mode":      mode.String(),
		"questions": toQuestions(set),
	})
}

func (s *Server) handleTrainingStats(w http.ResponseWriter, r *http.Request) {
	c, ok := s.course(w, r)
	if !ok {
		return
	}
	stats, err := s.Training.Get(r.Context(), c.ShortName)
	if err != nil {
		slog.Error("failed to read training stats", "course", c.ShortName, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read training stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleResetTraining(w http.ResponseWriter, r *http.Request) {
	c, ok := s.course(w, r)
	if !ok {
		return
	}
	if err := s.Training.Reset(r.Context(), c.ShortName); err != nil {
		slog.Error("failed to reset training stats", "course", c.ShortName, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reset training stats")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type answerRequest struct {
	QuestionID question.ID         `json:"question_id"`
	Selected   []question.ChoiceID `json:"selected"`
	ElapsedMS  int64               `json:"elapsed_ms"`
}

type answerResponse struct {
	Correct        bool                       `json:"correct"`
	CorrectChoices []question.ChoiceID        `json:"correct_choices"`
	Record         training.PerformanceRecord `json:"record"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	c, ok := s.course(w, r)
	if !ok {
		return
	}
	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ElapsedMS < 0 {
		writeError(w, http.StatusBadRequest, "elapsed_ms must not be negative")
		return
	}

	set, err := s.Sets.Read(c.ShortName)
	if err != nil {
		slog.Error("failed to read questions", "course", c.ShortName, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read questions")
		return
	}
	q, found := findQuestion(set, req.QuestionID)
	if !found {
		writeError(w, http.StatusNotFound, "unknown question "+string(req.QuestionID))
		return
	}

	rec, outcome, err := s.Training.RecordAnswer(r.Context(), c.ShortName, training.Answer{
		Question: q,
		Selected: req.Selected,
		Elapsed:  time.Duration(req.ElapsedMS) * time.Millisecond,
	})
	if err != nil {
		slog.Error("failed to record answer", "course", c.ShortName, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record answer")
		return
	}
	writeJSON(w, http.StatusOK, answerResponse{
		Correct:        outcome.Correct,
		CorrectChoices: q.CorrectChoices(),
		Record:         rec,
	})
}

func findQuestion(set question.Set, id question.ID) (question.Question, bool) {
	for _, q := range set {
		if q.ID == id {
			return q, true
		}
	}
	return question.Question{}, false
}
