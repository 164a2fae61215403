package api

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/cloudmaster/internal/catalog"
	"github.com/p-n-ai/cloudmaster/internal/exam"
	"github.com/p-n-ai/cloudmaster/internal/question"
	"github.com/p-n-ai/cloudmaster/internal/questionset"
	"github.com/p-n-ai/cloudmaster/internal/report"
)

type startExamRequest struct {
	Mode catalog.ExamMode `json:"mode"`
}

type examSessionResponse struct {
	exam.Session
	Deadline  time.Time          `json:"deadline"`
	Questions []questionResponse `json:"questions"`
}

func (s *Server) handleStartExam(w http.ResponseWriter, r *http.Request) {
	c, ok := s.course(w, r)
	if !ok {
		return
	}
	var req startExamRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if _, err := c.Exam.Detail(req.Mode); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	set, err := s.Sets.Load(r.Context(), c.ShortName, questionset.ModeShuffled)
	if err != nil {
		slog.Error("failed to load questions", "course", c.ShortName, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load questions")
		return
	}
	if len(set) == 0 {
		writeError(w, http.StatusConflict, "course "+string(c.ShortName)+" is not downloaded")
		return
	}

	session, err := s.Sessions.Start(c, req.Mode, set)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	slog.Info("exam started", "course", c.ShortName, "exam_id", session.ID, "mode", req.Mode, "questions", len(session.Questions))
	writeJSON(w, http.StatusCreated, examSessionResponse{
		Session:   session,
		Deadline:  session.Deadline(),
		Questions: toQuestions(session.Questions),
	})
}

type submitExamRequest struct {
	Answers map[question.ID][]question.ChoiceID `json:"answers"`
}

func (s *Server) handleSubmitExam(w http.ResponseWriter, r *http.Request) {
	id, ok := s.examID(w, r)
	if !ok {
		return
	}
	var req submitExamRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := s.Sessions.Finish(id, req.Answers)
	if errors.Is(err, exam.ErrNotFound) {
		writeError(w, http.StatusNotFound, "unknown exam")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to grade exam")
		return
	}
	if err := s.Exams.Save(r.Context(), res); err != nil {
		slog.Error("failed to save exam result", "exam_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save exam result")
		return
	}
	slog.Info("exam finished", "course", res.Course, "exam_id", id, "correct", res.Score.Correct, "total", res.Score.Total, "passed", res.Score.Passed)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListExams(w http.ResponseWriter, r *http.Request) {
	c, ok := s.course(w, r)
	if !ok {
		return
	}
	results, err := s.Exams.List(r.Context(), c.ShortName)
	if err != nil {
		slog.Error("failed to list exams", "course", c.ShortName, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list exams")
		return
	}
	if results == nil {
		results = []exam.Result{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleResetExams(w http.ResponseWriter, r *http.Request) {
	c, ok := s.course(w, r)
	if !ok {
		return
	}
	if err := s.Exams.Reset(r.Context(), c.ShortName); err != nil {
		slog.Error("failed to reset exams", "course", c.ShortName, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reset exams")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) examID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid exam id")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleGetExam(w http.ResponseWriter, r *http.Request) {
	id, ok := s.examID(w, r)
	if !ok {
		return
	}
	res, err := s.Exams.Get(r.Context(), id)
	if errors.Is(err, exam.ErrNotFound) {
		writeError(w, http.StatusNotFound, "unknown exam")
		return
	}
	if err != nil {
		slog.Error("failed to read exam", "exam_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read exam")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	id, ok := s.examID(w, r)
	if !ok {
		return
	}
	err := s.Exams.Delete(r.Context(), id)
	if errors.Is(err, exam.ErrNotFound) {
		writeError(w, http.StatusNotFound, "unknown exam")
		return
	}
	if err != nil {
		slog.Error("failed to delete exam", "exam_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete exam")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	c, ok := s.course(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	results, err := s.Exams.List(ctx, c.ShortName)
	if err != nil {
		slog.Error("failed to list exams", "course", c.ShortName, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export")
		return
	}
	stats, err := s.Training.Get(ctx, c.ShortName)
	if err != nil {
		slog.Error("failed to read training stats", "course", c.ShortName, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export")
		return
	}
	set, err := s.Sets.Read(c.ShortName)
	if err != nil {
		slog.Warn("exporting without question texts", "course", c.ShortName, "error", err)
		set = nil
	}

	var buf bytes.Buffer
	course := report.Course{ShortName: c.ShortName, FullName: c.FullName}
	if err := report.WriteXLSX(&buf, course, results, stats, set); err != nil {
		slog.Error("failed to build report", "course", c.ShortName, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+string(c.ShortName)+`-history.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
