// Package exam runs timed exam simulations over a course's question set
// and keeps the history of finished exams.
package exam

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/cloudmaster/internal/catalog"
	"github.com/p-n-ai/cloudmaster/internal/question"
)

// PassPercentage is the score needed to pass an exam.
const PassPercentage = 70.0

// ErrNotFound is returned for unknown exam sessions and results.
var ErrNotFound = errors.New("exam not found")

// Select returns the first count questions of an already shuffled set.
func Select(shuffled question.Set, count int) question.Set {
	if count > len(shuffled) || count <= 0 {
		count = len(shuffled)
	}
	return shuffled[:count:count].Clone()
}

// Score is the graded outcome of an exam.
type Score struct {
	Correct    int     `json:"correct"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Passed     bool    `json:"passed"`
}

// Grade scores answers against questions. A question counts as correct only
// when the selection equals its set of correct choices. Unanswered questions
// are wrong.
func Grade(questions question.Set, answers map[question.ID][]question.ChoiceID) Score {
	s := Score{Total: len(questions)}
	for _, q := range questions {
		if q.IsAnsweredBy(answers[q.ID]) {
			s.Correct++
		}
	}
	if s.Total > 0 {
		s.Percentage = float64(s.Correct) / float64(s.Total) * 100
	}
	s.Passed = s.Total > 0 && s.Percentage >= PassPercentage
	return s
}

// Session is an exam in progress.
type Session struct {
	ID         uuid.UUID         `json:"id"`
	Course     question.CourseID `json:"course"`
	CourseName string            `json:"course_name"`
	Mode       catalog.ExamMode  `json:"mode"`
	StartedAt  time.Time         `json:"started_at"`
	TimeLimit  time.Duration     `json:"time_limit"`
	Questions  question.Set      `json:"-"`
}

// Deadline returns when the session's time runs out.
func (s Session) Deadline() time.Time {
	return s.StartedAt.Add(s.TimeLimit)
}

// Sessions tracks exams that were started but not yet submitted.
type Sessions struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]Session
	now      func() time.Time
}

// NewSessions creates an empty session registry.
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[uuid.UUID]Session), now: time.Now}
}

// Start opens a session asking the first questions of shuffled, as many as
// the course's exam mode prescribes.
func (r *Sessions) Start(course catalog.Course, mode catalog.ExamMode, shuffled question.Set) (Session, error) {
	detail, err := course.Exam.Detail(mode)
	if err != nil {
		return Session{}, err
	}
	s := Session{
		ID:         uuid.New(),
		Course:     course.ShortName,
		CourseName: course.FullName,
		Mode:       mode,
		StartedAt:  r.now().UTC(),
		TimeLimit:  detail.TimeLimit(),
		Questions:  Select(shuffled, detail.QuestionCount),
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s, nil
}

// Finish closes the session, grades answers and returns the result. Time
// spent is capped at the session's limit.
func (r *Sessions) Finish(id uuid.UUID, answers map[question.ID][]question.ChoiceID) (Result, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return Result{}, ErrNotFound
	}

	spent := r.now().Sub(s.StartedAt)
	if s.TimeLimit > 0 && spent > s.TimeLimit {
		spent = s.TimeLimit
	}
	return NewResult(s, answers, spent), nil
}

// Abandon drops a session without recording a result.
func (r *Sessions) Abandon(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}
