package exam

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/cloudmaster/internal/catalog"
	"github.com/p-n-ai/cloudmaster/internal/question"
)

// Result is a finished exam.
type Result struct {
	ID         uuid.UUID         `json:"id"`
	Course     question.CourseID `json:"course"`
	CourseName string            `json:"course_name"`
	Mode       catalog.ExamMode  `json:"mode"`
	TakenAt    time.Time         `json:"taken_at"`
	TimeSpent  time.Duration     `json:"time_spent"`
	Score      Score             `json:"score"`
	Questions  []ResultQuestion  `json:"questions"`
}

// ResultQuestion records one question as it was asked and answered.
type ResultQuestion struct {
	Question string              `json:"question"`
	Choices  []ResultChoice      `json:"choices"`
	Selected []question.ChoiceID `json:"selected"`
	Correct  bool                `json:"correct"`
}

// ResultChoice is a choice as shown during the exam.
type ResultChoice struct {
	ID      question.ChoiceID `json:"id"`
	Text    string            `json:"text"`
	Correct bool              `json:"correct"`
}

// NewResult grades a session and snapshots its questions.
func NewResult(s Session, answers map[question.ID][]question.ChoiceID, spent time.Duration) Result {
	r := Result{
		ID:         s.ID,
		Course:     s.Course,
		CourseName: s.CourseName,
		Mode:       s.Mode,
		TakenAt:    s.StartedAt,
		TimeSpent:  spent,
		Score:      Grade(s.Questions, answers),
		Questions:  make([]ResultQuestion, 0, len(s.Questions)),
	}
	for _, q := range s.Questions {
		rq := ResultQuestion{
			Question: q.Text,
			Choices:  make([]ResultChoice, 0, len(q.Choices)),
			Selected: slices.Clone(answers[q.ID]),
			Correct:  q.IsAnsweredBy(answers[q.ID]),
		}
		if rq.Selected == nil {
			rq.Selected = []question.ChoiceID{}
		}
		for _, c := range q.Choices {
			rq.Choices = append(rq.Choices, ResultChoice{ID: c.ID, Text: c.Text, Correct: c.IsCorrect})
		}
		r.Questions = append(r.Questions, rq)
	}
	return r
}

// Store keeps finished exam results.
type Store interface {
	Save(ctx context.Context, r Result) error
	Get(ctx context.Context, id uuid.UUID) (Result, error)
	// List returns the results of course, newest first.
	List(ctx context.Context, course question.CourseID) ([]Result, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Reset deletes every result of course.
	Reset(ctx context.Context, course question.CourseID) error
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	results map[uuid.UUID]Result
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory exam store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: make(map[uuid.UUID]Result)}
}

func (s *MemoryStore) Save(_ context.Context, r Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.ID] = r
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	if !ok {
		return Result{}, ErrNotFound
	}
	return r, nil
}

func (s *MemoryStore) List(_ context.Context, course question.CourseID) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Result
	for _, r := range s.results {
		if r.Course == course {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TakenAt.After(out[j].TakenAt) })
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[id]; !ok {
		return ErrNotFound
	}
	delete(s.results, id)
	return nil
}

func (s *MemoryStore) Reset(_ context.Context, course question.CourseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.results {
		if r.Course == course {
			delete(s.results, id)
		}
	}
	return nil
}
