package training

import (
	"context"
	"sync"

	"github.com/p-n-ai/cloudmaster/internal/question"
)

// Store persists training statistics keyed by course and question ID.
type Store interface {
	// Get returns the stats for course; a course never trained returns empty stats.
	Get(ctx context.Context, course question.CourseID) (CourseStats, error)
	// Performance returns the per-question records for course.
	Performance(ctx context.Context, course question.CourseID) (map[question.ID]PerformanceRecord, error)
	// RecordAnswer scores and stores one answer.
	RecordAnswer(ctx context.Context, course question.CourseID, a Answer) (PerformanceRecord, Outcome, error)
	// Reset drops the stats of course.
	Reset(ctx context.Context, course question.CourseID) error
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	courses map[question.CourseID]*CourseStats
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory training store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		courses: make(map[question.CourseID]*CourseStats),
	}
}

func (s *MemoryStore) Get(_ context.Context, course question.CourseID) (CourseStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, ok := s.courses[course]
	if !ok {
		return NewCourseStats(course), nil
	}
	return stats.Clone(), nil
}

func (s *MemoryStore) Performance(ctx context.Context, course question.CourseID) (map[question.ID]PerformanceRecord, error) {
	stats, err := s.Get(ctx, course)
	if err != nil {
		return nil, err
	}
	return stats.Questions, nil
}

func (s *MemoryStore) RecordAnswer(_ context.Context, course question.CourseID, a Answer) (PerformanceRecord, Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, ok := s.courses[course]
	if !ok {
		fresh := NewCourseStats(course)
		stats = &fresh
		s.courses[course] = stats
	}
	outcome := Evaluate(a)
	rec := stats.Apply(a.Question.ID, outcome, a.Elapsed)
	return rec, outcome, nil
}

func (s *MemoryStore) Reset(_ context.Context, course question.CourseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.courses, course)
	return nil
}
