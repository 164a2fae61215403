// Package coursestatus records when each course was last ingested
// successfully and what it contained.
package coursestatus

import (
	"context"
	"sync"
	"time"

	"github.com/p-n-ai/cloudmaster/internal/question"
)

// Status describes the last successful ingestion of a course.
type Status struct {
	UpdatedAt time.Time `json:"updated_at"`
	Questions int       `json:"questions"`
	Images    int       `json:"images"`
}

// Store persists course statuses.
type Store interface {
	// Get returns the status of course. ok is false when the course was
	// never ingested.
	Get(ctx context.Context, course question.CourseID) (Status, bool, error)
	Set(ctx context.Context, course question.CourseID, s Status) error
	Delete(ctx context.Context, course question.CourseID) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu       sync.RWMutex
	statuses map[question.CourseID]Status
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{statuses: make(map[question.CourseID]Status)}
}

func (m *MemoryStore) Get(_ context.Context, course question.CourseID) (Status, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.statuses[course]
	return s, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, course question.CourseID, s Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[course] = s
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, course question.CourseID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.statuses, course)
	return nil
}
