// Package favorites keeps the learner's favorite courses, which feed the
// "download favorites" batch, and the questions bookmarked for review.
package favorites

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/p-n-ai/cloudmaster/internal/question"
)

// ErrNotFound is returned when removing a bookmark that does not exist.
var ErrNotFound = errors.New("bookmark not found")

// Bookmark is a question saved for later review. Text is kept so the
// bookmark stays readable after the course's data is removed.
type Bookmark struct {
	Course     question.CourseID `json:"course"`
	QuestionID question.ID       `json:"question_id"`
	Text       string            `json:"text"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Store persists favorites and bookmarks. Adds are idempotent.
type Store interface {
	// Favorites returns favorite courses in the order they were added.
	Favorites(ctx context.Context) ([]question.CourseID, error)
	AddFavorite(ctx context.Context, course question.CourseID) error
	RemoveFavorite(ctx context.Context, course question.CourseID) error

	// Bookmarks returns the bookmarks of course, oldest first.
	Bookmarks(ctx context.Context, course question.CourseID) ([]Bookmark, error)
	// AddBookmark stores b. Re-adding a bookmark keeps its original CreatedAt.
	AddBookmark(ctx context.Context, b Bookmark) (Bookmark, error)
	RemoveBookmark(ctx context.Context, course question.CourseID, id question.ID) error
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	mu        sync.RWMutex
	favorites []question.CourseID
	bookmarks map[question.CourseID][]Bookmark
	now       func() time.Time
}

// NewMemoryStore creates a new in-memory favorites store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bookmarks: make(map[question.CourseID][]Bookmark),
		now:       time.Now,
	}
}

func (s *MemoryStore) Favorites(_ context.Context) ([]question.CourseID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.favorites), nil
}

func (s *MemoryStore) AddFavorite(_ context.Context, course question.CourseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.favorites, course) {
		s.favorites = append(s.favorites, course)
	}
	return nil
}

func (s *MemoryStore) RemoveFavorite(_ context.Context, course question.CourseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.favorites = slices.DeleteFunc(s.favorites, func(c question.CourseID) bool { return c == course })
	return nil
}

func (s *MemoryStore) Bookmarks(_ context.Context, course question.CourseID) ([]Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.bookmarks[course]), nil
}

func (s *MemoryStore) AddBookmark(_ context.Context, b Bookmark) (Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.bookmarks[b.Course]
	for _, existing := range list {
		if existing.QuestionID == b.QuestionID {
			return existing, nil
		}
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now().UTC()
	}
	s.bookmarks[b.Course] = append(list, b)
	return b, nil
}

func (s *MemoryStore) RemoveBookmark(_ context.Context, course question.CourseID, id question.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.bookmarks[course]
	i := slices.IndexFunc(list, func(b Bookmark) bool { return b.QuestionID == id })
	if i < 0 {
		return ErrNotFound
	}
	list = slices.Delete(list, i, i+1)
	if len(list) == 0 {
		delete(s.bookmarks, course)
	} else {
		s.bookmarks[course] = list
	}
	return nil
}
