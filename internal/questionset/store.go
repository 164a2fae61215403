package questionset

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/p-n-ai/cloudmaster/internal/platform/atomicfile"
	"github.com/p-n-ai/cloudmaster/internal/question"
	"github.com/p-n-ai/cloudmaster/internal/training"
)

// Mode selects how a loaded set is ordered.
type Mode int

const (
	ModeShuffled Mode = iota
	ModeAdaptive
)

func (m Mode) String() string {
	switch m {
	case ModeShuffled:
		return "shuffled"
	case ModeAdaptive:
		return "adaptive"
	default:
		return "unknown"
	}
}

// ParseMode parses "shuffled" or "adaptive"; empty means shuffled.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "shuffled":
		return ModeShuffled, nil
	case "adaptive":
		return ModeAdaptive, nil
	default:
		return 0, fmt.Errorf("unknown question order mode %q", s)
	}
}

// HistoryReader supplies per-question performance for adaptive ordering.
type HistoryReader interface {
	Performance(ctx context.Context, course question.CourseID) (map[question.ID]training.PerformanceRecord, error)
}

// Store loads persisted question sets for training and exam sessions.
type Store struct {
	layout  Layout
	history HistoryReader
	shuffle func(n int, swap func(i, j int))
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithShuffle replaces the random permutation, mainly for tests.
func WithShuffle(fn func(n int, swap func(i, j int))) StoreOption {
	return func(s *Store) {
		s.shuffle = fn
	}
}

// NewStore creates a store reading from layout.
func NewStore(layout Layout, history HistoryReader, opts ...StoreOption) *Store {
	s := &Store{
		layout:  layout,
		history: history,
		shuffle: rand.Shuffle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Layout returns the file layout the store reads from.
func (s *Store) Layout() Layout {
	return s.layout
}

// Read returns the persisted set in file order. A course that has not been
// downloaded yields an empty set and no error.
func (s *Store) Read(course question.CourseID) (question.Set, error) {
	if err := course.Validate(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.layout.QuestionFile(course))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return question.Set{}, nil
		}
		return nil, fmt.Errorf("read question set %s: %w", course, err)
	}
	set, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode question set %s: %w", course, err)
	}
	return set, nil
}

// Load reads the course's set and orders it for a session.
func (s *Store) Load(ctx context.Context, course question.CourseID, mode Mode) (question.Set, error) {
	set, err := s.Read(course)
	if err != nil || len(set) == 0 {
		return set, err
	}

	switch mode {
	case ModeAdaptive:
		if s.history == nil {
			return set, nil
		}
		perf, err := s.history.Performance(ctx, course)
		if err != nil {
			return nil, fmt.Errorf("load training history %s: %w", course, err)
		}
		return Reorder(set, perf), nil
	default:
		s.shuffle(len(set), func(i, j int) { set[i], set[j] = set[j], set[i] })
		return set, nil
	}
}

// Write atomically replaces the course's persisted set.
func (s *Store) Write(course question.CourseID, set question.Set) error {
	if err := course.Validate(); err != nil {
		return err
	}
	data, err := Encode(set)
	if err != nil {
		return err
	}
	if err := atomicfile.Write(s.layout.QuestionFile(course), data, 0o644); err != nil {
		return fmt.Errorf("write question set %s: %w", course, err)
	}
	return nil
}

// Exists reports whether a question set file is present for course.
func (s *Store) Exists(course question.CourseID) bool {
	if course.Validate() != nil {
		return false
	}
	_, err := os.Stat(s.layout.QuestionFile(course))
	return err == nil
}

// Remove deletes the question set, markdown cache and images of course.
func (s *Store) Remove(course question.CourseID) error {
	if err := course.Validate(); err != nil {
		return err
	}
	for _, path := range []string{s.layout.QuestionFile(course), s.layout.MarkdownFile(course)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	if err := os.RemoveAll(s.layout.ImageDir(course)); err != nil {
		return fmt.Errorf("remove images %s: %w", course, err)
	}
	return nil
}
