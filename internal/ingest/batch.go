package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/p-n-ai/cloudmaster/internal/catalog"
	"github.com/p-n-ai/cloudmaster/internal/question"
)

// Finished batches are kept this long for status polling.
const batchRetention = time.Hour

// CourseState is the lifecycle state of one course in a batch.
type CourseState string

const (
	StatePending   CourseState = "pending"
	StateRunning   CourseState = "running"
	StateSucceeded CourseState = "succeeded"
	StateFailed    CourseState = "failed"
)

// CourseProgress is one course's entry in a batch snapshot.
type CourseProgress struct {
	Course   question.CourseID `json:"course"`
	State    CourseState       `json:"state"`
	Progress float64           `json:"progress"`
	Error    string            `json:"error,omitempty"`
}

// BatchStatus is a point-in-time view of a batch. Progress is the mean of
// the per-course fractions; a finished course counts as 1 whether it
// succeeded or failed. Completed counts successful courses only.
type BatchStatus struct {
	ID        string           `json:"id"`
	Total     int              `json:"total"`
	Completed int              `json:"completed"`
	Failed    int              `json:"failed"`
	Progress  float64          `json:"progress"`
	Done      bool             `json:"done"`
	Courses   []CourseProgress `json:"courses"`
}

type batchUpdate struct {
	index    int
	state    CourseState
	progress float64
	err      error
}

// Batch ingests several courses concurrently. Per-course failures never
// cancel siblings.
type Batch struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}

	// updates is drained by a single aggregator goroutine, the only writer
	// of the batch state.
	updates chan batchUpdate

	mu         sync.RWMutex
	snapshot   BatchStatus
	finishedAt time.Time
	subs       map[chan BatchStatus]struct{}
}

// StartBatch begins ingesting courses and returns immediately.
func (s *Service) StartBatch(ctx context.Context, courses []catalog.Course) *Batch {
	ctx, cancel := context.WithCancel(ctx)
	b := &Batch{
		id:      uuid.NewString(),
		cancel:  cancel,
		updates: make(chan batchUpdate),
		done:    make(chan struct{}),
		subs:    make(map[chan BatchStatus]struct{}),
	}
	b.snapshot = BatchStatus{ID: b.id, Total: len(courses), Courses: make([]CourseProgress, len(courses))}
	for i, c := range courses {
		b.snapshot.Courses[i] = CourseProgress{Course: c.ShortName, State: StatePending}
	}

	s.mu.Lock()
	s.pruneBatchesLocked()
	s.batches[b.id] = b
	s.mu.Unlock()

	slog.Info("batch started", "batch_id", b.id, "courses", len(courses))
	go b.aggregate(s.now)
	go func() {
		var g errgroup.Group
		g.SetLimit(s.concurrency)
		for i, c := range courses {
			g.Go(func() error {
				b.updates <- batchUpdate{index: i, state: StateRunning}
				_, err := s.Run(ctx, c, func(f float64) {
					b.updates <- batchUpdate{index: i, state: StateRunning, progress: f}
				})
				if err != nil {
					b.updates <- batchUpdate{index: i, state: StateFailed, progress: 1, err: err}
				} else {
					b.updates <- batchUpdate{index: i, state: StateSucceeded, progress: 1}
				}
				return nil
			})
		}
		_ = g.Wait()
		cancel()
		close(b.updates)
	}()
	return b
}

// Batch returns a batch started by this service.
func (s *Service) Batch(id string) (*Batch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	return b, ok
}

func (s *Service) pruneBatchesLocked() {
	cutoff := s.now().Add(-batchRetention)
	for id, b := range s.batches {
		b.mu.RLock()
		expired := b.snapshot.Done && b.finishedAt.Before(cutoff)
		b.mu.RUnlock()
		if expired {
			delete(s.batches, id)
		}
	}
}

func (b *Batch) aggregate(now func() time.Time) {
	state := b.Status()
	for u := range b.updates {
		c := &state.Courses[u.index]
		if c.State == StateSucceeded || c.State == StateFailed {
			continue
		}
		c.State = u.state
		if u.progress > c.Progress {
			c.Progress = u.progress
		}
		switch u.state {
		case StateSucceeded:
			state.Completed++
		case StateFailed:
			state.Failed++
			if u.err != nil {
				c.Error = u.err.Error()
			}
		}
		state.Progress = meanProgress(state.Courses)
		b.publish(state, false, now)
	}
	state.Progress = meanProgress(state.Courses)
	state.Done = true
	b.publish(state, true, now)
	close(b.done)
	slog.Info("batch finished", "batch_id", b.id, "completed", state.Completed, "failed", state.Failed)
}

func meanProgress(courses []CourseProgress) float64 {
	if len(courses) == 0 {
		return 1
	}
	var sum float64
	for _, c := range courses {
		sum += c.Progress
	}
	return sum / float64(len(courses))
}

// publish stores a copy of state and offers it to every subscriber. Slow
// subscribers only ever see the latest snapshot.
func (b *Batch) publish(state BatchStatus, final bool, now func() time.Time) {
	snap := state
	snap.Courses = append([]CourseProgress(nil), state.Courses...)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshot = snap
	if final {
		b.finishedAt = now()
	}
	for ch := range b.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
		if final {
			close(ch)
			delete(b.subs, ch)
		}
	}
}

// ID returns the batch identifier.
func (b *Batch) ID() string {
	return b.id
}

// Status returns the latest snapshot.
func (b *Batch) Status() BatchStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	snap := b.snapshot
	snap.Courses = append([]CourseProgress(nil), b.snapshot.Courses...)
	return snap
}

// Cancel stops every course of the batch that has not finished.
func (b *Batch) Cancel() {
	b.cancel()
}

// Done is closed once every course has finished.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Subscribe returns a channel that receives snapshots as they change and is
// closed after the final one. The current snapshot is delivered first.
// Call the returned func to stop receiving.
func (b *Batch) Subscribe() (<-chan BatchStatus, func()) {
	ch := make(chan BatchStatus, 1)

	b.mu.Lock()
	snap := b.snapshot
	snap.Courses = append([]CourseProgress(nil), b.snapshot.Courses...)
	ch <- snap
	if snap.Done {
		close(ch)
		b.mu.Unlock()
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}
}
