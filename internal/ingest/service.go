// Package ingest downloads a course's question bank, parses it, fetches its
// images and persists the resulting question set.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/p-n-ai/cloudmaster/internal/assets"
	"github.com/p-n-ai/cloudmaster/internal/catalog"
	"github.com/p-n-ai/cloudmaster/internal/coursestatus"
	"github.com/p-n-ai/cloudmaster/internal/markdown"
	"github.com/p-n-ai/cloudmaster/internal/platform/atomicfile"
	"github.com/p-n-ai/cloudmaster/internal/question"
	"github.com/p-n-ai/cloudmaster/internal/questionset"
)

const defaultBatchConcurrency = 4

// Result summarises a successful ingestion.
type Result struct {
	Course    question.CourseID `json:"course"`
	Questions int               `json:"questions"`
	Images    int               `json:"images"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// CompleteFunc receives the outcome of an asynchronous ingestion. err is an
// *Error when non-nil.
type CompleteFunc func(Result, error)

// Service runs ingestions. At most one ingestion per course is in flight:
// starting a course that is already running cancels the running one, and
// the new run waits for it to exit before touching the course's files.
type Service struct {
	sets        *questionset.Store
	fetcher     *assets.Fetcher
	client      *http.Client
	userAgent   string
	status      coursestatus.Store
	concurrency int
	now         func() time.Time

	mu       sync.Mutex
	inflight map[question.CourseID]*run
	batches  map[string]*Batch
	wg       sync.WaitGroup
}

type run struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient sets the client used for markdown and image downloads. Its
// Timeout bounds each request.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		s.client = client
	}
}

// WithUserAgent sets the User-Agent header of every download.
func WithUserAgent(ua string) Option {
	return func(s *Service) {
		s.userAgent = ua
	}
}

// WithStatusStore records the outcome of successful ingestions.
func WithStatusStore(store coursestatus.Store) Option {
	return func(s *Service) {
		s.status = store
	}
}

// WithBatchConcurrency bounds how many courses of a batch run at once.
func WithBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewService creates a service persisting into sets.
func NewService(sets *questionset.Store, opts ...Option) *Service {
	s := &Service{
		sets:        sets,
		client:      http.DefaultClient,
		concurrency: defaultBatchConcurrency,
		now:         time.Now,
		inflight:    make(map[question.CourseID]*run),
		batches:     make(map[string]*Batch),
	}
	for _, opt := range opts {
		opt(s)
	}
	fetchOpts := []assets.Option{assets.WithHTTPClient(s.client)}
	if s.userAgent != "" {
		fetchOpts = append(fetchOpts, assets.WithUserAgent(s.userAgent))
	}
	s.fetcher = assets.NewFetcher(sets.Layout().Root, fetchOpts...)
	return s
}

// Ingest starts an asynchronous ingestion of course and returns at once.
// onProgress and onComplete are called from the ingestion goroutine; either
// may be nil. ctx governs the whole run.
func (s *Service) Ingest(ctx context.Context, course catalog.Course, onProgress ProgressFunc, onComplete CompleteFunc) {
	runCtx, r, prev := s.register(ctx, course.ShortName)
	go func() {
		defer s.wg.Done()
		defer close(r.done)
		res, err := s.execute(runCtx, course, prev, onProgress)
		s.release(course.ShortName, r)
		if onComplete != nil {
			onComplete(res, err)
		}
	}()
}

// Run ingests course and blocks until it finishes.
func (s *Service) Run(ctx context.Context, course catalog.Course, onProgress ProgressFunc) (Result, error) {
	runCtx, r, prev := s.register(ctx, course.ShortName)
	defer s.wg.Done()
	defer close(r.done)
	res, err := s.execute(runCtx, course, prev, onProgress)
	s.release(course.ShortName, r)
	return res, err
}

func (s *Service) register(ctx context.Context, id question.CourseID) (context.Context, *run, *run) {
	runCtx, cancel := context.WithCancel(ctx)
	r := &run{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	prev := s.inflight[id]
	s.inflight[id] = r
	s.wg.Add(1)
	s.mu.Unlock()

	if prev != nil {
		slog.Info("superseding in-flight ingestion", "course", id)
		prev.cancel()
	}
	return runCtx, r, prev
}

func (s *Service) release(id question.CourseID, r *run) {
	r.cancel()
	s.mu.Lock()
	if s.inflight[id] == r {
		delete(s.inflight, id)
	}
	s.mu.Unlock()
}

// Cancel stops the in-flight ingestion of course. It reports whether one
// was running.
func (s *Service) Cancel(id question.CourseID) bool {
	s.mu.Lock()
	r := s.inflight[id]
	s.mu.Unlock()
	if r == nil {
		return false
	}
	r.cancel()
	return true
}

// Running reports whether course has an ingestion in flight.
func (s *Service) Running(id question.CourseID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[id]
	return ok
}

// Remove cancels any in-flight ingestion of course and deletes the course's
// question set, markdown cache, images and status once that run has exited.
// The removal holds the course's slot, so an ingestion started meanwhile
// waits for it. If ctx expires first, Remove returns ctx.Err() and the
// removal still completes in the background.
func (s *Service) Remove(ctx context.Context, id question.CourseID) error {
	_, r, prev := s.register(ctx, id)
	bg := context.WithoutCancel(ctx)
	errc := make(chan error, 1)
	go func() {
		defer s.wg.Done()
		defer close(r.done)
		defer s.release(id, r)
		if prev != nil {
			<-prev.done
		}
		errc <- s.removeData(bg, id)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) removeData(ctx context.Context, id question.CourseID) error {
	if err := s.sets.Remove(id); err != nil {
		slog.Warn("failed to remove course data", "course", id, "error", err)
		return err
	}
	if s.status != nil {
		if err := s.status.Delete(ctx, id); err != nil {
			slog.Warn("failed to clear course status", "course", id, "error", err)
		}
	}
	slog.Info("course data removed", "course", id)
	return nil
}

// Shutdown cancels every in-flight ingestion and waits for them to exit or
// for ctx to expire.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for _, r := range s.inflight {
		r.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) execute(ctx context.Context, course catalog.Course, prev *run, onProgress ProgressFunc) (Result, error) {
	id := course.ShortName
	if prev != nil {
		// Superseded runs still wait, so done channels close in start order
		// and two runs never write the same course.
		<-prev.done
		if err := ctx.Err(); err != nil {
			return Result{}, newError(id, KindCanceled, err)
		}
	}

	start := s.now()
	slog.Info("ingestion started", "course", id)
	res, err := s.ingest(ctx, course, newProgress(onProgress))
	if err != nil {
		var ie *Error
		if errors.As(err, &ie) && ie.Kind == KindCanceled {
			slog.Info("ingestion canceled", "course", id)
		} else {
			slog.Warn("ingestion failed", "course", id, "error", err)
		}
		return Result{}, err
	}
	slog.Info("ingestion finished", "course", id, "questions", res.Questions, "images", res.Images, "duration", s.now().Sub(start))
	return res, nil
}

func (s *Service) ingest(ctx context.Context, course catalog.Course, p *progress) (Result, error) {
	id := course.ShortName
	if err := id.Validate(); err != nil {
		return Result{}, newError(id, KindInvalidURL, err)
	}
	if err := validateURL(course.QuestionURL); err != nil {
		return Result{}, newError(id, KindInvalidURL, err)
	}

	text, err := s.download(ctx, course.QuestionURL)
	if err != nil {
		return Result{}, s.classify(ctx, id, KindNetwork, err)
	}
	if err := atomicfile.Write(s.sets.Layout().MarkdownFile(id), text, 0o644); err != nil {
		return Result{}, newError(id, KindStorage, fmt.Errorf("cache markdown: %w", err))
	}
	slog.Debug("markdown downloaded", "course", id, "bytes", len(text))

	set, err := markdown.Parse(string(text), id)
	if err != nil {
		if errors.Is(err, markdown.ErrNoQuestions) {
			return Result{}, newError(id, KindEmptyResult, err)
		}
		return Result{}, newError(id, KindParse, err)
	}
	images := set.ImageCount()
	p.parsed(len(set), images)
	slog.Debug("markdown parsed", "course", id, "questions", len(set), "images", images)

	set, err = s.fetcher.FetchImages(ctx, set, course.RepositoryURL, id, func(int, int) {
		p.imageStored()
	})
	if err != nil {
		return Result{}, s.classifyImageErr(ctx, id, err)
	}

	if err := ctx.Err(); err != nil {
		return Result{}, newError(id, KindCanceled, err)
	}
	if err := s.sets.Write(id, set); err != nil {
		return Result{}, newError(id, KindStorage, err)
	}

	res := Result{Course: id, Questions: len(set), Images: images, UpdatedAt: s.now().UTC()}
	s.recordStatus(ctx, res)
	p.finish()
	return res, nil
}

func (s *Service) download(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: status %d", src, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src, err)
	}
	return data, nil
}

func (s *Service) recordStatus(ctx context.Context, res Result) {
	if s.status == nil {
		return
	}
	st := coursestatus.Status{UpdatedAt: res.UpdatedAt, Questions: res.Questions, Images: res.Images}
	if err := s.status.Set(context.WithoutCancel(ctx), res.Course, st); err != nil {
		slog.Warn("failed to record course status", "course", res.Course, "error", err)
	}
}

// classify maps err to kind unless the run was canceled.
func (s *Service) classify(ctx context.Context, id question.CourseID, kind Kind, err error) *Error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return newError(id, KindCanceled, err)
	}
	return newError(id, kind, err)
}

func (s *Service) classifyImageErr(ctx context.Context, id question.CourseID, err error) *Error {
	switch {
	case errors.Is(err, assets.ErrInvalidURL):
		return newError(id, KindInvalidURL, err)
	case errors.Is(err, assets.ErrWrite):
		return s.classify(ctx, id, KindStorage, err)
	default:
		return s.classify(ctx, id, KindNetwork, err)
	}
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("question url %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("question url %q: must be an absolute http(s) url", raw)
	}
	return nil
}
