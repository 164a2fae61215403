package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/p-n-ai/cloudmaster/internal/question"
)

var (
	// ErrFetch wraps transport and HTTP status failures.
	ErrFetch = errors.New("fetch image")
	// ErrWrite wraps local filesystem failures.
	ErrWrite = errors.New("write image")
)

// ProgressFunc is called after each image is stored.
type ProgressFunc func(completed, total int)

// Fetcher downloads question images into <baseDir>/images/<course>/.
type Fetcher struct {
	baseDir   string
	client    *http.Client
	userAgent string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithUserAgent sets the User-Agent header sent with each request.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// NewFetcher creates a fetcher rooted at baseDir.
func NewFetcher(baseDir string, opts ...Option) *Fetcher {
	f := &Fetcher{
		baseDir: baseDir,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CourseDir returns the directory holding a course's images.
func (f *Fetcher) CourseDir(course question.CourseID) string {
	return filepath.Join(f.baseDir, "images", string(course))
}

// FetchImages downloads every image in set, one attempt each, and returns a
// copy with SourceURL and Downloaded stamped. The first failure aborts the
// whole course and no partial set is returned.
func (f *Fetcher) FetchImages(ctx context.Context, set question.Set, repositoryURL string, course question.CourseID, onProgress ProgressFunc) (question.Set, error) {
	out := set.Clone()
	total := out.ImageCount()
	if total == 0 {
		return out, nil
	}

	dir := f.CourseDir(course)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrite, err)
	}

	completed := 0
	for qi := range out {
		for ii := range out[qi].Images {
			img := &out[qi].Images[ii]
			src, err := RawURL(repositoryURL, course, img.RelativePath)
			if err != nil {
				return nil, err
			}
			data, err := f.get(ctx, src)
			if err != nil {
				return nil, err
			}
			target := filepath.Join(dir, filepath.FromSlash(LocalPath(course, img.RelativePath)))
			if !strings.HasPrefix(target, dir+string(filepath.Separator)) {
				return nil, fmt.Errorf("%w: %q escapes %s", ErrWrite, img.RelativePath, dir)
			}
			if err := writeFile(target, data); err != nil {
				return nil, err
			}

			img.SourceURL = src
			img.Downloaded = true
			completed++
			slog.Debug("image stored", "course", course, "url", src, "completed", completed, "total", total)
			if onProgress != nil {
				onProgress(completed, total)
			}
		}
	}
	return out, nil
}

func (f *Fetcher) get(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request %s: %v", ErrFetch, src, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: status %d", ErrFetch, src, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrFetch, src, err)
	}
	return data, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}
