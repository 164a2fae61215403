package assets_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/p-n-ai/cloudmaster/internal/assets"
	"github.com/p-n-ai/cloudmaster/internal/question"
)

func imageSet(paths ...[]string) question.Set {
	var set question.Set
	for i, group := range paths {
		q := question.Question{Text: "Q" + string(rune('A'+i))}
		for _, p := range group {
			q.Images = append(q.Images, question.ImageRef{RelativePath: "images/SAA-C03/" + p})
		}
		set = append(set, q)
	}
	return set
}

func TestFetchImages(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte("png:" + r.URL.Path))
	}))
	defer server.Close()

	dir := t.TempDir()
	fetcher := assets.NewFetcher(dir)
	set := imageSet([]string{"images/a.png"}, nil, []string{"images/sub/b.png", "images/c.png"})

	var calls [][2]int
	got, err := fetcher.FetchImages(context.Background(), set, server.URL+"/owner/repo", "SAA-C03", func(done, total int) {
		calls = append(calls, [2]int{done, total})
	})
	if err != nil {
		t.Fatalf("FetchImages() error = %v", err)
	}

	want := [][2]int{{1, 3}, {2, 3}, {3, 3}}
	if len(calls) != len(want) {
		t.Fatalf("progress calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("progress call %d = %v, want %v", i, calls[i], want[i])
		}
	}

	if paths[1] != "/owner/repo/main/images/sub/b.png" {
		t.Errorf("requested path = %q", paths[1])
	}
	img := got[2].Images[0]
	if !img.Downloaded || img.SourceURL != server.URL+"/owner/repo/main/images/sub/b.png" {
		t.Errorf("image not stamped: %+v", img)
	}
	if set[2].Images[0].Downloaded {
		t.Error("input set must not be mutated")
	}

	data, err := os.ReadFile(filepath.Join(dir, "images", "SAA-C03", "images", "sub", "b.png"))
	if err != nil {
		t.Fatalf("read stored image: %v", err)
	}
	if string(data) != "png:/owner/repo/main/images/sub/b.png" {
		t.Errorf("stored bytes = %q", data)
	}
}

func TestFetchImages_Overwrites(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("new"))
	}))
	defer server.Close()

	dir := t.TempDir()
	target := filepath.Join(dir, "images", "SAA-C03", "images", "a.png")
	os.MkdirAll(filepath.Dir(target), 0o755)
	os.WriteFile(target, []byte("old"), 0o644)

	fetcher := assets.NewFetcher(dir)
	if _, err := fetcher.FetchImages(context.Background(), imageSet([]string{"images/a.png"}), server.URL+"/o/r", "SAA-C03", nil); err != nil {
		t.Fatalf("FetchImages() error = %v", err)
	}
	data, _ := os.ReadFile(target)
	if string(data) != "new" {
		t.Errorf("stored bytes = %q, want new", data)
	}
}

func TestFetchImages_FailureAborts(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 2 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	fetcher := assets.NewFetcher(t.TempDir())
	progress := 0
	got, err := fetcher.FetchImages(context.Background(), imageSet([]string{"images/a.png", "images/b.png", "images/c.png"}), server.URL+"/o/r", "SAA-C03", func(done, _ int) {
		progress = done
	})
	if !errors.Is(err, assets.ErrFetch) {
		t.Fatalf("FetchImages() error = %v, want ErrFetch", err)
	}
	if got != nil {
		t.Error("partial result should be discarded")
	}
	if requests != 2 {
		t.Errorf("requests = %d, want 2 (no retry, stop at first failure)", requests)
	}
	if progress != 1 {
		t.Errorf("progress = %d, want 1", progress)
	}
}

func TestFetchImages_NoImages(t *testing.T) {
	fetcher := assets.NewFetcher(t.TempDir())
	called := false
	got, err := fetcher.FetchImages(context.Background(), imageSet(nil), "https://github.com/o/r", "SAA-C03", func(int, int) {
		called = true
	})
	if err != nil {
		t.Fatalf("FetchImages() error = %v", err)
	}
	if len(got) != 1 || called {
		t.Errorf("got %d questions, progress called = %v", len(got), called)
	}
}

func TestFetchImages_RejectsEscapingPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer server.Close()

	fetcher := assets.NewFetcher(t.TempDir())
	_, err := fetcher.FetchImages(context.Background(), imageSet([]string{"images/../../../evil.png"}), server.URL+"/o/r", "SAA-C03", nil)
	if !errors.Is(err, assets.ErrWrite) {
		t.Errorf("FetchImages() error = %v, want ErrWrite", err)
	}
}

func TestFetchImages_UserAgent(t *testing.T) {
	var ua string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		w.Write([]byte("x"))
	}))
	defer server.Close()

	fetcher := assets.NewFetcher(t.TempDir(), assets.WithUserAgent("cloudmaster-test"), assets.WithHTTPClient(server.Client()))
	if _, err := fetcher.FetchImages(context.Background(), imageSet([]string{"images/a.png"}), server.URL+"/o/r", "SAA-C03", nil); err != nil {
		t.Fatalf("FetchImages() error = %v", err)
	}
	if ua != "cloudmaster-test" {
		t.Errorf("User-Agent = %q", ua)
	}
}
