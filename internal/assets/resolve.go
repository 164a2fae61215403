// Package assets resolves question image references to raw repository URLs
// and downloads them into the course image directory.
package assets

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/p-n-ai/cloudmaster/internal/question"
)

// ErrInvalidURL is returned when a repository URL cannot be turned into a
// raw-content URL.
var ErrInvalidURL = errors.New("invalid repository url")

const (
	githubHost    = "github.com"
	rawGitHubHost = "raw.githubusercontent.com"
	defaultBranch = "main"
)

// LocalPath strips the "images/<course>/" prefix from a stored image path,
// leaving the path relative to the repository root.
func LocalPath(course question.CourseID, relativePath string) string {
	return strings.TrimPrefix(relativePath, "images/"+string(course)+"/")
}

// RawURL maps an image reference to the raw-content URL that serves it.
// A github.com browsing URL becomes https://raw.githubusercontent.com/<owner>/<repo>/main/<path>.
func RawURL(repositoryURL string, course question.CourseID, relativePath string) (string, error) {
	u, err := url.Parse(strings.TrimRight(repositoryURL, "/"))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidURL, repositoryURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, repositoryURL)
	}

	blob := u.JoinPath("blob", defaultBranch, LocalPath(course, relativePath))
	if strings.EqualFold(blob.Host, githubHost) {
		blob.Host = rawGitHubHost
	}
	blob.Path = strings.Replace(blob.Path, "/blob/", "/", 1)
	blob.RawPath = ""
	return blob.String(), nil
}
