package questionset

import (
	"path/filepath"

	"github.com/p-n-ai/cloudmaster/internal/question"
)

// Layout maps a course to its files under the data directory:
//
//	<root>/<course>.json          question set
//	<root>/<course>.md            raw markdown cache
//	<root>/images/<course>/...    downloaded images
type Layout struct {
	Root string
}

// QuestionFile returns the path of the persisted question set.
func (l Layout) QuestionFile(course question.CourseID) string {
	return filepath.Join(l.Root, string(course)+".json")
}

// MarkdownFile returns the path of the cached markdown document.
func (l Layout) MarkdownFile(course question.CourseID) string {
	return filepath.Join(l.Root, string(course)+".md")
}

// ImageDir returns the directory holding the course's images.
func (l Layout) ImageDir(course question.CourseID) string {
	return filepath.Join(l.Root, "images", string(course))
}
