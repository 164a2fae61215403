// Package markdown converts the question-bank README dialect used by the
// community certification repositories into a question set.
package markdown

import (
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/p-n-ai/cloudmaster/internal/question"
)

// ErrNoQuestions is returned when a document yields zero questions.
var ErrNoQuestions = errors.New("course has no questions")

var (
	headingPattern = regexp.MustCompile(`^\s*### (.+)$`)
	choicePattern  = regexp.MustCompile(`^\s*- \[([ xX])\] (.+)$`)
	imagePattern   = regexp.MustCompile(`!\[[^\]]*\]\((images/[^)]+?)\)`)
)

// excludedImageMarkers filters repository chrome (community invites, ads)
// out of question images.
var excludedImageMarkers = []string{"discord", "promotional"}

// Parse scans text line by line and returns the questions it recognises.
// Question IDs are derived from content, see question.AssignIDs.
func Parse(text string, course question.CourseID) (question.Set, error) {
	p := parser{course: course}
	for _, line := range strings.Split(text, "\n") {
		p.line(strings.TrimRight(line, "\r"))
	}
	p.flush()

	if len(p.out) == 0 {
		return nil, ErrNoQuestions
	}
	question.AssignIDs(p.out)
	return p.out, nil
}

type parser struct {
	course  question.CourseID
	out     question.Set
	current *question.Question
	correct int
}

func (p *parser) line(line string) {
	if m := headingPattern.FindStringSubmatch(line); m != nil {
		p.flush()
		p.current = &question.Question{Text: strings.TrimSpace(m[1])}
		return
	}
	if p.current == nil {
		return
	}
	if m := choicePattern.FindStringSubmatch(line); m != nil {
		isCorrect := m[1] != " "
		if isCorrect {
			p.correct++
		}
		p.current.Choices = append(p.current.Choices, question.Choice{Text: m[2], IsCorrect: isCorrect})
		return
	}
	for _, m := range imagePattern.FindAllStringSubmatch(line, -1) {
		path := imageFilePath(m[1])
		if path == "" || excludedImage(path) {
			continue
		}
		p.current.Images = append(p.current.Images, question.ImageRef{
			RelativePath: ImagePath(p.course, path),
		})
	}
}

func (p *parser) flush() {
	q := p.current
	correct := p.correct
	p.current, p.correct = nil, 0
	if q == nil {
		return
	}
	if len(q.Choices) == 0 {
		slog.Debug("dropping question without choices", "course", p.course, "question", q.Text)
		return
	}
	if correct > 1 {
		q.IsMultipleResponse = true
		q.RequiredSelectionCount = correct
	} else {
		q.RequiredSelectionCount = 1
	}
	p.out = append(p.out, *q)
}

// imageFilePath drops a link title and any query or fragment (GitHub's
// "?raw=true") so only the file path inside the repository remains. Spaces
// inside the path are kept. It returns "" when no file name is left.
func imageFilePath(captured string) string {
	path, _, _ := strings.Cut(captured, ` "`)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimSpace(path)
	if strings.TrimSuffix(path, "/") == "images" {
		return ""
	}
	return path
}

func excludedImage(path string) bool {
	for _, marker := range excludedImageMarkers {
		if strings.Contains(path, marker) {
			return true
		}
	}
	return false
}

// ImagePath namespaces a captured markdown image path under the course.
func ImagePath(course question.CourseID, captured string) string {
	return "images/" + string(course) + "/" + captured
}
