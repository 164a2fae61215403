// Package question defines the question set model shared by the ingestion
// pipeline, the question set store and the training and exam features.
package question

import (
	"fmt"
	"regexp"
)

// CourseID is a course short name such as "SAA-C03".
type CourseID string

var courseIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Validate rejects short names that are empty or unsafe as a file name.
func (c CourseID) Validate() error {
	if !courseIDPattern.MatchString(string(c)) {
		return fmt.Errorf("invalid course short name %q", string(c))
	}
	return nil
}

func (c CourseID) String() string {
	return string(c)
}

// ID identifies a question within a course.
type ID string

// ChoiceID identifies a choice within its question.
type ChoiceID string

// Question is a single multiple-choice question.
type Question struct {
	ID                     ID
	Text                   string
	Choices                []Choice
	IsMultipleResponse     bool
	RequiredSelectionCount int
	Images                 []ImageRef
}

// Choice is one answer option.
type Choice struct {
	ID        ChoiceID
	Text      string
	IsCorrect bool
}

// ImageRef points at an image referenced by a question.
type ImageRef struct {
	// RelativePath is "images/<course>/<captured path>".
	RelativePath string
	SourceURL    string
	Downloaded   bool
}

// Set is the ordered question collection of one course.
type Set []Question

// CorrectChoices returns the IDs of the choices marked correct.
func (q Question) CorrectChoices() []ChoiceID {
	var ids []ChoiceID
	for _, c := range q.Choices {
		if c.IsCorrect {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// IsAnsweredBy reports whether selected is exactly the set of correct choices.
func (q Question) IsAnsweredBy(selected []ChoiceID) bool {
	chosen := make(map[ChoiceID]bool, len(selected))
	for _, id := range selected {
		chosen[id] = true
	}
	correct := 0
	for _, c := range q.Choices {
		if c.IsCorrect {
			if !chosen[c.ID] {
				return false
			}
			correct++
		}
	}
	return correct > 0 && len(chosen) == correct
}

// ImageCount returns the total number of image references in the set.
func (s Set) ImageCount() int {
	n := 0
	for _, q := range s {
		n += len(q.Images)
	}
	return n
}

// Clone returns a deep copy so callers can reorder or stamp without aliasing.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for i, q := range s {
		q.Choices = append([]Choice(nil), q.Choices...)
		q.Images = append([]ImageRef(nil), q.Images...)
		out[i] = q
	}
	return out
}
