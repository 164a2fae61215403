// Package training keeps per-course training statistics and per-question
// performance history used by adaptive ordering.
package training

import (
	"time"

	"github.com/p-n-ai/cloudmaster/internal/question"
)

// PerformanceRecord is the cumulative answer history of one question.
type PerformanceRecord struct {
	TimesViewed    int `json:"times_viewed"`
	TimesCorrect   int `json:"times_correct"`
	TimesIncorrect int `json:"times_incorrect"`
}

// Struggling reports whether the question was answered wrong more often than right.
func (r PerformanceRecord) Struggling() bool {
	return r.TimesIncorrect > r.TimesCorrect
}

// CourseStats aggregates a learner's training on one course.
type CourseStats struct {
	Course         question.CourseID                 `json:"course"`
	TimeSpent      time.Duration                     `json:"time_spent"`
	CorrectAnswers int                               `json:"correct_answers"` // correct choices selected
	WrongAnswers   int                               `json:"wrong_answers"`   // wrong choices selected
	Questions      map[question.ID]PerformanceRecord `json:"questions"`
}

// NewCourseStats returns empty stats for course.
func NewCourseStats(course question.CourseID) CourseStats {
	return CourseStats{
		Course:    course,
		Questions: make(map[question.ID]PerformanceRecord),
	}
}

// Answer is one submitted training answer.
type Answer struct {
	Question question.Question
	Selected []question.ChoiceID
	Elapsed  time.Duration
}

// Outcome is the effect of one answer on the stats.
type Outcome struct {
	Correct        bool
	CorrectChoices int
	WrongChoices   int
}

// Evaluate scores an answer without touching any stats.
func Evaluate(a Answer) Outcome {
	correct := make(map[question.ChoiceID]bool)
	for _, id := range a.Question.CorrectChoices() {
		correct[id] = true
	}
	out := Outcome{Correct: a.Question.IsAnsweredBy(a.Selected)}
	seen := make(map[question.ChoiceID]bool, len(a.Selected))
	for _, id := range a.Selected {
		if seen[id] {
			continue
		}
		seen[id] = true
		if correct[id] {
			out.CorrectChoices++
		} else {
			out.WrongChoices++
		}
	}
	return out
}

// Apply folds an outcome into the stats and returns the updated record.
func (s *CourseStats) Apply(id question.ID, o Outcome, elapsed time.Duration) PerformanceRecord {
	if s.Questions == nil {
		s.Questions = make(map[question.ID]PerformanceRecord)
	}
	if elapsed > 0 {
		s.TimeSpent += elapsed
	}
	s.CorrectAnswers += o.CorrectChoices
	s.WrongAnswers += o.WrongChoices

	rec := s.Questions[id]
	rec.TimesViewed++
	if o.Correct {
		rec.TimesCorrect++
	} else {
		rec.TimesIncorrect++
	}
	s.Questions[id] = rec
	return rec
}

// Clone returns a copy that shares no map with s.
func (s CourseStats) Clone() CourseStats {
	out := s
	out.Questions = make(map[question.ID]PerformanceRecord, len(s.Questions))
	for id, rec := range s.Questions {
		out.Questions[id] = rec
	}
	return out
}
