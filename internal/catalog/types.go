package catalog

import (
	"fmt"
	"time"

	"github.com/p-n-ai/cloudmaster/internal/question"
)

// Company is the vendor or body behind a certification.
type Company string

const (
	CompanyAWS   Company = "aws"
	CompanyAzure Company = "azure"
	CompanyGCP   Company = "gcp"
	CompanyScrum Company = "scrum"
	CompanyOther Company = "other"
)

// DisplayName returns the human-readable vendor name.
func (c Company) DisplayName() string {
	switch c {
	case CompanyAWS:
		return "Amazon Web Services"
	case CompanyAzure:
		return "Microsoft Azure"
	case CompanyGCP:
		return "Google Cloud Platform"
	case CompanyScrum:
		return "Scrum Alliance"
	default:
		return "Others"
	}
}

// Course is one certification question bank.
type Course struct {
	ShortName     question.CourseID `yaml:"short_name" json:"short_name"`
	FullName      string            `yaml:"full_name" json:"full_name"`
	Description   string            `yaml:"description" json:"description"`
	Company       Company           `yaml:"company" json:"company"`
	RepositoryURL string            `yaml:"repository_url" json:"repository_url"`
	QuestionURL   string            `yaml:"question_url" json:"question_url"`
	URL           string            `yaml:"url" json:"url"`
	Exam          Exam              `yaml:"exam" json:"exam"`
}

// Exam holds the three simulated exam lengths of a course.
type Exam struct {
	Quick        ExamDetail `yaml:"quick" json:"quick"`
	Intermediate ExamDetail `yaml:"intermediate" json:"intermediate"`
	Real         ExamDetail `yaml:"real" json:"real"`
}

// ExamDetail is the time limit and question count of one exam mode.
type ExamDetail struct {
	TimeMinutes   int `yaml:"time_minutes" json:"time_minutes"`
	QuestionCount int `yaml:"question_count" json:"question_count"`
}

// TimeLimit returns the exam duration.
func (d ExamDetail) TimeLimit() time.Duration {
	return time.Duration(d.TimeMinutes) * time.Minute
}

// ExamMode names one of the exam lengths.
type ExamMode string

const (
	ExamQuick        ExamMode = "quick"
	ExamIntermediate ExamMode = "intermediate"
	ExamReal         ExamMode = "real"
)

// Detail returns the settings for mode.
func (e Exam) Detail(mode ExamMode) (ExamDetail, error) {
	switch mode {
	case ExamQuick:
		return e.Quick, nil
	case ExamIntermediate:
		return e.Intermediate, nil
	case ExamReal:
		return e.Real, nil
	default:
		return ExamDetail{}, fmt.Errorf("unknown exam mode %q", mode)
	}
}
