package ingest

import (
	"errors"
	"fmt"

	"github.com/p-n-ai/cloudmaster/internal/question"
)

// Kind classifies an ingestion failure.
type Kind int

const (
	KindInvalidURL Kind = iota + 1
	KindNetwork
	KindParse
	KindEmptyResult
	KindStorage
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindInvalidURL:
		return "invalid url"
	case KindNetwork:
		return "network"
	case KindParse:
		return "parse"
	case KindEmptyResult:
		return "empty result"
	case KindStorage:
		return "storage"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrInvalidURL  = errors.New("invalid url")
	ErrNetwork     = errors.New("network failure")
	ErrParse       = errors.New("parse failure")
	ErrEmptyResult = errors.New("no questions found")
	ErrStorage     = errors.New("storage failure")
	ErrCanceled    = errors.New("ingestion canceled")
)

var sentinels = map[Kind]error{
	KindInvalidURL:  ErrInvalidURL,
	KindNetwork:     ErrNetwork,
	KindParse:       ErrParse,
	KindEmptyResult: ErrEmptyResult,
	KindStorage:     ErrStorage,
	KindCanceled:    ErrCanceled,
}

// Error is the failure reported for one course's ingestion.
type Error struct {
	Course question.CourseID
	Kind   Kind
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ingest %s: %s", e.Course, e.Kind)
	}
	return fmt.Sprintf("ingest %s: %s: %v", e.Course, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's Kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

func newError(course question.CourseID, kind Kind, err error) *Error {
	return &Error{Course: course, Kind: kind, Err: err}
}

// KindOf returns the Kind of err, or 0 when err is not an ingestion error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
