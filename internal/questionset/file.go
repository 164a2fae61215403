// Package questionset reads and writes the per-course question set files
// and orders questions for training and exam sessions.
package questionset

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/p-n-ai/cloudmaster/internal/question"
)

// ErrInvalidFile is returned when a question set file fails validation.
var ErrInvalidFile = errors.New("invalid question set file")

//go:embed schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func fileSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	})
	return schema, schemaErr
}

type fileQuestion struct {
	Question         string       `json:"question"`
	Choices          []fileChoice `json:"choices"`
	MultipleResponse bool         `json:"multiple_response,omitempty"`
	ResponseCount    int          `json:"response_count,omitempty"`
	Images           []fileImage  `json:"images"`
}

type fileChoice struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

type fileImage struct {
	Path       string  `json:"path"`
	URL        *string `json:"url"`
	Downloaded bool    `json:"downloaded"`
}

// Encode renders set in the on-disk JSON format. IDs are not stored; they
// are derived again on Decode.
func Encode(set question.Set) ([]byte, error) {
	out := make([]fileQuestion, 0, len(set))
	for _, q := range set {
		fq := fileQuestion{
			Question: q.Text,
			Choices:  make([]fileChoice, 0, len(q.Choices)),
			Images:   make([]fileImage, 0, len(q.Images)),
		}
		if q.IsMultipleResponse {
			fq.MultipleResponse = true
			fq.ResponseCount = q.RequiredSelectionCount
		}
		for _, c := range q.Choices {
			fq.Choices = append(fq.Choices, fileChoice{Text: c.Text, Correct: c.IsCorrect})
		}
		for _, img := range q.Images {
			fi := fileImage{Path: img.RelativePath, Downloaded: img.Downloaded}
			if img.SourceURL != "" {
				url := img.SourceURL
				fi.URL = &url
			}
			fq.Images = append(fq.Images, fi)
		}
		out = append(out, fq)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal question set: %w", err)
	}
	return data, nil
}

// Decode validates data against the file schema and returns the question
// set with IDs assigned.
func Decode(data []byte) (question.Set, error) {
	s, err := fileSchema()
	if err != nil {
		return nil, fmt.Errorf("compile question set schema: %w", err)
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidFile, strings.Join(msgs, "; "))
	}

	var raw []fileQuestion
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	set := make(question.Set, 0, len(raw))
	for _, fq := range raw {
		q := question.Question{
			Text:                   fq.Question,
			IsMultipleResponse:     fq.MultipleResponse,
			RequiredSelectionCount: 1,
			Choices:                make([]question.Choice, 0, len(fq.Choices)),
			Images:                 make([]question.ImageRef, 0, len(fq.Images)),
		}
		if fq.MultipleResponse {
			q.RequiredSelectionCount = fq.ResponseCount
		}
		for _, c := range fq.Choices {
			q.Choices = append(q.Choices, question.Choice{Text: c.Text, IsCorrect: c.Correct})
		}
		for _, img := range fq.Images {
			ref := question.ImageRef{RelativePath: img.Path, Downloaded: img.Downloaded}
			if img.URL != nil {
				ref.SourceURL = *img.URL
			}
			q.Images = append(q.Images, ref)
		}
		set = append(set, q)
	}
	question.AssignIDs(set)
	return set, nil
}
