// Package catalog loads the list of courses the service can ingest.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/cloudmaster/internal/question"
)

// ErrInvalidCatalog is returned when catalog YAML fails validation.
var ErrInvalidCatalog = errors.New("invalid course catalog")

//go:embed courses.yaml
var defaultCatalog []byte

//go:embed schema.json
var schemaJSON string

type document struct {
	Courses []Course `yaml:"courses"`
}

// Catalog is an immutable, validated set of courses.
type Catalog struct {
	courses map[question.CourseID]Course
	order   []question.CourseID
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file. An empty path selects the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse validates catalog YAML against the catalog schema and builds a Catalog.
func Parse(data []byte) (*Catalog, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if err := validate(raw); err != nil {
		return nil, err
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	c := &Catalog{courses: make(map[question.CourseID]Course, len(doc.Courses))}
	for _, course := range doc.Courses {
		if _, dup := c.courses[course.ShortName]; dup {
			return nil, fmt.Errorf("%w: duplicate short name %q", ErrInvalidCatalog, course.ShortName)
		}
		c.courses[course.ShortName] = course
		c.order = append(c.order, course.ShortName)
	}

	slog.Debug("catalog loaded", "courses", len(c.order))
	return c, nil
}

func validate(doc any) error {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return fmt.Errorf("compile catalog schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(msgs, "; "))
	}
	return nil
}

// Get returns a course by short name.
func (c *Catalog) Get(id question.CourseID) (Course, bool) {
	course, ok := c.courses[id]
	return course, ok
}

// All returns every course in catalog order.
func (c *Catalog) All() []Course {
	out := make([]Course, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.courses[id])
	}
	return out
}

// ByCompany returns the courses of one vendor, sorted by short name.
func (c *Catalog) ByCompany(company Company) []Course {
	var out []Course
	for _, course := range c.All() {
		if course.Company == company {
			out = append(out, course)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShortName < out[j].ShortName })
	return out
}
