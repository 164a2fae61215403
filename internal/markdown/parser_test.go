package markdown_test

import (
	"errors"
	"testing"

	"github.com/p-n-ai/cloudmaster/internal/markdown"
	"github.com/p-n-ai/cloudmaster/internal/question"
)

const fixture = `# AWS Certified Solutions Architect - Associate

[Table of Contents](#table-of-contents)

### Which service provides object storage?

- [x] Amazon S3
- [ ] Amazon EBS
- [ ] Amazon EFS

**[⬆ Back to Top](#table-of-contents)**

### Select TWO ways to reduce latency.

![Question 2](images/question2.png)

- [x] Use Amazon CloudFront.
- [ ] Use a bigger instance.
- [x] Use AWS Global Accelerator.

### Which diagram matches the architecture?

![diagram](images/q3/diagram.jpg) ![join us](images/discord.png)
![promo](images/promotional-banner.png)

- [ ] Diagram A
- [x] Diagram **B**
`

func TestParse_Fixture(t *testing.T) {
	set, err := markdown.Parse(fixture, "SAA-C03")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(set) != 3 {
		t.Fatalf("len(set) = %d, want 3", len(set))
	}

	q1 := set[0]
	if q1.Text != "Which service provides object storage?" {
		t.Errorf("q1.Text = %q", q1.Text)
	}
	if len(q1.Choices) != 3 || !q1.Choices[0].IsCorrect || q1.Choices[1].IsCorrect {
		t.Errorf("q1.Choices = %+v", q1.Choices)
	}
	if q1.IsMultipleResponse || q1.RequiredSelectionCount != 1 {
		t.Errorf("q1 multiple=%v count=%d, want false/1", q1.IsMultipleResponse, q1.RequiredSelectionCount)
	}

	if q3 := set[2]; q3.Choices[1].Text != "Diagram **B**" {
		t.Errorf("choice text should be verbatim, got %q", q3.Choices[1].Text)
	}
}

func TestParse_MultipleResponse(t *testing.T) {
	set, err := markdown.Parse(fixture, "SAA-C03")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	q2 := set[1]
	if !q2.IsMultipleResponse {
		t.Error("q2 should be multiple response")
	}
	if q2.RequiredSelectionCount != 2 {
		t.Errorf("RequiredSelectionCount = %d, want 2", q2.RequiredSelectionCount)
	}
}

func TestParse_ImageFiltering(t *testing.T) {
	set, err := markdown.Parse(fixture, "SAA-C03")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got := set[1].Images; len(got) != 1 || got[0].RelativePath != "images/SAA-C03/images/question2.png" {
		t.Errorf("q2 images = %+v", got)
	}
	got := set[2].Images
	if len(got) != 1 {
		t.Fatalf("q3 images = %+v, want only the diagram", got)
	}
	if got[0].RelativePath != "images/SAA-C03/images/q3/diagram.jpg" {
		t.Errorf("RelativePath = %q", got[0].RelativePath)
	}
	if got[0].Downloaded || got[0].SourceURL != "" {
		t.Errorf("freshly parsed image should not be downloaded: %+v", got[0])
	}
}

func TestParse_ImageLinkVariants(t *testing.T) {
	tests := []struct {
		name string
		link string
		want string
	}{
		{"space in file name", "![a](images/a b.png)", "images/AZ-900/images/a b.png"},
		{"raw query", "![a](images/q1.png?raw=true)", "images/AZ-900/images/q1.png"},
		{"fragment", "![a](images/q1.png#center)", "images/AZ-900/images/q1.png"},
		{"link title", `![a](images/q1.png "Figure 1")`, "images/AZ-900/images/q1.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := markdown.Parse("### Q\n"+tt.link+"\n- [x] yes\n", "AZ-900")
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			got := set[0].Images
			if len(got) != 1 || got[0].RelativePath != tt.want {
				t.Errorf("images = %+v, want one with path %q", got, tt.want)
			}
		})
	}
}

func TestParse_Empty(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"prose only", "# Title\n\nSome text.\n## Heading\n"},
		{"headings without choices", "### Q1\n### Q2\n"},
		{"choices without heading", "- [x] orphan\n- [ ] choice\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := markdown.Parse(tt.text, "AZ-900")
			if !errors.Is(err, markdown.ErrNoQuestions) {
				t.Errorf("Parse() error = %v, want ErrNoQuestions", err)
			}
		})
	}
}

func TestParse_DropsHeadingWithoutChoices(t *testing.T) {
	text := "### Orphan heading\n### Real question\n- [x] yes\n- [ ] no\n"
	set, err := markdown.Parse(text, "AZ-900")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(set) != 1 || set[0].Text != "Real question" {
		t.Errorf("set = %+v, want only the real question", set)
	}
}

func TestParse_CRLFAndUppercaseMark(t *testing.T) {
	text := "### Q?\r\n- [X] right\r\n- [ ] wrong\r\n"
	set, err := markdown.Parse(text, "AZ-900")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if set[0].Text != "Q?" || set[0].Choices[0].Text != "right" || !set[0].Choices[0].IsCorrect {
		t.Errorf("set = %+v", set)
	}
}

func TestParse_AssignsStableIDs(t *testing.T) {
	a, _ := markdown.Parse(fixture, "SAA-C03")
	b, _ := markdown.Parse(fixture, "SAA-C03")
	for i := range a {
		if a[i].ID == "" || a[i].ID != b[i].ID {
			t.Errorf("question %d ID not stable: %q vs %q", i, a[i].ID, b[i].ID)
		}
	}
}

func TestImagePath(t *testing.T) {
	got := markdown.ImagePath(question.CourseID("DVA-C02"), "images/x.png")
	if got != "images/DVA-C02/images/x.png" {
		t.Errorf("ImagePath() = %q", got)
	}
}
