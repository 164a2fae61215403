// Package report exports a course's exam history and training statistics
// as an XLSX workbook.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/cloudmaster/internal/exam"
	"github.com/p-n-ai/cloudmaster/internal/question"
	"github.com/p-n-ai/cloudmaster/internal/training"
)

const (
	examSheet     = "Exams"
	trainingSheet = "Training"
	questionSheet = "Questions"
)

// Course identifies the course a report is about.
type Course struct {
	ShortName question.CourseID
	FullName  string
}

// WriteXLSX writes a workbook with one sheet of exam results, one of
// training totals and one of per-question performance. Question texts are
// looked up in set; questions no longer in the set are listed by ID.
func WriteXLSX(w io.Writer, course Course, results []exam.Result, stats training.CourseStats, set question.Set) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", examSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeExams(f, header, results); err != nil {
		return err
	}
	if _, err := f.NewSheet(trainingSheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", trainingSheet, err)
	}
	if err := writeTraining(f, header, course, stats); err != nil {
		return err
	}
	if _, err := f.NewSheet(questionSheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", questionSheet, err)
	}
	if err := writeQuestions(f, header, stats, set); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, header int, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, header)
}

func writeExams(f *excelize.File, header int, results []exam.Result) error {
	sorted := append([]exam.Result(nil), results...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TakenAt.After(sorted[j].TakenAt) })

	rows := [][]any{{"Taken at", "Mode", "Correct", "Total", "Score %", "Passed", "Time spent (min)"}}
	for _, r := range sorted {
		rows = append(rows, []any{
			r.TakenAt.UTC().Format(time.RFC3339),
			string(r.Mode),
			r.Score.Correct,
			r.Score.Total,
			round1(r.Score.Percentage),
			r.Score.Passed,
			round1(r.TimeSpent.Minutes()),
		})
	}
	return writeRows(f, examSheet, header, rows)
}

func writeTraining(f *excelize.File, header int, course Course, stats training.CourseStats) error {
	rows := [][]any{
		{"Field", "Value"},
		{"Course", string(course.ShortName)},
		{"Name", course.FullName},
		{"Time spent (min)", round1(stats.TimeSpent.Minutes())},
		{"Correct choices", stats.CorrectAnswers},
		{"Wrong choices", stats.WrongAnswers},
		{"Questions seen", len(stats.Questions)},
	}
	return writeRows(f, trainingSheet, header, rows)
}

func writeQuestions(f *excelize.File, header int, stats training.CourseStats, set question.Set) error {
	texts := make(map[question.ID]string, len(set))
	order := make(map[question.ID]int, len(set))
	for i, q := range set {
		texts[q.ID] = q.Text
		order[q.ID] = i
	}

	ids := make([]question.ID, 0, len(stats.Questions))
	for id := range stats.Questions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		oi, iok := order[ids[i]]
		oj, jok := order[ids[j]]
		if iok != jok {
			return iok
		}
		if iok {
			return oi < oj
		}
		return ids[i] < ids[j]
	})

	rows := [][]any{{"Question", "Viewed", "Correct", "Incorrect", "Struggling"}}
	for _, id := range ids {
		rec := stats.Questions[id]
		text, ok := texts[id]
		if !ok {
			text = string(id)
		}
		rows = append(rows, []any{text, rec.TimesViewed, rec.TimesCorrect, rec.TimesIncorrect, rec.Struggling()})
	}
	return writeRows(f, questionSheet, header, rows)
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
