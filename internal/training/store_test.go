package training_test

import (
	"context"
	"testing"
	"time"

	"github.com/p-n-ai/cloudmaster/internal/question"
	"github.com/p-n-ai/cloudmaster/internal/training"
)

func testQuestions() question.Set {
	set := question.Set{
		{Text: "Single?", Choices: []question.Choice{{Text: "right", IsCorrect: true}, {Text: "wrong"}}},
		{Text: "Multi?", IsMultipleResponse: true, RequiredSelectionCount: 2, Choices: []question.Choice{
			{Text: "a", IsCorrect: true}, {Text: "b", IsCorrect: true}, {Text: "c"},
		}},
	}
	question.AssignIDs(set)
	return set
}

func TestMemoryStore_RecordAnswer(t *testing.T) {
	store := training.NewMemoryStore()
	ctx := context.Background()
	qs := testQuestions()
	single := qs[0]

	rec, outcome, err := store.RecordAnswer(ctx, "SAA-C03", training.Answer{
		Question: single,
		Selected: []question.ChoiceID{single.Choices[0].ID},
		Elapsed:  30 * time.Second,
	})
	if err != nil {
		t.Fatalf("RecordAnswer() error = %v", err)
	}
	if !outcome.Correct {
		t.Error("outcome should be correct")
	}
	if rec != (training.PerformanceRecord{TimesViewed: 1, TimesCorrect: 1}) {
		t.Errorf("record = %+v", rec)
	}

	rec, outcome, _ = store.RecordAnswer(ctx, "SAA-C03", training.Answer{
		Question: single,
		Selected: []question.ChoiceID{single.Choices[1].ID},
		Elapsed:  10 * time.Second,
	})
	if outcome.Correct {
		t.Error("outcome should be incorrect")
	}
	if rec != (training.PerformanceRecord{TimesViewed: 2, TimesCorrect: 1, TimesIncorrect: 1}) {
		t.Errorf("record = %+v", rec)
	}

	stats, err := store.Get(ctx, "SAA-C03")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stats.TimeSpent != 40*time.Second {
		t.Errorf("TimeSpent = %v, want 40s", stats.TimeSpent)
	}
	if stats.CorrectAnswers != 1 || stats.WrongAnswers != 1 {
		t.Errorf("CorrectAnswers=%d WrongAnswers=%d, want 1/1", stats.CorrectAnswers, stats.WrongAnswers)
	}
}

func TestMemoryStore_CoursesAreIsolated(t *testing.T) {
	store := training.NewMemoryStore()
	ctx := context.Background()
	q := testQuestions()[0]

	_, _, _ = store.RecordAnswer(ctx, "SAA-C03", training.Answer{Question: q})

	perf, err := store.Performance(ctx, "AZ-900")
	if err != nil {
		t.Fatalf("Performance() error = %v", err)
	}
	if len(perf) != 0 {
		t.Errorf("AZ-900 performance = %v, want empty", perf)
	}
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	store := training.NewMemoryStore()
	ctx := context.Background()
	q := testQuestions()[0]
	_, _, _ = store.RecordAnswer(ctx, "SAA-C03", training.Answer{Question: q})

	stats, _ := store.Get(ctx, "SAA-C03")
	stats.Questions[q.ID] = training.PerformanceRecord{TimesViewed: 99}

	again, _ := store.Get(ctx, "SAA-C03")
	if again.Questions[q.ID].TimesViewed != 1 {
		t.Errorf("store was mutated through returned stats: %+v", again.Questions[q.ID])
	}
}

func TestMemoryStore_Reset(t *testing.T) {
	store := training.NewMemoryStore()
	ctx := context.Background()
	q := testQuestions()[0]
	_, _, _ = store.RecordAnswer(ctx, "SAA-C03", training.Answer{Question: q})

	if err := store.Reset(ctx, "SAA-C03"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	stats, _ := store.Get(ctx, "SAA-C03")
	if len(stats.Questions) != 0 || stats.TimeSpent != 0 {
		t.Errorf("stats after reset = %+v", stats)
	}
}

func TestEvaluate_MultipleResponse(t *testing.T) {
	multi := testQuestions()[1]

	tests := []struct {
		name        string
		selected    []question.ChoiceID
		wantCorrect bool
		wantRight   int
		wantWrong   int
	}{
		{"both correct", []question.ChoiceID{multi.Choices[0].ID, multi.Choices[1].ID}, true, 2, 0},
		{"one correct", []question.ChoiceID{multi.Choices[0].ID}, false, 1, 0},
		{"one of each", []question.ChoiceID{multi.Choices[0].ID, multi.Choices[2].ID}, false, 1, 1},
		{"duplicates ignored", []question.ChoiceID{multi.Choices[2].ID, multi.Choices[2].ID}, false, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := training.Evaluate(training.Answer{Question: multi, Selected: tt.selected})
			if got.Correct != tt.wantCorrect || got.CorrectChoices != tt.wantRight || got.WrongChoices != tt.wantWrong {
				t.Errorf("Evaluate() = %+v", got)
			}
		})
	}
}

func TestPerformanceRecord_Struggling(t *testing.T) {
	tests := []struct {
		rec  training.PerformanceRecord
		want bool
	}{
		{training.PerformanceRecord{TimesCorrect: 1, TimesIncorrect: 2}, true},
		{training.PerformanceRecord{TimesCorrect: 2, TimesIncorrect: 2}, false},
		{training.PerformanceRecord{TimesCorrect: 3}, false},
	}
	for _, tt := range tests {
		if got := tt.rec.Struggling(); got != tt.want {
			t.Errorf("%+v.Struggling() = %v, want %v", tt.rec, got, tt.want)
		}
	}
}
