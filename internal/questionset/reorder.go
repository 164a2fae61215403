package questionset

import (
	"github.com/p-n-ai/cloudmaster/internal/question"
	"github.com/p-n-ai/cloudmaster/internal/training"
)

// Reorder returns a permutation of questions grouped as never seen, then
// struggling (more incorrect than correct), then mastered. Relative order
// inside each group is kept. Counts are cumulative; there is no decay.
func Reorder(questions question.Set, perf map[question.ID]training.PerformanceRecord) question.Set {
	out := make(question.Set, 0, len(questions))
	var struggling, mastered question.Set
	for _, q := range questions {
		rec, seen := perf[q.ID]
		switch {
		case !seen:
			out = append(out, q)
		case rec.Struggling():
			struggling = append(struggling, q)
		default:
			mastered = append(mastered, q)
		}
	}
	out = append(out, struggling...)
	return append(out, mastered...)
}
