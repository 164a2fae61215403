package training

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/cloudmaster/internal/question"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store implementation.
// Tables are created by database.Migrate.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed training store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Get(ctx context.Context, course question.CourseID) (CourseStats, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	stats := NewCourseStats(course)
	var timeSpentMS int64
	err := s.pool.QueryRow(ctx,
		`SELECT time_spent_ms, correct_answers, wrong_answers
		 FROM training_courses
		 WHERE course = $1`,
		string(course),
	).Scan(&timeSpentMS, &stats.CorrectAnswers, &stats.WrongAnswers)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return CourseStats{}, fmt.Errorf("get training stats: %w", err)
	}
	stats.TimeSpent = time.Duration(timeSpentMS) * time.Millisecond

	perf, err := s.performance(ctx, course)
	if err != nil {
		return CourseStats{}, err
	}
	stats.Questions = perf
	return stats, nil
}

func (s *PostgresStore) Performance(ctx context.Context, course question.CourseID) (map[question.ID]PerformanceRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return s.performance(ctx, course)
}

func (s *PostgresStore) performance(ctx context.Context, course question.CourseID) (map[question.ID]PerformanceRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT question_id, times_viewed, times_correct, times_incorrect
		 FROM training_question_stats
		 WHERE course = $1`,
		string(course),
	)
	if err != nil {
		return nil, fmt.Errorf("query question stats: %w", err)
	}
	defer rows.Close()

	perf := make(map[question.ID]PerformanceRecord)
	for rows.Next() {
		var id string
		var rec PerformanceRecord
		if err := rows.Scan(&id, &rec.TimesViewed, &rec.TimesCorrect, &rec.TimesIncorrect); err != nil {
			return nil, fmt.Errorf("scan question stats: %w", err)
		}
		perf[question.ID(id)] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate question stats: %w", err)
	}
	return perf, nil
}

func (s *PostgresStore) RecordAnswer(ctx context.Context, course question.CourseID, a Answer) (PerformanceRecord, Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if a.Question.ID == "" {
		return PerformanceRecord{}, Outcome{}, fmt.Errorf("question id is required")
	}
	outcome := Evaluate(a)
	correct, incorrect := 0, 1
	if outcome.Correct {
		correct, incorrect = 1, 0
	}
	elapsed := a.Elapsed
	if elapsed < 0 {
		elapsed = 0
	}

	var rec PerformanceRecord
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO training_courses (course, time_spent_ms, correct_answers, wrong_answers, updated_at)
			 VALUES ($1, $2, $3, $4, NOW())
			 ON CONFLICT (course) DO UPDATE SET
			   time_spent_ms = training_courses.time_spent_ms + EXCLUDED.time_spent_ms,
			   correct_answers = training_courses.correct_answers + EXCLUDED.correct_answers,
			   wrong_answers = training_courses.wrong_answers + EXCLUDED.wrong_answers,
			   updated_at = NOW()`,
			string(course),
			elapsed.Milliseconds(),
			outcome.CorrectChoices,
			outcome.WrongChoices,
		); err != nil {
			return fmt.Errorf("upsert training course: %w", err)
		}

		return tx.QueryRow(ctx,
			`INSERT INTO training_question_stats (course, question_id, times_viewed, times_correct, times_incorrect)
			 VALUES ($1, $2, 1, $3, $4)
			 ON CONFLICT (course, question_id) DO UPDATE SET
			   times_viewed = training_question_stats.times_viewed + 1,
			   times_correct = training_question_stats.times_correct + EXCLUDED.times_correct,
			   times_incorrect = training_question_stats.times_incorrect + EXCLUDED.times_incorrect
			 RETURNING times_viewed, times_correct, times_incorrect`,
			string(course),
			string(a.Question.ID),
			correct,
			incorrect,
		).Scan(&rec.TimesViewed, &rec.TimesCorrect, &rec.TimesIncorrect)
	})
	if err != nil {
		return PerformanceRecord{}, Outcome{}, fmt.Errorf("record answer: %w", err)
	}
	return rec, outcome, nil
}

func (s *PostgresStore) Reset(ctx context.Context, course question.CourseID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM training_question_stats WHERE course = $1`, string(course)); err != nil {
			return fmt.Errorf("reset question stats: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM training_courses WHERE course = $1`, string(course)); err != nil {
			return fmt.Errorf("reset training course: %w", err)
		}
		return nil
	})
}
