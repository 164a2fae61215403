package exam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/cloudmaster/internal/catalog"
	"github.com/p-n-ai/cloudmaster/internal/question"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store implementation.
// Tables are created by database.Migrate.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed exam store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

const resultColumns = `id, course, course_name, mode, taken_at, time_spent_ms, correct, total, passed, questions`

func (s *PostgresStore) Save(ctx context.Context, r Result) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	questions, err := json.Marshal(r.Questions)
	if err != nil {
		return fmt.Errorf("encode exam questions: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO exam_results (`+resultColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		   time_spent_ms = EXCLUDED.time_spent_ms,
		   correct = EXCLUDED.correct,
		   total = EXCLUDED.total,
		   passed = EXCLUDED.passed,
		   questions = EXCLUDED.questions`,
		r.ID, string(r.Course), r.CourseName, string(r.Mode), r.TakenAt,
		r.TimeSpent.Milliseconds(), r.Score.Correct, r.Score.Total, r.Score.Passed, questions,
	)
	if err != nil {
		return fmt.Errorf("save exam result: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx, `SELECT `+resultColumns+` FROM exam_results WHERE id = $1`, id)
	r, err := scanResult(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Result{}, ErrNotFound
	}
	if err != nil {
		return Result{}, fmt.Errorf("get exam result: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) List(ctx context.Context, course question.CourseID) ([]Result, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+resultColumns+`
		 FROM exam_results
		 WHERE course = $1
		 ORDER BY taken_at DESC`,
		string(course),
	)
	if err != nil {
		return nil, fmt.Errorf("list exam results: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exam result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM exam_results WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete exam result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Reset(ctx context.Context, course question.CourseID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx, `DELETE FROM exam_results WHERE course = $1`, string(course)); err != nil {
		return fmt.Errorf("reset exam results: %w", err)
	}
	return nil
}

func scanResult(row pgx.Row) (Result, error) {
	var (
		r           Result
		course      string
		mode        string
		timeSpentMS int64
		questions   []byte
	)
	err := row.Scan(&r.ID, &course, &r.CourseName, &mode, &r.TakenAt, &timeSpentMS,
		&r.Score.Correct, &r.Score.Total, &r.Score.Passed, &questions)
	if err != nil {
		return Result{}, err
	}
	r.Course = question.CourseID(course)
	r.Mode = catalog.ExamMode(mode)
	r.TimeSpent = time.Duration(timeSpentMS) * time.Millisecond
	if r.Score.Total > 0 {
		r.Score.Percentage = float64(r.Score.Correct) / float64(r.Score.Total) * 100
	}
	if err := json.Unmarshal(questions, &r.Questions); err != nil {
		return Result{}, fmt.Errorf("decode exam questions: %w", err)
	}
	return r, nil
}
