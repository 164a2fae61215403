package favorites

import (
	"context"
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

// NewPostgresStore creates a PostgreSQL-backed favorites store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Favorites(ctx context.Context) ([]question.CourseID, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT course FROM favorite_courses ORDER BY added_at, course`)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	courses, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (question.CourseID, error) {
		var c string
		err := row.Scan(&c)
		return question.CourseID(c), err
	})
	if err != nil {
		return nil, fmt.Errorf("scan favorites: %w", err)
	}
	return courses, nil
}

func (s *PostgresStore) AddFavorite(ctx context.Context, course question.CourseID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO favorite_courses (course) VALUES ($1) ON CONFLICT (course) DO NOTHING`,
		string(course),
	)
	if err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveFavorite(ctx context.Context, course question.CourseID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx, `DELETE FROM favorite_courses WHERE course = $1`, string(course)); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

func (s *PostgresStore) Bookmarks(ctx context.Context, course question.CourseID) ([]Bookmark, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT course, question_id, text, created_at
		 FROM question_bookmarks
		 WHERE course = $1
		 ORDER BY created_at, question_id`,
		string(course),
	)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Bookmark, error) {
		return scanBookmark(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan bookmarks: %w", err)
	}
	return list, nil
}

func (s *PostgresStore) AddBookmark(ctx context.Context, b Bookmark) (Bookmark, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	// The no-op update makes RETURNING yield the stored row on conflict.
	row := s.pool.QueryRow(ctx,
		`INSERT INTO question_bookmarks (course, question_id, text, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (course, question_id) DO UPDATE SET course = EXCLUDED.course
		 RETURNING course, question_id, text, created_at`,
		string(b.Course), string(b.QuestionID), b.Text, b.CreatedAt,
	)
	stored, err := scanBookmark(row)
	if err != nil {
		return Bookmark{}, fmt.Errorf("add bookmark: %w", err)
	}
	return stored, nil
}

func (s *PostgresStore) RemoveBookmark(ctx context.Context, course question.CourseID, id question.ID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM question_bookmarks WHERE course = $1 AND question_id = $2`,
		string(course), string(id),
	)
	if err != nil {
		return fmt.Errorf("remove bookmark: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanBookmark(row pgx.Row) (Bookmark, error) {
	var (
		b          Bookmark
		course, id string
	)
	if err := row.Scan(&course, &id, &b.Text, &b.CreatedAt); err != nil {
		return Bookmark{}, err
	}
	b.Course = question.CourseID(course)
	b.QuestionID = question.ID(id)
	b.CreatedAt = b.CreatedAt.UTC()
	return b, nil
}
