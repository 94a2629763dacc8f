package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resumaster/resumaster/pkg/core"
	"github.com/resumaster/resumaster/pkg/resume"
)

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by PostgreSQL. Resume data and analysis
// are serialised as JSONB.
type PostgresStore struct {
	db DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a store over the given connection or pool. The
// caller is responsible for running [Migrate] before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Connect opens a pgx pool for url and verifies connectivity.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("store: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return pool, nil
}

func (s *PostgresStore) Save(ctx context.Context, data resume.ResumeData, analysis *resume.AIAnalysis) (resume.SavedResume, error) {
	rec := resume.SavedResume{
		ID:       uuid.NewString(),
		Data:     data,
		Analysis: analysis,
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return resume.SavedResume{}, fmt.Errorf("store: marshal resume: %w", err)
	}
	var analysisJSON []byte
	if analysis != nil {
		analysisJSON, err = json.Marshal(analysis)
		if err != nil {
			return resume.SavedResume{}, fmt.Errorf("store: marshal analysis: %w", err)
		}
	}

	const query = `
		INSERT INTO saved_resumes (id, data, analysis)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	if err := s.db.QueryRow(ctx, query, rec.ID, dataJSON, analysisJSON).Scan(&rec.Timestamp); err != nil {
		return resume.SavedResume{}, fmt.Errorf("store: save: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) GetAll(ctx context.Context) ([]resume.SavedResume, error) {
	const query = `
		SELECT id, created_at, data, analysis
		FROM saved_resumes
		ORDER BY created_at DESC, id`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: get all: %w", err)
	}
	defer rows.Close()

	var records []resume.SavedResume
	for rows.Next() {
		rec, err := scanSavedResume(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: get all: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*resume.SavedResume, error) {
	const query = `
		SELECT id, created_at, data, analysis
		FROM saved_resumes
		WHERE id = $1`

	rec, err := scanSavedResume(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.NewNotFoundError("saved resume " + id + " not found")
		}
		return nil, fmt.Errorf("store: get %q: %w", id, err)
	}
	return &rec, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM saved_resumes WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("store: delete %q: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSavedResume(row rowScanner) (resume.SavedResume, error) {
	var (
		rec          resume.SavedResume
		createdAt    time.Time
		dataJSON     []byte
		analysisJSON []byte
	)
	if err := row.Scan(&rec.ID, &createdAt, &dataJSON, &analysisJSON); err != nil {
		return resume.SavedResume{}, err
	}
	rec.Timestamp = createdAt.UTC()
	if err := json.Unmarshal(dataJSON, &rec.Data); err != nil {
		return resume.SavedResume{}, fmt.Errorf("store: unmarshal resume: %w", err)
	}
	if len(analysisJSON) > 0 {
		rec.Analysis = &resume.AIAnalysis{}
		if err := json.Unmarshal(analysisJSON, rec.Analysis); err != nil {
			return resume.SavedResume{}, fmt.Errorf("store: unmarshal analysis: %w", err)
		}
	}
	return rec, nil
}
