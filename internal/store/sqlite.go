package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/anhducmata/myath/constants"
	"github.com/anhducmata/myath/internal/entity"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS problems (
	id                TEXT PRIMARY KEY,
	status            TEXT NOT NULL,
	file_reference    TEXT NOT NULL,
	extraction_result TEXT,
	parsed_problem    TEXT,
	solution          TEXT,
	error             TEXT,
	created_at        TIMESTAMP NOT NULL,
	updated_at        TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_problems_status ON problems (status);
`

// SQLiteRepository stores problems in a single-file SQLite database. Stage
// payloads live in JSON columns; the status column is the source of truth
// for lifecycle guards.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(ctx context.Context, dsn string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite serializes writes itself; one connection avoids
	// SQLITE_BUSY under concurrent workers.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, fileRef string) (*entity.Problem, error) {
	now := time.Now().UTC()
	p := &entity.Problem{
		ID:        uuid.New(),
		Status:    constants.StatusQueued,
		FileRef:   fileRef,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO problems (id, status, file_reference, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID.String(), string(p.Status), p.FileRef, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert problem: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Problem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, status, file_reference, extraction_result, parsed_problem, solution, error, created_at, updated_at
		 FROM problems WHERE id = ?`, id.String())
	return scanProblem(row)
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*entity.Problem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, status, file_reference, extraction_result, parsed_problem, solution, error, created_at, updated_at
		 FROM problems ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}
	defer rows.Close()

	var out []*entity.Problem
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return r.guardedUpdate(ctx, id,
		`UPDATE problems SET status = ?, updated_at = ? WHERE id = ? AND status NOT IN (?, ?)`,
		string(constants.StatusProcessing), time.Now().UTC(), id.String(),
		string(constants.StatusCompleted), string(constants.StatusFailed))
}

func (r *SQLiteRepository) SaveExtraction(ctx context.Context, id uuid.UUID, res *entity.ExtractionResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode extraction result: %w", err)
	}
	return r.guardedUpdate(ctx, id,
		`UPDATE problems SET extraction_result = ?, updated_at = ? WHERE id = ? AND status NOT IN (?, ?)`,
		string(payload), time.Now().UTC(), id.String(),
		string(constants.StatusCompleted), string(constants.StatusFailed))
}

func (r *SQLiteRepository) SaveParsed(ctx context.Context, id uuid.UUID, parsed *entity.ParsedProblem) error {
	payload, err := json.Marshal(parsed)
	if err != nil {
		return fmt.Errorf("encode parsed problem: %w", err)
	}
	return r.guardedUpdate(ctx, id,
		`UPDATE problems SET parsed_problem = ?, updated_at = ? WHERE id = ? AND status NOT IN (?, ?)`,
		string(payload), time.Now().UTC(), id.String(),
		string(constants.StatusCompleted), string(constants.StatusFailed))
}

func (r *SQLiteRepository) SaveSolution(ctx context.Context, id uuid.UUID, sol *entity.Solution) error {
	payload, err := json.Marshal(sol)
	if err != nil {
		return fmt.Errorf("encode solution: %w", err)
	}
	return r.guardedUpdate(ctx, id,
		`UPDATE problems SET solution = ?, updated_at = ? WHERE id = ? AND status NOT IN (?, ?)`,
		string(payload), time.Now().UTC(), id.String(),
		string(constants.StatusCompleted), string(constants.StatusFailed))
}

func (r *SQLiteRepository) SetVerification(ctx context.Context, id uuid.UUID, passed bool) error {
	p, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if p.Status.Terminal() {
		return ErrTerminal
	}
	if p.Solution == nil {
		return ErrNotFound
	}
	p.Solution.Verified = &passed
	return r.SaveSolution(ctx, id, p.Solution)
}

func (r *SQLiteRepository) Complete(ctx context.Context, id uuid.UUID) error {
	return r.guardedUpdate(ctx, id,
		`UPDATE problems SET status = ?, updated_at = ? WHERE id = ? AND status NOT IN (?, ?)`,
		string(constants.StatusCompleted), time.Now().UTC(), id.String(),
		string(constants.StatusCompleted), string(constants.StatusFailed))
}

func (r *SQLiteRepository) Fail(ctx context.Context, id uuid.UUID, stageErr *entity.StageError) error {
	payload, err := json.Marshal(stageErr)
	if err != nil {
		return fmt.Errorf("encode stage error: %w", err)
	}
	return r.guardedUpdate(ctx, id,
		`UPDATE problems SET status = ?, error = ?, updated_at = ? WHERE id = ? AND status NOT IN (?, ?)`,
		string(constants.StatusFailed), string(payload), time.Now().UTC(), id.String(),
		string(constants.StatusCompleted), string(constants.StatusFailed))
}

func (r *SQLiteRepository) Close() error { return r.db.Close() }

// guardedUpdate runs a status-guarded UPDATE and maps a zero row count to
// ErrNotFound or ErrTerminal by re-reading the row.
func (r *SQLiteRepository) guardedUpdate(ctx context.Context, id uuid.UUID, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update problem: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update problem: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := r.Get(ctx, id); errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	return ErrTerminal
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProblem(row rowScanner) (*entity.Problem, error) {
	var (
		p          entity.Problem
		idStr      string
		status     string
		extraction sql.NullString
		parsed     sql.NullString
		solution   sql.NullString
		stageErr   sql.NullString
	)
	err := row.Scan(&idStr, &status, &p.FileRef, &extraction, &parsed, &solution, &stageErr, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan problem: %w", err)
	}
	p.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse problem id: %w", err)
	}
	p.Status = constants.ProblemStatus(status)

	if extraction.Valid {
		if err := json.Unmarshal([]byte(extraction.String), &p.Extraction); err != nil {
			return nil, fmt.Errorf("decode extraction result: %w", err)
		}
	}
	if parsed.Valid {
		if err := json.Unmarshal([]byte(parsed.String), &p.Parsed); err != nil {
			return nil, fmt.Errorf("decode parsed problem: %w", err)
		}
	}
	if solution.Valid {
		if err := json.Unmarshal([]byte(solution.String), &p.Solution); err != nil {
			return nil, fmt.Errorf("decode solution: %w", err)
		}
	}
	if stageErr.Valid {
		if err := json.Unmarshal([]byte(stageErr.String), &p.Error); err != nil {
			return nil, fmt.Errorf("decode stage error: %w", err)
		}
	}
	return &p, nil
}
