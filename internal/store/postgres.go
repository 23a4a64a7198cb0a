package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anhducmata/myath/constants"
	"github.com/anhducmata/myath/internal/entity"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS problems (
	id                UUID PRIMARY KEY,
	status            TEXT NOT NULL,
	file_reference    TEXT NOT NULL,
	extraction_result JSONB,
	parsed_problem    JSONB,
	solution          JSONB,
	error             JSONB,
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_problems_status ON problems (status);
`

// PostgresRepository stores problems in PostgreSQL with JSONB stage payloads.
// Lifecycle guards run inside the UPDATE statements so concurrent workers
// cannot overwrite a terminal row.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Create(ctx context.Context, fileRef string) (*entity.Problem, error) {
	now := time.Now().UTC()
	p := &entity.Problem{
		ID:        uuid.New(),
		Status:    constants.StatusQueued,
		FileRef:   fileRef,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO problems (id, status, file_reference, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		p.ID, string(p.Status), p.FileRef, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert problem: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Problem, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, status, file_reference, extraction_result, parsed_problem, solution, error, created_at, updated_at
		 FROM problems WHERE id = $1`, id)
	p, err := scanPgProblem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (r *PostgresRepository) List(ctx context.Context) ([]*entity.Problem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, status, file_reference, extraction_result, parsed_problem, solution, error, created_at, updated_at
		 FROM problems ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}
	defer rows.Close()

	var out []*entity.Problem
	for rows.Next() {
		p, err := scanPgProblem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return r.guardedUpdate(ctx, id,
		`UPDATE problems SET status = $1, updated_at = $2 WHERE id = $3 AND status NOT IN ($4, $5)`,
		string(constants.StatusProcessing), time.Now().UTC(), id,
		string(constants.StatusCompleted), string(constants.StatusFailed))
}

func (r *PostgresRepository) SaveExtraction(ctx context.Context, id uuid.UUID, res *entity.ExtractionResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode extraction result: %w", err)
	}
	return r.guardedUpdate(ctx, id,
		`UPDATE problems SET extraction_result = $1, updated_at = $2 WHERE id = $3 AND status NOT IN ($4, $5)`,
		payload, time.Now().UTC(), id,
		string(constants.StatusCompleted), string(constants.StatusFailed))
}

func (r *PostgresRepository) SaveParsed(ctx context.Context, id uuid.UUID, parsed *entity.ParsedProblem) error {
	payload, err := json.Marshal(parsed)
	if err != nil {
		return fmt.Errorf("encode parsed problem: %w", err)
	}
	return r.guardedUpdate(ctx, id,
		`UPDATE problems SET parsed_problem = $1, updated_at = $2 WHERE id = $3 AND status NOT IN ($4, $5)`,
		payload, time.Now().UTC(), id,
		string(constants.StatusCompleted), string(constants.StatusFailed))
}

func (r *PostgresRepository) SaveSolution(ctx context.Context, id uuid.UUID, sol *entity.Solution) error {
	payload, err := json.Marshal(sol)
	if err != nil {
		return fmt.Errorf("encode solution: %w", err)
	}
	return r.guardedUpdate(ctx, id,
		`UPDATE problems SET solution = $1, updated_at = $2 WHERE id = $3 AND status NOT IN ($4, $5)`,
		payload, time.Now().UTC(), id,
		string(constants.StatusCompleted), string(constants.StatusFailed))
}

func (r *PostgresRepository) SetVerification(ctx context.Context, id uuid.UUID, passed bool) error {
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

func (r *PostgresRepository) Complete(ctx context.Context, id uuid.UUID) error {
	return r.guardedUpdate(ctx, id,
		`UPDATE problems SET status = $1, updated_at = $2 WHERE id = $3 AND status NOT IN ($4, $5)`,
		string(constants.StatusCompleted), time.Now().UTC(), id,
		string(constants.StatusCompleted), string(constants.StatusFailed))
}

func (r *PostgresRepository) Fail(ctx context.Context, id uuid.UUID, stageErr *entity.StageError) error {
	payload, err := json.Marshal(stageErr)
	if err != nil {
		return fmt.Errorf("encode stage error: %w", err)
	}
	return r.guardedUpdate(ctx, id,
		`UPDATE problems SET status = $1, error = $2, updated_at = $3 WHERE id = $4 AND status NOT IN ($5, $6)`,
		string(constants.StatusFailed), payload, time.Now().UTC(), id,
		string(constants.StatusCompleted), string(constants.StatusFailed))
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) guardedUpdate(ctx context.Context, id uuid.UUID, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update problem: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := r.Get(ctx, id); errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	return ErrTerminal
}

func scanPgProblem(row pgx.Row) (*entity.Problem, error) {
	var (
		p          entity.Problem
		status     string
		extraction []byte
		parsed     []byte
		solution   []byte
		stageErr   []byte
	)
	if err := row.Scan(&p.ID, &status, &p.FileRef, &extraction, &parsed, &solution, &stageErr, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = constants.ProblemStatus(status)

	for _, col := range []struct {
		raw  []byte
		dst  any
		name string
	}{
		{extraction, &p.Extraction, "extraction result"},
		{parsed, &p.Parsed, "parsed problem"},
		{solution, &p.Solution, "solution"},
		{stageErr, &p.Error, "stage error"},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dst); err != nil {
			return nil, fmt.Errorf("decode %s: %w", col.name, err)
		}
	}
	return &p, nil
}
