// Package store persists problems and enforces the status lifecycle:
// queued -> processing -> completed | failed, with terminal states immutable.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/anhducmata/myath/internal/entity"
)

var (
	// ErrNotFound is returned when no problem exists for the given id.
	ErrNotFound = errors.New("problem not found")
	// ErrTerminal is returned when a mutation targets a problem already in
	// a terminal status. Callers racing to finish a problem treat it as
	// "someone else got there first", not as a failure.
	ErrTerminal = errors.New("problem is in a terminal status")
)

// ProblemRepository is the persistence contract for the solving lifecycle.
// Every mutator refuses to touch a terminal problem and returns ErrTerminal.
type ProblemRepository interface {
	// Create stores a new problem in the queued status.
	Create(ctx context.Context, fileRef string) (*entity.Problem, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.Problem, error)
	// List returns problems ordered by creation time, newest first.
	List(ctx context.Context) ([]*entity.Problem, error)

	// MarkProcessing moves a problem out of queued. Re-marking a problem
	// already in processing is a no-op so interrupted runs can resume.
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	SaveExtraction(ctx context.Context, id uuid.UUID, res *entity.ExtractionResult) error
	SaveParsed(ctx context.Context, id uuid.UUID, parsed *entity.ParsedProblem) error
	SaveSolution(ctx context.Context, id uuid.UUID, sol *entity.Solution) error
	// SetVerification records the advisory verification verdict on a
	// previously saved solution.
	SetVerification(ctx context.Context, id uuid.UUID, passed bool) error

	Complete(ctx context.Context, id uuid.UUID) error
	Fail(ctx context.Context, id uuid.UUID, stageErr *entity.StageError) error

	Close() error
}
