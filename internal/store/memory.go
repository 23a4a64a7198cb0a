package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anhducmata/myath/constants"
	"github.com/anhducmata/myath/internal/entity"
)

// MemoryRepository keeps problems in process memory. Used by the one-shot
// CLI and by tests; it applies the same lifecycle rules as the SQL stores.
type MemoryRepository struct {
	mu       sync.RWMutex
	problems map[uuid.UUID]*entity.Problem
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{problems: map[uuid.UUID]*entity.Problem{}}
}

func (r *MemoryRepository) Create(_ context.Context, fileRef string) (*entity.Problem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	p := &entity.Problem{
		ID:        uuid.New(),
		Status:    constants.StatusQueued,
		FileRef:   fileRef,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.problems[p.ID] = p
	return cloneProblem(p), nil
}

func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (*entity.Problem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.problems[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneProblem(p), nil
}

func (r *MemoryRepository) List(_ context.Context) ([]*entity.Problem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.Problem, 0, len(r.problems))
	for _, p := range r.problems {
		out = append(out, cloneProblem(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) MarkProcessing(_ context.Context, id uuid.UUID) error {
	return r.mutate(id, func(p *entity.Problem) {
		p.Status = constants.StatusProcessing
	})
}

func (r *MemoryRepository) SaveExtraction(_ context.Context, id uuid.UUID, res *entity.ExtractionResult) error {
	return r.mutate(id, func(p *entity.Problem) {
		cp := *res
		p.Extraction = &cp
	})
}

func (r *MemoryRepository) SaveParsed(_ context.Context, id uuid.UUID, parsed *entity.ParsedProblem) error {
	return r.mutate(id, func(p *entity.Problem) {
		p.Parsed = cloneParsed(parsed)
	})
}

func (r *MemoryRepository) SaveSolution(_ context.Context, id uuid.UUID, sol *entity.Solution) error {
	return r.mutate(id, func(p *entity.Problem) {
		p.Solution = cloneSolution(sol)
	})
}

func (r *MemoryRepository) SetVerification(_ context.Context, id uuid.UUID, passed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.problems[id]
	if !ok {
		return ErrNotFound
	}
	if p.Status.Terminal() {
		return ErrTerminal
	}
	if p.Solution == nil {
		return ErrNotFound
	}
	v := passed
	p.Solution.Verified = &v
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepository) Complete(_ context.Context, id uuid.UUID) error {
	return r.mutate(id, func(p *entity.Problem) {
		p.Status = constants.StatusCompleted
	})
}

func (r *MemoryRepository) Fail(_ context.Context, id uuid.UUID, stageErr *entity.StageError) error {
	return r.mutate(id, func(p *entity.Problem) {
		p.Status = constants.StatusFailed
		cp := *stageErr
		p.Error = &cp
	})
}

func (r *MemoryRepository) Close() error { return nil }

// mutate applies fn under the terminal guard and bumps the update time.
func (r *MemoryRepository) mutate(id uuid.UUID, fn func(p *entity.Problem)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.problems[id]
	if !ok {
		return ErrNotFound
	}
	if p.Status.Terminal() {
		return ErrTerminal
	}
	fn(p)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func cloneProblem(p *entity.Problem) *entity.Problem {
	cp := *p
	if p.Extraction != nil {
		e := *p.Extraction
		cp.Extraction = &e
	}
	cp.Parsed = cloneParsed(p.Parsed)
	cp.Solution = cloneSolution(p.Solution)
	if p.Error != nil {
		e := *p.Error
		cp.Error = &e
	}
	return &cp
}

func cloneParsed(p *entity.ParsedProblem) *entity.ParsedProblem {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Operations = append([]string(nil), p.Operations...)
	cp.Variables = append([]string(nil), p.Variables...)
	cp.Options = append([]string(nil), p.Options...)
	if p.Bounds != nil {
		b := *p.Bounds
		cp.Bounds = &b
	}
	return &cp
}

func cloneSolution(s *entity.Solution) *entity.Solution {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Results = append([]string(nil), s.Results...)
	cp.Steps = append([]entity.Step(nil), s.Steps...)
	if s.Verified != nil {
		v := *s.Verified
		cp.Verified = &v
	}
	return &cp
}
