// Package server exposes the solving service over HTTP: submit a problem
// file, poll its status, export results.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/anhducmata/myath/internal/async"
	"github.com/anhducmata/myath/internal/entity"
	"github.com/anhducmata/myath/internal/filestore"
	"github.com/anhducmata/myath/internal/store"
)

// Service ties intake together: store the file, create the problem record,
// hand it to the queue.
type Service struct {
	repo   store.ProblemRepository
	files  filestore.Store
	queue  async.Queue
	logger *slog.Logger
}

func NewService(repo store.ProblemRepository, files filestore.Store, queue async.Queue, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, files: files, queue: queue, logger: logger}
}

// Submit accepts an uploaded problem file and enqueues it for processing.
// The returned problem is in the queued status; callers poll GetStatus.
func (s *Service) Submit(ctx context.Context, filename string, data []byte) (*entity.Problem, error) {
	ref, err := s.files.Put(ctx, filename, data)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	prob, err := s.repo.Create(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("create problem: %w", err)
	}

	job := async.Job{
		ProblemID:   prob.ID,
		SubmittedAt: time.Now().UTC(),
		TraceID:     uuid.NewString(),
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		// The record stays queued; a later retry sweep or resubmission
		// can pick it up.
		s.logger.Warn("server.enqueue_failed", "problem_id", prob.ID, "err", err)
		return nil, fmt.Errorf("enqueue problem: %w", err)
	}
	s.logger.Info("server.submitted", "problem_id", prob.ID, "file", filename, "trace_id", job.TraceID)
	return prob, nil
}

// GetStatus returns the current state of a problem, whatever stage it is in.
func (s *Service) GetStatus(ctx context.Context, id uuid.UUID) (*entity.Problem, error) {
	return s.repo.Get(ctx, id)
}
