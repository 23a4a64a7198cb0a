// Package pipeline runs a stored problem through extraction, parsing,
// solving, and verification, persisting progress after every stage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/anhducmata/myath/constants"
	"github.com/anhducmata/myath/internal/entity"
	"github.com/anhducmata/myath/internal/extraction"
	"github.com/anhducmata/myath/internal/filestore"
	"github.com/anhducmata/myath/internal/parser"
	"github.com/anhducmata/myath/internal/solver"
	"github.com/anhducmata/myath/internal/store"
	"github.com/anhducmata/myath/internal/verifier"
)

// Processor drives one problem through the full pipeline. It is safe to call
// Process repeatedly for the same id: terminal problems are left untouched.
type Processor struct {
	repo      store.ProblemRepository
	files     filestore.Store
	extractor *extraction.Orchestrator
	parser    *parser.Parser
	solver    *solver.Router
	verifier  *verifier.Verifier
	logger    *slog.Logger
}

func NewProcessor(
	repo store.ProblemRepository,
	files filestore.Store,
	extractor *extraction.Orchestrator,
	prs *parser.Parser,
	router *solver.Router,
	vf *verifier.Verifier,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		repo:      repo,
		files:     files,
		extractor: extractor,
		parser:    prs,
		solver:    router,
		verifier:  vf,
		logger:    logger,
	}
}

// Process runs the pipeline for one problem. Domain failures end in the
// failed status with a structured stage error; infrastructure errors (store,
// file store, cancellation) are returned to the caller and leave the problem
// re-runnable.
func (p *Processor) Process(ctx context.Context, id uuid.UUID) error {
	prob, err := p.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load problem: %w", err)
	}
	if prob.Status.Terminal() {
		p.logger.Info("processor.skip_terminal", "problem_id", id, "status", prob.Status)
		return nil
	}
	if err := p.repo.MarkProcessing(ctx, id); err != nil {
		if errors.Is(err, store.ErrTerminal) {
			return nil
		}
		return fmt.Errorf("mark processing: %w", err)
	}

	data, mimeType, err := p.files.Get(ctx, prob.FileRef)
	if err != nil {
		// The file may reappear (shared volume mount, replication lag),
		// so this is infrastructure, not a domain failure.
		return fmt.Errorf("load file %q: %w", prob.FileRef, err)
	}

	ext, err := p.runExtraction(ctx, id, data, mimeType)
	if err != nil {
		return err
	}
	if ext == nil {
		return nil // failed terminally inside the stage
	}

	parsed, err := p.runParsing(ctx, id, *ext)
	if err != nil {
		return err
	}
	if parsed == nil {
		return nil
	}

	sol, err := p.runSolving(ctx, id, *parsed)
	if err != nil {
		return err
	}
	if sol == nil {
		return nil
	}

	p.runVerification(ctx, id, *parsed, sol)

	if err := p.repo.Complete(ctx, id); err != nil {
		if errors.Is(err, store.ErrTerminal) {
			p.logger.Warn("processor.complete_raced", "problem_id", id)
			return nil
		}
		return fmt.Errorf("complete problem: %w", err)
	}
	p.logger.Info("processor.ok", "problem_id", id)
	return nil
}

// runExtraction returns (nil, nil) when the problem was failed terminally.
func (p *Processor) runExtraction(ctx context.Context, id uuid.UUID, data []byte, mimeType string) (*entity.ExtractionResult, error) {
	res, err := p.extractor.Extract(ctx, data, mimeType)
	if err != nil {
		var failed *extraction.FailedError
		if errors.As(err, &failed) {
			return nil, p.fail(ctx, id, constants.StageExtraction, constants.KindExtractionFailed, failed.Error())
		}
		return nil, fmt.Errorf("extraction: %w", err)
	}
	ext := &entity.ExtractionResult{
		Text:       res.Text,
		Normalized: res.Normalized,
		Confidence: res.Confidence,
		Method:     res.Method,
	}
	if err := p.repo.SaveExtraction(ctx, id, ext); err != nil {
		return nil, fmt.Errorf("save extraction: %w", err)
	}
	return ext, nil
}

func (p *Processor) runParsing(ctx context.Context, id uuid.UUID, ext entity.ExtractionResult) (*entity.ParsedProblem, error) {
	parsed, err := p.parser.Parse(ctx, ext)
	if err != nil {
		var failed *parser.FailedError
		if errors.As(err, &failed) {
			return nil, p.fail(ctx, id, constants.StageParsing, constants.KindParseFailed, failed.Error())
		}
		return nil, fmt.Errorf("parsing: %w", err)
	}
	if err := p.repo.SaveParsed(ctx, id, &parsed); err != nil {
		return nil, fmt.Errorf("save parsed problem: %w", err)
	}
	return &parsed, nil
}

func (p *Processor) runSolving(ctx context.Context, id uuid.UUID, parsed entity.ParsedProblem) (*entity.Solution, error) {
	sol, err := p.solver.Solve(ctx, parsed)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("solving: %w", ctx.Err())
		}
		kind := constants.KindSolveFailed
		if errors.Is(err, solver.ErrUnsupported) {
			kind = constants.KindUnsupportedProblem
		}
		return nil, p.fail(ctx, id, constants.StageSolving, kind, err.Error())
	}
	if err := p.repo.SaveSolution(ctx, id, &sol); err != nil {
		return nil, fmt.Errorf("save solution: %w", err)
	}
	return &sol, nil
}

// runVerification is advisory: it records a verdict when one can be computed
// and never fails the problem.
func (p *Processor) runVerification(ctx context.Context, id uuid.UUID, parsed entity.ParsedProblem, sol *entity.Solution) {
	passed, checked := p.verifier.Verify(parsed, *sol)
	if !checked {
		return
	}
	if err := p.repo.SetVerification(ctx, id, passed); err != nil {
		p.logger.Warn("processor.verification_persist_failed", "problem_id", id, "err", err)
	}
}

// fail marks the problem failed with a structured stage error. A terminal
// race is swallowed: someone else already finished the problem.
func (p *Processor) fail(ctx context.Context, id uuid.UUID, stage constants.Stage, kind constants.ErrorKind, msg string) error {
	p.logger.Warn("processor.stage_failed", "problem_id", id, "stage", stage, "kind", kind, "err", msg)
	err := p.repo.Fail(ctx, id, &entity.StageError{Stage: stage, Kind: kind, Message: msg})
	if errors.Is(err, store.ErrTerminal) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("record %s failure: %w", stage, err)
	}
	return nil
}
