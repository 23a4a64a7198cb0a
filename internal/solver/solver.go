// Package solver dispatches structured problems to type-specific symbolic
// strategies and assembles step-by-step solutions.
package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anhducmata/myath/constants"
	"github.com/anhducmata/myath/internal/entity"
)

// ErrUnsupported marks a problem type with no registered strategy. Distinct
// from an ordinary solve failure: it means "not implemented yet", not "tried
// and could not produce an answer".
var ErrUnsupported = errors.New("unsupported problem type")

// Solution confidences. Exact symbolic answers score high; numeric
// approximations are marked down and say so in their step explanations.
const (
	confidenceExact   = 0.95
	confidenceChoice  = 0.9
	confidenceNumeric = 0.7
)

// Strategy is one type-specific solving capability.
type Strategy interface {
	Attempt(ctx context.Context, prob entity.ParsedProblem) (entity.Solution, error)
}

// Router dispatches strictly by problem type to one strategy. Adding a type
// means registering a strategy, never touching the dispatch logic.
type Router struct {
	strategies map[constants.ProblemType]Strategy
	logger     *slog.Logger
}

// NewRouter builds a router with the default strategy set registered.
func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{strategies: map[constants.ProblemType]Strategy{}, logger: logger}
	r.Register(constants.TypeEquation, &EquationStrategy{})
	r.Register(constants.TypeSimplify, &SimplifyStrategy{})
	r.Register(constants.TypeDerivative, &DerivativeStrategy{})
	r.Register(constants.TypeIntegral, &IntegralStrategy{})
	r.Register(constants.TypeInequality, &InequalityStrategy{})
	r.Register(constants.TypeSystem, &SystemStrategy{})
	r.Register(constants.TypeMCQ, &MCQStrategy{})
	return r
}

// Register installs (or replaces) the strategy for a problem type.
func (r *Router) Register(t constants.ProblemType, s Strategy) {
	r.strategies[t] = s
}

// Solve routes the problem to its strategy. Returns ErrUnsupported (wrapped)
// for unregistered types; any other error means the strategy was attempted
// and the engine could not produce an answer.
func (r *Router) Solve(ctx context.Context, prob entity.ParsedProblem) (entity.Solution, error) {
	s, ok := r.strategies[prob.Type]
	if !ok {
		r.logger.Warn("solver.unsupported", "problem_type", prob.Type)
		return entity.Solution{}, fmt.Errorf("%w: %q", ErrUnsupported, prob.Type)
	}
	sol, err := s.Attempt(ctx, prob)
	if err != nil {
		r.logger.Error("solver.failed", "problem_type", prob.Type, "err", err)
		return entity.Solution{}, err
	}
	renumber(&sol)
	r.logger.Info("solver.ok",
		"problem_type", prob.Type,
		"method", sol.Method,
		"steps", len(sol.Steps),
		"confidence", sol.Confidence)
	return sol, nil
}

// renumber enforces 1-based contiguous step numbers matching slice order.
func renumber(sol *entity.Solution) {
	for i := range sol.Steps {
		sol.Steps[i].Number = i + 1
	}
}

// formattedResults is the canonical rendering of a result list; the final
// step's symbolic form must equal it exactly.
func formattedResults(results []string) string {
	return strings.Join(results, ", ")
}

// pickVariable returns the variable to solve over: the first declared one,
// or the sole free symbol of the statement.
func pickVariable(prob entity.ParsedProblem, free []string) (string, error) {
	if len(prob.Variables) > 0 {
		return prob.Variables[0], nil
	}
	if len(free) == 1 {
		return free[0], nil
	}
	if len(free) == 0 {
		return "", errors.New("no variable to solve for")
	}
	return "", fmt.Errorf("ambiguous variables %v and none declared", free)
}
