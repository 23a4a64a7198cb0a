package solver

import (
	"context"
	"fmt"

	"github.com/anhducmata/myath/internal/entity"
	"github.com/anhducmata/myath/internal/symbolic"
)

// SimplifyStrategy reduces an expression to canonical form: like terms
// collected, constants folded, factors merged.
type SimplifyStrategy struct{}

func (s *SimplifyStrategy) Attempt(_ context.Context, prob entity.ParsedProblem) (entity.Solution, error) {
	expr, err := symbolic.Parse(prob.Statement)
	if err != nil {
		return entity.Solution{}, fmt.Errorf("parse statement: %w", err)
	}
	reduced, err := symbolic.Simplify(expr)
	if err != nil {
		return entity.Solution{}, fmt.Errorf("simplify: %w", err)
	}

	original := symbolic.Format(expr)
	result := symbolic.Format(reduced)
	steps := []entity.Step{{
		Description:  "Given expression",
		SymbolicForm: original,
		Explanation:  "Starting from the statement as recognized.",
	}}
	if result == original {
		steps = append(steps, entity.Step{
			Description:  "Already in simplest form",
			SymbolicForm: formattedResults([]string{result}),
			Explanation:  "No like terms to collect and no constants to fold.",
		})
	} else {
		steps = append(steps, entity.Step{
			Description:  "Collect like terms and fold constants",
			SymbolicForm: formattedResults([]string{result}),
			Explanation:  "Combine terms over the same monomial, merge repeated factors, and evaluate constant subexpressions.",
		})
	}

	return entity.Solution{
		Results:    []string{result},
		Steps:      steps,
		Confidence: confidenceExact,
		Method:     "simplify",
	}, nil
}
