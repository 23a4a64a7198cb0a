package solver

import (
	"context"
	"fmt"

	"github.com/anhducmata/myath/internal/entity"
	"github.com/anhducmata/myath/internal/symbolic"
)

// DerivativeStrategy differentiates the statement with respect to the
// declared (or sole free) variable and simplifies the result.
type DerivativeStrategy struct{}

func (s *DerivativeStrategy) Attempt(_ context.Context, prob entity.ParsedProblem) (entity.Solution, error) {
	expr, err := symbolic.Parse(prob.Statement)
	if err != nil {
		return entity.Solution{}, fmt.Errorf("parse statement: %w", err)
	}
	v, err := pickVariable(prob, symbolic.FreeSymbols(expr))
	if err != nil {
		return entity.Solution{}, err
	}

	deriv, err := symbolic.Diff(expr, v)
	if err != nil {
		return entity.Solution{}, fmt.Errorf("differentiate with respect to %s: %w", v, err)
	}
	reduced, err := symbolic.Simplify(deriv)
	if err != nil {
		return entity.Solution{}, fmt.Errorf("simplify derivative: %w", err)
	}
	result := symbolic.Format(reduced)

	steps := []entity.Step{
		{
			Description:  "Given expression",
			SymbolicForm: symbolic.Format(expr),
			Explanation:  fmt.Sprintf("Differentiate with respect to %s.", v),
		},
		{
			Description:  "Apply differentiation rules",
			SymbolicForm: symbolic.Format(deriv),
			Explanation:  "Apply the sum, product, power, and chain rules term by term.",
		},
		{
			Description:  "Simplify",
			SymbolicForm: formattedResults([]string{result}),
			Explanation:  "Collect like terms in the differentiated expression.",
		},
	}

	return entity.Solution{
		Results:    []string{result},
		Steps:      steps,
		Confidence: confidenceExact,
		Method:     "symbolic-differentiation",
	}, nil
}
