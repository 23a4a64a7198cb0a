package solver

import (
	"context"
	"fmt"

	"github.com/anhducmata/myath/internal/entity"
	"github.com/anhducmata/myath/internal/symbolic"
)

// IntegralStrategy computes antiderivatives, and for bounded problems the
// definite integral by evaluating the antiderivative at both limits.
type IntegralStrategy struct{}

func (s *IntegralStrategy) Attempt(_ context.Context, prob entity.ParsedProblem) (entity.Solution, error) {
	expr, err := symbolic.Parse(prob.Statement)
	if err != nil {
		return entity.Solution{}, fmt.Errorf("parse statement: %w", err)
	}
	v, err := pickVariable(prob, symbolic.FreeSymbols(expr))
	if err != nil {
		return entity.Solution{}, err
	}

	anti, err := symbolic.Integrate(expr, v)
	if err != nil {
		return entity.Solution{}, fmt.Errorf("integrate with respect to %s: %w", v, err)
	}
	anti, err = symbolic.Simplify(anti)
	if err != nil {
		return entity.Solution{}, fmt.Errorf("simplify antiderivative: %w", err)
	}

	steps := []entity.Step{
		{
			Description:  "Given integrand",
			SymbolicForm: symbolic.Format(expr),
			Explanation:  fmt.Sprintf("Integrate with respect to %s.", v),
		},
		{
			Description:  "Find the antiderivative",
			SymbolicForm: symbolic.Format(anti),
			Explanation:  "Apply the power rule and the standard antiderivative table term by term.",
		},
	}

	if prob.Bounds == nil {
		result := symbolic.Format(anti)
		steps = append(steps, entity.Step{
			Description:  "Antiderivative",
			SymbolicForm: formattedResults([]string{result}),
			Explanation:  "The result is determined up to a constant of integration, which is omitted here.",
		})
		return entity.Solution{
			Results:    []string{result},
			Steps:      steps,
			Confidence: confidenceExact,
			Method:     "symbolic-integration",
		}, nil
	}

	lower, err := symbolic.Parse(prob.Bounds.Lower)
	if err != nil {
		return entity.Solution{}, fmt.Errorf("parse lower bound %q: %w", prob.Bounds.Lower, err)
	}
	upper, err := symbolic.Parse(prob.Bounds.Upper)
	if err != nil {
		return entity.Solution{}, fmt.Errorf("parse upper bound %q: %w", prob.Bounds.Upper, err)
	}

	atUpper := symbolic.Subst(anti, v, upper)
	atLower := symbolic.Subst(anti, v, lower)
	value, err := symbolic.Simplify(symbolic.Sub(atUpper, atLower))
	if err != nil {
		return entity.Solution{}, fmt.Errorf("evaluate antiderivative at the bounds: %w", err)
	}
	result := symbolic.Format(value)

	steps = append(steps, entity.Step{
		Description:  "Evaluate at the bounds",
		SymbolicForm: formattedResults([]string{result}),
		Explanation: fmt.Sprintf("By the fundamental theorem of calculus the integral equals F(%s) - F(%s).",
			prob.Bounds.Upper, prob.Bounds.Lower),
	})

	return entity.Solution{
		Results:    []string{result},
		Steps:      steps,
		Confidence: confidenceExact,
		Method:     "symbolic-integration",
	}, nil
}
