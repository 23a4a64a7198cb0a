package solver

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strings"

	"github.com/anhducmata/myath/internal/entity"
	"github.com/anhducmata/myath/internal/symbolic"
)

// mcqTol is the relative tolerance for matching an option against the
// computed target value.
const mcqTol = 1e-6

// optionLabel strips leading choice markers: "1) ", "B. ", "(c) ".
var optionLabel = regexp.MustCompile(`^\s*\(?[A-Da-d0-9]{1,2}[).:]\s*`)

// MCQStrategy answers multiple-choice problems by reducing the statement to
// a single numeric target and matching it against each option's value.
type MCQStrategy struct{}

func (s *MCQStrategy) Attempt(_ context.Context, prob entity.ParsedProblem) (entity.Solution, error) {
	if len(prob.Options) == 0 {
		return entity.Solution{}, fmt.Errorf("multiple-choice problem has no options")
	}
	target, form, err := mcqTarget(prob)
	if err != nil {
		return entity.Solution{}, err
	}

	steps := []entity.Step{{
		Description:  "Reduce the question to a target value",
		SymbolicForm: form + " = " + formatFloat(target),
		Explanation:  "Evaluating the statement gives the value the correct option must equal.",
	}}

	for i, opt := range prob.Options {
		val, err := optionValue(opt)
		if err != nil {
			continue
		}
		if math.Abs(val-target) <= mcqTol*(1+math.Abs(target)) {
			results := []string{opt}
			steps = append(steps, entity.Step{
				Description:  fmt.Sprintf("Match option %d", i+1),
				SymbolicForm: formattedResults(results),
				Explanation:  fmt.Sprintf("Option %q evaluates to %s, which equals the target.", opt, formatFloat(val)),
			})
			return entity.Solution{
				Results:    results,
				Steps:      steps,
				Confidence: confidenceChoice,
				Method:     "option-analysis",
			}, nil
		}
	}
	return entity.Solution{}, fmt.Errorf("no option matches the computed value %s", formatFloat(target))
}

// mcqTarget evaluates the statement to one number: either a constant
// expression, or a linear equation solved for its variable.
func mcqTarget(prob entity.ParsedProblem) (float64, string, error) {
	rel, err := symbolic.ParseRelation(prob.Statement)
	if err != nil {
		return 0, "", fmt.Errorf("parse statement: %w", err)
	}
	if rel.Op == symbolic.OpNone {
		v, err := symbolic.EvalReal(rel.Lhs, map[string]float64{})
		if err != nil {
			return 0, "", fmt.Errorf("statement does not reduce to a value: %w", err)
		}
		return v, symbolic.Format(rel.Lhs), nil
	}
	if rel.Op != symbolic.OpEq {
		return 0, "", fmt.Errorf("statement is an inequality, not a question with a value")
	}
	diff, err := symbolic.Simplify(symbolic.Sub(rel.Lhs, rel.Rhs))
	if err != nil {
		return 0, "", err
	}
	free := symbolic.FreeSymbols(diff)
	v, err := pickVariable(prob, free)
	if err != nil {
		return 0, "", err
	}
	coeffs, err := symbolic.PolyCoeffs(diff, v)
	if err != nil {
		return 0, "", fmt.Errorf("statement is not solvable for %s: %w", v, err)
	}
	if len(coeffs) != 2 {
		return 0, "", fmt.Errorf("only linear equations are reduced to a choice value, got degree %d", len(coeffs)-1)
	}
	root := new(big.Rat).Quo(coeffs[0], coeffs[1])
	root.Neg(root)
	f, _ := root.Float64()
	return f, v, nil
}

// optionValue parses the numeric content of one option, tolerating a leading
// choice label, thousands separators and digit grouping by spaces.
func optionValue(opt string) (float64, error) {
	clean := optionLabel.ReplaceAllString(opt, "")
	clean = strings.ReplaceAll(clean, ",", "")
	clean = strings.ReplaceAll(clean, " ", "")
	expr, err := symbolic.Parse(clean)
	if err != nil {
		return 0, fmt.Errorf("option %q is not numeric: %w", opt, err)
	}
	return symbolic.EvalReal(expr, map[string]float64{})
}
