package solver

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/anhducmata/myath/internal/entity"
	"github.com/anhducmata/myath/internal/symbolic"
)

// InequalityStrategy solves single-variable polynomial inequalities by sign
// analysis: find the real roots, test each open interval between them, and
// report the union of intervals (and boundary points for non-strict
// comparisons) where the inequality holds.
type InequalityStrategy struct{}

// rootPoint is one real boundary of the sign chart. label is the exact
// rational rendering when available, a decimal approximation otherwise.
type rootPoint struct {
	val   float64
	label string
	exact bool
}

func (s *InequalityStrategy) Attempt(_ context.Context, prob entity.ParsedProblem) (entity.Solution, error) {
	rel, err := symbolic.ParseRelation(prob.Statement)
	if err != nil {
		return entity.Solution{}, fmt.Errorf("parse statement: %w", err)
	}
	var strict bool
	var wantPositive bool
	switch rel.Op {
	case symbolic.OpLt:
		strict, wantPositive = true, false
	case symbolic.OpLe:
		strict, wantPositive = false, false
	case symbolic.OpGt:
		strict, wantPositive = true, true
	case symbolic.OpGe:
		strict, wantPositive = false, true
	default:
		return entity.Solution{}, fmt.Errorf("statement is not an inequality")
	}

	diff, err := symbolic.Simplify(symbolic.Sub(rel.Lhs, rel.Rhs))
	if err != nil {
		return entity.Solution{}, fmt.Errorf("simplify inequality: %w", err)
	}
	v, err := pickVariable(prob, symbolic.FreeSymbols(diff))
	if err != nil {
		return entity.Solution{}, err
	}
	coeffs, err := symbolic.PolyCoeffs(diff, v)
	if err != nil {
		return entity.Solution{}, fmt.Errorf("inequality is not polynomial in %s: %w", v, err)
	}

	steps := []entity.Step{{
		Description:  "Given inequality",
		SymbolicForm: prob.Statement,
		Explanation:  "Starting from the statement as recognized.",
	}, {
		Description:  "Rearrange into standard form",
		SymbolicForm: symbolic.Format(diff) + " " + opString(rel.Op) + " 0",
		Explanation:  "Move every term to the left-hand side and compare against zero.",
	}}

	degree := len(coeffs) - 1
	if degree == 0 {
		return s.constantCase(coeffs[0], strict, wantPositive, steps)
	}

	points, numeric, err := boundaryPoints(coeffs)
	if err != nil {
		return entity.Solution{}, err
	}
	if len(points) > 0 {
		labels := make([]string, len(points))
		for i, p := range points {
			labels[i] = p.label
		}
		steps = append(steps, entity.Step{
			Description:  "Find the boundary points",
			SymbolicForm: strings.Join(labels, ", "),
			Explanation:  "The sign of the left-hand side can only change at its real roots.",
		})
	}

	result := intervalUnion(coeffs, points, strict, wantPositive)
	confidence := confidenceExact
	explanation := "Test a sample point in each interval between consecutive roots and keep the intervals where the comparison holds."
	if numeric {
		confidence = confidenceNumeric
		explanation += " Some boundary points are numeric approximations."
	}
	steps = append(steps, entity.Step{
		Description:  "Assemble the solution set",
		SymbolicForm: formattedResults([]string{result}),
		Explanation:  explanation,
	})

	return entity.Solution{
		Results:    []string{result},
		Steps:      steps,
		Confidence: confidence,
		Method:     "sign-analysis",
	}, nil
}

func (s *InequalityStrategy) constantCase(c *big.Rat, strict, wantPositive bool, steps []entity.Step) (entity.Solution, error) {
	sign := c.Sign()
	holds := false
	switch {
	case sign == 0:
		holds = !strict
	case wantPositive:
		holds = sign > 0
	default:
		holds = sign < 0
	}
	result := "no solution"
	explanation := "The inequality reduces to a false constant comparison."
	if holds {
		result = "(-inf, inf)"
		explanation = "The inequality reduces to a true constant comparison, so every real number satisfies it."
	}
	steps = append(steps, entity.Step{
		Description:  "Assemble the solution set",
		SymbolicForm: formattedResults([]string{result}),
		Explanation:  explanation,
	})
	return entity.Solution{
		Results:    []string{result},
		Steps:      steps,
		Confidence: confidenceExact,
		Method:     "sign-analysis",
	}, nil
}

// boundaryPoints returns the distinct real roots in ascending order. numeric
// reports whether any label is a decimal approximation.
func boundaryPoints(coeffs []*big.Rat) ([]rootPoint, bool, error) {
	degree := len(coeffs) - 1
	var points []rootPoint
	numeric := false
	switch degree {
	case 1:
		root := new(big.Rat).Quo(coeffs[0], coeffs[1])
		root.Neg(root)
		f, _ := root.Float64()
		points = append(points, rootPoint{val: f, label: root.RatString(), exact: true})
	case 2:
		a, b, c := coeffs[2], coeffs[1], coeffs[0]
		d := new(big.Rat).Mul(b, b)
		d.Sub(d, new(big.Rat).Mul(big.NewRat(4, 1), new(big.Rat).Mul(a, c)))
		if d.Sign() < 0 {
			return nil, false, nil
		}
		twoA := new(big.Rat).Mul(big.NewRat(2, 1), a)
		negB := new(big.Rat).Neg(b)
		if sq, ok := ratSqrt(d); ok {
			r1 := new(big.Rat).Quo(new(big.Rat).Sub(negB, sq), twoA)
			r2 := new(big.Rat).Quo(new(big.Rat).Add(negB, sq), twoA)
			for _, r := range []*big.Rat{r1, r2} {
				f, _ := r.Float64()
				points = append(points, rootPoint{val: f, label: r.RatString(), exact: true})
			}
		} else {
			roots, err := numericRoots(coeffs)
			if err != nil {
				return nil, false, fmt.Errorf("numeric root finding: %w", err)
			}
			for _, r := range realRoots(roots) {
				points = append(points, rootPoint{val: r, label: formatFloat(r)})
			}
			numeric = true
		}
	default:
		roots, err := numericRoots(coeffs)
		if err != nil {
			return nil, false, fmt.Errorf("numeric root finding: %w", err)
		}
		for _, r := range realRoots(roots) {
			points = append(points, rootPoint{val: r, label: formatFloat(r)})
		}
		numeric = len(points) > 0
	}

	sort.Slice(points, func(i, j int) bool { return points[i].val < points[j].val })
	deduped := points[:0]
	for _, p := range points {
		if len(deduped) > 0 && abs(p.val-deduped[len(deduped)-1].val) <= realTol*(1+abs(p.val)) {
			continue
		}
		deduped = append(deduped, p)
	}
	return deduped, numeric, nil
}

// intervalUnion runs the sign chart and renders the solution set, e.g.
// "(-inf, -1] U [3, inf)" or "{1}" for an isolated boundary point.
func intervalUnion(coeffs []*big.Rat, points []rootPoint, strict, wantPositive bool) string {
	n := len(points)
	holds := make([]bool, n+1)
	for i := 0; i <= n; i++ {
		sign := evalPolySign(coeffs, samplePoint(points, i))
		if wantPositive {
			holds[i] = sign > 0
		} else {
			holds[i] = sign < 0
		}
	}

	var parts []string
	i := 0
	for i <= n {
		if !holds[i] {
			// Non-strict comparisons keep isolated roots where both
			// neighboring intervals fail, such as x^2 <= 0 at zero.
			if !strict && i < n && !holds[i+1] {
				parts = append(parts, "{"+points[i].label+"}")
			}
			i++
			continue
		}
		lo := "(-inf"
		if i > 0 {
			lo = bracketLow(points[i-1].label, strict)
		}
		j := i
		for j < n && holds[j+1] && !strict {
			j++
		}
		hi := "inf)"
		if j < n {
			hi = bracketHigh(points[j].label, strict)
		}
		parts = append(parts, lo+", "+hi)
		i = j + 1
	}
	if len(parts) == 0 {
		return "no solution"
	}
	return strings.Join(parts, " U ")
}

func bracketLow(label string, strict bool) string {
	if strict {
		return "(" + label
	}
	return "[" + label
}

func bracketHigh(label string, strict bool) string {
	if strict {
		return label + ")"
	}
	return label + "]"
}

// samplePoint picks a test value strictly inside interval i of the chart.
func samplePoint(points []rootPoint, i int) float64 {
	n := len(points)
	switch {
	case n == 0:
		return 0
	case i == 0:
		return points[0].val - 1
	case i == n:
		return points[n-1].val + 1
	default:
		return (points[i-1].val + points[i].val) / 2
	}
}

func evalPolySign(coeffs []*big.Rat, x float64) int {
	acc := 0.0
	for i := len(coeffs) - 1; i >= 0; i-- {
		c, _ := coeffs[i].Float64()
		acc = acc*x + c
	}
	switch {
	case acc > 0:
		return 1
	case acc < 0:
		return -1
	default:
		return 0
	}
}

func opString(op symbolic.RelOp) string {
	switch op {
	case symbolic.OpLt:
		return "<"
	case symbolic.OpLe:
		return "<="
	case symbolic.OpGt:
		return ">"
	case symbolic.OpGe:
		return ">="
	case symbolic.OpEq:
		return "="
	default:
		return "?"
	}
}
