package solver

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/anhducmata/myath/internal/entity"
	"github.com/anhducmata/myath/internal/symbolic"
)

// EquationStrategy solves single-variable polynomial equations: exact roots
// for degree up to 2, numeric roots via companion-matrix eigenvalues above that.
type EquationStrategy struct{}

func (s *EquationStrategy) Attempt(_ context.Context, prob entity.ParsedProblem) (entity.Solution, error) {
	rel, err := symbolic.ParseRelation(prob.Statement)
	if err != nil {
		return entity.Solution{}, fmt.Errorf("parse statement: %w", err)
	}
	if rel.Op != symbolic.OpNone && rel.Op != symbolic.OpEq {
		return entity.Solution{}, fmt.Errorf("statement is an inequality, not an equation")
	}
	lhs := rel.Lhs
	rhs := symbolic.Expr(symbolic.Int(0))
	if rel.Op == symbolic.OpEq {
		rhs = rel.Rhs
	}

	diff, err := symbolic.Simplify(symbolic.Sub(lhs, rhs))
	if err != nil {
		return entity.Solution{}, fmt.Errorf("simplify equation: %w", err)
	}
	v, err := pickVariable(prob, symbolic.FreeSymbols(diff))
	if err != nil {
		return entity.Solution{}, err
	}
	coeffs, err := symbolic.PolyCoeffs(diff, v)
	if err != nil {
		return entity.Solution{}, fmt.Errorf("equation is not polynomial in %s: %w", v, err)
	}

	steps := []entity.Step{{
		Description:  "Given equation",
		SymbolicForm: symbolic.Format(lhs) + " = " + symbolic.Format(rhs),
		Explanation:  "Starting from the statement as recognized.",
	}}
	standard := symbolic.Format(diff) + " = 0"
	if standard != steps[0].SymbolicForm {
		steps = append(steps, entity.Step{
			Description:  "Rearrange into standard form",
			SymbolicForm: standard,
			Explanation:  "Move every term to the left-hand side so the equation equals zero.",
		})
	}

	degree := len(coeffs) - 1
	switch degree {
	case 0:
		if coeffs[0].Sign() == 0 {
			return entity.Solution{}, fmt.Errorf("equation holds for every %s; no discrete roots to report", v)
		}
		return entity.Solution{}, fmt.Errorf("equation reduces to the contradiction %s = 0", coeffs[0].RatString())
	case 1:
		return s.solveLinear(v, coeffs, steps)
	case 2:
		return s.solveQuadratic(v, coeffs, steps)
	default:
		return s.solveNumeric(v, coeffs, steps)
	}
}

func (s *EquationStrategy) solveLinear(v string, coeffs []*big.Rat, steps []entity.Step) (entity.Solution, error) {
	// c1*v + c0 = 0  ->  v = -c0/c1
	root := new(big.Rat).Quo(coeffs[0], coeffs[1])
	root.Neg(root)
	results := []string{root.RatString()}
	steps = append(steps, entity.Step{
		Description:  fmt.Sprintf("Solve for %s", v),
		SymbolicForm: formattedResults(results),
		Explanation:  fmt.Sprintf("Isolate %s by dividing both sides by the coefficient %s.", v, coeffs[1].RatString()),
	})
	return entity.Solution{
		Results:    results,
		Steps:      steps,
		Confidence: confidenceExact,
		Method:     "linear",
	}, nil
}

func (s *EquationStrategy) solveQuadratic(v string, coeffs []*big.Rat, steps []entity.Step) (entity.Solution, error) {
	a, b, c := coeffs[2], coeffs[1], coeffs[0]
	// discriminant D = b^2 - 4ac
	d := new(big.Rat).Mul(b, b)
	d.Sub(d, new(big.Rat).Mul(big.NewRat(4, 1), new(big.Rat).Mul(a, c)))
	steps = append(steps, entity.Step{
		Description:  "Compute the discriminant",
		SymbolicForm: "D = " + d.RatString(),
		Explanation:  "For a quadratic a*" + v + "^2 + b*" + v + " + c, D = b^2 - 4*a*c decides how many real roots exist.",
	})

	twoA := new(big.Rat).Mul(big.NewRat(2, 1), a)
	negB := new(big.Rat).Neg(b)

	switch d.Sign() {
	case 0:
		root := new(big.Rat).Quo(negB, twoA)
		results := []string{root.RatString()}
		steps = append(steps, entity.Step{
			Description:  fmt.Sprintf("Solve for %s (double root)", v),
			SymbolicForm: formattedResults(results),
			Explanation: fmt.Sprintf("D = 0, so the quadratic is a perfect square with the single root %s = -b/(2a) of multiplicity 2.",
				v),
		})
		return entity.Solution{
			Results:    results,
			Steps:      steps,
			Confidence: confidenceExact,
			Method:     "quadratic",
		}, nil
	case 1:
		r1, r2, exact := quadraticRealRoots(negB, d, twoA)
		results := []string{r1, r2}
		explanation := "D > 0 gives two real roots via the quadratic formula, listed in ascending order."
		confidence := confidenceExact
		if !exact {
			confidence = confidenceNumeric
			explanation += " The discriminant is not a perfect square, so the closed forms are exact while any decimal rendering is approximate."
		}
		steps = append(steps, entity.Step{
			Description:  fmt.Sprintf("Solve for %s", v),
			SymbolicForm: formattedResults(results),
			Explanation:  explanation,
		})
		return entity.Solution{
			Results:    results,
			Steps:      steps,
			Confidence: confidence,
			Method:     "quadratic",
		}, nil
	default:
		negD := new(big.Rat).Neg(d)
		re := new(big.Rat).Quo(negB, twoA)
		imExpr, err := symbolic.Simplify(symbolic.Div(symbolic.Fn("sqrt", symbolic.NewNum(negD)), symbolic.NewNum(ratAbs(twoA))))
		if err != nil {
			return entity.Solution{}, fmt.Errorf("simplify imaginary part: %w", err)
		}
		im := symbolic.Format(imExpr)
		results := []string{
			fmt.Sprintf("%s - %s*i", re.RatString(), im),
			fmt.Sprintf("%s + %s*i", re.RatString(), im),
		}
		steps = append(steps, entity.Step{
			Description:  fmt.Sprintf("Solve for %s (complex conjugate pair)", v),
			SymbolicForm: formattedResults(results),
			Explanation:  "D < 0, so the roots are a complex conjugate pair with no real solutions.",
		})
		return entity.Solution{
			Results:    results,
			Steps:      steps,
			Confidence: confidenceExact,
			Method:     "quadratic",
		}, nil
	}
}

// quadraticRealRoots renders (-b ± sqrt(D)) / (2a) in ascending order.
// exact is false when sqrt(D) stays symbolic and the roots are reported as
// closed forms rather than rationals.
func quadraticRealRoots(negB, d, twoA *big.Rat) (lo, hi string, exact bool) {
	if sq, ok := ratSqrt(d); ok {
		r1 := new(big.Rat).Quo(new(big.Rat).Sub(negB, sq), twoA)
		r2 := new(big.Rat).Quo(new(big.Rat).Add(negB, sq), twoA)
		if r1.Cmp(r2) > 0 {
			r1, r2 = r2, r1
		}
		return r1.RatString(), r2.RatString(), true
	}
	sqrtD := symbolic.Fn("sqrt", symbolic.NewNum(d))
	minus, _ := symbolic.Simplify(symbolic.Div(symbolic.Sub(symbolic.NewNum(negB), sqrtD), symbolic.NewNum(twoA)))
	plus, _ := symbolic.Simplify(symbolic.Div(symbolic.NewAdd(symbolic.NewNum(negB), sqrtD), symbolic.NewNum(twoA)))
	lo, hi = symbolic.Format(minus), symbolic.Format(plus)
	if twoA.Sign() < 0 {
		lo, hi = hi, lo
	}
	return lo, hi, false
}

func (s *EquationStrategy) solveNumeric(v string, coeffs []*big.Rat, steps []entity.Step) (entity.Solution, error) {
	roots, err := numericRoots(coeffs)
	if err != nil {
		return entity.Solution{}, fmt.Errorf("numeric root finding: %w", err)
	}
	results := make([]string, len(roots))
	for i, r := range roots {
		results[i] = formatComplex(r)
	}
	steps = append(steps, entity.Step{
		Description:  fmt.Sprintf("Solve for %s numerically", v),
		SymbolicForm: formattedResults(results),
		Explanation: fmt.Sprintf("Degree %d has no general closed form; the roots are numeric approximations "+
			"computed from the companion matrix eigenvalues, not exact values.", len(coeffs)-1),
	})
	return entity.Solution{
		Results:    results,
		Steps:      steps,
		Confidence: confidenceNumeric,
		Method:     "companion-matrix",
	}, nil
}

// formatComplex renders a numeric root, dropping negligible imaginary parts.
func formatComplex(r complex128) string {
	if abs(imag(r)) <= realTol*(1+abs(real(r))) {
		return formatFloat(real(r))
	}
	if imag(r) < 0 {
		return fmt.Sprintf("%s - %s*i", formatFloat(real(r)), formatFloat(-imag(r)))
	}
	return fmt.Sprintf("%s + %s*i", formatFloat(real(r)), formatFloat(imag(r)))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 10, 64)
}

// ratSqrt returns the exact square root of r when r is a perfect square.
func ratSqrt(r *big.Rat) (*big.Rat, bool) {
	if r.Sign() < 0 {
		return nil, false
	}
	num := new(big.Int).Sqrt(r.Num())
	den := new(big.Int).Sqrt(r.Denom())
	if new(big.Int).Mul(num, num).Cmp(r.Num()) != 0 {
		return nil, false
	}
	if new(big.Int).Mul(den, den).Cmp(r.Denom()) != 0 {
		return nil, false
	}
	return new(big.Rat).SetFrac(num, den), true
}

func ratAbs(r *big.Rat) *big.Rat {
	if r.Sign() < 0 {
		return new(big.Rat).Neg(r)
	}
	return new(big.Rat).Set(r)
}
