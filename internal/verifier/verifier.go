// Package verifier cross-checks solver output numerically. Verification is
// advisory: a failed check flags the solution, it never fails the problem.
package verifier

import (
	"fmt"
	"log/slog"
	"math"
	"math/cmplx"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/anhducmata/myath/constants"
	"github.com/anhducmata/myath/internal/entity"
	"github.com/anhducmata/myath/internal/symbolic"
)

const (
	// residualTol bounds the acceptable residual when substituting a root
	// back into its equation, relative to the root's magnitude.
	residualTol = 1e-6
	// diffStep is the half-width of the central finite difference.
	diffStep = 1e-5
	// meanErrTol bounds the mean absolute error of numeric comparisons.
	meanErrTol = 1e-4
	// simpsonIntervals is the (even) panel count for definite integrals.
	simpsonIntervals = 200
	// minSamples is the least number of cleanly evaluable sample points a
	// numeric comparison needs before it counts as checked.
	minSamples = 3
)

// samplePoints avoids the usual singular spots (zero, negative arguments to
// ln and sqrt) while still spreading across a reasonable range.
var samplePoints = []float64{0.5, 1.1, 1.7, 2.3, 3.1, 4.7}

// CheckFunc verifies one solution against its problem. Any returned error
// fails the check.
type CheckFunc func(prob entity.ParsedProblem, sol entity.Solution) (bool, error)

type Verifier struct {
	logger *slog.Logger
	extra  map[constants.ProblemType]CheckFunc
}

func New(logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{logger: logger, extra: map[constants.ProblemType]CheckFunc{}}
}

// RegisterCheck installs (or replaces) the check for a problem type,
// overriding the built-in dispatch. Pairs with registered custom types.
func (vf *Verifier) RegisterCheck(t constants.ProblemType, fn CheckFunc) {
	vf.extra[t] = fn
}

// Verify numerically checks a solution against its problem. checked is false
// when no verification method applies to the problem type; passed is only
// meaningful when checked is true. Any evaluation error fails the check.
func (vf *Verifier) Verify(prob entity.ParsedProblem, sol entity.Solution) (passed, checked bool) {
	defer func() {
		// A panicking check fails the solution rather than the pipeline.
		if r := recover(); r != nil {
			vf.logger.Error("verifier.panic", "problem_type", prob.Type, "panic", r)
			passed, checked = false, true
		}
	}()
	var err error
	if fn := vf.extra[prob.Type]; fn != nil {
		passed, err = fn(prob, sol)
	} else {
		switch prob.Type {
		case constants.TypeEquation:
			passed, err = vf.checkEquation(prob, sol)
		case constants.TypeSystem:
			passed, err = vf.checkSystem(prob, sol)
		case constants.TypeDerivative:
			passed, err = vf.checkDerivative(prob, sol)
		case constants.TypeIntegral:
			passed, err = vf.checkIntegral(prob, sol)
		case constants.TypeSimplify:
			passed, err = vf.checkSimplify(prob, sol)
		case constants.TypeInequality:
			passed, err = vf.checkInequality(prob, sol)
		default:
			vf.logger.Debug("verifier.not_applicable", "problem_type", prob.Type)
			return false, false
		}
	}
	if err != nil {
		vf.logger.Warn("verifier.check_error", "problem_type", prob.Type, "err", err)
		return false, true
	}
	if !passed {
		vf.logger.Warn("verifier.failed", "problem_type", prob.Type, "result", sol.Results)
	} else {
		vf.logger.Info("verifier.ok", "problem_type", prob.Type)
	}
	return passed, true
}

// checkEquation substitutes each reported root into lhs - rhs and requires a
// residual near zero.
func (vf *Verifier) checkEquation(prob entity.ParsedProblem, sol entity.Solution) (bool, error) {
	rel, err := symbolic.ParseRelation(prob.Statement)
	if err != nil {
		return false, err
	}
	rhs := symbolic.Expr(symbolic.Int(0))
	if rel.Op == symbolic.OpEq {
		rhs = rel.Rhs
	}
	diff := symbolic.Sub(rel.Lhs, rhs)
	v, err := soleVariable(prob, diff)
	if err != nil {
		return false, err
	}
	if len(sol.Results) == 0 {
		return false, nil
	}
	for _, r := range sol.Results {
		root, err := parseNumeric(r)
		if err != nil {
			return false, err
		}
		residual, err := symbolic.Eval(diff, map[string]complex128{v: root, "i": complex(0, 1)})
		if err != nil {
			return false, err
		}
		if cmplx.Abs(residual) > residualTol*(1+cmplx.Abs(root)) {
			return false, nil
		}
	}
	return true, nil
}

// checkSystem substitutes the reported assignment into each equation of the
// system and requires every residual near zero.
func (vf *Verifier) checkSystem(prob entity.ParsedProblem, sol entity.Solution) (bool, error) {
	if len(sol.Results) == 0 {
		return false, nil
	}
	env := map[string]float64{}
	for _, r := range sol.Results {
		name, val, err := parseAssignment(r)
		if err != nil {
			return false, err
		}
		env[name] = val
	}

	anyChecked := false
	for _, eq := range strings.FieldsFunc(prob.Statement, isEquationSep) {
		eq = strings.TrimSpace(eq)
		if eq == "" {
			continue
		}
		rel, err := symbolic.ParseRelation(eq)
		if err != nil {
			return false, err
		}
		rhs := symbolic.Expr(symbolic.Int(0))
		if rel.Op == symbolic.OpEq {
			rhs = rel.Rhs
		}
		residual, err := symbolic.EvalReal(symbolic.Sub(rel.Lhs, rhs), env)
		if err != nil {
			return false, err
		}
		if math.Abs(residual) > residualTol {
			return false, nil
		}
		anyChecked = true
	}
	return anyChecked, nil
}

func isEquationSep(r rune) bool {
	return r == ';' || r == ',' || r == '\n'
}

// parseAssignment splits one "x = 2" result into name and numeric value.
func parseAssignment(s string) (string, float64, error) {
	name, val, ok := strings.Cut(s, "=")
	if !ok {
		return "", 0, fmt.Errorf("result %q is not an assignment", s)
	}
	v, err := evalConstant(strings.TrimSpace(val))
	if err != nil {
		return "", 0, err
	}
	return strings.TrimSpace(name), v, nil
}

// checkDerivative compares the reported derivative against central finite
// differences of the original expression.
func (vf *Verifier) checkDerivative(prob entity.ParsedProblem, sol entity.Solution) (bool, error) {
	f, err := symbolic.Parse(prob.Statement)
	if err != nil {
		return false, err
	}
	if len(sol.Results) != 1 {
		return false, nil
	}
	g, err := symbolic.Parse(sol.Results[0])
	if err != nil {
		return false, err
	}
	v, err := soleVariable(prob, f)
	if err != nil {
		return false, err
	}

	var errs []float64
	for _, x := range samplePoints {
		hi, err1 := symbolic.EvalReal(f, map[string]float64{v: x + diffStep})
		lo, err2 := symbolic.EvalReal(f, map[string]float64{v: x - diffStep})
		got, err3 := symbolic.EvalReal(g, map[string]float64{v: x})
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		numeric := (hi - lo) / (2 * diffStep)
		errs = append(errs, math.Abs(numeric-got)/(1+math.Abs(got)))
	}
	return meanWithinTol(errs)
}

// checkIntegral verifies a definite integral with Simpson's rule, or an
// antiderivative by differentiating it and comparing against the integrand.
func (vf *Verifier) checkIntegral(prob entity.ParsedProblem, sol entity.Solution) (bool, error) {
	f, err := symbolic.Parse(prob.Statement)
	if err != nil {
		return false, err
	}
	if len(sol.Results) != 1 {
		return false, nil
	}
	v, err := soleVariable(prob, f)
	if err != nil {
		return false, err
	}

	if prob.Bounds != nil {
		return vf.checkDefiniteIntegral(f, v, prob.Bounds, sol.Results[0])
	}

	anti, err := symbolic.Parse(sol.Results[0])
	if err != nil {
		return false, err
	}
	deriv, err := symbolic.Diff(anti, v)
	if err != nil {
		return false, err
	}
	return compareNumerically(f, deriv, []string{v})
}

func (vf *Verifier) checkDefiniteIntegral(f symbolic.Expr, v string, bounds *entity.Bounds, result string) (bool, error) {
	lo, err := evalConstant(bounds.Lower)
	if err != nil {
		return false, err
	}
	hi, err := evalConstant(bounds.Upper)
	if err != nil {
		return false, err
	}
	want, err := parseNumeric(result)
	if err != nil {
		return false, err
	}
	if math.Abs(imag(want)) > residualTol {
		return false, nil
	}

	// composite Simpson's rule
	h := (hi - lo) / simpsonIntervals
	sum := 0.0
	for i := 0; i <= simpsonIntervals; i++ {
		y, err := symbolic.EvalReal(f, map[string]float64{v: lo + float64(i)*h})
		if err != nil {
			return false, err
		}
		switch {
		case i == 0 || i == simpsonIntervals:
			sum += y
		case i%2 == 1:
			sum += 4 * y
		default:
			sum += 2 * y
		}
	}
	got := sum * h / 3
	return math.Abs(got-real(want)) <= meanErrTol*(1+math.Abs(real(want))), nil
}

// checkSimplify spot-checks that the simplified form agrees with the original
// expression at sample points.
func (vf *Verifier) checkSimplify(prob entity.ParsedProblem, sol entity.Solution) (bool, error) {
	orig, err := symbolic.Parse(prob.Statement)
	if err != nil {
		return false, err
	}
	if len(sol.Results) != 1 {
		return false, nil
	}
	reduced, err := symbolic.Parse(sol.Results[0])
	if err != nil {
		return false, err
	}
	vars := union(symbolic.FreeSymbols(orig), symbolic.FreeSymbols(reduced))
	return compareNumerically(orig, reduced, vars)
}

// checkInequality spot-checks the reported interval union: interior points
// must satisfy the inequality, closed endpoints must sit on the boundary.
func (vf *Verifier) checkInequality(prob entity.ParsedProblem, sol entity.Solution) (bool, error) {
	rel, err := symbolic.ParseRelation(prob.Statement)
	if err != nil {
		return false, err
	}
	if rel.Op == symbolic.OpNone || rel.Op == symbolic.OpEq {
		return false, nil
	}
	diff := symbolic.Sub(rel.Lhs, rel.Rhs)
	v, err := soleVariable(prob, diff)
	if err != nil {
		return false, err
	}
	if len(sol.Results) != 1 {
		return false, nil
	}
	if sol.Results[0] == "no solution" {
		// Cheap spot check: none of the standard samples may satisfy it.
		for _, x := range samplePoints {
			ok, err := satisfies(diff, v, x, rel.Op, false)
			if err != nil {
				continue
			}
			if ok {
				return false, nil
			}
		}
		return true, nil
	}

	intervals, err := parseIntervalUnion(sol.Results[0])
	if err != nil {
		return false, err
	}
	for _, iv := range intervals {
		for _, x := range iv.interiorSamples() {
			ok, err := satisfies(diff, v, x, rel.Op, false)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		for _, x := range iv.closedEndpoints() {
			ok, err := satisfies(diff, v, x, rel.Op, true)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
	}
	return true, nil
}

// satisfies evaluates lhs-rhs at x and applies op. boundary relaxes strict
// comparisons to a near-zero residual check.
func satisfies(diff symbolic.Expr, v string, x float64, op symbolic.RelOp, boundary bool) (bool, error) {
	y, err := symbolic.EvalReal(diff, map[string]float64{v: x})
	if err != nil {
		return false, err
	}
	if boundary {
		return math.Abs(y) <= meanErrTol*(1+math.Abs(x)), nil
	}
	tol := meanErrTol * (1 + math.Abs(x))
	switch op {
	case symbolic.OpLt:
		return y < 0, nil
	case symbolic.OpLe:
		return y <= tol, nil
	case symbolic.OpGt:
		return y > 0, nil
	case symbolic.OpGe:
		return y >= -tol, nil
	default:
		return false, nil
	}
}

// compareNumerically checks two expressions agree at the standard sample
// points across every variable assignment.
func compareNumerically(a, b symbolic.Expr, vars []string) (bool, error) {
	var errs []float64
	for _, x := range samplePoints {
		env := map[string]float64{}
		for vi, v := range vars {
			env[v] = x + 0.37*float64(vi)
		}
		ya, err1 := symbolic.EvalReal(a, env)
		yb, err2 := symbolic.EvalReal(b, env)
		if err1 != nil || err2 != nil {
			continue
		}
		errs = append(errs, math.Abs(ya-yb)/(1+math.Abs(yb)))
	}
	return meanWithinTol(errs)
}

func meanWithinTol(errs []float64) (bool, error) {
	if len(errs) < minSamples {
		return false, nil
	}
	mean, err := stats.Mean(errs)
	if err != nil {
		return false, err
	}
	return mean <= meanErrTol, nil
}

// parseNumeric turns a result string into a complex value. Plain decimals go
// through strconv; anything else (rationals, radicals, a + b*i forms) is
// parsed symbolically and evaluated with i bound to the imaginary unit.
func parseNumeric(s string) (complex128, error) {
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return complex(f, 0), nil
	}
	e, err := symbolic.Parse(s)
	if err != nil {
		return 0, err
	}
	return symbolic.Eval(e, map[string]complex128{"i": complex(0, 1)})
}

func evalConstant(s string) (float64, error) {
	v, err := parseNumeric(s)
	if err != nil {
		return 0, err
	}
	return real(v), nil
}

// soleVariable resolves the variable the check ranges over.
func soleVariable(prob entity.ParsedProblem, e symbolic.Expr) (string, error) {
	if len(prob.Variables) > 0 {
		return prob.Variables[0], nil
	}
	free := symbolic.FreeSymbols(e)
	if len(free) == 1 {
		return free[0], nil
	}
	// Constant statements still need a bound symbol for substitution.
	if len(free) == 0 {
		return "x", nil
	}
	return "", &multiVarError{vars: free}
}

type multiVarError struct{ vars []string }

func (e *multiVarError) Error() string {
	return "cannot pick a verification variable among " + strings.Join(e.vars, ", ")
}

func union(a, b []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
