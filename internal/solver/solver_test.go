package solver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anhducmata/myath/constants"
	"github.com/anhducmata/myath/internal/entity"
	"github.com/anhducmata/myath/internal/symbolic"
)

func testRouter() *Router {
	return NewRouter(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func assertStepInvariants(t *testing.T, sol entity.Solution) {
	t.Helper()
	require.NotEmpty(t, sol.Steps)
	for i, step := range sol.Steps {
		assert.Equal(t, i+1, step.Number)
		assert.NotEmpty(t, step.Description)
		assert.NotEmpty(t, step.SymbolicForm)
	}
	last := sol.Steps[len(sol.Steps)-1]
	assert.Equal(t, formattedResults(sol.Results), last.SymbolicForm)
}

func TestSolveLinearEquation(t *testing.T) {
	sol, err := testRouter().Solve(context.Background(), entity.ParsedProblem{
		Type:      constants.TypeEquation,
		Statement: "2x + 4 = 0",
		Variables: []string{"x"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"-2"}, sol.Results)
	assert.Equal(t, "linear", sol.Method)
	assert.InDelta(t, 0.95, sol.Confidence, 1e-9)
	assertStepInvariants(t, sol)
}

func TestSolveQuadraticDoubleRoot(t *testing.T) {
	sol, err := testRouter().Solve(context.Background(), entity.ParsedProblem{
		Type:      constants.TypeEquation,
		Statement: "x^2 + 2x + 1 = 0",
		Variables: []string{"x"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"-1"}, sol.Results)
	assert.Equal(t, "quadratic", sol.Method)
	last := sol.Steps[len(sol.Steps)-1]
	assert.Contains(t, last.Explanation, "multiplicity 2")
	assertStepInvariants(t, sol)
}

func TestSolveQuadraticTwoRealRoots(t *testing.T) {
	sol, err := testRouter().Solve(context.Background(), entity.ParsedProblem{
		Type:      constants.TypeEquation,
		Statement: "x^2 - 5x + 6 = 0",
		Variables: []string{"x"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, sol.Results)
	assertStepInvariants(t, sol)
}

func TestSolveQuadraticComplexRoots(t *testing.T) {
	sol, err := testRouter().Solve(context.Background(), entity.ParsedProblem{
		Type:      constants.TypeEquation,
		Statement: "x^2 + 1 = 0",
		Variables: []string{"x"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"0 - 1*i", "0 + 1*i"}, sol.Results)
	last := sol.Steps[len(sol.Steps)-1]
	assert.Contains(t, last.Explanation, "conjugate")
	assertStepInvariants(t, sol)
}

func TestSolveCubicNumerically(t *testing.T) {
	sol, err := testRouter().Solve(context.Background(), entity.ParsedProblem{
		Type:      constants.TypeEquation,
		Statement: "x^3 - 6x^2 + 11x - 6 = 0",
		Variables: []string{"x"},
	})
	require.NoError(t, err)
	require.Len(t, sol.Results, 3)
	assert.Equal(t, "companion-matrix", sol.Method)
	assert.InDelta(t, 0.7, sol.Confidence, 1e-9)
	want := []float64{1, 2, 3}
	for i, r := range sol.Results {
		got, perr := strconv.ParseFloat(r, 64)
		require.NoError(t, perr)
		assert.InDelta(t, want[i], got, 1e-6)
	}
	last := sol.Steps[len(sol.Steps)-1]
	assert.Contains(t, last.Explanation, "approximations")
	assertStepInvariants(t, sol)
}

func TestSolveEquationWithoutRelationTreatsAsZero(t *testing.T) {
	sol, err := testRouter().Solve(context.Background(), entity.ParsedProblem{
		Type:      constants.TypeEquation,
		Statement: "x - 7",
		Variables: []string{"x"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, sol.Results)
}

func TestSolveUnsupportedType(t *testing.T) {
	_, err := testRouter().Solve(context.Background(), entity.ParsedProblem{
		Type:      constants.ProblemType("statistics_hypothesis_test"),
		Statement: "test H0: mu = 0",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestSolveDivisionByZeroFails(t *testing.T) {
	_, err := testRouter().Solve(context.Background(), entity.ParsedProblem{
		Type:      constants.TypeSimplify,
		Statement: "2/0",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, symbolic.ErrDivisionByZero)
	assert.NotErrorIs(t, err, ErrUnsupported)
}

func TestSolveSimplify(t *testing.T) {
	sol, err := testRouter().Solve(context.Background(), entity.ParsedProblem{
		Type:      constants.TypeSimplify,
		Statement: "2x + 3x",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"5*x"}, sol.Results)
	assertStepInvariants(t, sol)
}

func TestSolveDerivative(t *testing.T) {
	sol, err := testRouter().Solve(context.Background(), entity.ParsedProblem{
		Type:      constants.TypeDerivative,
		Statement: "x^3 + 2x",
		Variables: []string{"x"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"3*x^2 + 2"}, sol.Results)
	assert.Equal(t, "symbolic-differentiation", sol.Method)
	assertStepInvariants(t, sol)
}

func TestSolveIndefiniteIntegral(t *testing.T) {
	sol, err := testRouter().Solve(context.Background(), entity.ParsedProblem{
		Type:      constants.TypeIntegral,
		Statement: "3x^2",
		Variables: []string{"x"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"x^3"}, sol.Results)
	last := sol.Steps[len(sol.Steps)-1]
	assert.Contains(t, last.Explanation, "constant")
	assertStepInvariants(t, sol)
}

func TestSolveDefiniteIntegral(t *testing.T) {
	sol, err := testRouter().Solve(context.Background(), entity.ParsedProblem{
		Type:      constants.TypeIntegral,
		Statement: "x^2",
		Variables: []string{"x"},
		Bounds:    &entity.Bounds{Lower: "0", Upper: "3"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"9"}, sol.Results)
	assertStepInvariants(t, sol)
}

func TestSolveIntegralNoClosedForm(t *testing.T) {
	_, err := testRouter().Solve(context.Background(), entity.ParsedProblem{
		Type:      constants.TypeIntegral,
		Statement: "x*sin(x)",
		Variables: []string{"x"},
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupported)
}

func TestSolveInequalityUnion(t *testing.T) {
	sol, err := testRouter().Solve(context.Background(), entity.ParsedProblem{
		Type:      constants.TypeInequality,
		Statement: "x^2 - 2x - 3 >= 0",
		Variables: []string{"x"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"(-inf, -1] U [3, inf)"}, sol.Results)
	assert.Equal(t, "sign-analysis", sol.Method)
	assertStepInvariants(t, sol)
}

func TestSolveStrictInequality(t *testing.T) {
	sol, err := testRouter().Solve(context.Background(), entity.ParsedProblem{
		Type:      constants.TypeInequality,
		Statement: "x^2 < 4",
		Variables: []string{"x"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"(-2, 2)"}, sol.Results)
	assertStepInvariants(t, sol)
}

func TestSolveInequalityNoSolution(t *testing.T) {
	sol, err := testRouter().Solve(context.Background(), entity.ParsedProblem{
		Type:      constants.TypeInequality,
		Statement: "x^2 + 1 < 0",
		Variables: []string{"x"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"no solution"}, sol.Results)
}

func TestSolveLinearInequality(t *testing.T) {
	sol, err := testRouter().Solve(context.Background(), entity.ParsedProblem{
		Type:      constants.TypeInequality,
		Statement: "2x + 4 <= 0",
		Variables: []string{"x"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"(-inf, -2]"}, sol.Results)
}

func TestSolveQuadraticIrrationalRootsReduced(t *testing.T) {
	sol, err := testRouter().Solve(context.Background(), entity.ParsedProblem{
		Type:      constants.TypeEquation,
		Statement: "x^2 - 2x - 1 = 0",
		Variables: []string{"x"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1 - sqrt(2)", "1 + sqrt(2)"}, sol.Results)
	assert.Equal(t, "quadratic", sol.Method)
	assert.InDelta(t, 0.7, sol.Confidence, 1e-9)
	assertStepInvariants(t, sol)
}

func TestSolveLinearSystem(t *testing.T) {
	sol, err := testRouter().Solve(context.Background(), entity.ParsedProblem{
		Type:      constants.TypeSystem,
		Statement: "x + y = 3; x - y = 1",
		Variables: []string{"x", "y"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"x = 2", "y = 1"}, sol.Results)
	assert.Equal(t, "gaussian-elimination", sol.Method)
	assert.InDelta(t, 0.95, sol.Confidence, 1e-9)
	assertStepInvariants(t, sol)
}

func TestSolveThreeVariableSystem(t *testing.T) {
	sol, err := testRouter().Solve(context.Background(), entity.ParsedProblem{
		Type:      constants.TypeSystem,
		Statement: "x + y + z = 6; 2x - y + z = 3; x + 2y - z = 2",
		Variables: []string{"x", "y", "z"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"x = 1", "y = 2", "z = 3"}, sol.Results)
	assertStepInvariants(t, sol)
}

func TestSolveInconsistentSystem(t *testing.T) {
	_, err := testRouter().Solve(context.Background(), entity.ParsedProblem{
		Type:      constants.TypeSystem,
		Statement: "x + y = 1; x + y = 2",
		Variables: []string{"x", "y"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inconsistent")
	assert.NotErrorIs(t, err, ErrUnsupported)
}

func TestSolveUnderdeterminedSystem(t *testing.T) {
	_, err := testRouter().Solve(context.Background(), entity.ParsedProblem{
		Type:      constants.TypeSystem,
		Statement: "x + y = 2; 2x + 2y = 4",
		Variables: []string{"x", "y"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "underdetermined")
}

func TestSolveNonlinearSystemRejected(t *testing.T) {
	_, err := testRouter().Solve(context.Background(), entity.ParsedProblem{
		Type:      constants.TypeSystem,
		Statement: "x*y = 2; x + y = 3",
		Variables: []string{"x", "y"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not linear")
}

func TestSolveMultipleChoice(t *testing.T) {
	sol, err := testRouter().Solve(context.Background(), entity.ParsedProblem{
		Type:      constants.TypeMCQ,
		Statement: "63000 + 40",
		Options:   []string{"1) 6,340", "2) 63,040", "3) 63,400"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2) 63,040"}, sol.Results)
	assert.Equal(t, "option-analysis", sol.Method)
	assert.InDelta(t, 0.9, sol.Confidence, 1e-9)
	assertStepInvariants(t, sol)
}

func TestSolveMultipleChoiceFromEquation(t *testing.T) {
	sol, err := testRouter().Solve(context.Background(), entity.ParsedProblem{
		Type:      constants.TypeMCQ,
		Statement: "2x + 1 = 9",
		Variables: []string{"x"},
		Options:   []string{"A) 3", "B) 4", "C) 5"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"B) 4"}, sol.Results)
	assertStepInvariants(t, sol)
}

func TestSolveMultipleChoiceNoMatch(t *testing.T) {
	_, err := testRouter().Solve(context.Background(), entity.ParsedProblem{
		Type:      constants.TypeMCQ,
		Statement: "2 + 2",
		Options:   []string{"1) 3", "2) 5"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no option matches")
	assert.NotErrorIs(t, err, ErrUnsupported)
}

func TestSolveMultipleChoiceWithoutOptions(t *testing.T) {
	_, err := testRouter().Solve(context.Background(), entity.ParsedProblem{
		Type:      constants.TypeMCQ,
		Statement: "2 + 2",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no options")
}

func TestPickVariable(t *testing.T) {
	v, err := pickVariable(entity.ParsedProblem{Variables: []string{"t"}}, []string{"x", "t"})
	require.NoError(t, err)
	assert.Equal(t, "t", v)

	v, err = pickVariable(entity.ParsedProblem{}, []string{"y"})
	require.NoError(t, err)
	assert.Equal(t, "y", v)

	_, err = pickVariable(entity.ParsedProblem{}, []string{"x", "y"})
	require.Error(t, err)

	_, err = pickVariable(entity.ParsedProblem{}, nil)
	require.Error(t, err)
}

func TestRegisterReplacesStrategy(t *testing.T) {
	r := testRouter()
	r.Register(constants.TypeWordProblem, strategyFunc(func(context.Context, entity.ParsedProblem) (entity.Solution, error) {
		return entity.Solution{}, errors.New("not ready")
	}))
	_, err := r.Solve(context.Background(), entity.ParsedProblem{Type: constants.TypeWordProblem})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupported)
}

type strategyFunc func(ctx context.Context, prob entity.ParsedProblem) (entity.Solution, error)

func (f strategyFunc) Attempt(ctx context.Context, prob entity.ParsedProblem) (entity.Solution, error) {
	return f(ctx, prob)
}
