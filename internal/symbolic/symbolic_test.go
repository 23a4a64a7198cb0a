package symbolic

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSimplify(t *testing.T, input string) string {
	t.Helper()
	e, err := Parse(input)
	require.NoError(t, err)
	s, err := Simplify(e)
	require.NoError(t, err)
	return Format(s)
}

func TestParseAndFormat(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"x^2 + 2x + 1", "x^2 + 2*x + 1"},
		{"2x + 3x", "5*x"},
		{"x*x", "x^2"},
		{"(x^2)^3", "x^6"},
		{"3(x + 1)", "3*x + 3"},
		{"x - x", "0"},
		{"sqrt(4)", "2"},
		{"sin(0) + cos(0)", "1"},
		{"2^3", "8"},
		{"1/2 + 1/3", "5/6"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, mustSimplify(t, tt.input))
		})
	}
}

func TestParseSimplifyDistributesConstants(t *testing.T) {
	// 3(x+1) must fold through the like-term collector
	got := mustSimplify(t, "2(x + 1) + x")
	assert.Equal(t, "3*x + 2", got)
}

func TestParseRelation(t *testing.T) {
	rel, err := ParseRelation("x^2 + 2x + 1 = 0")
	require.NoError(t, err)
	assert.Equal(t, OpEq, rel.Op)
	assert.True(t, IsZero(rel.Rhs))

	rel, err = ParseRelation("x + 1 <= 4")
	require.NoError(t, err)
	assert.Equal(t, OpLe, rel.Op)

	_, err = ParseRelation("x + = 2")
	assert.Error(t, err)
}

func TestDivisionByZero(t *testing.T) {
	e, err := Parse("2/0")
	require.NoError(t, err)
	_, err = Simplify(e)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestDiff(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"x^3 + 2x", "3*x^2 + 2"},
		{"5", "0"},
		{"x", "1"},
		{"exp(x)", "exp(x)"},
		{"ln(x)", "1/x"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			e, err := Parse(tt.input)
			require.NoError(t, err)
			d, err := Diff(e, "x")
			require.NoError(t, err)
			assert.Equal(t, tt.want, Format(d))
		})
	}
}

func TestDiffChainRule(t *testing.T) {
	e, err := Parse("sin(x^2)")
	require.NoError(t, err)
	d, err := Diff(e, "x")
	require.NoError(t, err)
	// verify numerically rather than pinning a formatting choice
	for _, x := range []float64{-1.3, 0.4, 2.1} {
		got, err := EvalReal(d, map[string]float64{"x": x})
		require.NoError(t, err)
		want := 2 * x * math.Cos(x*x)
		assert.InDelta(t, want, got, 1e-9)
	}
}

func TestIntegrate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"x^2", "x^3/3"},
		{"3x^2 + 2x + 1", "x^3 + x^2 + x"},
		{"cos(x)", "sin(x)"},
		{"1/x", "ln(x)"},
		{"5", "5*x"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			e, err := Parse(tt.input)
			require.NoError(t, err)
			a, err := Integrate(e, "x")
			require.NoError(t, err)
			assert.Equal(t, tt.want, Format(a))
		})
	}
}

func TestIntegrateNoClosedForm(t *testing.T) {
	e, err := Parse("x * sin(x)")
	require.NoError(t, err)
	_, err = Integrate(e, "x")
	assert.Error(t, err)
}

func TestPolyCoeffs(t *testing.T) {
	e, err := Parse("x^2 + 2x + 1")
	require.NoError(t, err)
	coeffs, err := PolyCoeffs(e, "x")
	require.NoError(t, err)
	require.Len(t, coeffs, 3)
	assert.Equal(t, "1", coeffs[0].RatString())
	assert.Equal(t, "2", coeffs[1].RatString())
	assert.Equal(t, "1", coeffs[2].RatString())
}

func TestPolyCoeffsExpandsPowers(t *testing.T) {
	e, err := Parse("(x + 1)^2")
	require.NoError(t, err)
	coeffs, err := PolyCoeffs(e, "x")
	require.NoError(t, err)
	require.Len(t, coeffs, 3)
	assert.Equal(t, "1", coeffs[0].RatString())
	assert.Equal(t, "2", coeffs[1].RatString())
	assert.Equal(t, "1", coeffs[2].RatString())
}

func TestSimplifySqrtExtractsSquareFactors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"sqrt(8)", "2*sqrt(2)"},
		{"sqrt(12)", "2*sqrt(3)"},
		{"sqrt(18)", "3*sqrt(2)"},
		{"sqrt(8)/2", "sqrt(2)"},
		{"sqrt(1/2)", "sqrt(2)/2"},
		{"sqrt(2)", "sqrt(2)"},
		{"sqrt(15)", "sqrt(15)"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, mustSimplify(t, tt.input))
		})
	}
}

func TestLinearCoeffs(t *testing.T) {
	e, err := Parse("2x + 3y - 5")
	require.NoError(t, err)
	coeffs, constant, err := LinearCoeffs(e, []string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, "2", coeffs["x"].RatString())
	assert.Equal(t, "3", coeffs["y"].RatString())
	assert.Equal(t, "-5", constant.RatString())
}

func TestLinearCoeffsRejectsNonlinear(t *testing.T) {
	for _, input := range []string{"x*y + 1", "x^2", "sin(x)", "x + z"} {
		e, err := Parse(input)
		require.NoError(t, err)
		_, _, err = LinearCoeffs(e, []string{"x", "y"})
		assert.Error(t, err, input)
	}
}

func TestPolyCoeffsRejectsFunctions(t *testing.T) {
	e, err := Parse("sin(x) + 1")
	require.NoError(t, err)
	_, err = PolyCoeffs(e, "x")
	assert.Error(t, err)
}

func TestEval(t *testing.T) {
	e, err := Parse("x^2 + 2x + 1")
	require.NoError(t, err)
	v, err := EvalReal(e, map[string]float64{"x": -1})
	require.NoError(t, err)
	assert.InDelta(t, 0, v, 1e-12)

	e, err = Parse("1/x")
	require.NoError(t, err)
	_, err = EvalReal(e, map[string]float64{"x": 0})
	assert.Error(t, err)
}

func TestFreeSymbols(t *testing.T) {
	e, err := Parse("a*x^2 + pi*y")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "x", "y"}, FreeSymbols(e))
}
