package verifier

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anhducmata/myath/constants"
	"github.com/anhducmata/myath/internal/entity"
)

func testVerifier() *Verifier {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestVerifyEquationRoots(t *testing.T) {
	prob := entity.ParsedProblem{
		Type:      constants.TypeEquation,
		Statement: "x^2 - 5x + 6 = 0",
		Variables: []string{"x"},
	}
	passed, checked := testVerifier().Verify(prob, entity.Solution{Results: []string{"2", "3"}})
	assert.True(t, checked)
	assert.True(t, passed)

	passed, checked = testVerifier().Verify(prob, entity.Solution{Results: []string{"2", "4"}})
	assert.True(t, checked)
	assert.False(t, passed)
}

func TestVerifyEquationComplexRoots(t *testing.T) {
	prob := entity.ParsedProblem{
		Type:      constants.TypeEquation,
		Statement: "x^2 + 1 = 0",
		Variables: []string{"x"},
	}
	passed, checked := testVerifier().Verify(prob, entity.Solution{
		Results: []string{"0 - 1*i", "0 + 1*i"},
	})
	assert.True(t, checked)
	assert.True(t, passed)
}

func TestVerifyEquationIrrationalRoots(t *testing.T) {
	prob := entity.ParsedProblem{
		Type:      constants.TypeEquation,
		Statement: "x^2 - 2 = 0",
		Variables: []string{"x"},
	}
	passed, checked := testVerifier().Verify(prob, entity.Solution{
		Results: []string{"-sqrt(2)", "sqrt(2)"},
	})
	assert.True(t, checked)
	assert.True(t, passed)
}

func TestVerifySystemSolution(t *testing.T) {
	prob := entity.ParsedProblem{
		Type:      constants.TypeSystem,
		Statement: "x + y = 3; x - y = 1",
		Variables: []string{"x", "y"},
	}
	passed, checked := testVerifier().Verify(prob, entity.Solution{
		Results: []string{"x = 2", "y = 1"},
	})
	assert.True(t, checked)
	assert.True(t, passed)

	passed, checked = testVerifier().Verify(prob, entity.Solution{
		Results: []string{"x = 1", "y = 2"},
	})
	assert.True(t, checked)
	assert.False(t, passed)
}

func TestVerifyPanickingCheckFailsClosed(t *testing.T) {
	vf := testVerifier()
	// a check that indexes Results without guarding against an empty slice
	vf.RegisterCheck(constants.TypeWordProblem, func(_ entity.ParsedProblem, sol entity.Solution) (bool, error) {
		return sol.Results[0] == "42", nil
	})
	passed, checked := vf.Verify(entity.ParsedProblem{Type: constants.TypeWordProblem}, entity.Solution{})
	assert.True(t, checked)
	assert.False(t, passed)
}

func TestVerifyDerivative(t *testing.T) {
	prob := entity.ParsedProblem{
		Type:      constants.TypeDerivative,
		Statement: "x^3 + 2x",
		Variables: []string{"x"},
	}
	passed, checked := testVerifier().Verify(prob, entity.Solution{Results: []string{"3*x^2 + 2"}})
	assert.True(t, checked)
	assert.True(t, passed)

	passed, checked = testVerifier().Verify(prob, entity.Solution{Results: []string{"3*x^2"}})
	assert.True(t, checked)
	assert.False(t, passed)
}

func TestVerifyDefiniteIntegral(t *testing.T) {
	prob := entity.ParsedProblem{
		Type:      constants.TypeIntegral,
		Statement: "x^2",
		Variables: []string{"x"},
		Bounds:    &entity.Bounds{Lower: "0", Upper: "3"},
	}
	passed, checked := testVerifier().Verify(prob, entity.Solution{Results: []string{"9"}})
	assert.True(t, checked)
	assert.True(t, passed)

	passed, checked = testVerifier().Verify(prob, entity.Solution{Results: []string{"10"}})
	assert.True(t, checked)
	assert.False(t, passed)
}

func TestVerifyAntiderivative(t *testing.T) {
	prob := entity.ParsedProblem{
		Type:      constants.TypeIntegral,
		Statement: "3x^2",
		Variables: []string{"x"},
	}
	passed, checked := testVerifier().Verify(prob, entity.Solution{Results: []string{"x^3"}})
	assert.True(t, checked)
	assert.True(t, passed)
}

func TestVerifySimplify(t *testing.T) {
	prob := entity.ParsedProblem{
		Type:      constants.TypeSimplify,
		Statement: "2x + 3x",
	}
	passed, checked := testVerifier().Verify(prob, entity.Solution{Results: []string{"5*x"}})
	assert.True(t, checked)
	assert.True(t, passed)

	passed, checked = testVerifier().Verify(prob, entity.Solution{Results: []string{"6*x"}})
	assert.True(t, checked)
	assert.False(t, passed)
}

func TestVerifyInequalityUnion(t *testing.T) {
	prob := entity.ParsedProblem{
		Type:      constants.TypeInequality,
		Statement: "x^2 - 2x - 3 >= 0",
		Variables: []string{"x"},
	}
	passed, checked := testVerifier().Verify(prob, entity.Solution{
		Results: []string{"(-inf, -1] U [3, inf)"},
	})
	assert.True(t, checked)
	assert.True(t, passed)

	// Wrong interval: interior points fail the comparison.
	passed, checked = testVerifier().Verify(prob, entity.Solution{
		Results: []string{"[-1, 3]"},
	})
	assert.True(t, checked)
	assert.False(t, passed)
}

func TestVerifyInequalityNoSolution(t *testing.T) {
	prob := entity.ParsedProblem{
		Type:      constants.TypeInequality,
		Statement: "x^2 + 1 < 0",
		Variables: []string{"x"},
	}
	passed, checked := testVerifier().Verify(prob, entity.Solution{Results: []string{"no solution"}})
	assert.True(t, checked)
	assert.True(t, passed)
}

func TestVerifyNotApplicable(t *testing.T) {
	prob := entity.ParsedProblem{
		Type:      constants.TypeWordProblem,
		Statement: "A train leaves the station",
	}
	_, checked := testVerifier().Verify(prob, entity.Solution{Results: []string{"42"}})
	assert.False(t, checked)
}

func TestVerifyMalformedResultFailsClosed(t *testing.T) {
	prob := entity.ParsedProblem{
		Type:      constants.TypeEquation,
		Statement: "x - 1 = 0",
		Variables: []string{"x"},
	}
	passed, checked := testVerifier().Verify(prob, entity.Solution{Results: []string{"???"}})
	assert.True(t, checked)
	assert.False(t, passed)
}

func TestParseIntervalUnion(t *testing.T) {
	ivs, err := parseIntervalUnion("(-inf, -1] U {1} U [3, inf)")
	require.NoError(t, err)
	require.Len(t, ivs, 3)
	assert.True(t, ivs[0].loInf)
	assert.True(t, ivs[0].hiClosed)
	assert.Equal(t, -1.0, ivs[0].hi)
	assert.True(t, ivs[1].point)
	assert.Equal(t, 1.0, ivs[1].lo)
	assert.True(t, ivs[2].loClosed)
	assert.True(t, ivs[2].hiInf)

	_, err = parseIntervalUnion("nonsense")
	require.Error(t, err)
}
