package solver

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/anhducmata/myath/internal/entity"
	"github.com/anhducmata/myath/internal/symbolic"
)

// SystemStrategy solves systems of linear equations by Gaussian elimination
// over exact rationals. The statement carries one equation per segment,
// separated by ";", "," or newlines; each equation must be linear in the
// declared variables.
type SystemStrategy struct{}

func (s *SystemStrategy) Attempt(_ context.Context, prob entity.ParsedProblem) (entity.Solution, error) {
	vars := prob.Variables
	if len(vars) == 0 {
		return entity.Solution{}, fmt.Errorf("system has no declared variables")
	}
	segments := splitEquations(prob.Statement)
	if len(segments) < 2 {
		return entity.Solution{}, fmt.Errorf("system needs at least two equations, got %d", len(segments))
	}

	// Augmented matrix: one row per equation, len(vars)+1 columns with the
	// constant moved to the right-hand side.
	rows := make([][]*big.Rat, 0, len(segments))
	rendered := make([]string, 0, len(segments))
	for _, seg := range segments {
		rel, err := symbolic.ParseRelation(seg)
		if err != nil {
			return entity.Solution{}, fmt.Errorf("parse equation %q: %w", seg, err)
		}
		if rel.Op != symbolic.OpNone && rel.Op != symbolic.OpEq {
			return entity.Solution{}, fmt.Errorf("equation %q is an inequality", seg)
		}
		lhs := rel.Lhs
		rhs := symbolic.Expr(symbolic.Int(0))
		if rel.Op == symbolic.OpEq {
			rhs = rel.Rhs
		}
		diff, err := symbolic.Simplify(symbolic.Sub(lhs, rhs))
		if err != nil {
			return entity.Solution{}, fmt.Errorf("simplify equation %q: %w", seg, err)
		}
		coeffs, constant, err := symbolic.LinearCoeffs(diff, vars)
		if err != nil {
			return entity.Solution{}, fmt.Errorf("equation %q is not linear: %w", seg, err)
		}
		row := make([]*big.Rat, len(vars)+1)
		for i, v := range vars {
			row[i] = new(big.Rat)
			if c, ok := coeffs[v]; ok {
				row[i].Set(c)
			}
		}
		row[len(vars)] = new(big.Rat).Neg(constant)
		rows = append(rows, row)
		rendered = append(rendered, symbolic.Format(lhs)+" = "+symbolic.Format(rhs))
	}

	steps := []entity.Step{{
		Description:  "Given system of equations",
		SymbolicForm: strings.Join(rendered, "; "),
		Explanation:  fmt.Sprintf("A system of %d linear equations in %s.", len(rows), strings.Join(vars, ", ")),
	}}

	values, err := gaussianSolve(rows, len(vars))
	if err != nil {
		return entity.Solution{}, err
	}
	steps = append(steps, entity.Step{
		Description:  "Eliminate variables",
		SymbolicForm: renderTriangular(rows, vars),
		Explanation:  "Forward elimination with row pivoting reduces the system to triangular form.",
	})

	results := make([]string, len(vars))
	for i, v := range vars {
		results[i] = fmt.Sprintf("%s = %s", v, values[i].RatString())
	}
	steps = append(steps, entity.Step{
		Description:  "Back-substitute",
		SymbolicForm: formattedResults(results),
		Explanation:  "Solving the triangular system from the last equation upward yields the unique solution.",
	})

	return entity.Solution{
		Results:    results,
		Steps:      steps,
		Confidence: confidenceExact,
		Method:     "gaussian-elimination",
	}, nil
}

// splitEquations breaks a system statement into individual equations. The
// expression grammar never uses these separators, so a bare split is safe.
func splitEquations(statement string) []string {
	parts := strings.FieldsFunc(statement, func(r rune) bool {
		return r == ';' || r == ',' || r == '\n'
	})
	out := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// gaussianSolve reduces the augmented rows in place and back-substitutes.
// Errors on inconsistent systems (a row reading 0 = c) and on systems
// without a unique solution.
func gaussianSolve(rows [][]*big.Rat, n int) ([]*big.Rat, error) {
	pivot := 0
	for col := 0; col < n && pivot < len(rows); col++ {
		// find a row with a nonzero entry in this column
		sel := -1
		for r := pivot; r < len(rows); r++ {
			if rows[r][col].Sign() != 0 {
				sel = r
				break
			}
		}
		if sel < 0 {
			continue
		}
		rows[pivot], rows[sel] = rows[sel], rows[pivot]
		for r := pivot + 1; r < len(rows); r++ {
			if rows[r][col].Sign() == 0 {
				continue
			}
			factor := new(big.Rat).Quo(rows[r][col], rows[pivot][col])
			for c := col; c <= n; c++ {
				rows[r][c].Sub(rows[r][c], new(big.Rat).Mul(factor, rows[pivot][c]))
			}
		}
		pivot++
	}

	for r := pivot; r < len(rows); r++ {
		if rows[r][n].Sign() != 0 {
			return nil, fmt.Errorf("system is inconsistent: it reduces to 0 = %s", rows[r][n].RatString())
		}
	}
	if pivot < n {
		return nil, fmt.Errorf("system is underdetermined: %d independent equations for %d variables", pivot, n)
	}

	values := make([]*big.Rat, n)
	for r := n - 1; r >= 0; r-- {
		// locate this row's pivot column
		col := 0
		for col < n && rows[r][col].Sign() == 0 {
			col++
		}
		acc := new(big.Rat).Set(rows[r][n])
		for c := col + 1; c < n; c++ {
			acc.Sub(acc, new(big.Rat).Mul(rows[r][c], values[c]))
		}
		values[col] = acc.Quo(acc, rows[r][col])
	}
	return values, nil
}

// renderTriangular prints the eliminated rows as equations for the steps.
func renderTriangular(rows [][]*big.Rat, vars []string) string {
	var eqs []string
	for _, row := range rows {
		var b strings.Builder
		for i, v := range vars {
			c := row[i]
			if c.Sign() == 0 {
				continue
			}
			mag := ratAbs(c)
			switch {
			case b.Len() == 0 && c.Sign() < 0:
				b.WriteString("-")
			case b.Len() > 0 && c.Sign() < 0:
				b.WriteString(" - ")
			case b.Len() > 0:
				b.WriteString(" + ")
			}
			if mag.Cmp(big.NewRat(1, 1)) != 0 {
				b.WriteString(mag.RatString() + "*")
			}
			b.WriteString(v)
		}
		if b.Len() == 0 {
			continue
		}
		eqs = append(eqs, b.String()+" = "+row[len(vars)].RatString())
	}
	return strings.Join(eqs, "; ")
}
