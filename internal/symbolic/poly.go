package symbolic

import (
	"fmt"
	"math/big"
)

const maxPolyDegree = 64

// PolyCoeffs extracts the coefficients of e viewed as a univariate
// polynomial in v, index = degree. Products and integer powers of sums are
// expanded during extraction, so "(x+1)^2" works without AST expansion.
// Returns an error if e is not a polynomial in v (other symbols, functions,
// negative or fractional powers of v).
func PolyCoeffs(e Expr, v string) ([]*big.Rat, error) {
	m, err := polyOf(e, v)
	if err != nil {
		return nil, err
	}
	deg := 0
	for d := range m {
		if d > deg {
			deg = d
		}
	}
	out := make([]*big.Rat, deg+1)
	for i := range out {
		out[i] = new(big.Rat)
	}
	for d, c := range m {
		out[d].Set(c)
	}
	// trim leading zeros
	for len(out) > 1 && out[len(out)-1].Sign() == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func polyOf(e Expr, v string) (map[int]*big.Rat, error) {
	switch n := e.(type) {
	case *Num:
		return map[int]*big.Rat{0: new(big.Rat).Set(n.Val)}, nil
	case *Sym:
		if n.Name == v {
			return map[int]*big.Rat{1: big.NewRat(1, 1)}, nil
		}
		return nil, fmt.Errorf("second symbol %q in polynomial over %q", n.Name, v)
	case *Add:
		acc := map[int]*big.Rat{}
		for _, t := range n.Terms {
			p, err := polyOf(t, v)
			if err != nil {
				return nil, err
			}
			polyAddInto(acc, p)
		}
		return acc, nil
	case *Mul:
		acc := map[int]*big.Rat{0: big.NewRat(1, 1)}
		for _, f := range n.Factors {
			p, err := polyOf(f, v)
			if err != nil {
				return nil, err
			}
			acc = polyMul(acc, p)
		}
		return acc, nil
	case *Pow:
		exp, ok := n.Exp.(*Num)
		if !ok || !exp.Val.IsInt() || exp.Val.Sign() < 0 {
			return nil, fmt.Errorf("non-polynomial power %s", Format(n))
		}
		k := exp.Val.Num().Int64()
		if k > maxPolyDegree {
			return nil, fmt.Errorf("degree %d exceeds supported maximum %d", k, maxPolyDegree)
		}
		base, err := polyOf(n.Base, v)
		if err != nil {
			return nil, err
		}
		acc := map[int]*big.Rat{0: big.NewRat(1, 1)}
		for i := int64(0); i < k; i++ {
			acc = polyMul(acc, base)
		}
		return acc, nil
	case *Call:
		return nil, fmt.Errorf("function %s is not polynomial", n.Fn)
	default:
		return nil, fmt.Errorf("cannot treat %T as polynomial", e)
	}
}

func polyAddInto(dst, src map[int]*big.Rat) {
	for d, c := range src {
		if cur, ok := dst[d]; ok {
			cur.Add(cur, c)
		} else {
			dst[d] = new(big.Rat).Set(c)
		}
	}
}

func polyMul(a, b map[int]*big.Rat) map[int]*big.Rat {
	out := map[int]*big.Rat{}
	for da, ca := range a {
		for db, cb := range b {
			d := da + db
			prod := new(big.Rat).Mul(ca, cb)
			if cur, ok := out[d]; ok {
				cur.Add(cur, prod)
			} else {
				out[d] = prod
			}
		}
	}
	return out
}

// LinearCoeffs extracts the coefficients of e viewed as a linear form over
// vars: e = sum(coeffs[v] * v) + constant. Variables absent from e get no
// map entry. Returns an error if e contains a symbol outside vars, a
// function call, or any product or power mixing variables (nonlinear terms).
func LinearCoeffs(e Expr, vars []string) (map[string]*big.Rat, *big.Rat, error) {
	set := make(map[string]struct{}, len(vars))
	for _, v := range vars {
		set[v] = struct{}{}
	}
	return linearOf(e, set)
}

func linearOf(e Expr, vars map[string]struct{}) (map[string]*big.Rat, *big.Rat, error) {
	switch n := e.(type) {
	case *Num:
		return map[string]*big.Rat{}, new(big.Rat).Set(n.Val), nil
	case *Sym:
		if _, ok := vars[n.Name]; !ok {
			return nil, nil, fmt.Errorf("undeclared symbol %q in linear form", n.Name)
		}
		return map[string]*big.Rat{n.Name: big.NewRat(1, 1)}, new(big.Rat), nil
	case *Add:
		coeffs := map[string]*big.Rat{}
		constant := new(big.Rat)
		for _, t := range n.Terms {
			c, k, err := linearOf(t, vars)
			if err != nil {
				return nil, nil, err
			}
			for v, cv := range c {
				if cur, ok := coeffs[v]; ok {
					cur.Add(cur, cv)
				} else {
					coeffs[v] = cv
				}
			}
			constant.Add(constant, k)
		}
		return coeffs, constant, nil
	case *Mul:
		scale := big.NewRat(1, 1)
		var varCoeffs map[string]*big.Rat
		varConst := new(big.Rat)
		for _, f := range n.Factors {
			c, k, err := linearOf(f, vars)
			if err != nil {
				return nil, nil, err
			}
			if len(c) == 0 {
				scale.Mul(scale, k)
				continue
			}
			if varCoeffs != nil {
				return nil, nil, fmt.Errorf("nonlinear term %s", Format(n))
			}
			varCoeffs, varConst = c, k
		}
		if varCoeffs == nil {
			return map[string]*big.Rat{}, scale, nil
		}
		for _, cv := range varCoeffs {
			cv.Mul(cv, scale)
		}
		return varCoeffs, varConst.Mul(varConst, scale), nil
	case *Pow:
		exp, ok := n.Exp.(*Num)
		if !ok || !exp.Val.IsInt() {
			return nil, nil, fmt.Errorf("non-linear power %s", Format(n))
		}
		c, k, err := linearOf(n.Base, vars)
		if err != nil {
			return nil, nil, err
		}
		if len(c) > 0 {
			switch exp.Val.Num().Int64() {
			case 0:
				return map[string]*big.Rat{}, big.NewRat(1, 1), nil
			case 1:
				return c, k, nil
			default:
				return nil, nil, fmt.Errorf("nonlinear term %s", Format(n))
			}
		}
		if k.Sign() == 0 && exp.Val.Sign() < 0 {
			return nil, nil, ErrDivisionByZero
		}
		return map[string]*big.Rat{}, ratPowInt(k, exp.Val.Num()), nil
	case *Call:
		return nil, nil, fmt.Errorf("function %s is not linear", n.Fn)
	default:
		return nil, nil, fmt.Errorf("cannot treat %T as linear", e)
	}
}

// PolyExpr rebuilds an expression from coefficients, highest degree first.
func PolyExpr(coeffs []*big.Rat, v string) Expr {
	var terms []Expr
	for d := len(coeffs) - 1; d >= 0; d-- {
		c := coeffs[d]
		if c.Sign() == 0 {
			continue
		}
		switch d {
		case 0:
			terms = append(terms, NewNum(c))
		case 1:
			if c.Cmp(ratOne) == 0 {
				terms = append(terms, Var(v))
			} else {
				terms = append(terms, NewMul(NewNum(c), Var(v)))
			}
		default:
			p := NewPow(Var(v), Int(int64(d)))
			if c.Cmp(ratOne) == 0 {
				terms = append(terms, p)
			} else {
				terms = append(terms, NewMul(NewNum(c), p))
			}
		}
	}
	if len(terms) == 0 {
		return Int(0)
	}
	return NewAdd(terms...)
}
