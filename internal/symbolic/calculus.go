package symbolic

import (
	"fmt"
	"math/big"
)

// Diff returns d/dv of e. The result is simplified.
func Diff(e Expr, v string) (Expr, error) {
	d, err := diff(e, v)
	if err != nil {
		return nil, err
	}
	return Simplify(d)
}

func diff(e Expr, v string) (Expr, error) {
	switch n := e.(type) {
	case *Num:
		return Int(0), nil
	case *Sym:
		if n.Name == v {
			return Int(1), nil
		}
		return Int(0), nil
	case *Add:
		terms := make([]Expr, len(n.Terms))
		for i, t := range n.Terms {
			d, err := diff(t, v)
			if err != nil {
				return nil, err
			}
			terms[i] = d
		}
		return NewAdd(terms...), nil
	case *Mul:
		// product rule over n factors
		var sum []Expr
		for i := range n.Factors {
			d, err := diff(n.Factors[i], v)
			if err != nil {
				return nil, err
			}
			if IsZero(d) {
				continue
			}
			fs := make([]Expr, 0, len(n.Factors))
			for j, f := range n.Factors {
				if j == i {
					fs = append(fs, d)
				} else {
					fs = append(fs, f)
				}
			}
			sum = append(sum, NewMul(fs...))
		}
		if len(sum) == 0 {
			return Int(0), nil
		}
		return NewAdd(sum...), nil
	case *Pow:
		return diffPow(n, v)
	case *Call:
		return diffCall(n, v)
	default:
		return nil, fmt.Errorf("cannot differentiate %T", e)
	}
}

func diffPow(p *Pow, v string) (Expr, error) {
	if exp, ok := p.Exp.(*Num); ok {
		// d/dv b^c = c*b^(c-1)*b'
		db, err := diff(p.Base, v)
		if err != nil {
			return nil, err
		}
		if IsZero(db) {
			return Int(0), nil
		}
		c1 := new(big.Rat).Sub(exp.Val, ratOne)
		return NewMul(NewNum(exp.Val), NewPow(p.Base, NewNum(c1)), db), nil
	}
	if !contains(p.Exp, v) && !contains(p.Base, v) {
		return Int(0), nil
	}
	// a^f(v) with constant base: a^f * ln(a) * f'
	if !contains(p.Base, v) {
		de, err := diff(p.Exp, v)
		if err != nil {
			return nil, err
		}
		return NewMul(p, Fn("ln", p.Base), de), nil
	}
	return nil, fmt.Errorf("cannot differentiate %s", Format(p))
}

func diffCall(c *Call, v string) (Expr, error) {
	da, err := diff(c.Arg, v)
	if err != nil {
		return nil, err
	}
	if IsZero(da) {
		return Int(0), nil
	}
	var outer Expr
	switch c.Fn {
	case "sin":
		outer = Fn("cos", c.Arg)
	case "cos":
		outer = Neg(Fn("sin", c.Arg))
	case "tan":
		outer = NewPow(Fn("cos", c.Arg), Int(-2))
	case "exp":
		outer = Fn("exp", c.Arg)
	case "ln":
		outer = NewPow(c.Arg, Int(-1))
	case "sqrt":
		outer = NewMul(Rat(1, 2), NewPow(c.Arg, Rat(-1, 2)))
	default:
		return nil, fmt.Errorf("cannot differentiate %s", c.Fn)
	}
	return NewMul(outer, da), nil
}

// Integrate returns the antiderivative of e with respect to v, without the
// constant of integration. It handles sums, constant multiples, powers of v
// and the basic function table; anything else is reported as having no
// closed form in this engine.
func Integrate(e Expr, v string) (Expr, error) {
	s, err := Simplify(e)
	if err != nil {
		return nil, err
	}
	anti, err := integrate(s, v)
	if err != nil {
		return nil, err
	}
	return Simplify(anti)
}

func integrate(e Expr, v string) (Expr, error) {
	switch n := e.(type) {
	case *Num:
		return NewMul(n, Var(v)), nil
	case *Sym:
		if n.Name == v {
			return NewMul(Rat(1, 2), NewPow(Var(v), Int(2))), nil
		}
		return NewMul(n, Var(v)), nil
	case *Add:
		terms := make([]Expr, len(n.Terms))
		for i, t := range n.Terms {
			a, err := integrate(t, v)
			if err != nil {
				return nil, err
			}
			terms[i] = a
		}
		return NewAdd(terms...), nil
	case *Mul:
		// peel constant factors; a genuine product of v-dependent factors has
		// no closed form here
		coeff := make([]Expr, 0, len(n.Factors))
		var dep []Expr
		for _, f := range n.Factors {
			if contains(f, v) {
				dep = append(dep, f)
			} else {
				coeff = append(coeff, f)
			}
		}
		if len(dep) == 0 {
			return NewMul(append(coeff, Var(v))...), nil
		}
		if len(dep) > 1 {
			return nil, fmt.Errorf("no closed-form antiderivative for %s", Format(e))
		}
		inner, err := integrate(dep[0], v)
		if err != nil {
			return nil, err
		}
		return NewMul(append(coeff, inner)...), nil
	case *Pow:
		return integratePow(n, v)
	case *Call:
		return integrateCall(n, v)
	default:
		return nil, fmt.Errorf("cannot integrate %T", e)
	}
}

func integratePow(p *Pow, v string) (Expr, error) {
	base, baseIsVar := p.Base.(*Sym)
	exp, expIsNum := p.Exp.(*Num)
	if !baseIsVar || base.Name != v || !expIsNum {
		if !contains(p, v) {
			return NewMul(p, Var(v)), nil
		}
		return nil, fmt.Errorf("no closed-form antiderivative for %s", Format(p))
	}
	// v^-1 -> ln(v)
	if exp.Val.Cmp(ratNegOne) == 0 {
		return Fn("ln", Var(v)), nil
	}
	// power rule: v^n -> v^(n+1)/(n+1)
	n1 := new(big.Rat).Add(exp.Val, ratOne)
	return NewMul(NewNum(new(big.Rat).Inv(n1)), NewPow(Var(v), NewNum(n1))), nil
}

func integrateCall(c *Call, v string) (Expr, error) {
	arg, ok := c.Arg.(*Sym)
	if !ok || arg.Name != v {
		if !contains(c, v) {
			return NewMul(c, Var(v)), nil
		}
		return nil, fmt.Errorf("no closed-form antiderivative for %s", Format(c))
	}
	switch c.Fn {
	case "sin":
		return Neg(Fn("cos", Var(v))), nil
	case "cos":
		return Fn("sin", Var(v)), nil
	case "exp":
		return Fn("exp", Var(v)), nil
	case "ln":
		// ln(v) -> v*ln(v) - v
		return Sub(NewMul(Var(v), Fn("ln", Var(v))), Var(v)), nil
	default:
		return nil, fmt.Errorf("no closed-form antiderivative for %s", Format(c))
	}
}

// contains reports whether symbol v occurs in e.
func contains(e Expr, v string) bool {
	switch n := e.(type) {
	case *Num:
		return false
	case *Sym:
		return n.Name == v
	case *Add:
		for _, t := range n.Terms {
			if contains(t, v) {
				return true
			}
		}
		return false
	case *Mul:
		for _, f := range n.Factors {
			if contains(f, v) {
				return true
			}
		}
		return false
	case *Pow:
		return contains(n.Base, v) || contains(n.Exp, v)
	case *Call:
		return contains(n.Arg, v)
	default:
		return false
	}
}

// FreeSymbols returns the distinct symbol names in e, excluding the named
// constants pi and e.
func FreeSymbols(e Expr) []string {
	seen := map[string]struct{}{}
	var out []string
	var walk func(Expr)
	walk = func(x Expr) {
		switch n := x.(type) {
		case *Sym:
			if n.Name == "pi" || n.Name == "e" {
				return
			}
			if _, ok := seen[n.Name]; !ok {
				seen[n.Name] = struct{}{}
				out = append(out, n.Name)
			}
		case *Add:
			for _, t := range n.Terms {
				walk(t)
			}
		case *Mul:
			for _, f := range n.Factors {
				walk(f)
			}
		case *Pow:
			walk(n.Base)
			walk(n.Exp)
		case *Call:
			walk(n.Arg)
		}
	}
	walk(e)
	return out
}
