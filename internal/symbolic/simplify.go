package symbolic

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
)

// ErrDivisionByZero is returned when simplification or evaluation hits a
// zero denominator.
var ErrDivisionByZero = errors.New("division by zero")

// Simplify returns a normalized form of e: constants folded, like terms
// collected, like factors merged, trivial powers removed. Products are not
// expanded; polynomial questions go through the poly helpers instead.
func Simplify(e Expr) (Expr, error) {
	switch n := e.(type) {
	case *Num:
		return NewNum(n.Val), nil
	case *Sym:
		return n, nil
	case *Add:
		return simplifyAdd(n)
	case *Mul:
		return simplifyMul(n)
	case *Pow:
		return simplifyPow(n)
	case *Call:
		return simplifyCall(n)
	default:
		return nil, fmt.Errorf("unknown expression node %T", e)
	}
}

func simplifyAdd(a *Add) (Expr, error) {
	var flat []Expr
	for _, t := range a.Terms {
		s, err := Simplify(t)
		if err != nil {
			return nil, err
		}
		if sa, ok := s.(*Add); ok {
			flat = append(flat, sa.Terms...)
		} else {
			flat = append(flat, s)
		}
	}

	constant := new(big.Rat)
	type bucket struct {
		coeff *big.Rat
		mono  Expr
	}
	buckets := map[string]*bucket{}
	var order []string
	for _, t := range flat {
		coeff, mono := splitCoeff(t)
		if mono == nil {
			constant.Add(constant, coeff)
			continue
		}
		key := Format(mono)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{coeff: new(big.Rat), mono: mono}
			buckets[key] = b
			order = append(order, key)
		}
		b.coeff.Add(b.coeff, coeff)
	}

	out := make([]Expr, 0, len(order)+1)
	for _, key := range order {
		b := buckets[key]
		switch {
		case b.coeff.Sign() == 0:
		case b.coeff.Cmp(ratOne) == 0:
			out = append(out, b.mono)
		default:
			out = append(out, NewMul(NewNum(b.coeff), b.mono))
		}
	}
	if constant.Sign() != 0 || len(out) == 0 {
		out = append(out, NewNum(constant))
	}
	if len(out) == 1 {
		return out[0], nil
	}
	return &Add{Terms: out}, nil
}

// splitCoeff splits a term into its rational coefficient and the remaining
// monomial. A pure constant returns (value, nil).
func splitCoeff(t Expr) (*big.Rat, Expr) {
	switch n := t.(type) {
	case *Num:
		return new(big.Rat).Set(n.Val), nil
	case *Mul:
		coeff := new(big.Rat).Set(ratOne)
		var rest []Expr
		for _, f := range n.Factors {
			if c, ok := f.(*Num); ok {
				coeff.Mul(coeff, c.Val)
			} else {
				rest = append(rest, f)
			}
		}
		if len(rest) == 0 {
			return coeff, nil
		}
		return coeff, NewMul(rest...)
	default:
		return new(big.Rat).Set(ratOne), t
	}
}

func simplifyMul(m *Mul) (Expr, error) {
	var flat []Expr
	for _, f := range m.Factors {
		s, err := Simplify(f)
		if err != nil {
			return nil, err
		}
		if sm, ok := s.(*Mul); ok {
			flat = append(flat, sm.Factors...)
		} else {
			flat = append(flat, s)
		}
	}

	coeff := new(big.Rat).Set(ratOne)
	type bucket struct {
		base Expr
		exp  *big.Rat // nil when the exponent is symbolic
		raw  Expr     // kept verbatim for symbolic exponents
	}
	buckets := map[string]*bucket{}
	var order []string
	add := func(base Expr, exp *big.Rat) {
		key := Format(base)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{base: base, exp: new(big.Rat)}
			buckets[key] = b
			order = append(order, key)
		}
		b.exp.Add(b.exp, exp)
	}
	for _, f := range flat {
		switch n := f.(type) {
		case *Num:
			coeff.Mul(coeff, n.Val)
		case *Pow:
			if e, ok := n.Exp.(*Num); ok {
				add(n.Base, e.Val)
			} else {
				key := fmt.Sprintf("%s^%s#%d", Format(n.Base), Format(n.Exp), len(order))
				buckets[key] = &bucket{raw: n}
				order = append(order, key)
			}
		default:
			add(f, ratOne)
		}
	}
	if coeff.Sign() == 0 {
		return Int(0), nil
	}

	var out []Expr
	for _, key := range order {
		b := buckets[key]
		if b.raw != nil {
			out = append(out, b.raw)
			continue
		}
		switch {
		case b.exp.Sign() == 0:
		case b.exp.Cmp(ratOne) == 0:
			out = append(out, b.base)
		default:
			p, err := simplifyPow(&Pow{Base: b.base, Exp: NewNum(b.exp)})
			if err != nil {
				return nil, err
			}
			if c, ok := p.(*Num); ok {
				coeff.Mul(coeff, c.Val)
			} else if !IsOne(p) {
				out = append(out, p)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return Format(out[i]) < Format(out[j]) })
	if len(out) == 0 {
		return NewNum(coeff), nil
	}
	// distribute a rational coefficient over a lone sum: 3*(x+1) -> 3*x + 3
	if len(out) == 1 {
		if sum, ok := out[0].(*Add); ok && coeff.Cmp(ratOne) != 0 {
			terms := make([]Expr, len(sum.Terms))
			for i, t := range sum.Terms {
				terms[i] = NewMul(NewNum(coeff), t)
			}
			return Simplify(&Add{Terms: terms})
		}
	}
	if coeff.Cmp(ratOne) != 0 {
		out = append([]Expr{NewNum(coeff)}, out...)
	}
	if len(out) == 1 {
		return out[0], nil
	}
	return &Mul{Factors: out}, nil
}

func simplifyPow(p *Pow) (Expr, error) {
	base, err := Simplify(p.Base)
	if err != nil {
		return nil, err
	}
	exp, err := Simplify(p.Exp)
	if err != nil {
		return nil, err
	}

	if e, ok := exp.(*Num); ok {
		if e.Val.Sign() == 0 {
			return Int(1), nil
		}
		if e.Val.Cmp(ratOne) == 0 {
			return base, nil
		}
		if b, ok := base.(*Num); ok {
			if b.Val.Sign() == 0 {
				if e.Val.Sign() < 0 {
					return nil, ErrDivisionByZero
				}
				return Int(0), nil
			}
			if e.Val.IsInt() {
				return NewNum(ratPowInt(b.Val, e.Val.Num())), nil
			}
			// rational exponent of a perfect power folds, otherwise stays symbolic
			if folded, ok := ratRoot(b.Val, e.Val); ok {
				return NewNum(folded), nil
			}
		}
		if IsOne(base) {
			return Int(1), nil
		}
		// (x^a)^b -> x^(a*b) for numeric a, b
		if bp, ok := base.(*Pow); ok {
			if a, ok := bp.Exp.(*Num); ok {
				return simplifyPow(&Pow{Base: bp.Base, Exp: NewNum(new(big.Rat).Mul(a.Val, e.Val))})
			}
		}
	}
	return &Pow{Base: base, Exp: exp}, nil
}

func simplifyCall(c *Call) (Expr, error) {
	arg, err := Simplify(c.Arg)
	if err != nil {
		return nil, err
	}
	if n, ok := arg.(*Num); ok {
		switch c.Fn {
		case "sin", "tan":
			if n.Val.Sign() == 0 {
				return Int(0), nil
			}
		case "cos", "exp":
			if n.Val.Sign() == 0 {
				return Int(1), nil
			}
		case "ln":
			if n.Val.Cmp(ratOne) == 0 {
				return Int(0), nil
			}
			if n.Val.Sign() <= 0 {
				return nil, fmt.Errorf("ln of non-positive constant %s", n.Val.RatString())
			}
		case "sqrt":
			if n.Val.Sign() < 0 {
				return nil, fmt.Errorf("sqrt of negative constant %s", n.Val.RatString())
			}
			if folded, ok := ratRoot(n.Val, big.NewRat(1, 2)); ok {
				return NewNum(folded), nil
			}
			if outer, inner, ok := sqrtFactor(n.Val); ok {
				return NewMul(NewNum(outer), Fn("sqrt", NewNum(new(big.Rat).SetInt(inner)))), nil
			}
		}
	}
	return &Call{Fn: c.Fn, Arg: arg}, nil
}

// sqrtFactor rewrites sqrt(p/q) as outer*sqrt(inner) with inner a square-free
// integer, using sqrt(p/q) = sqrt(p*q)/q. Returns ok=false when the argument
// is already in that form or too large to factor.
func sqrtFactor(r *big.Rat) (outer *big.Rat, inner *big.Int, ok bool) {
	n := new(big.Int).Mul(r.Num(), r.Denom())
	if !n.IsInt64() {
		return nil, nil, false
	}
	v := n.Int64()
	s := int64(1)
	for f := int64(2); f <= 1000003 && f*f <= v; f++ {
		for v%(f*f) == 0 {
			s *= f
			v /= f * f
		}
	}
	// leftover square of a prime beyond the trial bound
	if v > 1 {
		if root, isSquare := intRoot(big.NewInt(v), 2); isSquare {
			s *= root.Int64()
			v = 1
		}
	}
	if v == 1 || (s == 1 && r.Denom().Cmp(bigOne) == 0) {
		return nil, nil, false
	}
	outer = new(big.Rat).SetFrac(big.NewInt(s), r.Denom())
	return outer, big.NewInt(v), true
}

// ratPowInt raises r to an integer power exactly.
func ratPowInt(r *big.Rat, n *big.Int) *big.Rat {
	neg := n.Sign() < 0
	abs := new(big.Int).Abs(n)
	num := new(big.Int).Exp(r.Num(), abs, nil)
	den := new(big.Int).Exp(r.Denom(), abs, nil)
	out := new(big.Rat).SetFrac(num, den)
	if neg {
		out.Inv(out)
	}
	return out
}

// ratRoot computes r^exp exactly when r is a perfect power for the rational
// exponent exp (e.g. 4^(1/2) -> 2). Returns ok=false otherwise.
func ratRoot(r *big.Rat, exp *big.Rat) (*big.Rat, bool) {
	if r.Sign() < 0 {
		return nil, false
	}
	den := exp.Denom().Int64()
	if den <= 1 || den > 8 {
		return nil, false
	}
	rootNum, ok1 := intRoot(r.Num(), den)
	rootDen, ok2 := intRoot(r.Denom(), den)
	if !ok1 || !ok2 {
		return nil, false
	}
	base := new(big.Rat).SetFrac(rootNum, rootDen)
	return ratPowInt(base, exp.Num()), true
}

// intRoot returns the exact n-th root of v, or ok=false when v is not a
// perfect n-th power.
func intRoot(v *big.Int, n int64) (*big.Int, bool) {
	if v.Sign() < 0 {
		return nil, false
	}
	if v.BitLen() == 0 {
		return big.NewInt(0), true
	}
	// binary search
	lo := big.NewInt(1)
	hi := new(big.Int).Set(v)
	one := big.NewInt(1)
	exp := big.NewInt(n)
	for lo.Cmp(hi) <= 0 {
		mid := new(big.Int).Add(lo, hi)
		mid.Rsh(mid, 1)
		p := new(big.Int).Exp(mid, exp, nil)
		switch p.Cmp(v) {
		case 0:
			return mid, true
		case -1:
			lo = new(big.Int).Add(mid, one)
		case 1:
			hi = new(big.Int).Sub(mid, one)
		}
	}
	return nil, false
}
