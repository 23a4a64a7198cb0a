// Package symbolic implements the small expression engine the solver
// strategies are built on: parsing, simplification, differentiation,
// integration, polynomial tools and numeric evaluation.
package symbolic

import (
	"math/big"
	"sort"
	"strings"
)

// Expr is a symbolic expression node. Expressions are immutable once built;
// all transformations return new trees.
type Expr interface {
	isExpr()
}

// Num is an exact rational constant.
type Num struct {
	Val *big.Rat
}

// Sym is a symbol reference (a variable or named constant such as pi).
type Sym struct {
	Name string
}

// Add is an n-ary sum.
type Add struct {
	Terms []Expr
}

// Mul is an n-ary product. Division is represented as multiplication by a
// negative power.
type Mul struct {
	Factors []Expr
}

// Pow is base^exp. Subtraction and division desugar into Pow/Mul with
// rational constants, so the engine only ever rewrites these five nodes.
type Pow struct {
	Base, Exp Expr
}

// Call is a unary function application (sin, cos, tan, exp, ln, sqrt).
type Call struct {
	Fn  string
	Arg Expr
}

func (*Num) isExpr()  {}
func (*Sym) isExpr()  {}
func (*Add) isExpr()  {}
func (*Mul) isExpr()  {}
func (*Pow) isExpr()  {}
func (*Call) isExpr() {}

// Constructors. These do light normalization (flattening); Simplify does the
// real work.

func NewNum(r *big.Rat) *Num      { return &Num{Val: new(big.Rat).Set(r)} }
func Int(n int64) *Num            { return &Num{Val: big.NewRat(n, 1)} }
func Rat(num, den int64) *Num     { return &Num{Val: big.NewRat(num, den)} }
func Var(name string) *Sym        { return &Sym{Name: name} }
func Fn(name string, arg Expr) *Call { return &Call{Fn: name, Arg: arg} }

func NewAdd(terms ...Expr) Expr {
	flat := make([]Expr, 0, len(terms))
	for _, t := range terms {
		if a, ok := t.(*Add); ok {
			flat = append(flat, a.Terms...)
		} else {
			flat = append(flat, t)
		}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return &Add{Terms: flat}
}

func NewMul(factors ...Expr) Expr {
	flat := make([]Expr, 0, len(factors))
	for _, f := range factors {
		if m, ok := f.(*Mul); ok {
			flat = append(flat, m.Factors...)
		} else {
			flat = append(flat, f)
		}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return &Mul{Factors: flat}
}

func NewPow(base, exp Expr) Expr { return &Pow{Base: base, Exp: exp} }

func Neg(e Expr) Expr      { return NewMul(Int(-1), e) }
func Sub(a, b Expr) Expr   { return NewAdd(a, Neg(b)) }
func Div(a, b Expr) Expr   { return NewMul(a, NewPow(b, Int(-1))) }

// IsZero reports whether e is the literal constant 0.
func IsZero(e Expr) bool {
	n, ok := e.(*Num)
	return ok && n.Val.Sign() == 0
}

// IsOne reports whether e is the literal constant 1.
func IsOne(e Expr) bool {
	n, ok := e.(*Num)
	return ok && n.Val.Cmp(ratOne) == 0
}

var (
	ratOne    = big.NewRat(1, 1)
	ratNegOne = big.NewRat(-1, 1)
)

// Printing precedence levels.
const (
	precAdd = iota + 1
	precMul
	precPow
	precAtom
)

// Format renders e in canonical infix form: "x^2 + 2*x + 1", "2*x/(y + 1)".
func Format(e Expr) string {
	return format(e, precAdd)
}

func format(e Expr, parent int) string {
	switch n := e.(type) {
	case *Num:
		s := n.Val.RatString()
		if n.Val.Sign() < 0 && parent > precAdd {
			return "(" + s + ")"
		}
		return s
	case *Sym:
		return n.Name
	case *Add:
		return formatAdd(n, parent)
	case *Mul:
		return formatMul(n, parent)
	case *Pow:
		return formatPow(n, parent)
	case *Call:
		return n.Fn + "(" + format(n.Arg, precAdd) + ")"
	default:
		return "?"
	}
}

func formatAdd(a *Add, parent int) string {
	var b strings.Builder
	for i, t := range sortedTerms(a.Terms) {
		neg, abs := splitSign(t)
		if i == 0 {
			if neg {
				b.WriteString("-")
			}
		} else if neg {
			b.WriteString(" - ")
		} else {
			b.WriteString(" + ")
		}
		b.WriteString(format(abs, precMul))
	}
	s := b.String()
	if parent > precAdd {
		return "(" + s + ")"
	}
	return s
}

// splitSign peels a leading negative coefficient off a term so sums render
// with " - " instead of "+ -".
func splitSign(t Expr) (neg bool, abs Expr) {
	switch n := t.(type) {
	case *Num:
		if n.Val.Sign() < 0 {
			return true, NewNum(new(big.Rat).Neg(n.Val))
		}
	case *Mul:
		if len(n.Factors) > 0 {
			if c, ok := n.Factors[0].(*Num); ok && c.Val.Sign() < 0 {
				rest := append([]Expr{NewNum(new(big.Rat).Neg(c.Val))}, n.Factors[1:]...)
				if IsOne(rest[0]) && len(rest) > 1 {
					rest = rest[1:]
				}
				return true, NewMul(rest...)
			}
		}
	}
	return false, t
}

func formatMul(m *Mul, parent int) string {
	coeff := new(big.Rat).Set(ratOne)
	var num, den []Expr
	for _, f := range m.Factors {
		switch n := f.(type) {
		case *Num:
			coeff.Mul(coeff, n.Val)
		case *Pow:
			if e, ok := n.Exp.(*Num); ok && e.Val.Sign() < 0 {
				den = append(den, NewPow(n.Base, NewNum(new(big.Rat).Neg(e.Val))))
				continue
			}
			num = append(num, f)
		default:
			num = append(num, f)
		}
	}
	// Fold the rational coefficient's denominator into the printed divisor.
	if coeff.Denom().Cmp(bigOne) != 0 {
		den = append([]Expr{&Num{Val: new(big.Rat).SetInt(coeff.Denom())}}, den...)
		coeff = new(big.Rat).SetInt(coeff.Num())
	}

	var b strings.Builder
	switch {
	case len(num) == 0:
		b.WriteString(coeff.RatString())
	case coeff.Cmp(ratOne) == 0:
		b.WriteString(joinFactors(num))
	case coeff.Cmp(ratNegOne) == 0:
		b.WriteString("-" + joinFactors(num))
	default:
		b.WriteString(coeff.RatString() + "*" + joinFactors(num))
	}
	if len(den) > 0 {
		b.WriteString("/")
		if len(den) == 1 {
			b.WriteString(format(den[0], precPow))
		} else {
			b.WriteString("(" + joinFactors(den) + ")")
		}
	}
	s := b.String()
	if parent > precMul || (parent == precMul && strings.HasPrefix(s, "-")) {
		return "(" + s + ")"
	}
	return s
}

func joinFactors(fs []Expr) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = format(f, precMul+1)
	}
	return strings.Join(parts, "*")
}

func formatPow(p *Pow, parent int) string {
	if e, ok := p.Exp.(*Num); ok && e.Val.Sign() < 0 {
		// Standalone negative power prints as a quotient.
		inv := NewPow(p.Base, NewNum(new(big.Rat).Neg(e.Val)))
		s := "1/" + format(inv, precPow)
		if parent > precMul {
			return "(" + s + ")"
		}
		return s
	}
	if IsOne(p.Exp) {
		return format(p.Base, parent)
	}
	s := format(p.Base, precAtom) + "^" + format(p.Exp, precAtom)
	if parent > precPow {
		return "(" + s + ")"
	}
	return s
}

// sortedTerms orders sum terms canonically: descending polynomial degree,
// then by rendered monomial. Keeps output deterministic across runs.
func sortedTerms(terms []Expr) []Expr {
	out := make([]Expr, len(terms))
	copy(out, terms)
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := termDegree(out[i]), termDegree(out[j])
		if di != dj {
			return di > dj
		}
		_, ai := splitSign(out[i])
		_, aj := splitSign(out[j])
		return format(ai, precMul) < format(aj, precMul)
	})
	return out
}

// termDegree is the total integer degree of a term's symbol factors;
// non-polynomial factors count as zero.
func termDegree(e Expr) int {
	switch n := e.(type) {
	case *Sym:
		return 1
	case *Pow:
		if ex, ok := n.Exp.(*Num); ok && ex.Val.IsInt() {
			if _, isSym := n.Base.(*Sym); isSym {
				return int(ex.Val.Num().Int64())
			}
		}
		return 0
	case *Mul:
		d := 0
		for _, f := range n.Factors {
			d += termDegree(f)
		}
		return d
	default:
		return 0
	}
}

var bigOne = big.NewInt(1)
