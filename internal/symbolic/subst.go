package symbolic

// Subst returns e with every occurrence of symbol v replaced by repl.
// The result is not simplified.
func Subst(e Expr, v string, repl Expr) Expr {
	switch n := e.(type) {
	case *Num:
		return n
	case *Sym:
		if n.Name == v {
			return repl
		}
		return n
	case *Add:
		terms := make([]Expr, len(n.Terms))
		for i, t := range n.Terms {
			terms[i] = Subst(t, v, repl)
		}
		return &Add{Terms: terms}
	case *Mul:
		factors := make([]Expr, len(n.Factors))
		for i, f := range n.Factors {
			factors[i] = Subst(f, v, repl)
		}
		return &Mul{Factors: factors}
	case *Pow:
		return &Pow{Base: Subst(n.Base, v, repl), Exp: Subst(n.Exp, v, repl)}
	case *Call:
		return &Call{Fn: n.Fn, Arg: Subst(n.Arg, v, repl)}
	default:
		return e
	}
}
