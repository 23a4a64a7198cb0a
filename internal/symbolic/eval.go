package symbolic

import (
	"fmt"
	"math"
	"math/cmplx"
)

const evalZeroTol = 1e-300

// Eval numerically evaluates e over complex numbers with the given variable
// bindings. The constants pi and e are bound implicitly unless overridden.
func Eval(e Expr, env map[string]complex128) (complex128, error) {
	switch n := e.(type) {
	case *Num:
		f, _ := n.Val.Float64()
		return complex(f, 0), nil
	case *Sym:
		if v, ok := env[n.Name]; ok {
			return v, nil
		}
		switch n.Name {
		case "pi":
			return complex(math.Pi, 0), nil
		case "e":
			return complex(math.E, 0), nil
		}
		return 0, fmt.Errorf("unbound symbol %q", n.Name)
	case *Add:
		var sum complex128
		for _, t := range n.Terms {
			v, err := Eval(t, env)
			if err != nil {
				return 0, err
			}
			sum += v
		}
		return sum, nil
	case *Mul:
		prod := complex(1, 0)
		for _, f := range n.Factors {
			v, err := Eval(f, env)
			if err != nil {
				return 0, err
			}
			prod *= v
		}
		return prod, nil
	case *Pow:
		base, err := Eval(n.Base, env)
		if err != nil {
			return 0, err
		}
		exp, err := Eval(n.Exp, env)
		if err != nil {
			return 0, err
		}
		if cmplx.Abs(base) < evalZeroTol && real(exp) < 0 {
			return 0, ErrDivisionByZero
		}
		return cmplx.Pow(base, exp), nil
	case *Call:
		arg, err := Eval(n.Arg, env)
		if err != nil {
			return 0, err
		}
		switch n.Fn {
		case "sin":
			return cmplx.Sin(arg), nil
		case "cos":
			return cmplx.Cos(arg), nil
		case "tan":
			return cmplx.Tan(arg), nil
		case "exp":
			return cmplx.Exp(arg), nil
		case "ln":
			if cmplx.Abs(arg) < evalZeroTol {
				return 0, fmt.Errorf("ln of zero")
			}
			return cmplx.Log(arg), nil
		case "sqrt":
			return cmplx.Sqrt(arg), nil
		default:
			return 0, fmt.Errorf("unknown function %q", n.Fn)
		}
	default:
		return 0, fmt.Errorf("cannot evaluate %T", e)
	}
}

// EvalReal evaluates e at a real point and reports an error when the result
// has a significant imaginary component.
func EvalReal(e Expr, env map[string]float64) (float64, error) {
	cenv := make(map[string]complex128, len(env))
	for k, v := range env {
		cenv[k] = complex(v, 0)
	}
	v, err := Eval(e, cenv)
	if err != nil {
		return 0, err
	}
	if math.Abs(imag(v)) > 1e-9*(1+math.Abs(real(v))) {
		return 0, fmt.Errorf("non-real value %v", v)
	}
	return real(v), nil
}
