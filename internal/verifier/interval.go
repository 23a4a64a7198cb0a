package verifier

import (
	"fmt"
	"strings"
)

// interval is one component of a rendered solution set such as
// "(-inf, -1] U {1} U [3, inf)".
type interval struct {
	lo, hi             float64
	loInf, hiInf       bool
	loClosed, hiClosed bool
	point              bool
}

func parseIntervalUnion(s string) ([]interval, error) {
	var out []interval
	for _, part := range strings.Split(s, " U ") {
		iv, err := parseInterval(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, nil
}

func parseInterval(s string) (interval, error) {
	if len(s) < 3 {
		return interval{}, fmt.Errorf("malformed interval %q", s)
	}
	if s[0] == '{' && s[len(s)-1] == '}' {
		v, err := evalConstant(s[1 : len(s)-1])
		if err != nil {
			return interval{}, fmt.Errorf("malformed point %q: %w", s, err)
		}
		return interval{lo: v, hi: v, point: true}, nil
	}

	var iv interval
	switch s[0] {
	case '(':
	case '[':
		iv.loClosed = true
	default:
		return interval{}, fmt.Errorf("malformed interval %q", s)
	}
	switch s[len(s)-1] {
	case ')':
	case ']':
		iv.hiClosed = true
	default:
		return interval{}, fmt.Errorf("malformed interval %q", s)
	}

	bounds := strings.Split(s[1:len(s)-1], ",")
	if len(bounds) != 2 {
		return interval{}, fmt.Errorf("malformed interval %q", s)
	}
	lo, hi := strings.TrimSpace(bounds[0]), strings.TrimSpace(bounds[1])

	if lo == "-inf" {
		iv.loInf = true
	} else {
		v, err := evalConstant(lo)
		if err != nil {
			return interval{}, fmt.Errorf("malformed lower bound %q: %w", lo, err)
		}
		iv.lo = v
	}
	if hi == "inf" {
		iv.hiInf = true
	} else {
		v, err := evalConstant(hi)
		if err != nil {
			return interval{}, fmt.Errorf("malformed upper bound %q: %w", hi, err)
		}
		iv.hi = v
	}
	return iv, nil
}

// interiorSamples returns points strictly inside the interval.
func (iv interval) interiorSamples() []float64 {
	switch {
	case iv.point:
		return nil
	case iv.loInf && iv.hiInf:
		return []float64{-1, 0, 1}
	case iv.loInf:
		return []float64{iv.hi - 1, iv.hi - 0.25}
	case iv.hiInf:
		return []float64{iv.lo + 0.25, iv.lo + 1}
	default:
		mid := (iv.lo + iv.hi) / 2
		return []float64{mid}
	}
}

// closedEndpoints returns the finite boundary values the solution set claims
// to include exactly.
func (iv interval) closedEndpoints() []float64 {
	if iv.point {
		return []float64{iv.lo}
	}
	var out []float64
	if iv.loClosed && !iv.loInf {
		out = append(out, iv.lo)
	}
	if iv.hiClosed && !iv.hiInf {
		out = append(out, iv.hi)
	}
	return out
}
