package solver

import (
	"errors"
	"math/big"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// realTol is the imaginary-part tolerance below which a numeric root is
// treated as real.
const realTol = 1e-8

// numericRoots finds all roots of the polynomial with the given rational
// coefficients (index = degree) via the eigenvalues of its companion matrix.
func numericRoots(coeffs []*big.Rat) ([]complex128, error) {
	n := len(coeffs) - 1
	if n < 1 {
		return nil, errors.New("polynomial has no roots")
	}
	c := make([]float64, len(coeffs))
	for i, r := range coeffs {
		c[i], _ = r.Float64()
	}
	if c[n] == 0 {
		return nil, errors.New("leading coefficient is zero")
	}

	a := mat.NewDense(n, n, nil)
	for i := 1; i < n; i++ {
		a.Set(i, i-1, 1)
	}
	for i := 0; i < n; i++ {
		a.Set(i, n-1, -c[i]/c[n])
	}

	var eig mat.Eigen
	if ok := eig.Factorize(a, mat.EigenNone); !ok {
		return nil, errors.New("companion matrix eigendecomposition failed")
	}
	roots := eig.Values(nil)
	sortRoots(roots)
	return roots, nil
}

// sortRoots orders roots canonically: ascending real part, then ascending
// imaginary part.
func sortRoots(roots []complex128) {
	sort.Slice(roots, func(i, j int) bool {
		if real(roots[i]) != real(roots[j]) {
			return real(roots[i]) < real(roots[j])
		}
		return imag(roots[i]) < imag(roots[j])
	})
}

// realRoots filters numeric roots down to their real parts, dropping
// conjugate pairs with significant imaginary components.
func realRoots(roots []complex128) []float64 {
	var out []float64
	for _, r := range roots {
		if abs(imag(r)) <= realTol*(1+abs(real(r))) {
			out = append(out, real(r))
		}
	}
	return out
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
