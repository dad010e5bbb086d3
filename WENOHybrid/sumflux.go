package WENOHybrid

import (
	"fmt"

	"github.com/notargets/wenohybrid/types"
	"github.com/notargets/wenohybrid/weno"
)

// SumFlux evaluates sum_n coeffs[n] * intBasis[n1][n2][n3] over the exponents with 0 < n1+n2+n3 <= polOrder and
// n_i <= dim[i], visiting n1 outermost. The coefficients are consumed in that order.
func SumFlux[T any](alg types.Algebra[T], dim [3]int, polOrder int, coeffs []T,
	intBasis weno.VolIntegral) (flux T, err error) {
	var (
		n int
	)
	flux = alg.Zero()
	if polOrder < 1 || polOrder > weno.MaxPolynomialOrder {
		err = fmt.Errorf("order %d outside [1,%d]: %w", polOrder, weno.MaxPolynomialOrder, ErrUnsupportedOrder)
		return
	}
	if len(intBasis) < dim[0]+1 {
		err = fmt.Errorf("basis table has %d rows, need %d: %w", len(intBasis), dim[0]+1, ErrCoefficientCount)
		return
	}
	for n1 := 0; n1 <= dim[0]; n1++ {
		if len(intBasis[n1]) < dim[1]+1 {
			err = fmt.Errorf("basis table row %d too short: %w", n1, ErrCoefficientCount)
			return
		}
		for n2 := 0; n2 <= dim[1]; n2++ {
			if len(intBasis[n1][n2]) < dim[2]+1 {
				err = fmt.Errorf("basis table row %d,%d too short: %w", n1, n2, ErrCoefficientCount)
				return
			}
			for n3 := 0; n3 <= dim[2]; n3++ {
				if order := n1 + n2 + n3; order == 0 || order > polOrder {
					continue
				}
				if n >= len(coeffs) {
					err = fmt.Errorf("%d coefficients for order %d: %w", len(coeffs), polOrder, ErrCoefficientCount)
					return
				}
				flux = alg.Add(flux, alg.Scale(coeffs[n], intBasis[n1][n2][n3]))
				n++
			}
		}
	}
	if n != len(coeffs) {
		err = fmt.Errorf("%d coefficients, basis uses %d: %w", len(coeffs), n, ErrCoefficientCount)
	}
	return
}
