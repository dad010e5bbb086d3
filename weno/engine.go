package weno

import (
	"github.com/notargets/wenohybrid/field"
)

const MaxPolynomialOrder = 6

// VolIntegral is a table of basis function integrals indexed by the polynomial exponent in each direction
type VolIntegral [][][]float64

func NewVolIntegral(dim [3]int) (vi VolIntegral) {
	vi = make(VolIntegral, dim[0]+1)
	for n1 := range vi {
		vi[n1] = make([][]float64, dim[1]+1)
		for n2 := range vi[n1] {
			vi[n1][n2] = make([]float64, dim[2]+1)
		}
	}
	return
}

// Reconstruction is the weighted polynomial of every owned cell for one field snapshot. Coeffs are ordered the way
// the exponents (n1, n2, n3) are visited, n1 outermost, skipping the constant term.
type Reconstruction[T any] struct {
	Coeffs         [][]T
	StencilWeights [][]float64 // Normalised nonlinear weights of the candidate stencils
	LinearWeights  [][]float64 // Normalised linear weights of the same stencils
}

type Engine[T any] interface {
	PolOrder() int
	Dim() [3]int
	StencilRadius() int // Cell layers reached by a stencil, the halo depth a partition needs
	Reconstruct(vf *field.VolField[T]) (*Reconstruction[T], error)
	FaceIntegrals(cell, face int) VolIntegral // Basis evaluated at face as seen from cell, nil if cell is not on face
}
