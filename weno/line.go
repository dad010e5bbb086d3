package weno

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/wenohybrid/field"
	"github.com/notargets/wenohybrid/mesh"
	"github.com/notargets/wenohybrid/types"
	"github.com/notargets/wenohybrid/utils"
)

type stencil struct {
	cells  []int      // The p cells of the window other than the centre cell
	pinv   *mat.Dense // p x p, maps the cell average differences to the coefficients
	linear float64
}

// LineEngine reconstructs cell averages on a one dimensional mesh. The basis of cell c is
// psi_n(xi) = xi^n - <xi^n>_c with xi = (x-x_c)/h_c, the candidate stencils are the p+1 windows of p+1 cells that
// contain c, and the stencils are blended with the Jiang-Shu weights gamma/(eps+beta)^r.
// eps = Epsilon + EpsilonScale*h_c^2 keeps smooth extrema, where the one sided differences fall to O(h^2), from
// looking like a jump.
type LineEngine[T any] struct {
	Epsilon       float64
	EpsilonScale  float64
	Power         int
	CentralWeight float64 // Linear weight of the centred stencils, the others get 1
	m             *mesh.Mesh
	alg           types.Algebra[T]
	polOrder      int
	stencils      [][]stencil
	smooth        *mat.Dense
	faceTables    [][2]VolIntegral
}

func NewLineEngine[T any](m *mesh.Mesh, alg types.Algebra[T], polOrder int) (le *LineEngine[T], err error) {
	if m.Dim != 1 {
		err = fmt.Errorf("line engine needs a one dimensional mesh, have dimension %d", m.Dim)
		return
	}
	if polOrder < 1 || polOrder > MaxPolynomialOrder {
		err = fmt.Errorf("polynomial order %d outside [1,%d]", polOrder, MaxPolynomialOrder)
		return
	}
	le = &LineEngine[T]{
		Epsilon:       1.e-10,
		EpsilonScale:  10,
		Power:         4,
		CentralWeight: 1000,
		m:             m,
		alg:           alg,
		polOrder:      polOrder,
		stencils:      make([][]stencil, m.NOwned),
		faceTables:    make([][2]VolIntegral, m.NFaces()),
	}
	le.smooth = smoothnessMatrix(polOrder)
	for c := 0; c < m.NOwned; c++ {
		le.stencils[c] = le.buildStencils(c)
		if len(le.stencils[c]) == 0 {
			err = fmt.Errorf("cell %d has no complete stencil of %d cells", c, polOrder+1)
			return
		}
	}
	for f, face := range m.Faces {
		le.faceTables[f][0] = le.faceTable(face.Owner, face.Centre)
		if face.Neighbour >= 0 {
			le.faceTables[f][1] = le.faceTable(face.Neighbour, face.Centre)
		}
	}
	log.WithFields(log.Fields{
		"order": polOrder,
		"cells": m.NOwned,
	}).Debug("line engine ready")
	return
}

func (le *LineEngine[T]) PolOrder() int      { return le.polOrder }
func (le *LineEngine[T]) Dim() [3]int        { return [3]int{le.polOrder, 0, 0} }
func (le *LineEngine[T]) StencilRadius() int { return le.polOrder }

func (le *LineEngine[T]) FaceIntegrals(cell, face int) VolIntegral {
	switch cell {
	case le.m.Faces[face].Owner:
		return le.faceTables[face][0]
	case le.m.Faces[face].Neighbour:
		return le.faceTables[face][1]
	}
	return nil
}

func (le *LineEngine[T]) Reconstruct(vf *field.VolField[T]) (rec *Reconstruction[T], err error) {
	var (
		p   = le.polOrder
		alg = le.alg
		nc  = alg.NComponents()
	)
	if vf.Len() != le.m.NCells() {
		err = fmt.Errorf("field %s has %d values for %d cells", vf.Name, vf.Len(), le.m.NCells())
		return
	}
	rec = &Reconstruction[T]{
		Coeffs:         make([][]T, le.m.NOwned),
		StencilWeights: make([][]float64, le.m.NOwned),
		LinearWeights:  make([][]float64, le.m.NOwned),
	}
	comp := make([]float64, p)
	for c := 0; c < le.m.NOwned; c++ {
		var (
			sts    = le.stencils[c]
			phiC   = vf.Values[c]
			h      = le.m.Cells[c].Volume
			eps    = le.Epsilon + le.EpsilonScale*h*h
			coeffs = make([][]T, len(sts))
			omega  = make([]float64, len(sts))
			gamma  = make([]float64, len(sts))
		)
		for s, st := range sts {
			coeffs[s] = make([]T, p)
			for n := 0; n < p; n++ {
				a := alg.Zero()
				for j, cell := range st.cells {
					a = alg.Add(a, alg.Scale(alg.Sub(vf.Values[cell], phiC), st.pinv.At(n, j)))
				}
				coeffs[s][n] = a
			}
			var beta float64
			for d := 0; d < nc; d++ {
				for n := 0; n < p; n++ {
					comp[n] = alg.Component(coeffs[s][n], d)
				}
				v := mat.NewVecDense(p, comp)
				beta += mat.Inner(v, le.smooth, v)
			}
			gamma[s] = st.linear
			omega[s] = st.linear / utils.POW(eps+beta, le.Power)
		}
		floats.Scale(1/floats.Sum(gamma), gamma)
		if sum := floats.Sum(omega); sum > 0 && !math.IsInf(sum, 0) && !math.IsNaN(sum) {
			floats.Scale(1/sum, omega)
		} else {
			copy(omega, gamma)
		}
		rec.Coeffs[c] = make([]T, p)
		for n := 0; n < p; n++ {
			a := alg.Zero()
			for s := range sts {
				a = alg.Add(a, alg.Scale(coeffs[s][n], omega[s]))
			}
			rec.Coeffs[c][n] = a
		}
		rec.StencilWeights[c], rec.LinearWeights[c] = omega, gamma
	}
	return
}

// walk returns up to p cells stepping from c in direction dir, with their centre offsets from c
func (le *LineEngine[T]) walk(c, dir int) (cells []int, offsets []float64) {
	var (
		cur    = c
		offset float64
	)
	for len(cells) < le.polOrder {
		next := -1
		for _, nb := range le.m.Neighbours[cur] {
			if float64(dir)*nb.Delta[0] > 0 {
				next = nb.Cell
				offset += nb.Delta[0]
				break
			}
		}
		if next < 0 {
			return
		}
		cells = append(cells, next)
		offsets = append(offsets, offset)
		cur = next
	}
	return
}

func (le *LineEngine[T]) buildStencils(c int) (sts []stencil) {
	var (
		p                    = le.polOrder
		h                    = le.m.Cells[c].Volume
		lefts, leftOffsets   = le.walk(c, -1)
		rights, rightOffsets = le.walk(c, 1)
	)
	for s := 0; s <= p; s++ {
		nl, nr := p-s, s
		if nl > len(lefts) || nr > len(rights) {
			continue
		}
		var (
			cells   = make([]int, 0, p)
			offsets = make([]float64, 0, p)
		)
		cells = append(cells, lefts[:nl]...)
		offsets = append(offsets, leftOffsets[:nl]...)
		cells = append(cells, rights[:nr]...)
		offsets = append(offsets, rightOffsets[:nr]...)
		A := mat.NewDense(p, p, nil)
		for j, cell := range cells {
			var (
				hj     = le.m.Cells[cell].Volume
				lo, hi = (offsets[j] - 0.5*hj) / h, (offsets[j] + 0.5*hj) / h
			)
			for n := 1; n <= p; n++ {
				A.Set(j, n-1, cellAverage(lo, hi, n)-cellAverage(-0.5, 0.5, n))
			}
		}
		var pinv mat.Dense
		if err := pinv.Inverse(A); err != nil {
			log.WithFields(log.Fields{"cell": c, "stencil": s}).Debugf("dropping stencil: %v", err)
			continue
		}
		st := stencil{cells: cells, pinv: &pinv, linear: 1}
		if 2*s-p <= 1 && p-2*s <= 1 {
			st.linear = le.CentralWeight
		}
		sts = append(sts, st)
	}
	return
}

func (le *LineEngine[T]) faceTable(cell int, faceCentre types.Vector) (vi VolIntegral) {
	var (
		xi = (faceCentre[0] - le.m.Cells[cell].Centre[0]) / le.m.Cells[cell].Volume
	)
	vi = NewVolIntegral(le.Dim())
	for n := 1; n <= le.polOrder; n++ {
		vi[n][0][0] = utils.POW(xi, n) - cellAverage(-0.5, 0.5, n)
	}
	return
}

// cellAverage is the mean of xi^n over [lo,hi]
func cellAverage(lo, hi float64, n int) float64 {
	return (utils.POW(hi, n+1) - utils.POW(lo, n+1)) / (float64(n+1) * (hi - lo))
}

// smoothnessMatrix is B with beta = a^T B a = sum over l of the integral of (d^l p / dxi^l)^2 on [-1/2,1/2]
func smoothnessMatrix(p int) (B *mat.Dense) {
	B = mat.NewDense(p, p, nil)
	falling := func(n, l int) (f float64) {
		f = 1
		for i := 0; i < l; i++ {
			f *= float64(n - i)
		}
		return
	}
	for n := 1; n <= p; n++ {
		for m := 1; m <= p; m++ {
			var sum float64
			for l := 1; l <= n && l <= m; l++ {
				k := n - l + m - l
				if k%2 == 0 {
					sum += falling(n, l) * falling(m, l) * 2 * utils.POW(0.5, k+1) / float64(k+1)
				}
			}
			B.Set(n-1, m-1, sum)
		}
	}
	return
}
