package mesh

import (
	"fmt"

	"github.com/notargets/wenohybrid/types"
	"github.com/notargets/wenohybrid/utils"
)

// NewLine1D builds a line of len(x)-1 cells between the nodes x, which must be strictly increasing. A periodic line
// joins its two ends with a pair of cyclic patches, otherwise the ends are an inlet and an outlet.
func NewLine1D(x []float64, periodic bool) (m *Mesh, err error) {
	var (
		K = len(x) - 1
	)
	switch {
	case K < 1:
		err = fmt.Errorf("need at least one cell, have %d nodes", len(x))
		return
	case periodic && K < 3:
		err = fmt.Errorf("need at least 3 cells for a periodic line, have %d", K)
		return
	}
	for i := 0; i < K; i++ {
		if !(x[i+1]-x[i] > utils.NODETOL) {
			err = fmt.Errorf("node coordinates must increase, x[%d]=%g x[%d]=%g", i, x[i], i+1, x[i+1])
			return
		}
	}
	m = &Mesh{
		Dim:          1,
		NOwned:       K,
		GlobalNCells: K,
		Cells:        make([]Cell, K),
		Neighbours:   make([][]Neighbour, K),
		NInternal:    K - 1,
	}
	for k := 0; k < K; k++ {
		m.Cells[k] = Cell{
			Centre: types.Vector{0.5 * (x[k] + x[k+1])},
			Volume: x[k+1] - x[k],
			Global: k,
		}
	}
	xc := func(k int) float64 { return m.Cells[k].Centre[0] }
	for f := 0; f < K-1; f++ {
		dP, dN := x[f+1]-xc(f), xc(f+1)-x[f+1]
		m.Faces = append(m.Faces, Face{
			Owner:     f,
			Neighbour: f + 1,
			Centre:    types.Vector{x[f+1]},
			Normal:    types.Vector{1},
			Area:      1,
			Weight:    dN / (dP + dN),
			Global:    f,
		})
	}
	leftFace := Face{Owner: 0, Neighbour: -1, Centre: types.Vector{x[0]}, Normal: types.Vector{-1}, Area: 1, Weight: 1,
		Global: K - 1}
	rightFace := Face{Owner: K - 1, Neighbour: -1, Centre: types.Vector{x[K]}, Normal: types.Vector{1}, Area: 1,
		Weight: 1, Global: K}
	length := x[K] - x[0]
	if periodic {
		var (
			d0, dK = xc(0) - x[0], x[K] - xc(K-1)
			key    = types.NewFaceKey([2]int{0, K - 1})
			w      = dK / (d0 + dK)
		)
		leftFace.Weight, rightFace.Weight = w, 1-w
		m.Faces = append(m.Faces, leftFace, rightFace)
		m.Patches = []Patch{
			{Name: "left", Type: types.PATCH_Cyclic, Start: K - 1, Size: 1, Coupled: []CoupledFace{
				{RemoteCell: K - 1, RemoteGlobal: K - 1, Key: key, Weight: w, LocalIsLeft: true}}},
			{Name: "right", Type: types.PATCH_Cyclic, Start: K, Size: 1, Coupled: []CoupledFace{
				{RemoteCell: 0, RemoteGlobal: 0, Key: key, Weight: w, LocalIsLeft: false}}},
		}
	} else {
		m.Faces = append(m.Faces, leftFace, rightFace)
		m.Patches = []Patch{
			{Name: "left", Type: types.PATCH_In, Start: K - 1, Size: 1},
			{Name: "right", Type: types.PATCH_Out, Start: K, Size: 1},
		}
	}
	// Left neighbour first, periodic images are shifted by the line length
	for k := 0; k < K; k++ {
		switch {
		case k > 0:
			m.Neighbours[k] = append(m.Neighbours[k], Neighbour{Cell: k - 1, Delta: types.Vector{xc(k-1) - xc(k)}})
		case periodic:
			m.Neighbours[k] = append(m.Neighbours[k],
				Neighbour{Cell: K - 1, Delta: types.Vector{(xc(K-1) - length) - xc(k)}})
		}
		switch {
		case k < K-1:
			m.Neighbours[k] = append(m.Neighbours[k], Neighbour{Cell: k + 1, Delta: types.Vector{xc(k+1) - xc(k)}})
		case periodic:
			m.Neighbours[k] = append(m.Neighbours[k],
				Neighbour{Cell: 0, Delta: types.Vector{(xc(0) + length) - xc(k)}})
		}
	}
	return
}

func NewUniformLine1D(xmin, xmax float64, K int, periodic bool) (m *Mesh, err error) {
	if K < 1 || !(xmax > xmin) {
		err = fmt.Errorf("invalid line [%g,%g] with %d cells", xmin, xmax, K)
		return
	}
	x := make([]float64, K+1)
	for i := range x {
		x[i] = xmin + (xmax-xmin)*float64(i)/float64(K)
	}
	x[K] = xmax
	return NewLine1D(x, periodic)
}
