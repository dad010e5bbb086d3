package mesh

import (
	"fmt"

	"github.com/notargets/wenohybrid/types"
	"github.com/notargets/wenohybrid/utils"
)

type Cell struct {
	Centre types.Vector
	Volume float64
	Global int
}

type Face struct {
	Owner, Neighbour int          // Neighbour is -1 on patch faces
	Centre           types.Vector // Face centroid
	Normal           types.Vector // Unit normal pointing out of the owner
	Area             float64
	Weight           float64 // Linear interpolation weight of the owner, dN/(dP+dN)
	Global           int
}

// CoupledFace is the far side of a face on a cyclic or processor patch
type CoupledFace struct {
	RemoteCell   int // Local index of the halo copy of the remote cell, -1 when not held
	RemoteGlobal int
	RemoteRank   int
	Key          types.FaceKey
	Weight       float64 // Linear weight of the lower numbered (left) cell
	LocalIsLeft  bool
}

type Patch struct {
	Name        string
	Type        types.PatchType
	Start, Size int
	Coupled     []CoupledFace // One per patch face on coupled patches
}

func (p *Patch) Faces() (start, end int) {
	return p.Start, p.Start + p.Size
}

type Neighbour struct {
	Cell  int
	Delta types.Vector // Displacement from the cell centre to the neighbour centre
}

// Mesh is the immutable topology of one partition. Cells [0,NOwned) are owned, the rest are halo copies of cells
// owned by other partitions. Faces [0,NInternal) are internal, ordered, with the owner numbered below the neighbour;
// patch faces follow in patch order.
type Mesh struct {
	Dim          int
	Rank         int
	NOwned       int
	HaloDepth    int
	GlobalNCells int
	Cells        []Cell
	Faces        []Face
	NInternal    int
	Patches      []Patch
	Neighbours   [][]Neighbour
}

func (m *Mesh) NCells() int { return len(m.Cells) }

func (m *Mesh) NFaces() int { return len(m.Faces) }

// PatchOf returns the patch holding face and the index of the face within it
func (m *Mesh) PatchOf(face int) (p *Patch, i int) {
	for n := range m.Patches {
		pp := &m.Patches[n]
		if face >= pp.Start && face < pp.Start+pp.Size {
			return pp, face - pp.Start
		}
	}
	return nil, -1
}

func (m *Mesh) NCoupledFaces() (n int) {
	for _, p := range m.Patches {
		if p.Type.IsCoupled() {
			n += p.Size
		}
	}
	return
}

func (m *Mesh) Validate() (err error) {
	if m.NOwned > len(m.Cells) {
		err = fmt.Errorf("owned cell count %d exceeds cell count %d", m.NOwned, len(m.Cells))
		return
	}
	if len(m.Neighbours) != len(m.Cells) {
		err = fmt.Errorf("neighbour lists for %d cells, mesh has %d", len(m.Neighbours), len(m.Cells))
		return
	}
	for c, cell := range m.Cells {
		if cell.Volume <= 0 {
			err = fmt.Errorf("cell %d has non positive volume %g", c, cell.Volume)
			return
		}
	}
	for f := 0; f < m.NInternal; f++ {
		face := m.Faces[f]
		if face.Owner < 0 || face.Owner >= m.NOwned || face.Neighbour < 0 || face.Neighbour >= m.NOwned {
			err = fmt.Errorf("internal face %d connects cells %d and %d, owned cells are [0,%d)",
				f, face.Owner, face.Neighbour, m.NOwned)
			return
		}
		if m.Cells[face.Owner].Global >= m.Cells[face.Neighbour].Global {
			err = fmt.Errorf("internal face %d owner %d is not numbered below neighbour %d",
				f, m.Cells[face.Owner].Global, m.Cells[face.Neighbour].Global)
			return
		}
		if face.Weight < 0 || face.Weight > 1 {
			err = fmt.Errorf("internal face %d weight %g outside [0,1]", f, face.Weight)
			return
		}
	}
	next := m.NInternal
	for _, p := range m.Patches {
		if p.Start != next {
			err = fmt.Errorf("patch %s starts at face %d, expected %d", p.Name, p.Start, next)
			return
		}
		next += p.Size
		if p.Type.IsCoupled() && len(p.Coupled) != p.Size {
			err = fmt.Errorf("coupled patch %s has %d coupled records for %d faces", p.Name, len(p.Coupled), p.Size)
			return
		}
		for i, cf := range p.Coupled {
			face := m.Faces[p.Start+i]
			if face.Owner < 0 || face.Owner >= m.NOwned {
				err = fmt.Errorf("patch %s face %d has owner %d outside the owned cells", p.Name, i, face.Owner)
				return
			}
			if cf.RemoteCell >= len(m.Cells) || cf.Weight < 0 || cf.Weight > 1 {
				err = fmt.Errorf("patch %s face %d has invalid coupling %+v", p.Name, i, cf)
				return
			}
			if cf.Key != types.NewFaceKey([2]int{m.Cells[face.Owner].Global, cf.RemoteGlobal}) {
				err = fmt.Errorf("patch %s face %d key does not match its cells", p.Name, i)
				return
			}
		}
	}
	if next != len(m.Faces) {
		err = fmt.Errorf("patches cover faces up to %d, mesh has %d", next, len(m.Faces))
	}
	return
}

// InterpolationOperator returns the faces x cells operator of the linear interpolation. Coupled faces use the
// held copy of the remote cell, rows of faces without one only carry the owner.
func (m *Mesh) InterpolationOperator() utils.CSR {
	A := utils.NewDOK(m.NFaces(), m.NCells())
	for f := 0; f < m.NInternal; f++ {
		face := m.Faces[f]
		A.AddAt(f, face.Owner, face.Weight)
		A.AddAt(f, face.Neighbour, 1-face.Weight)
	}
	for _, p := range m.Patches {
		for i := 0; i < p.Size; i++ {
			f := p.Start + i
			face := m.Faces[f]
			if !p.Type.IsCoupled() || p.Coupled[i].RemoteCell < 0 {
				A.AddAt(f, face.Owner, 1)
				continue
			}
			A.AddAt(f, face.Owner, face.Weight)
			A.AddAt(f, p.Coupled[i].RemoteCell, 1-face.Weight)
		}
	}
	return A.SetReadOnly("InterpolationOperator").ToCSR()
}
