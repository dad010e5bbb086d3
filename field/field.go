package field

import (
	"fmt"

	"github.com/notargets/wenohybrid/mesh"
)

// VolField holds one value per cell, owned cells first followed by the halo cells
type VolField[T any] struct {
	Name   string
	Values []T
}

func NewVolField[T any](name string, m *mesh.Mesh) *VolField[T] {
	return &VolField[T]{Name: name, Values: make([]T, m.NCells())}
}

func (vf *VolField[T]) Len() int { return len(vf.Values) }

// SurfaceField holds one value per face, internal faces first followed by the patch faces
type SurfaceField[T any] struct {
	Name   string
	Values []T
}

func NewSurfaceField[T any](name string, m *mesh.Mesh) *SurfaceField[T] {
	return &SurfaceField[T]{Name: name, Values: make([]T, m.NFaces())}
}

func (sf *SurfaceField[T]) Len() int { return len(sf.Values) }

// Restrict builds the field of a partition, owned and halo cells, from the field of the unsplit mesh
func Restrict[T any](global *VolField[T], part *mesh.Mesh) (vf *VolField[T], err error) {
	vf = NewVolField[T](global.Name, part)
	for l, cell := range part.Cells {
		if cell.Global < 0 || cell.Global >= global.Len() {
			err = fmt.Errorf("cell %d of partition %d has global id %d outside field %s of length %d",
				l, part.Rank, cell.Global, global.Name, global.Len())
			return
		}
		vf.Values[l] = global.Values[cell.Global]
	}
	return
}

// Gather collects the owned values of partition fields into a field on the unsplit mesh
func Gather[T any](parts []*mesh.Mesh, fields []*VolField[T]) (global *VolField[T], err error) {
	if len(parts) != len(fields) || len(parts) == 0 {
		err = fmt.Errorf("have %d partitions and %d fields", len(parts), len(fields))
		return
	}
	global = &VolField[T]{Name: fields[0].Name, Values: make([]T, parts[0].GlobalNCells)}
	for r, p := range parts {
		if fields[r].Len() != p.NCells() {
			err = fmt.Errorf("field %s on partition %d has %d values for %d cells",
				fields[r].Name, r, fields[r].Len(), p.NCells())
			return
		}
		for l := 0; l < p.NOwned; l++ {
			global.Values[p.Cells[l].Global] = fields[r].Values[l]
		}
	}
	return
}
