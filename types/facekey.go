package types

import (
	"fmt"
	"math"
)

/*
FaceKey is an always positive number that stores the two global cell ids across a face in a way that can be
compared. A face between cells [4] and [0] is always stored as [0,4], so both sides of a coupled face compute the
same key without talking to each other.
*/
type FaceKey uint64

func NewFaceKey(cells [2]int) (packed FaceKey) {
	var (
		limit = math.MaxUint32
	)
	for _, cell := range cells {
		if cell < 0 || cell > limit {
			panic(fmt.Errorf("unable to pack two ints into a uint64, have %d and %d as inputs",
				cells[0], cells[1]))
		}
	}
	var i1, i2 int
	if cells[0] <= cells[1] {
		i1, i2 = cells[0], cells[1]
	} else {
		i1, i2 = cells[1], cells[0]
	}
	packed = FaceKey(i1 + i2<<32)
	return
}

// GetCells returns the cells in canonical order, lowest global id first, which is the left state of the face
func (fk FaceKey) GetCells(rev bool) (cells [2]int) {
	var (
		fkTmp FaceKey
	)
	fkTmp = fk >> 32
	cells[1] = int(fkTmp)
	cells[0] = int(fk - fkTmp*(1<<32))
	if rev {
		cells[0], cells[1] = cells[1], cells[0]
	}
	return
}

// IsLeft reports whether globalCell is the canonical left state of the face
func (fk FaceKey) IsLeft(globalCell int) bool {
	return fk.GetCells(false)[0] == globalCell
}
