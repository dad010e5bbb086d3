package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypes(t *testing.T) {
	{ // Test packed int for coupled face labeling
		fk := NewFaceKey([2]int{1, 0})
		assert.Equal(t, FaceKey(1<<32), fk)
		assert.Equal(t, [2]int{0, 1}, fk.GetCells(false))
		assert.Equal(t, [2]int{1, 0}, fk.GetCells(true))

		fk = NewFaceKey([2]int{0, 1})
		assert.Equal(t, FaceKey(1<<32), fk)

		fk = NewFaceKey([2]int{100, 1})
		assert.Equal(t, FaceKey(100*(1<<32)+1), fk)
		assert.Equal(t, [2]int{1, 100}, fk.GetCells(false))
		assert.True(t, fk.IsLeft(1))
		assert.False(t, fk.IsLeft(100))

		// Test maximum indices
		fk = NewFaceKey([2]int{1<<32 - 1, 1<<32 - 1})
		assert.Equal(t, FaceKey(1<<64-1), fk)
		assert.Equal(t, [2]int{1<<32 - 1, 1<<32 - 1}, fk.GetCells(false))

		assert.Panics(t, func() { NewFaceKey([2]int{-1, 2}) })
	}
	{
		tokens := []string{"WALL", "Cyclic", " periodic", "procBoundary", "out"}
		flags := []PatchType{PATCH_Wall, PATCH_Cyclic, PATCH_Cyclic, PATCH_Processor, PATCH_Out}
		for i, token := range tokens {
			assert.Equal(t, flags[i], NewPatchType(token))
		}
		assert.True(t, PATCH_Processor.IsCoupled())
		assert.True(t, PATCH_Cyclic.IsCoupled())
		assert.False(t, PATCH_Wall.IsCoupled())
		assert.Equal(t, "Processor", PATCH_Processor.String())
		assert.Panics(t, func() { NewPatchType("mirror") })
	}
	{ // Algebra
		var (
			sa ScalarAlgebra
			va VectorAlgebra
		)
		assert.Equal(t, 3., sa.Add(1, 2))
		assert.Equal(t, -1., sa.Sub(1, 2))
		assert.Equal(t, 4., sa.Scale(2, 2))
		assert.Equal(t, 0.25, Lerp[float64](sa, 0.25, 1, 0))
		v := va.Add(Vector{1, 2, 3}, Vector{1, 1, 1})
		assert.Equal(t, Vector{2, 3, 4}, v)
		assert.Equal(t, Vector{1, 1.5, 2}, va.Scale(v, 0.5))
		assert.Equal(t, 3., va.Component(v, 1))
		assert.Equal(t, Vector{2, 7, 4}, va.SetComponent(v, 1, 7))
		assert.Equal(t, Vector{2, 3, 4}, v)
		assert.Equal(t, Vector{1.5, 2.5, 3.5}, Lerp[Vector](va, 0.5, v, Vector{1, 2, 3}))
	}
	{
		s := make([]int, 2, 2)
		s = GrowSlice(s, 10)
		assert.Equal(t, 2, len(s))
		assert.Equal(t, 10, cap(s))
	}
}
