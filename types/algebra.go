package types

// Vector is the value type of a three component vector field
type Vector [3]float64

// Algebra carries the arithmetic of a field value type, so the interpolation code can be written once for
// scalar and vector fields. Component access is used wherever a value has to be bounded component by component.
type Algebra[T any] interface {
	Zero() T
	Add(a, b T) T
	Sub(a, b T) T
	Scale(a T, s float64) T
	NComponents() int
	Component(a T, d int) float64
	SetComponent(a T, d int, val float64) T
}

type ScalarAlgebra struct{}

func (ScalarAlgebra) Zero() float64                                    { return 0 }
func (ScalarAlgebra) Add(a, b float64) float64                         { return a + b }
func (ScalarAlgebra) Sub(a, b float64) float64                         { return a - b }
func (ScalarAlgebra) Scale(a, s float64) float64                       { return a * s }
func (ScalarAlgebra) NComponents() int                                 { return 1 }
func (ScalarAlgebra) Component(a float64, _ int) float64               { return a }
func (ScalarAlgebra) SetComponent(_ float64, _ int, v float64) float64 { return v }

type VectorAlgebra struct{}

func (VectorAlgebra) Zero() Vector { return Vector{} }

func (VectorAlgebra) Add(a, b Vector) (c Vector) {
	for d := 0; d < 3; d++ {
		c[d] = a[d] + b[d]
	}
	return
}

func (VectorAlgebra) Sub(a, b Vector) (c Vector) {
	for d := 0; d < 3; d++ {
		c[d] = a[d] - b[d]
	}
	return
}

func (VectorAlgebra) Scale(a Vector, s float64) (c Vector) {
	for d := 0; d < 3; d++ {
		c[d] = a[d] * s
	}
	return
}

func (VectorAlgebra) NComponents() int                  { return 3 }
func (VectorAlgebra) Component(a Vector, d int) float64 { return a[d] }

func (VectorAlgebra) SetComponent(a Vector, d int, val float64) Vector {
	a[d] = val
	return a
}

// Lerp returns w*a + (1-w)*b, evaluated the same way for every caller so that two partitions computing the same
// face agree to the last bit.
func Lerp[T any](alg Algebra[T], w float64, a, b T) T {
	return alg.Add(alg.Scale(a, w), alg.Scale(b, 1.-w))
}
