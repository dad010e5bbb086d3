package WENOHybrid

import (
	"math"

	"github.com/notargets/wenohybrid/weno"
)

// Sensor maps a reconstruction to a discontinuity indicator in [0,1] per owned cell
type Sensor[T any] interface {
	CellSensor(rec *weno.Reconstruction[T]) []float64
}

// WeightSensor measures how far the nonlinear stencil weights have moved from the linear ones,
// D = 1 - min_s(omega_s/gamma_s), and ramps D onto [0,1] with a sine over [Threshold-Width, Threshold+Width].
type WeightSensor[T any] struct {
	Threshold, Width float64
}

func NewWeightSensor[T any](threshold, width float64) *WeightSensor[T] {
	return &WeightSensor[T]{Threshold: threshold, Width: width}
}

func (ws *WeightSensor[T]) CellSensor(rec *weno.Reconstruction[T]) (sigma []float64) {
	sigma = make([]float64, len(rec.StencilWeights))
	for c, omega := range rec.StencilWeights {
		sigma[c] = ws.Ramp(Disagreement(omega, rec.LinearWeights[c]))
	}
	return
}

// Ramp is the smooth switch of the Persson shock finder
func (ws *WeightSensor[T]) Ramp(D float64) float64 {
	var (
		lo, hi = ws.Threshold - ws.Width, ws.Threshold + ws.Width
	)
	switch {
	case math.IsNaN(D) || D < lo:
		return 0
	case D > hi:
		return 1
	case ws.Width == 0:
		return 1
	}
	return 0.5 * (1 + math.Sin(math.Pi*(D-ws.Threshold)/(2*ws.Width)))
}

// Disagreement is 0 when every stencil keeps its linear weight and approaches 1 when one stencil takes all the
// weight. Degenerate weights give NaN.
func Disagreement(omega, gamma []float64) (D float64) {
	if len(omega) == 0 || len(omega) != len(gamma) {
		return math.NaN()
	}
	minRatio := math.Inf(1)
	for s := range omega {
		if !(gamma[s] > 0) || math.IsNaN(omega[s]) {
			return math.NaN()
		}
		minRatio = math.Min(minRatio, omega[s]/gamma[s])
	}
	D = 1 - minRatio
	return math.Max(0, math.Min(1, D))
}

// ConstantSensor reports the same value on every cell
type ConstantSensor[T any] struct {
	Value float64
}

func (cs ConstantSensor[T]) CellSensor(rec *weno.Reconstruction[T]) (sigma []float64) {
	sigma = make([]float64, len(rec.Coeffs))
	for c := range sigma {
		sigma[c] = cs.Value
	}
	return
}
