package WENOHybrid

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/notargets/wenohybrid/field"
	"github.com/notargets/wenohybrid/mesh"
	"github.com/notargets/wenohybrid/types"
	"github.com/notargets/wenohybrid/weno"
)

func newLine(t *testing.T, K int, periodic bool) *mesh.Mesh {
	m, err := mesh.NewUniformLine1D(0, 1, K, periodic)
	require.NoError(t, err)
	return m
}

// advectiveFlux is the volume flux of a uniform velocity a through every face
func advectiveFlux(m *mesh.Mesh, a float64) (flux *field.SurfaceField[float64]) {
	flux = field.NewSurfaceField[float64]("phi", m)
	for f, face := range m.Faces {
		flux.Values[f] = a * face.Normal[0] * face.Area
	}
	return
}

func cellField(m *mesh.Mesh, fn func(x float64, k int) float64) (vf *field.VolField[float64]) {
	vf = field.NewVolField[float64]("T", m)
	for l, cell := range m.Cells {
		vf.Values[l] = fn(cell.Centre[0], cell.Global)
	}
	return
}

func newScheme(t *testing.T, m *mesh.Mesh, a float64, cfg Config, opts ...Option[float64]) *Scheme[float64] {
	engine, err := weno.NewLineEngine[float64](m, types.ScalarAlgebra{}, cfg.PolOrder)
	require.NoError(t, err)
	s, err := NewScheme[float64](m, engine, types.ScalarAlgebra{}, advectiveFlux(m, a), cfg, opts...)
	require.NoError(t, err)
	return s
}

// faceBounds is the range of the cells a face value is computed from
func faceBounds(m *mesh.Mesh, vf *field.VolField[float64], f int) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	add := func(c int) {
		lo, hi = math.Min(lo, vf.Values[c]), math.Max(hi, vf.Values[c])
		for _, nb := range m.Neighbours[c] {
			lo, hi = math.Min(lo, vf.Values[nb.Cell]), math.Max(hi, vf.Values[nb.Cell])
		}
	}
	face := m.Faces[f]
	add(face.Owner)
	if face.Neighbour >= 0 {
		add(face.Neighbour)
	} else if p, i := m.PatchOf(f); p.Type.IsCoupled() {
		add(p.Coupled[i].RemoteCell)
	}
	return
}

// amplifiedEngine exaggerates the reconstruction so the one sided values overshoot
type amplifiedEngine struct {
	*weno.LineEngine[float64]
	gain float64
}

func (ae amplifiedEngine) Reconstruct(vf *field.VolField[float64]) (*weno.Reconstruction[float64], error) {
	rec, err := ae.LineEngine.Reconstruct(vf)
	if err != nil {
		return nil, err
	}
	for c := range rec.Coeffs {
		for n := range rec.Coeffs[c] {
			rec.Coeffs[c][n] *= ae.gain
		}
	}
	return rec, nil
}

// silentExchanger accepts posts and never returns anything
type silentExchanger struct{}

func (silentExchanger) Post(int, FaceMessage[float64]) {}
func (silentExchanger) Collect(uint64, int) ([]FaceMessage[float64], error) {
	return nil, nil
}

func TestSchemeConstruction(t *testing.T) {
	m := newLine(t, 10, true)
	engine, err := weno.NewLineEngine[float64](m, types.ScalarAlgebra{}, 2)
	require.NoError(t, err)
	sa := types.ScalarAlgebra{}
	{
		s, err := NewSchemeFromMesh[float64](m, engine, sa, 2)
		require.NoError(t, err)
		assert.True(t, s.Corrected())
		assert.Same(t, m, s.Mesh())
		assert.Equal(t, 0., s.LimitingFlag)
		assert.Equal(t, 1., s.LimiterScale)
		vf := field.NewVolField[float64]("T", m)
		w, err := s.Weights(vf)
		require.NoError(t, err)
		require.Equal(t, m.NFaces(), w.Len())
		for f := range w.Values {
			assert.InDelta(t, 0.5, w.Values[f], 1.e-15)
		}
		_, err = s.Weights(&field.VolField[float64]{Values: make([]float64, 3)})
		assert.True(t, errors.Is(err, ErrInvalidFieldSize))
		_, err = s.Correction(&field.VolField[float64]{Values: make([]float64, 3)})
		assert.True(t, errors.Is(err, ErrInvalidFieldSize))
		_, err = s.Interpolate(&field.VolField[float64]{Values: make([]float64, 11)})
		assert.True(t, errors.Is(err, ErrInvalidFieldSize))
	}
	{ // Boundary faces of a non periodic line weigh the owner only
		m := newLine(t, 10, false)
		s := newScheme(t, m, 1, DefaultConfig(1))
		w, err := s.Weights(field.NewVolField[float64]("T", m))
		require.NoError(t, err)
		assert.Equal(t, 1., w.Values[m.NFaces()-1])
	}
	{
		flux := advectiveFlux(m, 1)
		cfg := DefaultConfig(2)
		_, err = NewScheme[float64](m, engine, sa, flux, DefaultConfig(3))
		assert.True(t, errors.Is(err, ErrInvalidConfig))
		_, err = NewScheme[float64](m, engine, sa, flux, DefaultConfig(0))
		assert.True(t, errors.Is(err, ErrUnsupportedOrder))
		cfg.LimitingFlag = 2
		_, err = NewScheme[float64](m, engine, sa, flux, cfg)
		assert.True(t, errors.Is(err, ErrInvalidConfig))
		cfg = DefaultConfig(2)
		cfg.LimiterScale = -1
		_, err = NewScheme[float64](m, engine, sa, flux, cfg)
		assert.True(t, errors.Is(err, ErrInvalidConfig))
		_, err = NewScheme[float64](m, engine, sa, nil, DefaultConfig(2))
		assert.True(t, errors.Is(err, ErrInvalidConfig))
		_, err = NewScheme[float64](m, engine, sa, &field.SurfaceField[float64]{Values: make([]float64, 2)},
			DefaultConfig(2))
		assert.True(t, errors.Is(err, ErrInvalidFieldSize))
	}
	{ // Processor patches need an exchanger and a deep enough halo
		parts, err := mesh.Decompose(m, 2, 1)
		require.NoError(t, err)
		pe, err := weno.NewLineEngine[float64](parts[0], sa, 1)
		require.NoError(t, err)
		_, err = NewScheme[float64](parts[0], pe, sa, advectiveFlux(parts[0], 1), DefaultConfig(1))
		assert.True(t, errors.Is(err, ErrInvalidConfig))
		pe, err = weno.NewLineEngine[float64](parts[0], sa, 2)
		require.NoError(t, err)
		_, err = NewScheme[float64](parts[0], pe, sa, advectiveFlux(parts[0], 1), DefaultConfig(2),
			WithExchanger[float64](silentExchanger{}))
		assert.True(t, errors.Is(err, ErrInvalidConfig))
	}
}

func TestSensorZeroIsLinear(t *testing.T) {
	for _, periodic := range []bool{false, true} {
		m := newLine(t, 24, periodic)
		s := newScheme(t, m, 1, DefaultConfig(3), WithSensor[float64](ConstantSensor[float64]{Value: 0}))
		vf := cellField(m, func(x float64, k int) float64 {
			if k > 12 {
				return 2 + math.Sin(4*x)
			}
			return math.Sin(4 * x)
		})
		corr, err := s.Correction(vf)
		require.NoError(t, err)
		for f := range corr.Values {
			assert.Equal(t, 0., corr.Values[f])
		}
		faceValues, err := s.Interpolate(vf)
		require.NoError(t, err)
		linear := m.InterpolationOperator().MulVec(vf.Values)
		assert.InDeltaSlice(t, linear, faceValues.Values, 1.e-14)
	}
}

func TestSensorOneUnlimited(t *testing.T) {
	var (
		m   = newLine(t, 30, false)
		sa  = types.ScalarAlgebra{}
		vf  = cellField(m, func(x float64, _ int) float64 { return math.Sin(2 * math.Pi * x) })
		cfg = DefaultConfig(2)
	)
	engine, err := weno.NewLineEngine[float64](m, sa, 2)
	require.NoError(t, err)
	rec, err := engine.Reconstruct(vf)
	require.NoError(t, err)
	direct := func(cell, face int) float64 {
		flux, err := SumFlux[float64](sa, engine.Dim(), 2, rec.Coeffs[cell], engine.FaceIntegrals(cell, face))
		require.NoError(t, err)
		return vf.Values[cell] + flux
	}
	for _, a := range []float64{1, -1, 0} {
		s, err := NewScheme[float64](m, engine, sa, advectiveFlux(m, a), cfg,
			WithSensor[float64](ConstantSensor[float64]{Value: 1}))
		require.NoError(t, err)
		corr, err := s.Correction(vf)
		require.NoError(t, err)
		for f := 0; f < m.NInternal; f++ {
			face := m.Faces[f]
			L := types.Lerp[float64](sa, face.Weight, vf.Values[face.Owner], vf.Values[face.Neighbour])
			var W float64
			switch {
			case a > 0:
				W = direct(face.Owner, f)
			case a < 0:
				W = direct(face.Neighbour, f)
			default:
				W = types.Lerp[float64](sa, 0.5, direct(face.Owner, f), direct(face.Neighbour, f))
			}
			assert.Equal(t, W-L, corr.Values[f])
		}
		for f := m.NInternal; f < m.NFaces(); f++ {
			assert.Equal(t, 0., corr.Values[f])
		}
	}
}

func TestConstantField(t *testing.T) {
	{
		m := newLine(t, 16, true)
		for _, limit := range []float64{0, 1} {
			cfg := DefaultConfig(3)
			cfg.LimitingFlag = limit
			s := newScheme(t, m, 1, cfg)
			vf := cellField(m, func(float64, int) float64 { return 3.7 })
			sensor, err := s.Sensor(vf)
			require.NoError(t, err)
			corr, err := s.Correction(vf)
			require.NoError(t, err)
			for f := range corr.Values {
				assert.Equal(t, 0., sensor.Values[f])
				assert.Equal(t, 0., corr.Values[f])
			}
			// Even a forced sensor leaves flat data alone
			s = newScheme(t, m, 1, cfg, WithSensor[float64](ConstantSensor[float64]{Value: 1}))
			corr, err = s.Correction(vf)
			require.NoError(t, err)
			for f := range corr.Values {
				assert.Equal(t, 0., corr.Values[f])
			}
		}
	}
	{ // Vector fields
		var (
			m  = newLine(t, 12, true)
			va = types.VectorAlgebra{}
		)
		engine, err := weno.NewLineEngine[types.Vector](m, va, 2)
		require.NoError(t, err)
		s, err := NewSchemeFromMesh[types.Vector](m, engine, va, 2)
		require.NoError(t, err)
		vf := field.NewVolField[types.Vector]("U", m)
		for k := range vf.Values {
			vf.Values[k] = types.Vector{1, -2, 0.5}
		}
		corr, err := s.Correction(vf)
		require.NoError(t, err)
		for f := range corr.Values {
			assert.Equal(t, types.Vector{}, corr.Values[f])
		}
		faceValues, err := s.Interpolate(vf)
		require.NoError(t, err)
		for f := range faceValues.Values {
			for d := 0; d < 3; d++ {
				assert.InDelta(t, vf.Values[0][d], faceValues.Values[f][d], 1.e-15)
			}
		}
	}
}

func TestLimiterBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	x := []float64{0}
	for i := 0; i < 40; i++ {
		x = append(x, x[i]+0.5+rng.Float64())
	}
	for _, periodic := range []bool{false, true} {
		m, err := mesh.NewLine1D(x, periodic)
		require.NoError(t, err)
		for trial := 0; trial < 20; trial++ {
			var (
				p     = 1 + trial%3
				a     = []float64{1, -1, 0}[(trial/3)%3]
				level = 0.
			)
			vf := cellField(m, func(float64, int) float64 {
				if rng.Float64() < 0.2 {
					level = 10 * (rng.Float64() - 0.5)
				}
				return level + 0.1*rng.NormFloat64()
			})
			cfg := DefaultConfig(p)
			cfg.LimitingFlag = 1
			for _, sensor := range []Sensor[float64]{NewWeightSensor[float64](0.6, 0.2),
				ConstantSensor[float64]{Value: 1}} {
				s := newScheme(t, m, a, cfg, WithSensor[float64](sensor))
				faceValues, err := s.Interpolate(vf)
				require.NoError(t, err)
				for f, v := range faceValues.Values {
					lo, hi := faceBounds(m, vf, f)
					assert.True(t, v >= lo-1.e-12 && v <= hi+1.e-12,
						"face %d value %g outside [%g,%g]", f, v, lo, hi)
				}
			}
		}
		{ // Vector fields are bounded component by component, each component with its own steps
			var (
				va    = types.VectorAlgebra{}
				vf    = field.NewVolField[types.Vector]("U", m)
				comps [3]*field.VolField[float64]
			)
			for d := 0; d < 2; d++ {
				level := 0.
				comps[d] = cellField(m, func(float64, int) float64 {
					if rng.Float64() < 0.25 {
						level = 10 * (rng.Float64() - 0.5)
					}
					return level + 0.1*rng.NormFloat64()
				})
			}
			comps[2] = cellField(m, func(float64, int) float64 { return -1.5 })
			for k := range vf.Values {
				for d := 0; d < 3; d++ {
					vf.Values[k][d] = comps[d].Values[k]
				}
			}
			for _, p := range []int{1, 2, 3} {
				cfg := DefaultConfig(p)
				cfg.LimitingFlag = 1
				engine, err := weno.NewLineEngine[types.Vector](m, va, p)
				require.NoError(t, err)
				for _, sensor := range []Sensor[types.Vector]{NewWeightSensor[types.Vector](0.6, 0.2),
					ConstantSensor[types.Vector]{Value: 1}} {
					s, err := NewScheme[types.Vector](m, engine, va, advectiveFlux(m, 1), cfg,
						WithSensor[types.Vector](sensor))
					require.NoError(t, err)
					faceValues, err := s.Interpolate(vf)
					require.NoError(t, err)
					for f, v := range faceValues.Values {
						for d := 0; d < 3; d++ {
							lo, hi := faceBounds(m, comps[d], f)
							assert.True(t, v[d] >= lo-1.e-12 && v[d] <= hi+1.e-12,
								"order %d face %d component %d value %g outside [%g,%g]", p, f, d, v[d], lo, hi)
						}
						assert.InDelta(t, -1.5, v[2], 1.e-15)
					}
				}
			}
		}
	}
}

func TestLimitingFlag(t *testing.T) {
	var (
		m  = newLine(t, 30, true)
		sa = types.ScalarAlgebra{}
		vf = cellField(m, func(x float64, _ int) float64 { return math.Sin(2 * math.Pi * x) })
	)
	le, err := weno.NewLineEngine[float64](m, sa, 2)
	require.NoError(t, err)
	engine := amplifiedEngine{LineEngine: le, gain: 20}
	interpolate := func(limit float64) []float64 {
		cfg := DefaultConfig(2)
		cfg.LimitingFlag = limit
		s, err := NewScheme[float64](m, engine, sa, advectiveFlux(m, 1), cfg,
			WithSensor[float64](ConstantSensor[float64]{Value: 1}))
		require.NoError(t, err)
		faceValues, err := s.Interpolate(vf)
		require.NoError(t, err)
		return faceValues.Values
	}
	var (
		unlimited = interpolate(0) // 0 = not limited
		limited   = interpolate(1) // 1 = limited
		half      = interpolate(0.5)
		breaches  int
	)
	for f := range unlimited {
		lo, hi := faceBounds(m, vf, f)
		if unlimited[f] < lo-1.e-12 || unlimited[f] > hi+1.e-12 {
			breaches++
		}
		assert.True(t, limited[f] >= lo-1.e-12 && limited[f] <= hi+1.e-12)
		between := (half[f]-limited[f])*(unlimited[f]-half[f]) >= -1.e-24
		assert.True(t, between, "face %d: %g not between %g and %g", f, half[f], limited[f], unlimited[f])
	}
	assert.True(t, breaches > 0)
}

func TestIdempotence(t *testing.T) {
	m := newLine(t, 20, true)
	cfg := DefaultConfig(2)
	cfg.LimitingFlag = 1
	s := newScheme(t, m, 1, cfg)
	vf := cellField(m, func(x float64, _ int) float64 { return math.Floor(4 * x) })
	c1, err := s.Correction(vf)
	require.NoError(t, err)
	c2, err := s.Correction(vf)
	require.NoError(t, err)
	assert.NotSame(t, c1, c2)
	assert.Equal(t, c1.Values, c2.Values)
	// The returned field belongs to the caller
	c1.Values[0] = 1.e6
	c3, err := s.Correction(vf)
	require.NoError(t, err)
	assert.Equal(t, c2.Values, c3.Values)
}

// rampWithStep is a ramp that jumps by one at cell step
func rampWithStep(step int) func(x float64, k int) float64 {
	return func(x float64, k int) float64 {
		if k >= step {
			return 0.1*float64(k) + 1
		}
		return 0.1 * float64(k)
	}
}

func TestSplitConsistency(t *testing.T) {
	defer goleak.VerifyNone(t)
	const K = 20
	for _, periodic := range []bool{false, true} {
		for _, nParts := range []int{2, 4} {
			for p := 1; p <= 3; p++ {
				for _, a := range []float64{1, -1, 0} {
					for _, limit := range []float64{0, 1} {
						m := newLine(t, K, periodic)
						cfg := DefaultConfig(p)
						cfg.LimitingFlag = limit
						global := cellField(m, rampWithStep(K/2))
						unsplit, err := newScheme(t, m, a, cfg).Interpolate(global)
						require.NoError(t, err)

						parts, err := mesh.Decompose(m, nParts, p)
						require.NoError(t, err)
						var (
							exs     = NewMailBoxExchangers[float64](nParts, 5*time.Second)
							results = make([]*field.SurfaceField[float64], nParts)
							g       errgroup.Group
						)
						for r, part := range parts {
							s := newScheme(t, part, a, cfg, WithExchanger[float64](exs[r]))
							vf, err := field.Restrict(global, part)
							require.NoError(t, err)
							r := r
							g.Go(func() (err error) {
								results[r], err = s.Interpolate(vf)
								return
							})
						}
						require.NoError(t, g.Wait())
						split := make([]float64, m.NFaces())
						for r, part := range parts {
							for f, face := range part.Faces {
								split[face.Global] = results[r].Values[f]
							}
						}
						assert.Empty(t, cmp.Diff(unsplit.Values, split),
							"periodic %v parts %d order %d flux %g limit %g", periodic, nParts, p, a, limit)
					}
				}
			}
		}
	}
}

func TestSmoothSine(t *testing.T) {
	var (
		m      = newLine(t, 64, true)
		vf     = cellField(m, func(x float64, _ int) float64 { return math.Sin(2 * math.Pi * x) })
		linear = m.InterpolationOperator().MulVec(vf.Values)
	)
	for p := 1; p <= weno.MaxPolynomialOrder; p++ {
		cfg := DefaultConfig(p)
		cfg.LimitingFlag = 1
		s := newScheme(t, m, 1, cfg)
		sensor, err := s.Sensor(vf)
		require.NoError(t, err)
		faceValues, err := s.Interpolate(vf)
		require.NoError(t, err)
		for f := range faceValues.Values {
			// Extrema included, the sensor stays off and the faces keep their linear values
			assert.Equal(t, 0., sensor.Values[f], "order %d face %d", p, f)
			assert.InDelta(t, linear[f], faceValues.Values[f], 1.e-15, "order %d face %d", p, f)
		}
	}
}

func TestStepProfile(t *testing.T) {
	var (
		m   = newLine(t, 40, true)
		cfg = DefaultConfig(2)
	)
	cfg.LimitingFlag = 1
	s := newScheme(t, m, 1, cfg)
	vf := cellField(m, func(_ float64, k int) float64 {
		if k >= 10 && k < 20 {
			return 1
		}
		return 0
	})
	sensor, err := s.Sensor(vf)
	require.NoError(t, err)
	faceValues, err := s.Interpolate(vf)
	require.NoError(t, err)
	linear := m.InterpolationOperator().MulVec(vf.Values)
	// Faces 9 and 19 carry the two jumps
	assert.True(t, sensor.Values[9] > 0.99)
	assert.True(t, sensor.Values[19] > 0.99)
	for f := 25; f < 38; f++ {
		assert.Equal(t, 0., sensor.Values[f])
		assert.InDelta(t, linear[f], faceValues.Values[f], 1.e-15)
	}
	for f, v := range faceValues.Values {
		assert.True(t, v >= -1.e-12 && v <= 1+1.e-12, "face %d overshoots: %g", f, v)
	}
	// At the jumps the face leans to the upwind cell
	assert.InDelta(t, 0., faceValues.Values[9], 0.1)
	assert.InDelta(t, 1., faceValues.Values[19], 0.1)
}

func TestExchangeFailures(t *testing.T) {
	defer goleak.VerifyNone(t)
	m := newLine(t, 12, true)
	{
		s := newScheme(t, m, 1, DefaultConfig(1), WithExchanger[float64](silentExchanger{}))
		_, err := s.Correction(cellField(m, rampWithStep(6)))
		assert.True(t, errors.Is(err, ErrMissingCounterpart))
	}
	{ // Only one of two partitions evaluates
		parts, err := mesh.Decompose(m, 2, 1)
		require.NoError(t, err)
		exs := NewMailBoxExchangers[float64](2, 20*time.Millisecond)
		s := newScheme(t, parts[0], 1, DefaultConfig(1), WithExchanger[float64](exs[0]))
		vf, err := field.Restrict(cellField(m, rampWithStep(6)), parts[0])
		require.NoError(t, err)
		_, err = s.Correction(vf)
		assert.True(t, errors.Is(err, ErrExchangeTimeout))
	}
	{ // Messages of a later epoch wait for their own collection
		ex := NewMailBoxExchangers[float64](1, time.Second)[0]
		ex.Post(0, FaceMessage[float64]{Sender: 2, Epoch: 2})
		ex.Post(0, FaceMessage[float64]{Sender: 1, Epoch: 1})
		msgs, err := ex.Collect(1, 1)
		require.NoError(t, err)
		require.Equal(t, 1, len(msgs))
		assert.Equal(t, 1, msgs[0].Sender)
		msgs, err = ex.Collect(2, 1)
		require.NoError(t, err)
		require.Equal(t, 1, len(msgs))
		assert.Equal(t, 2, msgs[0].Sender)
	}
}
