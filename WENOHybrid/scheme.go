package WENOHybrid

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/notargets/wenohybrid/field"
	"github.com/notargets/wenohybrid/mesh"
	"github.com/notargets/wenohybrid/types"
	"github.com/notargets/wenohybrid/weno"
)

type Config struct {
	PolOrder        int
	LimitingFlag    float64 // 0 = not limited, 1 = limited, values between blend the two
	LimiterScale    float64 // Scales the whole correction, 0 gives linear interpolation
	SensorThreshold float64
	SensorWidth     float64
}

func DefaultConfig(polOrder int) Config {
	return Config{
		PolOrder:        polOrder,
		LimitingFlag:    0,
		LimiterScale:    1,
		SensorThreshold: 0.6,
		SensorWidth:     0.2,
	}
}

func (c Config) Validate() (err error) {
	switch {
	case c.PolOrder < 1 || c.PolOrder > weno.MaxPolynomialOrder:
		err = fmt.Errorf("order %d outside [1,%d]: %w", c.PolOrder, weno.MaxPolynomialOrder, ErrUnsupportedOrder)
	case c.LimitingFlag < 0 || c.LimitingFlag > 1:
		err = fmt.Errorf("limiting flag %g outside [0,1]: %w", c.LimitingFlag, ErrInvalidConfig)
	case c.LimiterScale < 0 || c.LimiterScale > 1:
		err = fmt.Errorf("limiter scale %g outside [0,1]: %w", c.LimiterScale, ErrInvalidConfig)
	case c.SensorWidth < 0 || c.SensorThreshold < 0 || c.SensorThreshold > 1:
		err = fmt.Errorf("sensor threshold %g width %g: %w", c.SensorThreshold, c.SensorWidth, ErrInvalidConfig)
	}
	return
}

type Option[T any] func(*Scheme[T])

func WithSensor[T any](sensor Sensor[T]) Option[T] {
	return func(s *Scheme[T]) { s.sensor = sensor }
}

func WithExchanger[T any](ex Exchanger[T]) Option[T] {
	return func(s *Scheme[T]) { s.exchanger = ex }
}

func WithLimiterFunction[T any](fn LimiterFunction) Option[T] {
	return func(s *Scheme[T]) { s.limiterFn = fn }
}

// Scheme is the hybrid linear/WENO face interpolation of one mesh partition. It is used from one goroutine.
type Scheme[T any] struct {
	Config
	m         *mesh.Mesh
	engine    weno.Engine[T]
	alg       types.Algebra[T]
	flux      *field.SurfaceField[float64]
	sensor    Sensor[T]
	exchanger Exchanger[T]
	limiterFn LimiterFunction
	weights   []float64
	epoch     uint64
	ws        workspace[T]
}

// workspace is scratch sized by the mesh, refilled on every evaluation
type workspace[T any] struct {
	lo, hi  []float64          // Bounds per owned cell and component
	coupled []int              // Face index of every coupled face, in patch order
	remote  []mesh.CoupledFace // Far side of every coupled face
	local   []FaceMessage[T]   // What this side sent for each coupled face
}

// evaluation is the result of one pass over the faces
type evaluation[T any] struct {
	correction *field.SurfaceField[T]
	linear     *field.SurfaceField[T]
	sensor     *field.SurfaceField[float64]
	limited    int
}

// NewScheme builds the scheme for mesh m. flux is the face flux field that sets the upwind direction on every face,
// its values are read on every evaluation.
func NewScheme[T any](m *mesh.Mesh, engine weno.Engine[T], alg types.Algebra[T], flux *field.SurfaceField[float64],
	cfg Config, opts ...Option[T]) (s *Scheme[T], err error) {
	if err = cfg.Validate(); err != nil {
		return
	}
	if err = m.Validate(); err != nil {
		err = fmt.Errorf("mesh: %v: %w", err, ErrInvalidConfig)
		return
	}
	if engine.PolOrder() != cfg.PolOrder {
		err = fmt.Errorf("engine order %d, scheme order %d: %w", engine.PolOrder(), cfg.PolOrder, ErrInvalidConfig)
		return
	}
	if flux == nil {
		err = fmt.Errorf("no face flux field: %w", ErrInvalidConfig)
		return
	}
	if flux.Len() != m.NFaces() {
		err = fmt.Errorf("flux %s has %d values for %d faces: %w", flux.Name, flux.Len(), m.NFaces(),
			ErrInvalidFieldSize)
		return
	}
	s = &Scheme[T]{
		Config:    cfg,
		m:         m,
		engine:    engine,
		alg:       alg,
		flux:      flux,
		sensor:    NewWeightSensor[T](cfg.SensorThreshold, cfg.SensorWidth),
		limiterFn: MichalakGooch,
		weights:   make([]float64, m.NFaces()),
	}
	for _, opt := range opts {
		opt(s)
	}
	var processor bool
	for f := 0; f < m.NFaces(); f++ {
		s.weights[f] = 1
	}
	for f := 0; f < m.NInternal; f++ {
		s.weights[f] = m.Faces[f].Weight
	}
	for _, p := range m.Patches {
		if !p.Type.IsCoupled() {
			continue
		}
		processor = processor || p.Type == types.PATCH_Processor
		for i, cf := range p.Coupled {
			if cf.RemoteCell < 0 {
				err = fmt.Errorf("patch %s face %d has no copy of remote cell %d: %w", p.Name, i, cf.RemoteGlobal,
					ErrInvalidConfig)
				return
			}
			s.weights[p.Start+i] = m.Faces[p.Start+i].Weight
			s.ws.coupled = append(s.ws.coupled, p.Start+i)
			s.ws.remote = append(s.ws.remote, cf)
		}
	}
	if processor && m.HaloDepth < engine.StencilRadius() {
		err = fmt.Errorf("halo depth %d below stencil radius %d: %w", m.HaloDepth, engine.StencilRadius(),
			ErrInvalidConfig)
		return
	}
	if len(s.ws.coupled) != 0 && s.exchanger == nil {
		if processor {
			err = fmt.Errorf("processor patches need an exchanger: %w", ErrInvalidConfig)
			return
		}
		s.exchanger = NewMailBoxExchangers[T](m.Rank+1, DefaultExchangeTimeout)[m.Rank]
	}
	nc := alg.NComponents()
	s.ws.lo, s.ws.hi = make([]float64, m.NOwned*nc), make([]float64, m.NOwned*nc)
	s.ws.local = make([]FaceMessage[T], len(s.ws.coupled))
	log.WithFields(log.Fields{
		"rank":         m.Rank,
		"order":        cfg.PolOrder,
		"limitingFlag": cfg.LimitingFlag,
		"limiterScale": cfg.LimiterScale,
		"coupledFaces": len(s.ws.coupled),
	}).Info("WENOHybrid scheme")
	return
}

// NewSchemeFromMesh builds an unlimited scheme with a zero face flux, coupled faces then take the average of
// their two sides.
func NewSchemeFromMesh[T any](m *mesh.Mesh, engine weno.Engine[T], alg types.Algebra[T],
	polOrder int) (*Scheme[T], error) {
	return NewScheme(m, engine, alg, field.NewSurfaceField[float64]("zeroFlux", m), DefaultConfig(polOrder))
}

// Corrected is always true, the scheme supplies an explicit correction
func (s *Scheme[T]) Corrected() bool { return true }

func (s *Scheme[T]) Mesh() *mesh.Mesh { return s.m }

func (s *Scheme[T]) checkField(vf *field.VolField[T]) error {
	if vf.Len() != s.m.NCells() {
		return fmt.Errorf("field %s has %d values, mesh has %d cells: %w", vf.Name, vf.Len(), s.m.NCells(),
			ErrInvalidFieldSize)
	}
	return nil
}

// Weights returns the linear interpolation weights of the face owners
func (s *Scheme[T]) Weights(vf *field.VolField[T]) (w *field.SurfaceField[float64], err error) {
	if err = s.checkField(vf); err != nil {
		return
	}
	w = &field.SurfaceField[float64]{Name: vf.Name + "Weights", Values: make([]float64, len(s.weights))}
	copy(w.Values, s.weights)
	return
}

// Correction returns the explicit correction to add to the linear face values. Every call recomputes it from vf
// and returns a new field owned by the caller. Partitions sharing coupled faces must call it together.
func (s *Scheme[T]) Correction(vf *field.VolField[T]) (*field.SurfaceField[T], error) {
	ev, err := s.evaluate(vf)
	if err != nil {
		return nil, err
	}
	return ev.correction, nil
}

// Interpolate returns the corrected face values. Coupled faces carry the value both sides agreed on.
func (s *Scheme[T]) Interpolate(vf *field.VolField[T]) (faceValues *field.SurfaceField[T], err error) {
	var ev *evaluation[T]
	if ev, err = s.evaluate(vf); err != nil {
		return
	}
	faceValues = ev.linear
	for f := range faceValues.Values {
		faceValues.Values[f] = s.alg.Add(ev.linear.Values[f], ev.correction.Values[f])
	}
	faceValues.Name = vf.Name + "Face"
	return
}

// Sensor returns the face sensor. It runs the same exchange as Correction.
func (s *Scheme[T]) Sensor(vf *field.VolField[T]) (*field.SurfaceField[float64], error) {
	ev, err := s.evaluate(vf)
	if err != nil {
		return nil, err
	}
	return ev.sensor, nil
}

func (s *Scheme[T]) evaluate(vf *field.VolField[T]) (ev *evaluation[T], err error) {
	var (
		m   = s.m
		alg = s.alg
		rec *weno.Reconstruction[T]
	)
	if err = s.checkField(vf); err != nil {
		return
	}
	if rec, err = s.engine.Reconstruct(vf); err != nil {
		err = fmt.Errorf("reconstructing %s: %w", vf.Name, err)
		return
	}
	sigma := s.sensor.CellSensor(rec)
	if len(sigma) != m.NOwned {
		err = fmt.Errorf("sensor gave %d values for %d cells: %w", len(sigma), m.NOwned, ErrInvalidFieldSize)
		return
	}
	s.cellBounds(vf.Values)
	s.epoch++
	ev = &evaluation[T]{
		correction: field.NewSurfaceField[T](vf.Name+"Correction", m),
		linear:     field.NewSurfaceField[T](vf.Name+"Linear", m),
		sensor:     field.NewSurfaceField[float64](vf.Name+"Sensor", m),
	}
	for f := 0; f < m.NInternal; f++ {
		var (
			face   = m.Faces[f]
			P, N   = face.Owner, face.Neighbour
			wP, wN T
			active bool
		)
		if wP, err = s.oneSided(rec, vf, P, f); err != nil {
			return
		}
		if wN, err = s.oneSided(rec, vf, N, f); err != nil {
			return
		}
		L := types.Lerp(alg, face.Weight, vf.Values[P], vf.Values[N])
		if wP, active = s.calcLimiter(P, wP, L); active {
			ev.limited++
		}
		if wN, active = s.calcLimiter(N, wN, L); active {
			ev.limited++
		}
		s.resolve(ev, f, L, wP, wN, s.flux.Values[f], math.Max(sigma[P], sigma[N]))
	}
	for _, p := range m.Patches {
		if p.Type.IsCoupled() {
			continue
		}
		for f := p.Start; f < p.Start+p.Size; f++ {
			P := m.Faces[f].Owner
			ev.linear.Values[f] = vf.Values[P]
			ev.correction.Values[f] = alg.Zero()
			ev.sensor.Values[f] = sigma[P]
		}
	}
	if len(s.ws.coupled) != 0 {
		var remote map[messageKey]FaceMessage[T]
		if remote, err = s.swapCoupledData(rec, vf, sigma, ev); err != nil {
			return
		}
		if err = s.coupledRiemannSolver(remote, ev); err != nil {
			return
		}
	}
	log.WithFields(log.Fields{
		"rank":    m.Rank,
		"epoch":   s.epoch,
		"field":   vf.Name,
		"limited": ev.limited,
		"coupled": len(s.ws.coupled),
	}).Debug("WENOHybrid correction")
	return
}

// oneSided is the reconstruction of cell evaluated at face
func (s *Scheme[T]) oneSided(rec *weno.Reconstruction[T], vf *field.VolField[T], cell, face int) (W T, err error) {
	var (
		flux T
	)
	flux, err = SumFlux(s.alg, s.engine.Dim(), s.PolOrder, rec.Coeffs[cell], s.engine.FaceIntegrals(cell, face))
	if err != nil {
		err = fmt.Errorf("cell %d face %d: %w", cell, face, err)
		return
	}
	W = s.alg.Add(vf.Values[cell], flux)
	return
}

// resolve combines the left and right one sided values of face f. F is the flux from left to right.
func (s *Scheme[T]) resolve(ev *evaluation[T], f int, L, left, right T, F, sigma float64) {
	var (
		alg = s.alg
		a   = 0.5
	)
	switch {
	case F > 0:
		a = 1
	case F < 0:
		a = 0
	}
	ev.linear.Values[f] = L
	ev.sensor.Values[f] = sigma
	if scale := sigma * s.LimiterScale; scale != 0 {
		W := types.Lerp(alg, a, left, right)
		ev.correction.Values[f] = alg.Scale(alg.Sub(W, L), scale)
	} else {
		ev.correction.Values[f] = alg.Zero()
	}
}
