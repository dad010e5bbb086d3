package Advection1D

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/wenohybrid/WENOHybrid"
	"github.com/notargets/wenohybrid/field"
	"github.com/notargets/wenohybrid/mesh"
	"github.com/notargets/wenohybrid/types"
	"github.com/notargets/wenohybrid/utils"
	"github.com/notargets/wenohybrid/weno"
)

// Advection solves du/dt + a du/dx = 0 with finite volumes on a periodic line, the face values coming from the
// hybrid interpolation. With more than one partition every partition is stepped on its own goroutine.
type Advection struct {
	// Input parameters
	a, CFL, FinalTime float64
	LogFrequency      int
	Init              InitType
	Global            *mesh.Mesh
	Parts             []*mesh.Mesh
	U                 []*field.VolField[float64] // One per partition, owned and halo cells
	Steps             int
	Time              float64
	schemes           []*WENOHybrid.Scheme[float64]
	flux              []*field.SurfaceField[float64] // Volume flux a.n.A of every face
	halo              *utils.HaloExchanger[float64]
	resid, rhs        [][]float64
}

func NewAdvection(a, CFL, FinalTime, XMin, XMax float64, K, nParts int, cfg WENOHybrid.Config,
	init InitType) (c *Advection, err error) {
	if a == 0 || CFL <= 0 || FinalTime < 0 {
		err = fmt.Errorf("invalid advection speed %g, CFL %g or final time %g", a, CFL, FinalTime)
		return
	}
	c = &Advection{
		a:            a,
		CFL:          CFL,
		FinalTime:    FinalTime,
		LogFrequency: 50,
		Init:         init,
	}
	if c.Global, err = mesh.NewUniformLine1D(XMin, XMax, K, true); err != nil {
		return
	}
	if c.Parts, err = mesh.Decompose(c.Global, nParts, cfg.PolOrder); err != nil {
		return
	}
	U0 := field.NewVolField[float64]("U", c.Global)
	for k, cell := range c.Global.Cells {
		U0.Values[k] = init.Value((cell.Centre[0] - XMin) / (XMax - XMin))
	}
	var exchangers []*WENOHybrid.MailBoxExchanger[float64]
	if nParts > 1 {
		links, haloToLocal := mesh.HaloLinks(c.Parts)
		c.halo = utils.NewHaloExchanger[float64](links, haloToLocal, WENOHybrid.DefaultExchangeTimeout)
		exchangers = WENOHybrid.NewMailBoxExchangers[float64](nParts, WENOHybrid.DefaultExchangeTimeout)
	}
	np := len(c.Parts)
	c.U, c.schemes, c.flux = make([]*field.VolField[float64], np), make([]*WENOHybrid.Scheme[float64], np),
		make([]*field.SurfaceField[float64], np)
	c.resid, c.rhs = make([][]float64, np), make([][]float64, np)
	for r, part := range c.Parts {
		if c.U[r], err = field.Restrict(U0, part); err != nil {
			return
		}
		c.flux[r] = field.NewSurfaceField[float64]("phi", part)
		for f, face := range part.Faces {
			c.flux[r].Values[f] = a * face.Normal[0] * face.Area
		}
		var engine *weno.LineEngine[float64]
		if engine, err = weno.NewLineEngine[float64](part, types.ScalarAlgebra{}, cfg.PolOrder); err != nil {
			return
		}
		var opts []WENOHybrid.Option[float64]
		if exchangers != nil {
			opts = append(opts, WENOHybrid.WithExchanger[float64](exchangers[r]))
		}
		if c.schemes[r], err = WENOHybrid.NewScheme[float64](part, engine, types.ScalarAlgebra{}, c.flux[r], cfg,
			opts...); err != nil {
			return
		}
		c.resid[r], c.rhs[r] = make([]float64, part.NOwned), make([]float64, part.NOwned)
	}
	log.WithFields(log.Fields{
		"cells":      K,
		"partitions": np,
		"init":       init.Print(),
	}).Info("advection problem ready")
	return
}

func (c *Advection) Run() {
	var (
		hmin = math.Inf(1)
	)
	for _, cell := range c.Global.Cells {
		hmin = math.Min(hmin, cell.Volume)
	}
	dt := c.CFL * hmin / math.Abs(c.a)
	Ns := math.Ceil(c.FinalTime / dt)
	if Ns > 0 {
		dt = c.FinalTime / Ns
	}
	Nsteps := int(Ns)
	c.printProgress()
	for tstep := 0; tstep < Nsteps; tstep += c.LogFrequency {
		if err := c.Advance(min(c.LogFrequency, Nsteps-tstep), dt); err != nil {
			panic(err)
		}
		c.printProgress()
	}
	log.WithField("memory", utils.GetMemUsage()).Debug("advection run complete")
}

// Advance takes nSteps time steps of size dt on every partition
func (c *Advection) Advance(nSteps int, dt float64) (err error) {
	var (
		g errgroup.Group
	)
	for r := range c.Parts {
		g.Go(func() (err error) {
			for step := 0; step < nSteps; step++ {
				if err = c.Step(r, dt); err != nil {
					return
				}
			}
			return
		})
	}
	if err = g.Wait(); err != nil {
		return
	}
	c.Steps += nSteps
	c.Time += float64(nSteps) * dt
	return
}

// Step advances partition r by one low storage RK4 step
func (c *Advection) Step(r int, dt float64) (err error) {
	var (
		U     = c.U[r].Values
		resid = c.resid[r]
		rhs   = c.rhs[r]
	)
	for INTRK := 0; INTRK < 5; INTRK++ {
		if err = c.RHS(r, rhs); err != nil {
			return
		}
		for k := range resid {
			// resid = rk4a(INTRK) * resid + dt * rhsu;
			resid[k] = utils.RK4a[INTRK]*resid[k] + dt*rhs[k]
			// u += rk4b(INTRK) * resid;
			U[k] += utils.RK4b[INTRK] * resid[k]
		}
	}
	return
}

// RHS is -1/V times the net flux a.u_f.n.A out of every owned cell of partition r
func (c *Advection) RHS(r int, rhs []float64) (err error) {
	var (
		m          = c.Parts[r]
		U          = c.U[r]
		faceValues *field.SurfaceField[float64]
	)
	if c.halo != nil {
		c.halo.PostHalo(r, U.Values)
		if err = c.halo.ReadHalo(r, U.Values); err != nil {
			return
		}
	}
	if faceValues, err = c.schemes[r].Interpolate(U); err != nil {
		return
	}
	for k := range rhs {
		rhs[k] = 0
	}
	for f, face := range m.Faces {
		F := c.flux[r].Values[f] * faceValues.Values[f]
		rhs[face.Owner] -= F
		if face.Neighbour >= 0 {
			rhs[face.Neighbour] += F
		}
	}
	for k := range rhs {
		rhs[k] /= m.Cells[k].Volume
	}
	return
}

// Solution gathers the owned values of every partition onto the unsplit mesh
func (c *Advection) Solution() (U *field.VolField[float64]) {
	var err error
	if U, err = field.Gather(c.Parts, c.U); err != nil {
		panic(err)
	}
	return
}

func (c *Advection) Mass() float64 {
	vols := make([]float64, c.Global.NCells())
	for k, cell := range c.Global.Cells {
		vols[k] = cell.Volume
	}
	return floats.Dot(vols, c.Solution().Values)
}

func (c *Advection) printProgress() {
	U := c.Solution().Values
	utils.IsNanPanic(U)
	fmt.Printf("Time = %8.4f, step %6d, umin = %8.5f, umax = %8.5f, mass = %12.9f\n",
		c.Time, c.Steps, floats.Min(U), floats.Max(U), c.Mass())
}
