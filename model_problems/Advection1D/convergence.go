package Advection1D

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"

	"github.com/notargets/wenohybrid/WENOHybrid"
)

// ConvergenceStudy holds the error of a sine advected over one period at a sequence of mesh sizes
type ConvergenceStudy struct {
	Title    string
	Order    int
	CFL      float64
	NumCells []int
	RMS, MAX []float64
}

func NewConvergenceStudy(title string, order int, CFL float64) *ConvergenceStudy {
	return &ConvergenceStudy{
		Title: title,
		Order: order,
		CFL:   CFL,
	}
}

func (cs *ConvergenceStudy) Add(numCells int, rms, maxErr float64) {
	cs.NumCells = append(cs.NumCells, numCells)
	cs.RMS = append(cs.RMS, rms)
	cs.MAX = append(cs.MAX, maxErr)
}

// Orders are the observed orders of accuracy between consecutive entries
func (cs *ConvergenceStudy) Orders() (rmsOrder, maxOrder []float64) {
	order := func(e []float64, i int) float64 {
		return math.Log(e[i-1]/e[i]) / math.Log(float64(cs.NumCells[i])/float64(cs.NumCells[i-1]))
	}
	for i := 1; i < len(cs.NumCells); i++ {
		rmsOrder = append(rmsOrder, order(cs.RMS, i))
		maxOrder = append(maxOrder, order(cs.MAX, i))
	}
	return
}

func (cs *ConvergenceStudy) Print() {
	fmt.Printf("Title = %s, Order = %d, CFL = %5.2f\n", cs.Title, cs.Order, cs.CFL)
	rmsOrder, maxOrder := cs.Orders()
	for i := range cs.NumCells {
		if i == 0 {
			fmt.Printf("%6d, %12.5e, %12.5e\n", cs.NumCells[i], cs.RMS[i], cs.MAX[i])
			continue
		}
		fmt.Printf("%6d, %12.5e, %12.5e, order = %5.2f, %5.2f\n",
			cs.NumCells[i], cs.RMS[i], cs.MAX[i], rmsOrder[i-1], maxOrder[i-1])
	}
}

var convergenceHeader = []string{"Title", "Cells", "Order", "CFL", "RMS", "MAX"}

func (cs *ConvergenceStudy) WriteCSV(w io.Writer) (err error) {
	cw := csv.NewWriter(w)
	if err = cw.Write(convergenceHeader); err != nil {
		return
	}
	for i := range cs.NumCells {
		if err = cw.Write([]string{
			cs.Title,
			strconv.Itoa(cs.NumCells[i]),
			strconv.Itoa(cs.Order),
			strconv.FormatFloat(cs.CFL, 'g', -1, 64),
			strconv.FormatFloat(cs.RMS[i], 'g', -1, 64),
			strconv.FormatFloat(cs.MAX[i], 'g', -1, 64),
		}); err != nil {
			return
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV collects the rows written by WriteCSV into one study per title and order
func ReadCSV(r io.Reader) (studies map[string]*ConvergenceStudy, err error) {
	var (
		records [][]string
	)
	if records, err = csv.NewReader(r).ReadAll(); err != nil {
		return
	}
	studies = make(map[string]*ConvergenceStudy)
	for i, rec := range records {
		if i == 0 {
			continue
		}
		if len(rec) != len(convergenceHeader) {
			err = fmt.Errorf("convergence row %d has %d fields, need %d", i, len(rec), len(convergenceHeader))
			return
		}
		var (
			cells, order     int
			cfl, rms, maxErr float64
		)
		if cells, err = strconv.Atoi(rec[1]); err != nil {
			return
		}
		if order, err = strconv.Atoi(rec[2]); err != nil {
			return
		}
		for j, tgt := range []*float64{&cfl, &rms, &maxErr} {
			if *tgt, err = strconv.ParseFloat(rec[3+j], 64); err != nil {
				return
			}
		}
		key := rec[0] + rec[2]
		cs, ok := studies[key]
		if !ok {
			cs = NewConvergenceStudy(rec[0], order, cfl)
			studies[key] = cs
		}
		cs.Add(cells, rms, maxErr)
	}
	return
}

// RunConvergence advects a sine once around the unit line at each number of cells and measures the error
// against the initial state
func RunConvergence(cfg WENOHybrid.Config, CFL float64, cells []int, nParts int) (cs *ConvergenceStudy, err error) {
	cells = append([]int{}, cells...)
	sort.Ints(cells)
	cs = NewConvergenceStudy("Sine advection", cfg.PolOrder, CFL)
	for _, K := range cells {
		var c *Advection
		if c, err = NewAdvection(1, CFL, 1, 0, 1, K, nParts, cfg, SINE); err != nil {
			return
		}
		c.LogFrequency = math.MaxInt32
		U0 := append([]float64{}, c.Solution().Values...)
		c.Run()
		U := c.Solution().Values
		var sum float64
		for k, cell := range c.Global.Cells {
			e := U[k] - U0[k]
			sum += cell.Volume * e * e
		}
		cs.Add(K, math.Sqrt(sum), floats.Distance(U, U0, math.Inf(1)))
	}
	return
}
