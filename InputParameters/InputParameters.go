package InputParameters

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ghodss/yaml"

	"github.com/notargets/wenohybrid/WENOHybrid"
)

// Parameters obtained from the YAML input file
type InputParametersWENO struct {
	Title           string  `yaml:"Title"`
	CFL             float64 `yaml:"CFL"`
	FinalTime       float64 `yaml:"FinalTime"`
	InitType        string  `yaml:"InitType"` // step, sine or ramp-step
	Speed           float64 `yaml:"Speed"`
	Cells           int     `yaml:"Cells"`
	XMin            float64 `yaml:"XMin"`
	XMax            float64 `yaml:"XMax"`
	Partitions      int     `yaml:"Partitions"`
	PolynomialOrder int     `yaml:"PolynomialOrder"`
	LimitingFlag    float64 `yaml:"LimitingFlag"`
	LimiterScale    float64 `yaml:"LimiterScale"`
	Scheme          string  `yaml:"Scheme"` // Overrides the three above, e.g. "WENOHybrid phi 3 1 1"
	LogFrequency    int     `yaml:"LogFrequency"`
}

func NewInputParametersWENO() *InputParametersWENO {
	return &InputParametersWENO{
		Title:           "Step advection",
		CFL:             0.5,
		FinalTime:       1,
		InitType:        "step",
		Speed:           1,
		Cells:           100,
		XMin:            0,
		XMax:            1,
		Partitions:      1,
		PolynomialOrder: 2,
		LimitingFlag:    1,
		LimiterScale:    1,
		LogFrequency:    50,
	}
}

func (ip *InputParametersWENO) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

func (ip *InputParametersWENO) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("%8.5f\t\t= CFL\n", ip.CFL)
	fmt.Printf("%8.5f\t\t= FinalTime\n", ip.FinalTime)
	fmt.Printf("%8.5f\t\t= Speed\n", ip.Speed)
	fmt.Printf("[%s]\t\t\t= InitType\n", ip.InitType)
	fmt.Printf("[%d]\t\t\t\t= Cells\n", ip.Cells)
	fmt.Printf("[%8.5f,%8.5f]\t= Domain\n", ip.XMin, ip.XMax)
	fmt.Printf("[%d]\t\t\t\t= Partitions\n", ip.Partitions)
	if len(ip.Scheme) != 0 {
		fmt.Printf("[%s]\t= Scheme\n", ip.Scheme)
		return
	}
	fmt.Printf("[%d]\t\t\t\t= Polynomial Order\n", ip.PolynomialOrder)
	fmt.Printf("%8.5f\t\t= Limiting Flag\n", ip.LimitingFlag)
	fmt.Printf("%8.5f\t\t= Limiter Scale\n", ip.LimiterScale)
}

// SchemeConfig is the interpolation scheme the parameters select, from Scheme when it is set
func (ip *InputParametersWENO) SchemeConfig() (se *SchemeEntry, err error) {
	if len(ip.Scheme) != 0 {
		return ParseSchemeEntry(ip.Scheme)
	}
	se = &SchemeEntry{
		Name:     SchemeName,
		FluxName: "phi",
		Config:   WENOHybrid.DefaultConfig(ip.PolynomialOrder),
	}
	se.Config.LimitingFlag, se.Config.LimiterScale = ip.LimitingFlag, ip.LimiterScale
	if err = se.Config.Validate(); err != nil {
		se = nil
	}
	return
}

const SchemeName = "WENOHybrid"

// SchemeEntry is an interpolation scheme entry of the form
//
//	WENOHybrid <fluxField> <polOrder> <limFac> <limiter>
type SchemeEntry struct {
	Name, FluxName string
	Config         WENOHybrid.Config
}

func ParseSchemeEntry(entry string) (se *SchemeEntry, err error) {
	var (
		fields = strings.Fields(entry)
		order  float64
	)
	if len(fields) != 5 {
		err = fmt.Errorf("scheme entry %q has %d words, need 5: %w", entry, len(fields), WENOHybrid.ErrInvalidConfig)
		return
	}
	if fields[0] != SchemeName {
		err = fmt.Errorf("unknown scheme %q: %w", fields[0], WENOHybrid.ErrInvalidConfig)
		return
	}
	// The order is a scalar in the entry, 3 and 3.0 are the same order
	order, err = strconv.ParseFloat(fields[2], 64)
	if err != nil || order != math.Trunc(order) || math.Abs(order) > math.MaxInt32 {
		err = fmt.Errorf("polynomial order %q: %w", fields[2], WENOHybrid.ErrUnsupportedOrder)
		return
	}
	se = &SchemeEntry{
		Name:     fields[0],
		FluxName: fields[1],
		Config:   WENOHybrid.DefaultConfig(int(order)),
	}
	for i, tgt := range []*float64{&se.Config.LimitingFlag, &se.Config.LimiterScale} {
		if *tgt, err = strconv.ParseFloat(fields[3+i], 64); err != nil {
			err = fmt.Errorf("scheme entry %q word %d: %w", entry, 4+i, WENOHybrid.ErrInvalidConfig)
			se = nil
			return
		}
	}
	if err = se.Config.Validate(); err != nil {
		se = nil
	}
	return
}
