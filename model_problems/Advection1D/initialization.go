package Advection1D

import (
	"fmt"
	"math"
	"strings"
)

type InitType uint

const (
	STEP InitType = iota
	SINE
	RAMPSTEP
)

var (
	InitNames = map[string]InitType{
		"step":      STEP,
		"sine":      SINE,
		"ramp-step": RAMPSTEP,
		"rampstep":  RAMPSTEP,
	}
	InitPrintNames = []string{"Square Step", "Sine Wave", "Linear Ramp with a Step"}
)

func (it InitType) Print() (txt string) {
	return InitPrintNames[it]
}

func NewInitType(label string) (it InitType) {
	var (
		ok  bool
		err error
	)
	if len(label) == 0 {
		err = fmt.Errorf("empty init type, must be one of %v", InitNames)
		panic(err)
	}
	label = strings.ToLower(strings.TrimSpace(label))
	if it, ok = InitNames[label]; !ok {
		err = fmt.Errorf("unable to use init type named %s", label)
		panic(err)
	}
	return
}

// Value is the initial condition at s, the position as a fraction of the domain length
func (it InitType) Value(s float64) (u float64) {
	switch it {
	case SINE:
		u = math.Sin(2 * math.Pi * s)
	case RAMPSTEP:
		u = s
		if s >= 0.5 {
			u += 1
		}
	case STEP:
		fallthrough
	default:
		if s >= 0.25 && s < 0.5 {
			u = 1
		}
	}
	return
}
