/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	perf "github.com/hodgesds/perf-utils"
	"github.com/pkg/profile"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/notargets/wenohybrid/InputParameters"
	"github.com/notargets/wenohybrid/model_problems/Advection1D"
)

// AdvectCmd represents the advect command
var AdvectCmd = &cobra.Command{
	Use:   "advect",
	Short: "One dimensional linear advection with hybrid face interpolation",
	Long: `
Advects a step, a sine or a ramp with a step around a periodic line with a finite volume
solver, optionally split into partitions that exchange halo and coupled face data,

wenohybrid advect -k 200 -p 3 --ic ramp-step --partitions 4`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("advect called")
		ip, err := advectParameters(cmd)
		if err != nil {
			panic(err)
		}
		ip.Print()
		prof, _ := cmd.Flags().GetString("profile")
		switch prof {
		case "":
		case "cpu":
			defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
		case "mem":
			defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
		default:
			panic(fmt.Errorf("unknown profile %s, must be cpu or mem", prof))
		}
		countInstructions, _ := cmd.Flags().GetBool("perf")
		RunAdvect(ip, countInstructions)
	},
}

func init() {
	rootCmd.AddCommand(AdvectCmd)
	def := InputParameters.NewInputParametersWENO()
	AdvectCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters, flags override its values")
	AdvectCmd.Flags().IntP("k", "k", def.Cells, "Number of cells")
	AdvectCmd.Flags().IntP("p", "p", def.PolynomialOrder, "WENO polynomial order")
	AdvectCmd.Flags().Float64("limit", def.LimitingFlag, "limFac - 0 = not limited, 1 = limited")
	AdvectCmd.Flags().Float64("limiter", def.LimiterScale, "scale of the correction, 0 is linear interpolation")
	AdvectCmd.Flags().String("scheme", "", "scheme entry like \"WENOHybrid phi 3 1 1\", replaces -p, --limit and --limiter")
	AdvectCmd.Flags().Float64("cfl", def.CFL, "CFL - increase for speedup, decrease for stability")
	AdvectCmd.Flags().Float64("finalTime", def.FinalTime, "FinalTime - the target end time for the sim")
	AdvectCmd.Flags().Float64("speed", def.Speed, "advection speed, negative travels left")
	AdvectCmd.Flags().IntP("partitions", "n", def.Partitions, "number of mesh partitions, each solved on its own goroutine")
	AdvectCmd.Flags().String("ic", def.InitType, "initial condition: step, sine or ramp-step")
	AdvectCmd.Flags().Int("logFrequency", def.LogFrequency, "steps between progress lines")
	AdvectCmd.Flags().String("profile", "", "write a cpu or mem profile of the run")
	AdvectCmd.Flags().Bool("perf", false, "count the CPU instructions of the solve")
}

// advectParameters reads the input file if one is named, then applies the flags set on the command line
func advectParameters(cmd *cobra.Command) (ip *InputParameters.InputParametersWENO, err error) {
	var (
		flags = cmd.Flags()
		file  string
	)
	ip = InputParameters.NewInputParametersWENO()
	if file, err = flags.GetString("inputConditionsFile"); err != nil {
		return
	}
	if len(file) != 0 {
		var data []byte
		if data, err = os.ReadFile(file); err != nil {
			return
		}
		if err = ip.Parse(data); err != nil {
			return
		}
	}
	for name, tgt := range map[string]*int{
		"k":            &ip.Cells,
		"p":            &ip.PolynomialOrder,
		"partitions":   &ip.Partitions,
		"logFrequency": &ip.LogFrequency,
	} {
		if flags.Changed(name) {
			if *tgt, err = flags.GetInt(name); err != nil {
				return
			}
		}
	}
	for name, tgt := range map[string]*float64{
		"limit":     &ip.LimitingFlag,
		"limiter":   &ip.LimiterScale,
		"cfl":       &ip.CFL,
		"finalTime": &ip.FinalTime,
		"speed":     &ip.Speed,
	} {
		if flags.Changed(name) {
			if *tgt, err = flags.GetFloat64(name); err != nil {
				return
			}
		}
	}
	for name, tgt := range map[string]*string{
		"ic":     &ip.InitType,
		"scheme": &ip.Scheme,
	} {
		if flags.Changed(name) {
			if *tgt, err = flags.GetString(name); err != nil {
				return
			}
		}
	}
	return
}

func RunAdvect(ip *InputParameters.InputParametersWENO, countInstructions bool) (c *Advection1D.Advection) {
	se, err := ip.SchemeConfig()
	if err != nil {
		panic(err)
	}
	c, err = Advection1D.NewAdvection(ip.Speed, ip.CFL, ip.FinalTime, ip.XMin, ip.XMax, ip.Cells, ip.Partitions,
		se.Config, Advection1D.NewInitType(ip.InitType))
	if err != nil {
		panic(err)
	}
	if ip.LogFrequency > 0 {
		c.LogFrequency = ip.LogFrequency
	}
	if !countInstructions {
		c.Run()
		return
	}
	var ran bool
	pv, err := perf.CPUInstructions(func() error {
		c.Run()
		ran = true
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("hardware counters unavailable")
		if !ran {
			c.Run()
		}
		return
	}
	fmt.Printf("CPU instructions: %d\n", pv.Value)
	return
}
