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
	"sort"

	"github.com/spf13/cobra"

	"github.com/notargets/wenohybrid/InputParameters"
	"github.com/notargets/wenohybrid/model_problems/Advection1D"
)

// ConvergenceCmd represents the convergence command
var ConvergenceCmd = &cobra.Command{
	Use:   "convergence",
	Short: "Order of accuracy of the scheme on a sine advected over one period",
	Long: `
Runs the sine advection problem on a sequence of meshes and prints the RMS and maximum error
with the observed order of accuracy. A study written with --csvFile can be printed again
with --readFile,

wenohybrid convergence -p 3 --cells 20,40,80,160`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("convergence called")
		if readFile, _ := cmd.Flags().GetString("readFile"); len(readFile) != 0 {
			if err := PrintStudies(readFile); err != nil {
				panic(err)
			}
			return
		}
		ip, err := advectParameters(cmd)
		if err != nil {
			panic(err)
		}
		cells, _ := cmd.Flags().GetIntSlice("cells")
		csvFile, _ := cmd.Flags().GetString("csvFile")
		if err = RunConvergence(ip, cells, csvFile); err != nil {
			panic(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(ConvergenceCmd)
	def := InputParameters.NewInputParametersWENO()
	ConvergenceCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file for input parameters, flags override its values")
	ConvergenceCmd.Flags().IntSlice("cells", []int{20, 40, 80, 160}, "numbers of cells of the meshes")
	ConvergenceCmd.Flags().IntP("p", "p", def.PolynomialOrder, "WENO polynomial order")
	ConvergenceCmd.Flags().Float64("limit", def.LimitingFlag, "limFac - 0 = not limited, 1 = limited")
	ConvergenceCmd.Flags().Float64("limiter", def.LimiterScale, "scale of the correction, 0 is linear interpolation")
	ConvergenceCmd.Flags().String("scheme", "", "scheme entry like \"WENOHybrid phi 3 1 1\", replaces -p, --limit and --limiter")
	ConvergenceCmd.Flags().Float64("cfl", def.CFL, "CFL - increase for speedup, decrease for stability")
	ConvergenceCmd.Flags().IntP("partitions", "n", def.Partitions, "number of mesh partitions")
	ConvergenceCmd.Flags().String("csvFile", "", "file to write the study to")
	ConvergenceCmd.Flags().String("readFile", "", "print the studies in a file written with --csvFile")
}

func RunConvergence(ip *InputParameters.InputParametersWENO, cells []int, csvFile string) (err error) {
	var (
		se *InputParameters.SchemeEntry
		cs *Advection1D.ConvergenceStudy
	)
	if se, err = ip.SchemeConfig(); err != nil {
		return
	}
	if cs, err = Advection1D.RunConvergence(se.Config, ip.CFL, cells, ip.Partitions); err != nil {
		return
	}
	cs.Print()
	if len(csvFile) == 0 {
		return
	}
	var f *os.File
	if f, err = os.Create(csvFile); err != nil {
		return
	}
	defer f.Close()
	return cs.WriteCSV(f)
}

func PrintStudies(csvFile string) (err error) {
	var (
		f       *os.File
		studies map[string]*Advection1D.ConvergenceStudy
	)
	if f, err = os.Open(csvFile); err != nil {
		return
	}
	defer f.Close()
	if studies, err = Advection1D.ReadCSV(f); err != nil {
		return
	}
	fmt.Printf("Input file: %v\n", csvFile)
	keys := make([]string, 0, len(studies))
	for k := range studies {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		studies[key].Print()
	}
	return
}
