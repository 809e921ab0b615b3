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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flowsolve/gosles/InputParameters"
	"github.com/flowsolve/gosles/dispatch"
	"github.com/flowsolve/gosles/model_problems"
	"github.com/flowsolve/gosles/tuning"
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve a Poisson model system with the configured solver",
	Long: `
Builds a 2D Poisson system, configures the "pressure" linear system from
the solver section of the config file (solver, precond, rtol, ...), tunes
the SpMV kernels, solves, and reports iterations and residual.`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			size, _      = cmd.Flags().GetInt("size")
			verbosity, _ = cmd.Flags().GetInt("verbosity")
			tune, _      = cmd.Flags().GetBool("tune")
			icFile, _    = cmd.Flags().GetString("inputParametersFile")
		)
		opts := viper.GetStringMapString("solver")
		if opts == nil {
			opts = map[string]string{}
		}
		if len(icFile) != 0 {
			ip, err := processInput(icFile)
			if err != nil {
				fmt.Printf("error: %s\n", err.Error())
				return
			}
			if ip.Verbosity > verbosity {
				verbosity = ip.Verbosity
			}
			tune = tune || ip.Tune
			for k, v := range ip.Systems["pressure"] {
				opts[k] = v
			}
		}

		m := model_problems.Poisson2DCSR(size, size)
		if tune {
			variants := tuning.TunedVariants(m, tuning.Options{Verbosity: verbosity})
			if len(variants) > 0 {
				m.ApplyVariant(variants[0])
			}
		}

		bd := dispatch.Define(-1, "pressure", 1)
		bd.Params.Verbosity = verbosity
		if err := bd.Finalize(opts); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			return
		}

		var (
			n = m.NRows()
			b = model_problems.RandomRHS(n, 42)
			x = make([]float64, n)
		)
		nIter, res, state, err := bd.Solve(m, 1, b, x)
		if err != nil {
			fmt.Printf("error: %s\n", err.Error())
			return
		}
		fmt.Printf("pressure: %s after %d iterations, residual %5.3e\n",
			state, nIter, res)
	},
}

func processInput(path string) (ip *InputParameters.SolverParameters, err error) {
	var data []byte
	if data, err = os.ReadFile(path); err != nil {
		return
	}
	ip = &InputParameters.SolverParameters{}
	if err = ip.Parse(data); err != nil {
		return
	}
	ip.Print()
	return
}

func init() {
	rootCmd.AddCommand(solveCmd)
	solveCmd.Flags().IntP("size", "s", 128, "grid edge size; the system dimension is size^2")
	solveCmd.Flags().BoolP("tune", "t", false, "tune the SpMV kernels before solving")
	solveCmd.Flags().StringP("inputParametersFile", "I", "", "YAML file with per-system solver options")
}
