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

	"github.com/spf13/cobra"

	"github.com/flowsolve/gosles/model_problems"
	"github.com/flowsolve/gosles/saddle"
	"github.com/flowsolve/gosles/sles"
)

var saddleCmd = &cobra.Command{
	Use:   "saddle",
	Short: "Run the block-preconditioned MINRES on a channel-flow saddle system",
	Run: func(cmd *cobra.Command, args []string) {
		var (
			cells, _     = cmd.Flags().GetInt("cells")
			verbosity, _ = cmd.Flags().GetInt("verbosity")
			trueRes, _   = cmd.Flags().GetInt("trueResEvery")
		)
		sys, _ := model_problems.Channel(cells)

		pc := &saddle.BlockPrecond{}
		x := make([]float64, sys.Size())
		res := saddle.Solve(sys, pc, saddle.Options{
			Verbosity: verbosity,
			Cvg: sles.CvgParam{
				NMaxIter: 2000,
				Atol:     1e-15,
				Rtol:     1e-9,
				Dtol:     1e4,
			},
			TrueResEvery: trueRes,
		}, x)

		fmt.Printf("channel: %s after %d iterations, residual %5.3e (initial %5.3e)\n",
			res.State, res.NIter, res.Residual, res.Residual0)
		saddle.Check(sys, x)
	},
}

func init() {
	rootCmd.AddCommand(saddleCmd)
	saddleCmd.Flags().IntP("cells", "c", 200, "number of pressure cells")
	saddleCmd.Flags().Int("trueResEvery", 0, "recompute the true residual every N iterations (0 disables)")
}
