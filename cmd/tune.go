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
	"github.com/flowsolve/gosles/sparse"
	"github.com/flowsolve/gosles/tuning"
	"github.com/flowsolve/gosles/utils"
)

var tuneCmd = &cobra.Command{
	Use:   "tune",
	Short: "Benchmark the registered SpMV kernel variants and report the fastest",
	Long: `
Builds a Poisson operator of the requested size in the requested storage
layout, times every registered matrix-vector kernel variant for both
operator forms, and prints the selected variants with their speedups.`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			size, _      = cmd.Flags().GetInt("size")
			storage, _   = cmd.Flags().GetString("storage")
			nMeasure, _  = cmd.Flags().GetInt("measures")
			verbosity, _ = cmd.Flags().GetInt("verbosity")
		)
		var m *sparse.Matrix
		switch storage {
		case "native":
			m = model_problems.Poisson1DNative(size * size)
		case "csr":
			m = model_problems.Poisson2DCSR(size, size)
		default:
			fmt.Printf("error: unknown storage layout %q (want native or csr)\n", storage)
			return
		}
		fmt.Printf("Tuning %s matrix, dimension %d\n", m.TypeName(), m.NRows())

		variants := tuning.TunedVariants(m, tuning.Options{
			Verbosity: verbosity + 1,
			NMeasure:  nMeasure,
		})
		if len(variants) > 0 {
			m.ApplyVariant(variants[0])
		}
		fmt.Println(utils.GetMemUsage())
	},
}

func init() {
	rootCmd.AddCommand(tuneCmd)
	tuneCmd.Flags().IntP("size", "s", 256, "grid edge size; the matrix dimension is size^2")
	tuneCmd.Flags().StringP("storage", "S", "csr", "matrix storage layout: native or csr")
	tuneCmd.Flags().IntP("measures", "m", 8, "timed runs per variant")
}
