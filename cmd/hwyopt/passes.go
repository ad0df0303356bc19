// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ajroetker/hwyopt/internal/cpuinfo"
	"github.com/ajroetker/hwyopt/ir"
)

func newPassesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passes",
		Short: "List the registered passes and their options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := newRegistry()
			if err != nil {
				return err
			}
			title := cases.Title(language.English)
			out := cmd.OutOrStdout()
			for _, info := range reg.Infos() {
				fmt.Fprintf(out, "%s\n  %s\n", info.Name, info.Description)
				dialects := lo.Map(info.Dialects, func(d string, _ int) string { return title.String(d) })
				fmt.Fprintf(out, "  Dialects: %s\n", strings.Join(dialects, ", "))

				fs := pflag.NewFlagSet(info.Name, pflag.ContinueOnError)
				info.NewOptions().RegisterFlags(fs)
				fs.VisitAll(func(fl *pflag.Flag) {
					fmt.Fprintf(out, "  %s=%s\t%s\n", fl.Name, fl.DefValue, fl.Usage)
				})
			}
			return nil
		},
	}
}

func newCPUInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cpuinfo",
		Short: "Show the host SIMD level and the matching vector sizes",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			info := cpuinfo.Detect()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "SIMD: %s\n", info)
			for _, elem := range []ir.ScalarType{ir.Float16, ir.Float32, ir.Float64} {
				fmt.Fprintf(out, "  %s: vector-size=%d\n", elem, info.Lanes(elem.Bytes()))
			}
		},
	}
}
