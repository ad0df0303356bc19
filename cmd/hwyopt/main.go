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

// Command hwyopt runs optimization pipelines over workload modules.
//
// Usage:
//
//	hwyopt run kernels.yaml --vector-size 8 --print
//	hwyopt run kernels.yaml --pipeline 'genericOp-transpose-vectorization{defer-non-transpose},convert-linalg-to-affine-loops' --check
//	hwyopt passes
//	hwyopt cpuinfo
//
// Defaults for --vector-size, --workers and --log-level are read from
// HWYOPT_VECTOR_SIZE, HWYOPT_WORKERS and HWYOPT_LOG_LEVEL.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"

	"github.com/ajroetker/hwyopt/pass"
	"github.com/ajroetker/hwyopt/transforms/loops"
	"github.com/ajroetker/hwyopt/transforms/transpose"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRegistry returns a registry holding every pass hwyopt knows.
func newRegistry() (*pass.Registry, error) {
	reg := pass.NewRegistry()
	for _, register := range []func(*pass.Registry) error{transpose.Register, loops.Register} {
		if err := register(reg); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func newRootCmd() *cobra.Command {
	logger := logrus.New()
	var logLevel string
	root := &cobra.Command{
		Use:           "hwyopt",
		Short:         "Run tensor IR optimization pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return errors.Wrap(err, "--log-level")
			}
			logger.SetLevel(level)
			logger.SetOutput(cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", env.Str("HWYOPT_LOG_LEVEL", "warning"), "log level (trace, debug, info, warning, error)")
	root.AddCommand(newRunCmd(logger), newPassesCmd(), newCPUInfoCmd())
	return root
}
