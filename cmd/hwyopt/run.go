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
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"

	"github.com/ajroetker/hwyopt/interp"
	"github.com/ajroetker/hwyopt/ir"
	"github.com/ajroetker/hwyopt/pass"
	"github.com/ajroetker/hwyopt/transforms/transpose"
	"github.com/ajroetker/hwyopt/workload"
)

type runFlags struct {
	pipeline   string
	vectorSize int
	workers    int
	deferOther bool
	print      bool
	check      bool
	noVerify   bool
}

func newRunCmd(logger *logrus.Logger) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run WORKLOAD.yaml",
		Short: "Build a workload module and run a pass pipeline over it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkload(cmd.Context(), cmd.OutOrStdout(), logger, args[0], f)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&f.pipeline, "pipeline", "", "pass pipeline, e.g. 'a{opt=1},b'; defaults to the transpose pass configured by the flags below")
	fs.IntVar(&f.vectorSize, "vector-size", env.Int("HWYOPT_VECTOR_SIZE", transpose.DefaultVectorSize), "vector width of the default pipeline")
	fs.IntVar(&f.workers, "workers", env.Int("HWYOPT_WORKERS", 1), "goroutines used to match candidates in the default pipeline")
	fs.BoolVar(&f.deferOther, "defer-non-transpose", false, "leave non-transpose generics in place in the default pipeline")
	fs.BoolVar(&f.print, "print", false, "print the module after the pipeline")
	fs.BoolVar(&f.check, "check", false, "execute every function before and after the pipeline and compare the results")
	fs.BoolVar(&f.noVerify, "no-verify", false, "skip IR verification after each pass")
	return cmd
}

// defaultPipeline renders the transpose pass with the given flags.
func (f runFlags) defaultPipeline() string {
	opts := fmt.Sprintf("vector-size=%d workers=%d", f.vectorSize, f.workers)
	if f.deferOther {
		opts += " defer-non-transpose"
	}
	return fmt.Sprintf("%s{%s}", transpose.PassName, opts)
}

func runWorkload(ctx context.Context, out io.Writer, logger *logrus.Logger, path string, f runFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	wl, err := workload.Load(path)
	if err != nil {
		return err
	}
	irCtx := ir.NewContext()
	m, err := wl.Build(irCtx)
	if err != nil {
		return err
	}

	reg, err := newRegistry()
	if err != nil {
		return err
	}
	pipeline := f.pipeline
	if pipeline == "" {
		pipeline = f.defaultPipeline()
	}
	mgr := pass.NewManager(irCtx, pass.WithVerifier(!f.noVerify), pass.WithManagerLogger(logger))
	if err := mgr.AddPipeline(reg, pipeline); err != nil {
		return err
	}
	logger.WithField("pipeline", pipeline).Info("running")
	if err := mgr.Run(ctx, m); err != nil {
		return err
	}

	if f.print {
		fmt.Fprintln(out, m)
	}
	if f.check {
		ref, err := wl.Build(ir.NewContext())
		if err != nil {
			return err
		}
		for _, fn := range wl.Functions {
			if err := compare(ref, m, fn); err != nil {
				return errors.Wrapf(err, "check %s", fn.Name)
			}
			fmt.Fprintf(out, "%s: ok\n", fn.Name)
		}
	}
	return nil
}

// compare runs fn on the reference and the optimized module and requires
// identical buffers.
func compare(ref, opt *ir.Module, fn workload.Function) error {
	want, err := fn.Buffers()
	if err != nil {
		return err
	}
	if _, err := interp.Run(ref, fn.Name, want...); err != nil {
		return errors.Wrap(err, "reference")
	}
	got, err := fn.Buffers()
	if err != nil {
		return err
	}
	if _, err := interp.Run(opt, fn.Name, got...); err != nil {
		return errors.Wrap(err, "optimized")
	}
	for i := range want {
		for j := range want[i].Data {
			if want[i].Data[j] != got[i].Data[j] {
				return errors.Errorf("argument %d differs at flat index %d: got %g, want %g", i, j, got[i].Data[j], want[i].Data[j])
			}
		}
	}
	return nil
}
