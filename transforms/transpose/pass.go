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

package transpose

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/ajroetker/hwyopt/conversion"
	"github.com/ajroetker/hwyopt/internal/cpuinfo"
	"github.com/ajroetker/hwyopt/ir"
	"github.com/ajroetker/hwyopt/pass"
)

const (
	// PassName identifies the pass in pipelines.
	PassName = "genericOp-transpose-vectorization"

	// PassDescription is the one-line summary shown in listings.
	PassDescription = "Transpose Optimization for any rank tensor."

	// DefaultVectorSize is the vector width used when none is configured.
	DefaultVectorSize = 16
)

// ErrInvalidVectorSize is returned when the configured vector width is not
// positive.
var ErrInvalidVectorSize = errors.New("vector size must be positive")

// Options configures the pass.
type Options struct {
	// VectorSize is the number of elements moved per vector transfer.
	VectorSize int

	// DeferNonTranspose leaves generics that are not transposes in place, for
	// a later lowering pass. By default they make the pass fail.
	DeferNonTranspose bool

	// Workers bounds the goroutines used to match candidates.
	Workers int

	// Logger receives diagnostics. Defaults to the logrus standard logger.
	Logger logrus.FieldLogger
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{VectorSize: DefaultVectorSize, Workers: 1}
}

// RegisterFlags binds the options to fs using the pipeline option names.
func (o *Options) RegisterFlags(fs *pflag.FlagSet) {
	fs.IntVar(&o.VectorSize, "vector-size", o.VectorSize, "number of elements per vector transfer")
	fs.BoolVar(&o.DeferNonTranspose, "defer-non-transpose", o.DeferNonTranspose, "leave non-transpose generics for a later pass")
	fs.IntVar(&o.Workers, "workers", o.Workers, "goroutines used to match candidates")
}

// Build implements pass.Options.
func (o *Options) Build() (pass.Pass, error) {
	return New(*o)
}

// Pass vectorizes every transposing linalg.generic of a module.
type Pass struct {
	opts Options
}

// New validates opts and returns the pass.
func New(opts Options) (*Pass, error) {
	if opts.VectorSize <= 0 {
		return nil, errors.Wrapf(ErrInvalidVectorSize, "got %d", opts.VectorSize)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Pass{opts: opts}, nil
}

// Register adds the pass to reg.
func Register(reg *pass.Registry) error {
	return reg.Register(pass.Info{
		Name:        PassName,
		Description: PassDescription,
		Dialects:    dependentDialects,
		NewOptions: func() pass.Options {
			opts := DefaultOptions()
			return &opts
		},
	})
}

var dependentDialects = []string{ir.LinalgDialect, ir.AffineDialect, ir.VectorDialect, ir.ArithDialect, ir.MemRefDialect}

// Name implements pass.Pass.
func (p *Pass) Name() string { return PassName }

// Description implements pass.Pass.
func (p *Pass) Description() string { return PassDescription }

// DependentDialects implements pass.Pass.
func (p *Pass) DependentDialects() []string { return dependentDialects }

// VectorSize returns the configured vector width.
func (p *Pass) VectorSize() int { return p.opts.VectorSize }

// Target returns the legality rules the pass converts towards.
func (p *Pass) Target() *conversion.Target {
	t := conversion.NewTarget()
	t.AddLegalDialect(ir.ArithDialect, ir.AffineDialect, ir.MemRefDialect, ir.VectorDialect)
	t.AddLegalOp(ir.ModuleOpName, ir.FuncOpName, ir.ReturnOpName, ir.FillOpName)
	t.AddIllegalDialect(ir.LinalgDialect)
	// A yield is converted or kept together with its generic.
	t.AddLegalOp(ir.LinalgYieldOpName)
	if p.opts.DeferNonTranspose {
		t.AddDynamicallyLegalOp(ir.GenericOpName, func(op *ir.Operation) bool {
			return !Match(op).Ok()
		})
	}
	return t
}

// Run converts every transpose in m. It fails if any illegal operation is
// left, which includes non-transpose generics unless DeferNonTranspose is set.
func (p *Pass) Run(ctx context.Context, m *ir.Module) error {
	log := p.opts.Logger.WithField("pass", PassName)
	log.WithFields(logrus.Fields{
		"vector_size": p.opts.VectorSize,
		"native":      cpuinfo.Detect().String(),
	}).Debug("starting")
	pat := &pattern{vectorSize: int64(p.opts.VectorSize), logger: log}
	stats, err := conversion.ApplyPartialConversion(ctx, m.Op, p.Target(), []conversion.Pattern{pat},
		conversion.WithWorkers(p.opts.Workers), conversion.WithLogger(log))
	log.WithFields(logrus.Fields{
		"candidates": stats.Candidates,
		"converted":  stats.Converted,
		"created":    stats.Created,
	}).Info("transpose vectorization finished")
	if err != nil {
		return errors.WithMessage(err, PassName)
	}
	return nil
}
