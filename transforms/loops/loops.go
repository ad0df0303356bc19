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

// Package loops lowers linalg operations to scalar affine loop nests. It
// handles every linalg.generic, whatever its iterators or body, and is meant
// to run after more specialized lowerings.
package loops

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/ajroetker/hwyopt/conversion"
	"github.com/ajroetker/hwyopt/ir"
	"github.com/ajroetker/hwyopt/ir/affine"
	"github.com/ajroetker/hwyopt/pass"
)

const (
	PassName        = "convert-linalg-to-affine-loops"
	PassDescription = "Lower linalg.generic and linalg.fill to scalar affine loops."
)

// Options configures the pass.
type Options struct {
	// Workers bounds the goroutines used to match candidates.
	Workers int

	Logger logrus.FieldLogger
}

// RegisterFlags implements pass.Options.
func (o *Options) RegisterFlags(fs *pflag.FlagSet) {
	fs.IntVar(&o.Workers, "workers", o.Workers, "goroutines used to match candidates")
}

// Build implements pass.Options.
func (o *Options) Build() (pass.Pass, error) { return New(*o), nil }

// Pass lowers all linalg operations of a module.
type Pass struct {
	opts Options
}

// New returns the pass.
func New(opts Options) *Pass {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Pass{opts: opts}
}

// Register adds the pass to reg.
func Register(reg *pass.Registry) error {
	return reg.Register(pass.Info{
		Name:        PassName,
		Description: PassDescription,
		Dialects:    dependentDialects,
		NewOptions:  func() pass.Options { return &Options{Workers: 1} },
	})
}

var dependentDialects = []string{ir.AffineDialect, ir.ArithDialect, ir.MemRefDialect}

func (p *Pass) Name() string                { return PassName }
func (p *Pass) Description() string         { return PassDescription }
func (p *Pass) DependentDialects() []string { return dependentDialects }

// Run lowers every linalg operation of m.
func (p *Pass) Run(ctx context.Context, m *ir.Module) error {
	log := p.opts.Logger.WithField("pass", PassName)
	target := conversion.NewTarget()
	target.AddLegalDialect(ir.BuiltinDialect, ir.FuncDialect, ir.ArithDialect, ir.AffineDialect, ir.MemRefDialect, ir.VectorDialect)
	target.AddIllegalDialect(ir.LinalgDialect)

	patterns := []conversion.Pattern{
		conversion.PatternFunc{
			Root:      ir.GenericOpName,
			MatchFn:   func(op *ir.Operation) (any, bool) { return nil, true },
			RewriteFn: lowerGeneric,
		},
		conversion.PatternFunc{
			Root:      ir.FillOpName,
			MatchFn:   func(op *ir.Operation) (any, bool) { return nil, true },
			RewriteFn: lowerFill,
		},
	}
	stats, err := conversion.ApplyPartialConversion(ctx, m.Op, target, patterns,
		conversion.WithWorkers(p.opts.Workers), conversion.WithLogger(log))
	log.WithFields(logrus.Fields{"converted": stats.Converted, "created": stats.Created}).Info("linalg lowered to loops")
	if err != nil {
		return errors.WithMessage(err, PassName)
	}
	return nil
}

// nest creates one affine.for per upper bound, all starting at 0, and calls
// body in the innermost loop.
func nest(b *ir.Builder, ubs []ir.Bound, body func(b *ir.Builder, ivs []*ir.Value)) {
	var rec func(b *ir.Builder, ivs []*ir.Value)
	rec = func(b *ir.Builder, ivs []*ir.Value) {
		if len(ivs) == len(ubs) {
			body(b, ivs)
			return
		}
		b.For(ir.ConstBound(0), ubs[len(ivs)], 1, func(b *ir.Builder, iv *ir.Value) {
			rec(b, append(ivs[:len(ivs):len(ivs)], iv))
		})
	}
	rec(b, nil)
}

// extent returns dimension i of memref as a loop bound, querying it at b's
// insertion point when it is dynamic.
func extent(b *ir.Builder, memref *ir.Value, i int) ir.Bound {
	mt := memref.Type().(ir.MemRefType)
	if mt.IsDynamicDim(i) {
		return ir.ValueBound(b.Dim(memref, i))
	}
	return ir.ConstBound(mt.Shape[i])
}

// loopBounds finds, for every loop dimension, an operand dimension indexed
// by that loop alone.
func loopBounds(b *ir.Builder, g ir.GenericOp) ([]ir.Bound, error) {
	maps := g.IndexingMaps()
	if len(maps) == 0 {
		return nil, errors.New("generic has no indexing maps")
	}
	ubs := make([]ir.Bound, maps[0].NumDims)
	found := make([]bool, len(ubs))
	for i, m := range maps {
		for r, e := range m.Results {
			d, ok := e.(affine.DimExpr)
			if !ok || d.Pos >= len(ubs) || found[d.Pos] {
				continue
			}
			ubs[d.Pos] = extent(b, g.Operands[i], r)
			found[d.Pos] = true
		}
	}
	for d, ok := range found {
		if !ok {
			return nil, errors.Errorf("no operand dimension bounds loop d%d", d)
		}
	}
	return ubs, nil
}

// access returns the indices of map m at the loop position ivs.
func access(b *ir.Builder, m affine.Map, ivs []*ir.Value) []*ir.Value {
	idx := make([]*ir.Value, len(m.Results))
	for r, e := range m.Results {
		if d, ok := e.(affine.DimExpr); ok {
			idx[r] = ivs[d.Pos]
			continue
		}
		idx[r] = b.Apply(affine.NewMap(m.NumDims, 0, e), ivs...)
	}
	return idx
}

func lowerGeneric(op *ir.Operation, _ any, rw *ir.Rewriter) error {
	g, _ := ir.AsGeneric(op)
	maps := g.IndexingMaps()
	if len(maps) != len(g.Operands) {
		return errors.Errorf("%d indexing maps for %d operands", len(maps), len(g.Operands))
	}
	body := g.Body()
	if body == nil || !body.HasOneBlock() {
		return errors.New("generic body must be a single block")
	}
	blk := body.Front()
	yield := blk.Terminator()
	if yield == nil || yield.Name != ir.LinalgYieldOpName || len(yield.Operands) != g.NumOutputs() {
		return errors.New("generic body must yield one value per output")
	}

	ubs, err := loopBounds(rw.Builder, g)
	if err != nil {
		return err
	}
	nest(rw.Builder, ubs, func(b *ir.Builder, ivs []*ir.Value) {
		mapping := make(map[*ir.Value]*ir.Value, len(blk.Args))
		for i, operand := range g.Operands {
			mapping[blk.Args[i]] = b.Load(operand, access(b, maps[i], ivs)...)
		}
		for _, nested := range blk.Ops[:len(blk.Ops)-1] {
			b.Clone(nested, mapping)
		}
		for i, out := range g.Outputs() {
			v := yield.Operands[i]
			if m, ok := mapping[v]; ok {
				v = m
			}
			b.Store(v, out, access(b, maps[g.NumInputs()+i], ivs)...)
		}
	})
	return rw.EraseOp(op)
}

func lowerFill(op *ir.Operation, _ any, rw *ir.Rewriter) error {
	value, out := op.Operand(0), op.Operand(1)
	mt := out.Type().(ir.MemRefType)
	ubs := make([]ir.Bound, mt.Rank())
	for i := range ubs {
		ubs[i] = extent(rw.Builder, out, i)
	}
	nest(rw.Builder, ubs, func(b *ir.Builder, ivs []*ir.Value) {
		b.Store(value, out, ivs...)
	})
	return rw.EraseOp(op)
}
