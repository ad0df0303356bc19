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

// Package workload describes test modules in YAML. A workload file lists
// functions, each a sequence of kernels; every kernel appends its buffers to
// the function's parameters and emits one linalg operation.
//
//	functions:
//	  - name: main
//	    elem: f32
//	    kernels:
//	      - kind: transpose
//	        shape: [3, "?"]
//	        perm: [1, 0]
//	        runtime: [3, 5]
package workload

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/ajroetker/hwyopt/interp"
	"github.com/ajroetker/hwyopt/ir"
	"github.com/ajroetker/hwyopt/ir/affine"
)

// Kernel kinds.
const (
	KindTranspose = "transpose"
	KindCopy      = "copy"
	KindAddOne    = "add_one"
	KindReduction = "reduction"
	KindFill      = "fill"
)

// File is a parsed workload file.
type File struct {
	Functions []Function `yaml:"functions"`
}

// Function is one func.func of the generated module.
type Function struct {
	Name    string   `yaml:"name"`
	Elem    string   `yaml:"elem"`
	Kernels []Kernel `yaml:"kernels"`
}

// Kernel is one linalg operation and the buffers it reads and writes.
type Kernel struct {
	Kind string `yaml:"kind"`

	// Shape is the input shape, or the output shape of a fill.
	Shape Shape `yaml:"shape"`

	// Perm is the transpose permutation: output dimension i reads input
	// dimension Perm[i]. Only used by transpose and add_one.
	Perm []int `yaml:"perm,omitempty"`

	// Value is the fill value.
	Value float64 `yaml:"value,omitempty"`

	// Runtime gives concrete extents for running the kernel. It is required
	// when Shape has dynamic dimensions.
	Runtime []int64 `yaml:"runtime,omitempty"`
}

// Shape is a memref shape in which "?" marks a dynamic dimension.
type Shape []int64

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Shape) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return errors.Errorf("line %d: shape must be a sequence", node.Line)
	}
	out := make(Shape, len(node.Content))
	for i, n := range node.Content {
		if n.Value == "?" {
			out[i] = ir.Dynamic
			continue
		}
		v, err := strconv.ParseInt(n.Value, 10, 64)
		if err != nil || v < 0 {
			return errors.Errorf("line %d: invalid extent %q", n.Line, n.Value)
		}
		out[i] = v
	}
	*s = out
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s Shape) MarshalYAML() (any, error) {
	return lo.Map(s, func(d int64, _ int) any {
		if d == ir.Dynamic {
			return "?"
		}
		return d
	}), nil
}

// Parse decodes a workload and validates it.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parse workload")
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Load reads and parses the workload file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read workload")
	}
	f, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return f, nil
}

// Validate checks names, element types, shapes and permutations.
func (f *File) Validate() error {
	if len(f.Functions) == 0 {
		return errors.New("workload has no functions")
	}
	if dups := lo.FindDuplicates(lo.Map(f.Functions, func(fn Function, _ int) string { return fn.Name })); len(dups) > 0 {
		return errors.Errorf("duplicate function names %v", dups)
	}
	for _, fn := range f.Functions {
		if err := fn.validate(); err != nil {
			return errors.Wrapf(err, "function %q", fn.Name)
		}
	}
	return nil
}

func (fn Function) validate() error {
	if fn.Name == "" {
		return errors.New("missing name")
	}
	if _, ok := ir.ParseScalarType(fn.Elem); !ok {
		return errors.Errorf("unknown element type %q", fn.Elem)
	}
	for i, k := range fn.Kernels {
		if err := k.validate(); err != nil {
			return errors.Wrapf(err, "kernel %d (%s)", i, k.Kind)
		}
	}
	return nil
}

func (k Kernel) validate() error {
	rank := len(k.Shape)
	if rank == 0 {
		return errors.New("missing shape")
	}
	switch k.Kind {
	case KindTranspose, KindAddOne:
		if !isPermutation(k.Perm, rank) {
			return errors.Errorf("perm %v is not a permutation of %d dimensions", k.Perm, rank)
		}
	case KindCopy, KindFill:
	case KindReduction:
		if rank < 2 {
			return errors.New("reduction needs rank 2 or more")
		}
	default:
		return errors.Errorf("unknown kernel kind %q", k.Kind)
	}
	if k.Runtime != nil {
		if len(k.Runtime) != rank {
			return errors.Errorf("runtime extents %v do not match rank %d", k.Runtime, rank)
		}
		for i, d := range k.Shape {
			if d != ir.Dynamic && d != k.Runtime[i] {
				return errors.Errorf("runtime extent %d of dim %d contradicts static %d", k.Runtime[i], i, d)
			}
		}
	}
	return nil
}

func isPermutation(perm []int, rank int) bool {
	if len(perm) != rank {
		return false
	}
	return lo.EveryBy(perm, func(p int) bool { return p >= 0 && p < rank }) && len(lo.Uniq(perm)) == rank
}

// permutation returns the kernel's permutation, the identity for copies.
func (k Kernel) permutation() []int {
	if k.Kind == KindCopy {
		return lo.Range(len(k.Shape))
	}
	return k.Perm
}

func permuteShape(s []int64, perm []int) []int64 {
	return lo.Map(perm, func(p int, _ int) int64 { return s[p] })
}

// Params returns the memref types of the kernel's buffers, inputs first.
func (k Kernel) Params(elem ir.ScalarType) []ir.MemRefType {
	in := ir.MemRefType{Shape: append([]int64(nil), k.Shape...), Elem: elem}
	switch k.Kind {
	case KindFill:
		return []ir.MemRefType{in}
	case KindReduction:
		out := ir.MemRefType{Shape: append([]int64(nil), k.Shape[:len(k.Shape)-1]...), Elem: elem}
		return []ir.MemRefType{in, out}
	default:
		return []ir.MemRefType{in, {Shape: permuteShape(k.Shape, k.permutation()), Elem: elem}}
	}
}

// Build generates a module with one func.func per function of f and loads
// the dialects it uses into ctx.
func (f *File) Build(ctx *ir.Context) (*ir.Module, error) {
	if err := ctx.LoadDialect(ir.FuncDialect, ir.ArithDialect, ir.MemRefDialect, ir.LinalgDialect); err != nil {
		return nil, err
	}
	m := ir.NewModule()
	b := ir.NewBuilder()
	b.SetInsertionPointToEnd(m.Body())
	for _, fn := range f.Functions {
		elem, _ := ir.ParseScalarType(fn.Elem)
		var argTypes []ir.Type
		for _, k := range fn.Kernels {
			for _, t := range k.Params(elem) {
				argTypes = append(argTypes, t)
			}
		}
		b.SetLoc(fn.Name)
		b.Func(fn.Name, argTypes, func(b *ir.Builder, args []*ir.Value) {
			next := 0
			for i, k := range fn.Kernels {
				n := len(k.Params(elem))
				b.SetLoc(fmt.Sprintf("%s#%d", fn.Name, i))
				buildKernel(b, k, elem, args[next:next+n])
				next += n
			}
		})
	}
	if err := ir.VerifyModule(m); err != nil {
		return nil, errors.Wrap(err, "generated module")
	}
	return m, nil
}

func parallel(n int) []ir.IteratorType {
	return lo.Times(n, func(int) ir.IteratorType { return ir.IteratorParallel })
}

func buildKernel(b *ir.Builder, k Kernel, elem ir.ScalarType, args []*ir.Value) {
	rank := len(k.Shape)
	switch k.Kind {
	case KindFill:
		var v *ir.Value
		if elem.IsFloat() {
			v = b.ConstantFloat(k.Value, elem)
		} else {
			v = b.ConstantInt(int64(k.Value), elem)
		}
		b.Fill(v, args[0])

	case KindReduction:
		outMap := affine.NewMap(rank, 0, lo.Times(rank-1, func(i int) affine.Expr { return affine.Dim(i) })...)
		iters := append(parallel(rank-1), ir.IteratorReduction)
		b.Generic(args[:1], args[1:], []affine.Map{affine.Identity(rank), outMap}, iters,
			func(b *ir.Builder, bargs []*ir.Value) {
				b.LinalgYield(b.Binary(addOp(elem), bargs[0], bargs[1]))
			})

	case KindAddOne:
		b.Generic(args[:1], args[1:], []affine.Map{affine.Identity(rank), affine.Permutation(k.Perm)}, parallel(rank),
			func(b *ir.Builder, bargs []*ir.Value) {
				var one *ir.Value
				if elem.IsFloat() {
					one = b.ConstantFloat(1, elem)
				} else {
					one = b.ConstantInt(1, elem)
				}
				b.LinalgYield(b.Binary(addOp(elem), bargs[0], one))
			})

	default:
		b.Generic(args[:1], args[1:], []affine.Map{affine.Identity(rank), affine.Permutation(k.permutation())}, parallel(rank),
			func(b *ir.Builder, bargs []*ir.Value) { b.LinalgYield(bargs[0]) })
	}
}

func addOp(elem ir.ScalarType) string {
	if elem.IsFloat() {
		return ir.AddFOpName
	}
	return ir.AddIOpName
}

// Buffers returns fresh arguments for running fn: inputs hold 0, 1, 2, ...
// and outputs are zero. Dynamic extents come from each kernel's Runtime.
func (fn Function) Buffers() ([]*interp.Buffer, error) {
	elem, ok := ir.ParseScalarType(fn.Elem)
	if !ok {
		return nil, errors.Errorf("unknown element type %q", fn.Elem)
	}
	var bufs []*interp.Buffer
	for i, k := range fn.Kernels {
		concrete := k.Runtime
		if concrete == nil {
			if lo.Contains(k.Shape, ir.Dynamic) {
				return nil, errors.Errorf("kernel %d has dynamic extents and no runtime shape", i)
			}
			concrete = k.Shape
		}
		rk := k
		rk.Shape = concrete
		for j, t := range rk.Params(elem) {
			if j == 0 && k.Kind != KindFill {
				bufs = append(bufs, interp.Iota(t.Elem, t.Shape...))
				continue
			}
			bufs = append(bufs, interp.NewBuffer(t.Elem, t.Shape...))
		}
	}
	return bufs, nil
}

// Lookup returns the function named name.
func (f *File) Lookup(name string) (Function, bool) {
	return lo.Find(f.Functions, func(fn Function) bool { return fn.Name == name })
}
