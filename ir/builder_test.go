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

package ir

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ajroetker/hwyopt/ir/affine"
)

// buildTransposeModule builds a module with one 2-D transpose generic.
func buildTransposeModule(t *testing.T) (*Module, *Operation) {
	t.Helper()
	m := NewModule()
	b := NewBuilder()
	b.SetInsertionPointToEnd(m.Body())
	in := MemRefType{Shape: []int64{3, 2}, Elem: Float32}
	out := MemRefType{Shape: []int64{2, 3}, Elem: Float32}
	var generic *Operation
	b.Func("transpose", []Type{in, out}, func(b *Builder, args []*Value) {
		generic = b.Generic(args[:1], args[1:],
			[]affine.Map{affine.Identity(2), affine.Permutation([]int{1, 0})},
			[]IteratorType{IteratorParallel, IteratorParallel},
			func(b *Builder, bargs []*Value) { b.LinalgYield(bargs[0]) })
	})
	return m, generic
}

func TestBuilderStructure(t *testing.T) {
	m, generic := buildTransposeModule(t)

	fn := m.LookupFunc("transpose")
	if fn == nil {
		t.Fatal("function not found")
	}
	if generic.ParentOp() != fn {
		t.Errorf("generic parent = %v, want the function", generic.ParentOp())
	}
	if generic.Dialect() != LinalgDialect {
		t.Errorf("Dialect() = %q, want %q", generic.Dialect(), LinalgDialect)
	}

	g, ok := AsGeneric(generic)
	if !ok {
		t.Fatal("AsGeneric failed")
	}
	if g.NumInputs() != 1 || g.NumOutputs() != 1 {
		t.Errorf("inputs/outputs = %d/%d, want 1/1", g.NumInputs(), g.NumOutputs())
	}
	if diff := cmp.Diff([]IteratorType{IteratorParallel, IteratorParallel}, g.IteratorTypes()); diff != "" {
		t.Errorf("iterator types mismatch (-want +got):\n%s", diff)
	}
	if maps := g.IndexingMaps(); len(maps) != 2 || !maps[1].Equal(affine.Permutation([]int{1, 0})) {
		t.Errorf("unexpected indexing maps %v", maps)
	}

	counts := CountOps(m.Op)
	want := map[string]int{FuncOpName: 1, GenericOpName: 1, LinalgYieldOpName: 1, ReturnOpName: 1}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Errorf("CountOps mismatch (-want +got):\n%s", diff)
	}

	if errs := Verify(m.Op); len(errs) != 0 {
		t.Errorf("unexpected verification errors: %v", errs)
	}
}

func TestInsertionOrder(t *testing.T) {
	m := NewModule()
	b := NewBuilder()
	b.SetInsertionPointToEnd(m.Body())
	var anchor *Operation
	b.Func("f", nil, func(b *Builder, _ []*Value) {
		anchor = b.Fill(b.ConstantFloat(1, Float32), b.Alloc(MemRefType{Shape: []int64{4}, Elem: Float32}))
	})

	b.SetInsertionPointBefore(anchor)
	first := b.ConstantIndex(1).DefiningOp()
	second := b.ConstantIndex(2).DefiningOp()

	ops := anchor.Block().Ops
	i1, i2, ia := indexOf(ops, first), indexOf(ops, second), indexOf(ops, anchor)
	if !(i1 < i2 && i2 < ia) {
		t.Errorf("insertion order wrong: first=%d second=%d anchor=%d", i1, i2, ia)
	}
}

func indexOf(ops []*Operation, op *Operation) int {
	for i, o := range ops {
		if o == op {
			return i
		}
	}
	return -1
}

func TestRewriterErase(t *testing.T) {
	m, generic := buildTransposeModule(t)
	rw := NewRewriter()
	rw.SetInsertionPointBefore(generic)
	c := rw.ConstantIndex(0)

	if err := rw.EraseOp(generic); err != nil {
		t.Fatalf("EraseOp: %v", err)
	}
	if CountOps(m.Op)[GenericOpName] != 0 {
		t.Errorf("generic still present after erase")
	}
	if err := rw.EraseOp(generic); err == nil {
		t.Errorf("expected error erasing a detached op")
	}

	rw.SetInsertionPointToEnd(c.DefiningOp().Block())
	user := rw.Apply(affine.NewMap(1, 0, affine.Add(affine.Dim(0), affine.Const(1))), c)
	if err := rw.EraseOp(c.DefiningOp()); err == nil {
		t.Errorf("expected error erasing an op with live uses")
	}
	if err := rw.EraseOp(user.DefiningOp()); err != nil {
		t.Errorf("EraseOp(user): %v", err)
	}
	if rw.Created() != 2 || rw.Erased() != 2 {
		t.Errorf("Created/Erased = %d/%d, want 2/2", rw.Created(), rw.Erased())
	}
}

func TestClone(t *testing.T) {
	m, generic := buildTransposeModule(t)
	b := NewBuilder()
	b.SetInsertionPointBefore(generic)
	mapping := map[*Value]*Value{}
	clone := b.Clone(generic, mapping)

	if clone == generic || clone.Name != GenericOpName {
		t.Fatalf("unexpected clone %v", clone.Name)
	}
	if clone.Regions[0].Front().Args[0] == generic.Regions[0].Front().Args[0] {
		t.Errorf("block arguments were not recreated")
	}
	yield := clone.Regions[0].Front().Terminator()
	if yield.Operands[0] != clone.Regions[0].Front().Args[0] {
		t.Errorf("yield operand not remapped to the cloned block argument")
	}
	if CountOps(m.Op)[GenericOpName] != 2 {
		t.Errorf("expected two generics after clone")
	}
	if errs := Verify(m.Op); len(errs) != 0 {
		t.Errorf("unexpected verification errors: %v", errs)
	}
}

func TestPrint(t *testing.T) {
	m, _ := buildTransposeModule(t)
	text := m.String()
	for _, want := range []string{
		"module {",
		"func.func @transpose(%arg0: memref<3x2xf32>, %arg1: memref<2x3xf32>) {",
		"linalg.generic %arg0, %arg1",
		"affine_map<(d0, d1) -> (d1, d0)>",
		"iterator_types = [parallel, parallel]",
		"linalg.yield %arg2",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("printed module missing %q:\n%s", want, text)
		}
	}
}

func TestPrintFor(t *testing.T) {
	m := NewModule()
	b := NewBuilder()
	b.SetInsertionPointToEnd(m.Body())
	b.Func("loops", []Type{MemRefType{Shape: []int64{Dynamic}, Elem: Float32}}, func(b *Builder, args []*Value) {
		n := b.Dim(args[0], 0)
		b.For(ConstBound(0), ValueBound(n), 1, func(b *Builder, iv *Value) {
			b.Store(b.Load(args[0], iv), args[0], iv)
		})
		b.For(ConstBound(0), MapBound(affine.NewMap(1, 0, affine.Mul(affine.Dim(0), affine.Const(4))), n), 2, func(*Builder, *Value) {})
	})
	text := m.String()
	for _, want := range []string{
		"%0 = memref.dim %arg0 {index = 0 : index}",
		"affine.for %arg1 = 0 to %0 {",
		"affine.for %arg2 = 0 to affine_map<(d0) -> (d0 * 4)>(%0) step 2 {",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("printed module missing %q:\n%s", want, text)
		}
	}
	if errs := Verify(m.Op); len(errs) != 0 {
		t.Errorf("unexpected verification errors: %v", errs)
	}
}
