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

package affine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExprString(t *testing.T) {
	tests := []struct {
		expr Expr
		want string
	}{
		{Dim(0), "d0"},
		{Symbol(2), "s2"},
		{Const(-3), "-3"},
		{Add(Dim(0), Dim(1)), "d0 + d1"},
		{Add(Mul(Dim(0), Const(4)), Dim(1)), "d0 * 4 + d1"},
		{Mul(Add(Dim(0), Dim(1)), Const(4)), "(d0 + d1) * 4"},
		{Mul(FloorDiv(Dim(0), Const(16)), Const(16)), "d0 floordiv 16 * 16"},
		{Mod(Dim(0), Const(16)), "d0 mod 16"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.expr.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFolding(t *testing.T) {
	tests := []struct {
		name string
		got  Expr
		want Expr
	}{
		{"const add", Add(Const(2), Const(3)), Const(5)},
		{"add zero", Add(Dim(1), Const(0)), Dim(1)},
		{"const moves right", Add(Const(7), Dim(0)), BinaryExpr{Op: KindAdd, LHS: Dim(0), RHS: Const(7)}},
		{"mul one", Mul(Const(1), Dim(2)), Dim(2)},
		{"mul zero", Mul(Dim(2), Const(0)), Const(0)},
		{"floordiv one", FloorDiv(Dim(0), Const(1)), Dim(0)},
		{"mod one", Mod(Dim(0), Const(1)), Const(0)},
		{"nested add consts", Add(Add(Dim(0), Const(2)), Const(3)), BinaryExpr{Op: KindAdd, LHS: Dim(0), RHS: Const(5)}},
		{"div by zero kept", FloorDiv(Const(4), Const(0)), BinaryExpr{Op: KindFloorDiv, LHS: Const(4), RHS: Const(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !Equal(tt.got, tt.want) {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestStructuralEquality(t *testing.T) {
	a := Add(Mul(Dim(0), Const(4)), Dim(1))
	b := Add(Mul(Dim(0), Const(4)), Dim(1))
	if !Equal(a, b) {
		t.Errorf("identical trees should be equal")
	}
	if Equal(a, Add(Mul(Dim(1), Const(4)), Dim(0))) {
		t.Errorf("different trees should not be equal")
	}
	if Equal(Dim(0), Symbol(0)) {
		t.Errorf("dim and symbol with the same position should differ")
	}
}

func TestEvalFloorSemantics(t *testing.T) {
	tests := []struct {
		expr Expr
		dims []int64
		want int64
	}{
		{Mod(Dim(0), Const(4)), []int64{7}, 3},
		{Mod(Dim(0), Const(4)), []int64{-1}, 3},
		{FloorDiv(Dim(0), Const(4)), []int64{-1}, -1},
		{FloorDiv(Dim(0), Const(4)), []int64{7}, 1},
		{CeilDiv(Dim(0), Const(4)), []int64{7}, 2},
		{CeilDiv(Dim(0), Const(4)), []int64{8}, 2},
		{Add(Mul(Dim(0), Const(16)), Dim(1)), []int64{2, 5}, 37},
	}
	for _, tt := range tests {
		got, err := Eval(tt.expr, tt.dims, nil)
		if err != nil {
			t.Fatalf("Eval(%v): %v", tt.expr, err)
		}
		if got != tt.want {
			t.Errorf("Eval(%v, %v) = %d, want %d", tt.expr, tt.dims, got, tt.want)
		}
	}

	if _, err := Eval(FloorDiv(Dim(0), Dim(1)), []int64{3, 0}, nil); err == nil {
		t.Errorf("expected division by zero error")
	}
	if _, err := Eval(Dim(3), []int64{1}, nil); err == nil {
		t.Errorf("expected out of range dimension error")
	}
}

func TestReplace(t *testing.T) {
	e := Add(Mul(Dim(0), Const(4)), Dim(1))
	got := Replace(e, []Expr{Const(2), nil}, nil)
	want := Add(Dim(1), Const(8))
	if !Equal(got, want) {
		t.Errorf("Replace = %v, want %v", got, want)
	}
	if !UsesDim(e, 1) || UsesDim(e, 2) {
		t.Errorf("UsesDim reported wrong result for %v", e)
	}
}

func TestMapPermutation(t *testing.T) {
	m := Permutation([]int{2, 0, 1})
	if got, want := m.String(), "(d0, d1, d2) -> (d2, d0, d1)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	perm, ok := m.PermutationVector()
	if !ok {
		t.Fatalf("expected a permutation")
	}
	if diff := cmp.Diff([]int{2, 0, 1}, perm); diff != "" {
		t.Errorf("PermutationVector mismatch (-want +got):\n%s", diff)
	}

	notPerm := NewMap(2, 0, Dim(0), Dim(0))
	if notPerm.IsPermutation() {
		t.Errorf("%v is not a permutation", notPerm)
	}

	out, err := m.Eval([]int64{10, 20, 30}, nil)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if diff := cmp.Diff([]int64{30, 10, 20}, out); diff != "" {
		t.Errorf("Eval mismatch (-want +got):\n%s", diff)
	}
	if _, err := m.Eval([]int64{1}, nil); err == nil {
		t.Errorf("expected arity error")
	}
}

func TestMapEqual(t *testing.T) {
	if !Identity(3).Equal(Permutation([]int{0, 1, 2})) {
		t.Errorf("identity should equal the identity permutation")
	}
	if Identity(2).Equal(Identity(3)) {
		t.Errorf("maps with different dims should differ")
	}
	c := Constant(5)
	if v, ok := c.SingleConstant(); !ok || v != 5 {
		t.Errorf("SingleConstant() = %d, %v", v, ok)
	}
	if got, want := NewMap(1, 1, Add(Dim(0), Symbol(0))).String(), "(d0)[s0] -> (d0 + s0)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
