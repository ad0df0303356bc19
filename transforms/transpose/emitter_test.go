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
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/ajroetker/hwyopt/interp"
	"github.com/ajroetker/hwyopt/ir"
)

func TestPlanStatic(t *testing.T) {
	for v := int64(1); v <= 9; v++ {
		for e := int64(0); e <= 40; e++ {
			p := PlanStatic([]int64{e}, v)[0]
			if p.TileCount != e/v || p.Remainder != e%v || p.TileCount*v+p.Remainder != e {
				t.Errorf("PlanStatic(%d, %d) = %+v", e, v, p)
			}
		}
	}
	if got := PlanStatic([]int64{0}, 4)[0]; got.TileCount != 0 || got.Remainder != 0 {
		t.Errorf("zero extent planned as %+v", got)
	}
}

func TestPlanEmitsQueriesForDynamicDims(t *testing.T) {
	m := ir.NewModule()
	b := ir.NewBuilder()
	b.SetInsertionPointToEnd(m.Body())
	var bounds Bounds
	mt := ir.MemRefType{Shape: []int64{ir.Dynamic, 6, ir.Dynamic}, Elem: ir.Float32}
	b.Func("main", []ir.Type{mt}, func(b *ir.Builder, args []*ir.Value) {
		bounds = Plan(b, args[0], 3, 4)
	})

	counts := ir.CountOps(m.Op)
	require.Equal(t, 2, counts[ir.DimOpName])
	require.Equal(t, 4, counts[ir.ApplyOpName])
	require.Zero(t, counts[ir.ConstantOpName])

	require.False(t, bounds.Extents[0].IsStatic())
	require.Equal(t, Size{Static: 6}, bounds.Extents[1])
	require.Equal(t, Size{Static: 1}, bounds.TileCounts[1])
	require.Equal(t, Size{Static: 2}, bounds.Remainders[1])
	require.False(t, bounds.Remainders[2].IsStatic())
	require.Equal(t, 3, bounds.Rank())
	require.Empty(t, ir.Verify(m.Op))
}

// coverage counts how many regions contain every coordinate of extents.
func coverage(extents []int64, regions []Region) map[string]int {
	counts := make(map[string]int)
	coord := make([]int64, len(extents))
	var rec func(d int)
	rec = func(d int) {
		if d == len(extents) {
			n := 0
			for _, r := range regions {
				if r.Contains(coord) {
					n++
				}
			}
			counts[fmt.Sprint(coord)] = n
			return
		}
		for coord[d] = 0; coord[d] < extents[d]; coord[d]++ {
			rec(d + 1)
		}
	}
	rec(0)
	return counts
}

func TestRegionsExample(t *testing.T) {
	regions := Regions([]int64{5, 7}, 4)
	require.NotEmpty(t, regions)
	tiled := regions[0]
	require.Equal(t, -1, tiled.Dim)
	require.Equal(t, []int64{4, 4}, tiled.Hi)
	require.EqualValues(t, 16, tiled.Volume())

	var remainder int64
	for _, r := range regions[1:] {
		remainder += r.Volume()
	}
	require.EqualValues(t, 19, remainder)

	for coord, n := range coverage([]int64{5, 7}, regions) {
		if n != 1 {
			t.Errorf("coordinate %s covered %d times", coord, n)
		}
	}
}

func TestRegionsCoverExactlyOnce(t *testing.T) {
	sizes := []int64{0, 1, 3, 4, 5, 8}
	for _, v := range []int64{1, 2, 4} {
		for _, a := range sizes {
			for _, b := range sizes {
				for _, c := range []int64{1, 6} {
					extents := []int64{a, b, c}
					regions := Regions(extents, v)
					for _, r := range regions {
						if r.Volume() <= 0 {
							t.Errorf("Regions(%v, %d) returned empty region %+v", extents, v, r)
						}
					}
					for coord, n := range coverage(extents, regions) {
						if n != 1 {
							t.Errorf("Regions(%v, %d): %s covered %d times", extents, v, coord, n)
						}
					}
				}
			}
		}
	}
}

// rewrite replaces the transpose op of m in place with vector size v.
func rewrite(t *testing.T, op *ir.Operation, v int64) Nests {
	t.Helper()
	res := Match(op)
	require.True(t, res.Ok(), res.Reason)
	rw := ir.NewRewriter()
	rw.SetInsertionPointBefore(op)
	nests := Emit(rw.Builder, res, Plan(rw.Builder, res.Input, res.Rank, v))
	require.NoError(t, rw.EraseOp(op))
	require.Empty(t, ir.Verify(ir.Root(res.Input.ArgOwner().Region().ParentOp())))
	return nests
}

func TestEmitRoundTripExample(t *testing.T) {
	for _, v := range []int64{1, 2, 16} {
		t.Run(fmt.Sprint(v), func(t *testing.T) {
			m, op := buildGeneric(genericCase{shape: []int64{3, 2}, perm: []int{1, 0}, elem: ir.Float32})
			rewrite(t, op, v)
			in := interp.FromNested2D(ir.Float32, [][]float64{{1, 2}, {3, 4}, {5, 6}})
			out := interp.NewBuffer(ir.Float32, 2, 3)
			_, err := interp.Run(m, "main", in, out)
			require.NoError(t, err)
			if diff := cmp.Diff([][]float64{{1, 3, 5}, {2, 4, 6}}, out.Nested2D()); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEmitMatchesReference(t *testing.T) {
	dyn := ir.Dynamic
	tests := []struct {
		shape   []int64
		runtime []int64
		perm    []int
		v       int64
	}{
		{shape: []int64{10}, perm: []int{0}, v: 4},
		{shape: []int64{8, 4}, perm: []int{1, 0}, v: 4},
		{shape: []int64{5, 7}, perm: []int{1, 0}, v: 4},
		{shape: []int64{5, 7}, perm: []int{0, 1}, v: 3},
		{shape: []int64{3, 5, 6}, perm: []int{2, 0, 1}, v: 2},
		{shape: []int64{4, 3, 5}, perm: []int{1, 2, 0}, v: 4},
		{shape: []int64{2, 3, 2, 5}, perm: []int{3, 1, 0, 2}, v: 2},
		{shape: []int64{dyn, 6}, runtime: []int64{9, 6}, perm: []int{1, 0}, v: 4},
		{shape: []int64{dyn, dyn, dyn}, runtime: []int64{5, 4, 7}, perm: []int{2, 1, 0}, v: 4},
		{shape: []int64{dyn, 3}, runtime: []int64{0, 3}, perm: []int{1, 0}, v: 2},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v_%v_v%d", tt.shape, tt.perm, tt.v), func(t *testing.T) {
			c := genericCase{shape: tt.shape, perm: tt.perm, elem: ir.Float64}
			ref, _ := buildGeneric(c)
			m, op := buildGeneric(c)
			nests := rewrite(t, op, tt.v)

			concrete := tt.runtime
			if concrete == nil {
				concrete = tt.shape
			}
			outShape := permuted(concrete, tt.perm)

			want := interp.NewBuffer(ir.Float64, outShape...)
			_, err := interp.Run(ref, "main", interp.Iota(ir.Float64, concrete...), want)
			require.NoError(t, err)

			got := interp.NewBuffer(ir.Float64, outShape...)
			stats, err := interp.Run(m, "main", interp.Iota(ir.Float64, concrete...), got)
			require.NoError(t, err)
			if diff := cmp.Diff(want.Data, got.Data); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}

			if nests.Tiled && tt.runtime == nil {
				require.Positive(t, stats.VectorTransfers)
			}
			if !nests.Tiled {
				require.Zero(t, stats.VectorTransfers)
			}
		})
	}
}

func TestEmitRejectsMismatchedRank(t *testing.T) {
	_, op := buildGeneric(genericCase{shape: []int64{4, 4}, perm: []int{1, 0}, elem: ir.Float32})
	res := Match(op)
	require.True(t, res.Ok(), res.Reason)
	rw := ir.NewRewriter()
	rw.SetInsertionPointBefore(op)
	p := Plan(rw.Builder, res.Input, res.Rank, 4)
	require.Equal(t, 2, p.Rank())
	p.Extents, p.TileCounts, p.Remainders = p.Extents[:1], p.TileCounts[:1], p.Remainders[:1]
	require.Panics(t, func() { Emit(rw.Builder, res, p) })
}

func TestEmitSkipsEmptyNests(t *testing.T) {
	t.Run("aligned", func(t *testing.T) {
		m, op := buildGeneric(genericCase{shape: []int64{8, 4}, perm: []int{1, 0}, elem: ir.Float32})
		nests := rewrite(t, op, 4)
		require.True(t, nests.Tiled)
		require.Empty(t, nests.RemainderDims)
		counts := ir.CountOps(m.Op)
		require.Zero(t, counts[ir.LoadOpName])
		require.Equal(t, 3, counts[ir.ForOpName])
	})
	t.Run("smaller than a vector", func(t *testing.T) {
		m, op := buildGeneric(genericCase{shape: []int64{3, 2}, perm: []int{1, 0}, elem: ir.Float32})
		nests := rewrite(t, op, 4)
		require.False(t, nests.Tiled)
		require.Equal(t, []int{0}, nests.RemainderDims)
		require.Zero(t, ir.CountOps(m.Op)[ir.TransferReadOpName])
	})
	t.Run("zero extent", func(t *testing.T) {
		m, op := buildGeneric(genericCase{shape: []int64{0, 5}, perm: []int{1, 0}, elem: ir.Float32})
		nests := rewrite(t, op, 4)
		require.True(t, nests.Empty())
		counts := ir.CountOps(m.Op)
		require.Equal(t, map[string]int{ir.FuncOpName: 1, ir.ReturnOpName: 1}, counts)
	})
}
