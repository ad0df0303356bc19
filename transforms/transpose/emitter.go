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

	"github.com/ajroetker/hwyopt/ir"
	"github.com/ajroetker/hwyopt/ir/affine"
)

// Nests records which loop nests Emit produced.
type Nests struct {
	// Tiled is set when the vectorized nest over whole tiles was emitted.
	Tiled bool

	// RemainderDims lists the dimensions that got a scalar remainder nest.
	RemainderDims []int
}

// Empty reports whether nothing was emitted.
func (n Nests) Empty() bool { return !n.Tiled && len(n.RemainderDims) == 0 }

type loop struct {
	lb, ub ir.Bound
}

// buildNest creates one affine.for per entry of loops, outermost first, and
// calls body inside the innermost with all induction variables.
func buildNest(b *ir.Builder, loops []loop, body func(b *ir.Builder, ivs []*ir.Value)) {
	var rec func(b *ir.Builder, depth int, ivs []*ir.Value)
	rec = func(b *ir.Builder, depth int, ivs []*ir.Value) {
		if depth == len(loops) {
			body(b, ivs)
			return
		}
		l := loops[depth]
		b.For(l.lb, l.ub, 1, func(b *ir.Builder, iv *ir.Value) {
			rec(b, depth+1, append(ivs, iv))
		})
	}
	rec(b, 0, make([]*ir.Value, 0, len(loops)))
}

// permute returns the output coordinates for the input coordinates src.
func permute(perm []int, src []*ir.Value) []*ir.Value {
	dst := make([]*ir.Value, len(perm))
	for k, j := range perm {
		dst[k] = src[j]
	}
	return dst
}

// Emit inserts the loop nests replacing the transpose m at b's insertion
// point, using the tile plan p of m.Input.
//
// The tiled nest walks every tile index, and inside a tile every position of
// the leading dimensions, and moves one vector of p.VectorSize elements along
// the innermost input dimension. The output side of the move runs along
// m.LaneDim().
//
// Each dimension k with a remainder then gets a scalar nest in which the
// dimensions before k cover their tiled range, dimension k covers its tail and
// the dimensions after k cover their full extent. Together with the tiled
// nest this visits every element exactly once. Nests that are statically
// empty are not emitted.
//
// Emit panics if p was planned for a different rank than m.
func Emit(b *ir.Builder, m Result, p Bounds) Nests {
	if p.Rank() != m.Rank {
		panic(fmt.Sprintf("transpose: bounds planned for rank %d, match has rank %d", p.Rank(), m.Rank))
	}
	var nests Nests
	if emitTiled(b, m, p) {
		nests.Tiled = true
	}
	for k := range p.Rank() {
		if emitRemainder(b, m, p, k) {
			nests.RemainderDims = append(nests.RemainderDims, k)
		}
	}
	return nests
}

func emitTiled(b *ir.Builder, m Result, p Bounds) bool {
	rank, v := m.Rank, p.VectorSize
	for _, tc := range p.TileCounts {
		if tc.IsZero() {
			return false
		}
	}

	loops := make([]loop, 0, 2*rank-1)
	for _, tc := range p.TileCounts {
		loops = append(loops, loop{lb: ir.ConstBound(0), ub: tc.Bound()})
	}
	for range rank - 1 {
		loops = append(loops, loop{lb: ir.ConstBound(0), ub: ir.ConstBound(v)})
	}

	tileStart := affine.NewMap(1, 0, affine.Mul(affine.Dim(0), affine.Const(v)))
	inTile := affine.NewMap(2, 0, affine.Add(affine.Mul(affine.Dim(0), affine.Const(v)), affine.Dim(1)))
	vt := ir.VectorType{Size: v, Elem: m.Elem}
	padding := b.Zero(m.Elem)

	buildNest(b, loops, func(b *ir.Builder, ivs []*ir.Value) {
		tiles, offsets := ivs[:rank], ivs[rank:]
		src := make([]*ir.Value, rank)
		for i := range rank - 1 {
			src[i] = b.Apply(inTile, tiles[i], offsets[i])
		}
		src[rank-1] = b.Apply(tileStart, tiles[rank-1])
		vec := b.TransferRead(vt, m.Input, src, padding, ir.MinorDimMap(rank, rank-1), true)
		b.TransferWrite(vec, m.Output, permute(m.Permutation, src), ir.MinorDimMap(rank, m.LaneDim()), true)
	})
	return true
}

func emitRemainder(b *ir.Builder, m Result, p Bounds, k int) bool {
	if p.Remainders[k].IsZero() {
		return false
	}
	for j := range m.Rank {
		if (j < k && p.TileCounts[j].IsZero()) || (j > k && p.Extents[j].IsZero()) {
			return false
		}
	}

	loops := make([]loop, m.Rank)
	for j := range m.Rank {
		switch {
		case j < k:
			loops[j] = loop{lb: ir.ConstBound(0), ub: p.Aligned(j)}
		case j == k:
			loops[j] = loop{lb: ir.ConstBound(0), ub: p.Remainders[k].Bound()}
		default:
			loops[j] = loop{lb: ir.ConstBound(0), ub: p.Extents[j].Bound()}
		}
	}

	buildNest(b, loops, func(b *ir.Builder, ivs []*ir.Value) {
		src := append([]*ir.Value(nil), ivs...)
		src[k] = tailIndex(b, p, k, ivs[k])
		elem := b.Load(m.Input, src...)
		b.Store(elem, m.Output, permute(m.Permutation, src)...)
	})
	return true
}

// tailIndex returns TileCounts[k]*VectorSize + iv.
func tailIndex(b *ir.Builder, p Bounds, k int, iv *ir.Value) *ir.Value {
	tc := p.TileCounts[k]
	if !tc.IsStatic() {
		m := affine.NewMap(2, 0, affine.Add(affine.Mul(affine.Dim(0), affine.Const(p.VectorSize)), affine.Dim(1)))
		return b.Apply(m, tc.Value, iv)
	}
	start := tc.Static * p.VectorSize
	if start == 0 {
		return iv
	}
	return b.Apply(affine.NewMap(1, 0, affine.Add(affine.Dim(0), affine.Const(start))), iv)
}

// Region is one box of the decomposition produced by Emit, over static
// extents. Lo is inclusive and Hi exclusive.
type Region struct {
	// Dim is -1 for the tiled region and the remainder dimension otherwise.
	Dim int
	Lo  []int64
	Hi  []int64
}

// Volume returns the number of coordinates in r.
func (r Region) Volume() int64 {
	n := int64(1)
	for i := range r.Lo {
		n *= r.Hi[i] - r.Lo[i]
	}
	return n
}

// Contains reports whether coord lies in r.
func (r Region) Contains(coord []int64) bool {
	for i, c := range coord {
		if c < r.Lo[i] || c >= r.Hi[i] {
			return false
		}
	}
	return true
}

// Regions returns the boxes Emit would cover for static extents and vector
// width v, skipping the empty ones.
func Regions(extents []int64, v int64) []Region {
	plans := PlanStatic(extents, v)
	rank := len(plans)
	var regions []Region

	tiled := Region{Dim: -1, Lo: make([]int64, rank), Hi: make([]int64, rank)}
	for i, dp := range plans {
		tiled.Hi[i] = dp.TileCount * v
	}
	if rank > 0 && tiled.Volume() > 0 {
		regions = append(regions, tiled)
	}

	for k := range rank {
		r := Region{Dim: k, Lo: make([]int64, rank), Hi: make([]int64, rank)}
		for j, dp := range plans {
			switch {
			case j < k:
				r.Hi[j] = dp.TileCount * v
			case j == k:
				r.Lo[j], r.Hi[j] = dp.TileCount*v, dp.Extent
			default:
				r.Hi[j] = dp.Extent
			}
		}
		if r.Volume() > 0 {
			regions = append(regions, r)
		}
	}
	return regions
}
