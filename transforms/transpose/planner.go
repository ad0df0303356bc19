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

// DimPlan splits one static extent into whole vector tiles and a remainder.
// TileCount*V + Remainder == Extent always holds.
type DimPlan struct {
	Extent    int64
	TileCount int64
	Remainder int64
}

// PlanStatic computes the tile plan of every extent for vector width v.
// Extents must be non-negative and v positive.
func PlanStatic(extents []int64, v int64) []DimPlan {
	plans := make([]DimPlan, len(extents))
	for i, e := range extents {
		plans[i] = DimPlan{Extent: e, TileCount: e / v, Remainder: e % v}
	}
	return plans
}

// Size is an index quantity that is either a compile-time constant or an SSA
// value computed at runtime.
type Size struct {
	Static int64

	// Value is nil for static sizes.
	Value *ir.Value
}

// IsStatic reports whether the size is a compile-time constant.
func (s Size) IsStatic() bool { return s.Value == nil }

// IsZero reports whether the size is statically zero.
func (s Size) IsZero() bool { return s.Value == nil && s.Static == 0 }

// Bound returns the size as an affine.for bound.
func (s Size) Bound() ir.Bound {
	if s.IsStatic() {
		return ir.ConstBound(s.Static)
	}
	return ir.ValueBound(s.Value)
}

func (s Size) String() string {
	if s.IsStatic() {
		return fmt.Sprint(s.Static)
	}
	return "?"
}

// Bounds is the tile plan of every dimension of one input buffer. Static
// extents are folded into constants; dynamic ones are queried once with
// memref.dim and split with affine.apply.
type Bounds struct {
	VectorSize int64
	Extents    []Size
	TileCounts []Size
	Remainders []Size
}

// Rank returns the number of planned dimensions.
func (p Bounds) Rank() int { return len(p.Extents) }

// Aligned returns the bound TileCounts[i]*VectorSize, the end of the tiled
// range of dimension i.
func (p Bounds) Aligned(i int) ir.Bound {
	tc := p.TileCounts[i]
	if tc.IsStatic() {
		return ir.ConstBound(tc.Static * p.VectorSize)
	}
	return ir.MapBound(affine.NewMap(1, 0, affine.Mul(affine.Dim(0), affine.Const(p.VectorSize))), tc.Value)
}

// Plan builds the tile plan for the first rank dimensions of input, emitting
// the runtime extent queries at b's insertion point.
func Plan(b *ir.Builder, input *ir.Value, rank int, v int64) Bounds {
	shape := input.Type().(ir.MemRefType).Shape
	p := Bounds{
		VectorSize: v,
		Extents:    make([]Size, rank),
		TileCounts: make([]Size, rank),
		Remainders: make([]Size, rank),
	}
	floorDiv := affine.NewMap(1, 0, affine.FloorDiv(affine.Dim(0), affine.Const(v)))
	mod := affine.NewMap(1, 0, affine.Mod(affine.Dim(0), affine.Const(v)))
	for i := range rank {
		if shape[i] != ir.Dynamic {
			dp := PlanStatic([]int64{shape[i]}, v)[0]
			p.Extents[i] = Size{Static: dp.Extent}
			p.TileCounts[i] = Size{Static: dp.TileCount}
			p.Remainders[i] = Size{Static: dp.Remainder}
			continue
		}
		ext := b.Dim(input, i)
		p.Extents[i] = Size{Value: ext}
		p.TileCounts[i] = Size{Value: b.Apply(floorDiv, ext)}
		p.Remainders[i] = Size{Value: b.Apply(mod, ext)}
	}
	return p
}
