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
	"github.com/ajroetker/hwyopt/ir/affine"
)

// ConstantIndex creates an index constant.
func (b *Builder) ConstantIndex(v int64) *Value {
	return b.Create(ConstantOpName, nil, []Type{Index},
		map[string]Attribute{"value": IndexAttr(v)}, 0).Result(0)
}

// ConstantFloat creates a floating-point constant of type t.
func (b *Builder) ConstantFloat(v float64, t ScalarType) *Value {
	return b.Create(ConstantOpName, nil, []Type{t},
		map[string]Attribute{"value": FloatAttr{Value: v, Type: t}}, 0).Result(0)
}

// ConstantInt creates an integer constant of type t.
func (b *Builder) ConstantInt(v int64, t ScalarType) *Value {
	return b.Create(ConstantOpName, nil, []Type{t},
		map[string]Attribute{"value": IntegerAttr{Value: v, Type: t}}, 0).Result(0)
}

// Zero creates the zero constant of element type t.
func (b *Builder) Zero(t ScalarType) *Value {
	if t.IsFloat() {
		return b.ConstantFloat(0, t)
	}
	return b.ConstantInt(0, t)
}

// Binary creates a two-operand arith operation whose result has lhs's type.
func (b *Builder) Binary(name string, lhs, rhs *Value) *Value {
	return b.Create(name, []*Value{lhs, rhs}, []Type{lhs.Type()}, nil, 0).Result(0)
}

// ConstantValue returns the integer value of v if it is produced by an
// integer or index arith.constant.
func ConstantValue(v *Value) (int64, bool) {
	op := v.DefiningOp()
	if op == nil || op.Name != ConstantOpName {
		return 0, false
	}
	attr, ok := op.Attr("value").(IntegerAttr)
	return attr.Value, ok
}

// Apply creates an affine.apply of a single-result map.
func (b *Builder) Apply(m affine.Map, operands ...*Value) *Value {
	return b.Create(ApplyOpName, operands, []Type{Index},
		map[string]Attribute{"map": AffineMapAttr{Map: m}}, 0).Result(0)
}

// Bound is one affine.for bound: a single-result map applied to operands.
type Bound struct {
	Map      affine.Map
	Operands []*Value
}

// ConstBound returns the constant bound c.
func ConstBound(c int64) Bound { return Bound{Map: affine.Constant(c)} }

// ValueBound returns a bound equal to v.
func ValueBound(v *Value) Bound {
	return Bound{Map: affine.Identity(1), Operands: []*Value{v}}
}

// MapBound returns the bound m(operands...).
func MapBound(m affine.Map, operands ...*Value) Bound {
	return Bound{Map: m, Operands: operands}
}

// Constant returns the bound's value if it does not depend on operands.
func (bd Bound) Constant() (int64, bool) {
	if len(bd.Operands) != 0 {
		return 0, false
	}
	return bd.Map.SingleConstant()
}

// For creates an affine.for loop. body is called with the insertion point
// inside the loop and the induction variable; the affine.yield terminator is
// added afterwards.
func (b *Builder) For(lb, ub Bound, step int64, body func(b *Builder, iv *Value)) *Operation {
	operands := append(append([]*Value{}, lb.Operands...), ub.Operands...)
	op := b.Create(ForOpName, operands, nil, map[string]Attribute{
		"lower_bound":   AffineMapAttr{Map: lb.Map},
		"upper_bound":   AffineMapAttr{Map: ub.Map},
		"step":          IndexAttr(step),
		"lb_operand_ct": IndexAttr(int64(len(lb.Operands))),
	}, 1)
	blk := b.CreateBlock(op.Regions[0], Index)
	b.within(blk, func() {
		body(b, blk.Args[0])
		b.Create(AffineYieldOpName, nil, nil, nil, 0)
	})
	return op
}

// Dim creates memref.dim for dimension i of memref.
func (b *Builder) Dim(memref *Value, i int) *Value {
	return b.Create(DimOpName, []*Value{memref}, []Type{Index},
		map[string]Attribute{"index": IndexAttr(int64(i))}, 0).Result(0)
}

// Load creates a scalar memref.load.
func (b *Builder) Load(memref *Value, indices ...*Value) *Value {
	elem, _ := ElementType(memref.Type())
	return b.Create(LoadOpName, append([]*Value{memref}, indices...), []Type{elem}, nil, 0).Result(0)
}

// Store creates a scalar memref.store of value into memref.
func (b *Builder) Store(value, memref *Value, indices ...*Value) *Operation {
	return b.Create(StoreOpName, append([]*Value{value, memref}, indices...), nil, nil, 0)
}

// Alloc creates memref.alloc with one size operand per dynamic dimension.
func (b *Builder) Alloc(t MemRefType, dynSizes ...*Value) *Value {
	return b.Create(AllocOpName, dynSizes, []Type{t}, nil, 0).Result(0)
}

// TransferRead reads vt.Size elements of memref starting at indices. The lanes
// advance along the memref dimension selected by perm, a map from the memref
// dimensions to exactly one of them. Out-of-bounds lanes read padding.
func (b *Builder) TransferRead(vt VectorType, memref *Value, indices []*Value, padding *Value, perm affine.Map, inBounds bool) *Value {
	operands := append(append([]*Value{memref}, indices...), padding)
	return b.Create(TransferReadOpName, operands, []Type{vt}, map[string]Attribute{
		"permutation_map": AffineMapAttr{Map: perm},
		"in_bounds":       BoolAttr(inBounds),
	}, 0).Result(0)
}

// TransferWrite writes vector into memref starting at indices, with lanes
// advancing along the dimension selected by perm. Out-of-bounds lanes are
// dropped.
func (b *Builder) TransferWrite(vector, memref *Value, indices []*Value, perm affine.Map, inBounds bool) *Operation {
	operands := append([]*Value{vector, memref}, indices...)
	return b.Create(TransferWriteOpName, operands, nil, map[string]Attribute{
		"permutation_map": AffineMapAttr{Map: perm},
		"in_bounds":       BoolAttr(inBounds),
	}, 0)
}

// MinorDimMap returns the transfer permutation map (d0, ..., dn-1) -> (d(dim)).
func MinorDimMap(rank, dim int) affine.Map {
	return affine.NewMap(rank, 0, affine.Dim(dim))
}

// Func creates a func.func named name. body receives the entry block
// arguments; a func.return is appended after it.
func (b *Builder) Func(name string, argTypes []Type, body func(b *Builder, args []*Value)) *Operation {
	types := make(ArrayAttr, len(argTypes))
	for i, t := range argTypes {
		types[i] = TypeAttr{Type: t}
	}
	op := b.Create(FuncOpName, nil, nil, map[string]Attribute{
		"sym_name":      StringAttr(name),
		"function_type": types,
	}, 1)
	blk := b.CreateBlock(op.Regions[0], argTypes...)
	b.within(blk, func() {
		body(b, blk.Args)
		b.Create(ReturnOpName, nil, nil, nil, 0)
	})
	return op
}

// Generic creates a linalg.generic over inputs and outputs. body receives one
// scalar block argument per operand and must end with LinalgYield.
func (b *Builder) Generic(inputs, outputs []*Value, maps []affine.Map, iterators []IteratorType, body func(b *Builder, args []*Value)) *Operation {
	mapAttrs := make(ArrayAttr, len(maps))
	for i, m := range maps {
		mapAttrs[i] = AffineMapAttr{Map: m}
	}
	iterAttrs := make(ArrayAttr, len(iterators))
	for i, it := range iterators {
		iterAttrs[i] = it
	}
	operands := append(append([]*Value{}, inputs...), outputs...)
	op := b.Create(GenericOpName, operands, nil, map[string]Attribute{
		"indexing_maps":  mapAttrs,
		"iterator_types": iterAttrs,
		"num_inputs":     IndexAttr(int64(len(inputs))),
	}, 1)
	argTypes := make([]Type, len(operands))
	for i, v := range operands {
		elem, _ := ElementType(v.Type())
		argTypes[i] = elem
	}
	blk := b.CreateBlock(op.Regions[0], argTypes...)
	b.within(blk, func() { body(b, blk.Args) })
	return op
}

// LinalgYield terminates a linalg.generic body.
func (b *Builder) LinalgYield(values ...*Value) *Operation {
	return b.Create(LinalgYieldOpName, values, nil, nil, 0)
}

// Fill creates linalg.fill of value into output.
func (b *Builder) Fill(value, output *Value) *Operation {
	return b.Create(FillOpName, []*Value{value, output}, nil, nil, 0)
}

// Clone copies op, and everything nested in it, at the insertion point.
// Operands found in mapping are remapped; the clone's results (and nested
// block arguments) are recorded in mapping.
func (b *Builder) Clone(op *Operation, mapping map[*Value]*Value) *Operation {
	operands := make([]*Value, len(op.Operands))
	for i, v := range op.Operands {
		operands[i] = lookup(mapping, v)
	}
	types := make([]Type, len(op.Results))
	for i, r := range op.Results {
		types[i] = r.Type()
	}
	var attrs map[string]Attribute
	if op.Attrs != nil {
		attrs = make(map[string]Attribute, len(op.Attrs))
		for k, v := range op.Attrs {
			attrs[k] = v
		}
	}
	clone := b.Create(op.Name, operands, types, attrs, len(op.Regions))
	clone.Loc = op.Loc
	for i, r := range op.Results {
		mapping[r] = clone.Results[i]
	}
	for ri, r := range op.Regions {
		for _, blk := range r.Blocks {
			argTypes := make([]Type, len(blk.Args))
			for i, a := range blk.Args {
				argTypes[i] = a.Type()
			}
			nb := b.CreateBlock(clone.Regions[ri], argTypes...)
			for i, a := range blk.Args {
				mapping[a] = nb.Args[i]
			}
			b.within(nb, func() {
				for _, nested := range blk.Ops {
					b.Clone(nested, mapping)
				}
			})
		}
	}
	return clone
}

func lookup(mapping map[*Value]*Value, v *Value) *Value {
	if m, ok := mapping[v]; ok {
		return m
	}
	return v
}
