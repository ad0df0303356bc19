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

// GenericOp is a typed view of a linalg.generic operation.
type GenericOp struct{ *Operation }

// AsGeneric returns a GenericOp view if op is a linalg.generic.
func AsGeneric(op *Operation) (GenericOp, bool) {
	if op == nil || op.Name != GenericOpName {
		return GenericOp{}, false
	}
	return GenericOp{op}, true
}

// NumInputs returns the number of input operands.
func (g GenericOp) NumInputs() int {
	if a, ok := g.Attr("num_inputs").(IntegerAttr); ok {
		return int(a.Value)
	}
	return 0
}

// NumOutputs returns the number of output operands.
func (g GenericOp) NumOutputs() int { return len(g.Operands) - g.NumInputs() }

// Inputs returns the input operands.
func (g GenericOp) Inputs() []*Value { return g.Operands[:g.NumInputs()] }

// Outputs returns the output operands.
func (g GenericOp) Outputs() []*Value { return g.Operands[g.NumInputs():] }

// IndexingMaps returns one map per operand, inputs first.
func (g GenericOp) IndexingMaps() []affine.Map {
	arr, _ := g.Attr("indexing_maps").(ArrayAttr)
	maps := make([]affine.Map, 0, len(arr))
	for _, a := range arr {
		if m, ok := a.(AffineMapAttr); ok {
			maps = append(maps, m.Map)
		}
	}
	return maps
}

// IteratorTypes returns the iterator kind of each loop dimension.
func (g GenericOp) IteratorTypes() []IteratorType {
	arr, _ := g.Attr("iterator_types").(ArrayAttr)
	its := make([]IteratorType, 0, len(arr))
	for _, a := range arr {
		if it, ok := a.(IteratorType); ok {
			its = append(its, it)
		}
	}
	return its
}

// Body returns the payload region.
func (g GenericOp) Body() *Region {
	if len(g.Regions) == 0 {
		return nil
	}
	return g.Regions[0]
}

// ForOp is a typed view of an affine.for operation.
type ForOp struct{ *Operation }

// AsFor returns a ForOp view if op is an affine.for.
func AsFor(op *Operation) (ForOp, bool) {
	if op == nil || op.Name != ForOpName {
		return ForOp{}, false
	}
	return ForOp{op}, true
}

func (f ForOp) lbCount() int {
	a, _ := f.Attr("lb_operand_ct").(IntegerAttr)
	return int(a.Value)
}

// LowerBound returns the loop's lower bound.
func (f ForOp) LowerBound() Bound {
	m, _ := f.Attr("lower_bound").(AffineMapAttr)
	return Bound{Map: m.Map, Operands: f.Operands[:f.lbCount()]}
}

// UpperBound returns the loop's exclusive upper bound.
func (f ForOp) UpperBound() Bound {
	m, _ := f.Attr("upper_bound").(AffineMapAttr)
	return Bound{Map: m.Map, Operands: f.Operands[f.lbCount():]}
}

// Step returns the loop step.
func (f ForOp) Step() int64 {
	a, _ := f.Attr("step").(IntegerAttr)
	return a.Value
}

// Body returns the loop body block.
func (f ForOp) Body() *Block { return f.Regions[0].Blocks[0] }

// InductionVar returns the loop induction variable.
func (f ForOp) InductionVar() *Value { return f.Body().Args[0] }

// TransferOp is a typed view of vector.transfer_read and vector.transfer_write.
type TransferOp struct{ *Operation }

// AsTransfer returns a TransferOp view for either transfer operation.
func AsTransfer(op *Operation) (TransferOp, bool) {
	if op == nil || (op.Name != TransferReadOpName && op.Name != TransferWriteOpName) {
		return TransferOp{}, false
	}
	return TransferOp{op}, true
}

// IsRead reports whether this is a transfer_read.
func (t TransferOp) IsRead() bool { return t.Name == TransferReadOpName }

// Memref returns the buffer operand.
func (t TransferOp) Memref() *Value {
	if t.IsRead() {
		return t.Operands[0]
	}
	return t.Operands[1]
}

// Indices returns the start indices.
func (t TransferOp) Indices() []*Value {
	if t.IsRead() {
		return t.Operands[1 : len(t.Operands)-1]
	}
	return t.Operands[2:]
}

// Padding returns the padding value of a transfer_read, or nil.
func (t TransferOp) Padding() *Value {
	if !t.IsRead() {
		return nil
	}
	return t.Operands[len(t.Operands)-1]
}

// Vector returns the vector: the result of a read or the stored operand of a write.
func (t TransferOp) Vector() *Value {
	if t.IsRead() {
		return t.Results[0]
	}
	return t.Operands[0]
}

// PermutationMap returns the map selecting the dimension the lanes advance along.
func (t TransferOp) PermutationMap() affine.Map {
	m, _ := t.Attr("permutation_map").(AffineMapAttr)
	return m.Map
}

// LaneDim returns the memref dimension the lanes advance along, or -1.
func (t TransferOp) LaneDim() int {
	m := t.PermutationMap()
	if m.NumResults() != 1 {
		return -1
	}
	d, ok := m.Result(0).(affine.DimExpr)
	if !ok {
		return -1
	}
	return d.Pos
}

// InBounds reports whether every lane is statically known to be in bounds.
func (t TransferOp) InBounds() bool {
	b, _ := t.Attr("in_bounds").(BoolAttr)
	return bool(b)
}
