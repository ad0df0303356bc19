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
	"fmt"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// VerifyError describes one structural problem found by Verify.
type VerifyError struct {
	Op      string
	Loc     string
	Message string
}

// Error implements the error interface.
func (e VerifyError) Error() string {
	if e.Loc != "" {
		return fmt.Sprintf("%s at %s: %s", e.Op, e.Loc, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Verify checks root and everything nested in it. It returns every problem
// found, or nil if the IR is well formed.
func Verify(root *Operation) []VerifyError {
	v := &verifier{visible: make(map[*Value]bool)}
	v.verifyOp(root)
	return v.errs
}

// VerifyModule verifies m and folds all problems into a single error.
func VerifyModule(m *Module) error {
	errs := Verify(m.Op)
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return errors.Errorf("verification failed with %d error(s):\n  %s", len(errs), strings.Join(msgs, "\n  "))
}

type verifier struct {
	errs    []VerifyError
	visible map[*Value]bool
}

func (v *verifier) fail(op *Operation, format string, args ...any) {
	v.errs = append(v.errs, VerifyError{Op: op.Name, Loc: op.Loc, Message: fmt.Sprintf(format, args...)})
}

func (v *verifier) verifyOp(op *Operation) {
	for i, operand := range op.Operands {
		if operand == nil {
			v.fail(op, "operand #%d is nil", i)
			continue
		}
		if !v.visible[operand] {
			v.fail(op, "operand #%d does not dominate its use", i)
		}
	}
	v.checkOp(op)

	for _, r := range op.Regions {
		for _, blk := range r.Blocks {
			if blk.parent != r {
				v.fail(op, "block has a stale parent region")
			}
			v.verifyBlock(blk)
		}
	}
	for _, res := range op.Results {
		v.visible[res] = true
	}
}

func (v *verifier) verifyBlock(blk *Block) {
	var added []*Value
	for _, a := range blk.Args {
		v.visible[a] = true
		added = append(added, a)
	}
	for i, nested := range blk.Ops {
		if nested.parent != blk {
			v.fail(nested, "operation has a stale parent block")
		}
		if IsTerminator(nested.Name) && i != len(blk.Ops)-1 {
			v.fail(nested, "terminator is not the last operation of its block")
		}
		v.verifyOp(nested)
		added = append(added, nested.Results...)
	}
	for _, a := range added {
		delete(v.visible, a)
	}
}

func (v *verifier) expectTerminator(op *Operation, name string) {
	for _, r := range op.Regions {
		for _, blk := range r.Blocks {
			if t := blk.Terminator(); t == nil || t.Name != name {
				v.fail(op, "body must end with %s", name)
			}
		}
	}
}

func (v *verifier) expectIndices(op *Operation, memref *Value, indices []*Value) (MemRefType, bool) {
	mt, ok := memref.Type().(MemRefType)
	if !ok {
		v.fail(op, "expected a memref operand, got %s", memref.Type())
		return MemRefType{}, false
	}
	if len(indices) != mt.Rank() {
		v.fail(op, "expected %d indices for %s, got %d", mt.Rank(), mt, len(indices))
		return mt, false
	}
	for i, idx := range indices {
		if idx != nil && !TypesEqual(idx.Type(), Index) {
			v.fail(op, "index #%d has type %s", i, idx.Type())
		}
	}
	return mt, true
}

func (v *verifier) checkOp(op *Operation) {
	if slices.Contains(op.Operands, nil) {
		return
	}
	switch op.Name {
	case FuncOpName:
		if len(op.Regions) != 1 || len(op.Regions[0].Blocks) != 1 {
			v.fail(op, "expected a single-block body")
			return
		}
		v.expectTerminator(op, ReturnOpName)

	case ForOpName:
		f := ForOp{op}
		if len(op.Regions) != 1 || len(op.Regions[0].Blocks) != 1 || len(f.Body().Args) != 1 {
			v.fail(op, "expected a single-block body with one induction variable")
			return
		}
		if f.Step() <= 0 {
			v.fail(op, "step must be positive, got %d", f.Step())
		}
		for _, bd := range []Bound{f.LowerBound(), f.UpperBound()} {
			if bd.Map.NumResults() != 1 {
				v.fail(op, "bound map %s must have one result", bd.Map)
			}
			if bd.Map.NumDims+bd.Map.NumSymbols != len(bd.Operands) {
				v.fail(op, "bound map %s applied to %d operands", bd.Map, len(bd.Operands))
			}
		}
		v.expectTerminator(op, AffineYieldOpName)

	case ApplyOpName:
		m, ok := op.Attr("map").(AffineMapAttr)
		if !ok || m.Map.NumResults() != 1 {
			v.fail(op, "expected a single-result map")
			return
		}
		if m.Map.NumDims+m.Map.NumSymbols != len(op.Operands) {
			v.fail(op, "map %s applied to %d operands", m.Map, len(op.Operands))
		}

	case DimOpName:
		mt, ok := op.Operands[0].Type().(MemRefType)
		idx, _ := op.Attr("index").(IntegerAttr)
		if !ok || idx.Value < 0 || int(idx.Value) >= mt.Rank() {
			v.fail(op, "dimension index %d out of range", idx.Value)
		}

	case LoadOpName:
		if len(op.Operands) < 1 {
			v.fail(op, "missing memref operand")
			return
		}
		v.expectIndices(op, op.Operands[0], op.Operands[1:])

	case StoreOpName:
		if len(op.Operands) < 2 {
			v.fail(op, "missing value or memref operand")
			return
		}
		if mt, ok := v.expectIndices(op, op.Operands[1], op.Operands[2:]); ok && !TypesEqual(op.Operands[0].Type(), mt.Elem) {
			v.fail(op, "stored %s into %s", op.Operands[0].Type(), mt)
		}

	case TransferReadOpName, TransferWriteOpName:
		t := TransferOp{op}
		mt, ok := v.expectIndices(op, t.Memref(), t.Indices())
		if !ok {
			return
		}
		vt, isVec := t.Vector().Type().(VectorType)
		if !isVec || vt.Elem != mt.Elem {
			v.fail(op, "vector type %s does not match %s", t.Vector().Type(), mt)
		}
		pm := t.PermutationMap()
		if pm.NumDims != mt.Rank() || t.LaneDim() < 0 {
			v.fail(op, "permutation map %s must select one of %d dimensions", pm, mt.Rank())
		}

	case GenericOpName:
		g := GenericOp{op}
		maps := g.IndexingMaps()
		if len(maps) != len(op.Operands) {
			v.fail(op, "expected %d indexing maps, got %d", len(op.Operands), len(maps))
			return
		}
		for i, m := range maps {
			if mt, ok := op.Operands[i].Type().(MemRefType); ok && m.NumResults() != mt.Rank() {
				v.fail(op, "indexing map #%d has %d results for rank %d", i, m.NumResults(), mt.Rank())
			}
			if len(maps) > 0 && m.NumDims != maps[0].NumDims {
				v.fail(op, "indexing maps disagree on the number of loop dimensions")
			}
		}
		if len(maps) > 0 && len(g.IteratorTypes()) != maps[0].NumDims {
			v.fail(op, "expected %d iterator types, got %d", maps[0].NumDims, len(g.IteratorTypes()))
		}
		if body := g.Body(); body == nil || !body.HasOneBlock() || len(body.Front().Args) != len(op.Operands) {
			v.fail(op, "body must be one block with one argument per operand")
			return
		}
		v.expectTerminator(op, LinalgYieldOpName)

	case FillOpName:
		if len(op.Operands) != 2 {
			v.fail(op, "expected value and output operands")
			return
		}
		if mt, ok := op.Operands[1].Type().(MemRefType); !ok || !TypesEqual(op.Operands[0].Type(), mt.Elem) {
			v.fail(op, "fill value %s does not match %s", op.Operands[0].Type(), op.Operands[1].Type())
		}

	case AddIOpName, MulIOpName, AddFOpName, MulFOpName:
		if len(op.Operands) != 2 || !TypesEqual(op.Operands[0].Type(), op.Operands[1].Type()) {
			v.fail(op, "expected two operands of the same type")
		}
	}
}
