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

// Package interp executes functions of an ir.Module on concrete buffers. It
// is a reference evaluator: linalg operations run with their textbook
// semantics, so a module can be compared before and after a rewrite.
package interp

import (
	"github.com/pkg/errors"

	"github.com/ajroetker/hwyopt/ir"
	"github.com/ajroetker/hwyopt/ir/affine"
)

// Stats counts what an execution did.
type Stats struct {
	// Ops is the number of operations executed, terminators excluded.
	Ops int

	// VectorTransfers counts vector.transfer_read and transfer_write.
	VectorTransfers int

	// ScalarAccesses counts memref.load and memref.store.
	ScalarAccesses int
}

type value struct {
	scalar float64
	buf    *Buffer
	vec    []float64
}

type machine struct {
	vals  map[*ir.Value]value
	stats Stats
}

// Run executes the function named fn of m with args bound to its parameters.
// Buffers are updated in place.
func Run(m *ir.Module, fn string, args ...*Buffer) (Stats, error) {
	f := m.LookupFunc(fn)
	if f == nil {
		return Stats{}, errors.Errorf("function %q not found", fn)
	}
	return RunFunc(f, args...)
}

// RunFunc executes the func.func operation f.
func RunFunc(f *ir.Operation, args ...*Buffer) (Stats, error) {
	if f.Name != ir.FuncOpName || len(f.Regions) != 1 {
		return Stats{}, errors.Errorf("%s is not a function", f.Name)
	}
	entry := f.Regions[0].Front()
	if len(entry.Args) != len(args) {
		return Stats{}, errors.Errorf("function takes %d arguments, got %d", len(entry.Args), len(args))
	}
	x := &machine{vals: make(map[*ir.Value]value)}
	for i, a := range entry.Args {
		mt, ok := a.Type().(ir.MemRefType)
		if !ok {
			return Stats{}, errors.Errorf("argument %d: only memref parameters are supported, got %s", i, a.Type())
		}
		if err := checkArg(mt, args[i]); err != nil {
			return Stats{}, errors.Wrapf(err, "argument %d", i)
		}
		x.vals[a] = value{buf: args[i]}
	}
	_, err := x.execBlock(entry)
	return x.stats, err
}

func checkArg(t ir.MemRefType, b *Buffer) error {
	if b == nil {
		return errors.New("nil buffer")
	}
	if t.Elem != b.Elem || len(t.Shape) != len(b.Shape) {
		return errors.Errorf("buffer %s does not fit %s", b.Type(), t)
	}
	for i, s := range t.Shape {
		if s != ir.Dynamic && s != b.Shape[i] {
			return errors.Errorf("buffer %s does not fit %s", b.Type(), t)
		}
	}
	return nil
}

// execBlock runs the operations of blk and returns the operands of its
// terminator.
func (x *machine) execBlock(blk *ir.Block) ([]*ir.Value, error) {
	for _, op := range blk.Ops {
		if ir.IsTerminator(op.Name) {
			return op.Operands, nil
		}
		if err := x.exec(op); err != nil {
			if op.Loc != "" {
				return nil, errors.Wrapf(err, "%s at %s", op.Name, op.Loc)
			}
			return nil, errors.Wrap(err, op.Name)
		}
		x.stats.Ops++
	}
	return nil, nil
}

func (x *machine) scalar(v *ir.Value) float64 { return x.vals[v].scalar }

func (x *machine) index(v *ir.Value) int64 { return int64(x.vals[v].scalar) }

func (x *machine) indices(vs []*ir.Value) []int64 {
	out := make([]int64, len(vs))
	for i, v := range vs {
		out[i] = x.index(v)
	}
	return out
}

func (x *machine) buffer(v *ir.Value) (*Buffer, error) {
	b := x.vals[v].buf
	if b == nil {
		return nil, errors.New("operand is not a buffer")
	}
	return b, nil
}

func (x *machine) setScalar(v *ir.Value, f float64) {
	if st, ok := v.Type().(ir.ScalarType); ok {
		f = Round(st, f)
	}
	x.vals[v] = value{scalar: f}
}

// applyMap evaluates m with its dims and symbols taken from operands.
func (x *machine) applyMap(m affine.Map, operands []*ir.Value) ([]int64, error) {
	if len(operands) != m.NumDims+m.NumSymbols {
		return nil, errors.Errorf("map %s expects %d operands, got %d", m, m.NumDims+m.NumSymbols, len(operands))
	}
	vals := x.indices(operands)
	return m.Eval(vals[:m.NumDims], vals[m.NumDims:])
}

func (x *machine) bound(bd ir.Bound) (int64, error) {
	res, err := x.applyMap(bd.Map, bd.Operands)
	if err != nil {
		return 0, err
	}
	if len(res) != 1 {
		return 0, errors.Errorf("bound map %s has %d results", bd.Map, len(res))
	}
	return res[0], nil
}

func (x *machine) exec(op *ir.Operation) error {
	switch op.Name {
	case ir.ConstantOpName:
		switch a := op.Attr("value").(type) {
		case ir.IntegerAttr:
			x.setScalar(op.Result(0), float64(a.Value))
		case ir.FloatAttr:
			x.setScalar(op.Result(0), a.Value)
		default:
			return errors.Errorf("unsupported constant %v", a)
		}

	case ir.AddIOpName, ir.AddFOpName:
		x.setScalar(op.Result(0), x.scalar(op.Operand(0))+x.scalar(op.Operand(1)))
	case ir.MulIOpName, ir.MulFOpName:
		x.setScalar(op.Result(0), x.scalar(op.Operand(0))*x.scalar(op.Operand(1)))

	case ir.ApplyOpName:
		m, _ := op.Attr("map").(ir.AffineMapAttr)
		res, err := x.applyMap(m.Map, op.Operands)
		if err != nil {
			return err
		}
		x.setScalar(op.Result(0), float64(res[0]))

	case ir.ForOpName:
		return x.execFor(op)

	case ir.DimOpName:
		b, err := x.buffer(op.Operand(0))
		if err != nil {
			return err
		}
		i, _ := op.Attr("index").(ir.IntegerAttr)
		if i.Value < 0 || int(i.Value) >= len(b.Shape) {
			return errors.Errorf("dimension %d out of range for rank %d", i.Value, len(b.Shape))
		}
		x.setScalar(op.Result(0), float64(b.Shape[i.Value]))

	case ir.LoadOpName:
		b, err := x.buffer(op.Operand(0))
		if err != nil {
			return err
		}
		v, err := b.Load(x.indices(op.Operands[1:]))
		if err != nil {
			return err
		}
		x.stats.ScalarAccesses++
		x.setScalar(op.Result(0), v)

	case ir.StoreOpName:
		b, err := x.buffer(op.Operand(1))
		if err != nil {
			return err
		}
		x.stats.ScalarAccesses++
		return b.Store(x.scalar(op.Operand(0)), x.indices(op.Operands[2:]))

	case ir.AllocOpName:
		mt, ok := op.Result(0).Type().(ir.MemRefType)
		if !ok {
			return errors.New("alloc result is not a memref")
		}
		shape := append([]int64(nil), mt.Shape...)
		next := 0
		for i, s := range shape {
			if s != ir.Dynamic {
				continue
			}
			if next >= len(op.Operands) {
				return errors.New("missing size operand for dynamic dimension")
			}
			shape[i] = x.index(op.Operand(next))
			next++
		}
		x.vals[op.Result(0)] = value{buf: NewBuffer(mt.Elem, shape...)}

	case ir.TransferReadOpName, ir.TransferWriteOpName:
		return x.execTransfer(op)

	case ir.GenericOpName:
		return x.execGeneric(op)

	case ir.FillOpName:
		b, err := x.buffer(op.Operand(1))
		if err != nil {
			return err
		}
		v := Round(b.Elem, x.scalar(op.Operand(0)))
		for i := range b.Data {
			b.Data[i] = v
		}

	default:
		return errors.Errorf("unsupported operation %s", op.Name)
	}
	return nil
}

func (x *machine) execFor(op *ir.Operation) error {
	f, _ := ir.AsFor(op)
	lb, err := x.bound(f.LowerBound())
	if err != nil {
		return errors.Wrap(err, "lower bound")
	}
	ub, err := x.bound(f.UpperBound())
	if err != nil {
		return errors.Wrap(err, "upper bound")
	}
	step := f.Step()
	if step <= 0 {
		return errors.Errorf("non-positive step %d", step)
	}
	iv := f.InductionVar()
	for i := lb; i < ub; i += step {
		x.vals[iv] = value{scalar: float64(i)}
		if _, err := x.execBlock(f.Body()); err != nil {
			return err
		}
	}
	return nil
}

// execTransfer moves one vector. Lane l addresses the start indices with
// l added along the permutation map's dimension; lanes outside the buffer
// read the padding value or are dropped on write.
func (x *machine) execTransfer(op *ir.Operation) error {
	t, _ := ir.AsTransfer(op)
	b, err := x.buffer(t.Memref())
	if err != nil {
		return err
	}
	lane := t.LaneDim()
	base := x.indices(t.Indices())
	if lane < 0 || lane >= len(base) {
		return errors.Errorf("invalid permutation map %s", t.PermutationMap())
	}
	vt, ok := t.Vector().Type().(ir.VectorType)
	if !ok {
		return errors.New("transfer of a non-vector value")
	}
	x.stats.VectorTransfers++

	idx := make([]int64, len(base))
	at := func(l int64) bool {
		copy(idx, base)
		idx[lane] += l
		return b.InBounds(idx)
	}

	if t.IsRead() {
		vec := make([]float64, vt.Size)
		pad := Round(vt.Elem, x.scalar(t.Padding()))
		for l := range vt.Size {
			if !at(l) {
				if t.InBounds() {
					return errors.Errorf("lane %d at %v is out of bounds for shape %v", l, idx, b.Shape)
				}
				vec[l] = pad
				continue
			}
			vec[l], _ = b.Load(idx)
		}
		x.vals[t.Vector()] = value{vec: vec}
		return nil
	}

	vec := x.vals[t.Vector()].vec
	if int64(len(vec)) != vt.Size {
		return errors.Errorf("vector holds %d lanes, type has %d", len(vec), vt.Size)
	}
	for l := range vt.Size {
		if !at(l) {
			if t.InBounds() {
				return errors.Errorf("lane %d at %v is out of bounds for shape %v", l, idx, b.Shape)
			}
			continue
		}
		if err := b.Store(vec[l], idx); err != nil {
			return err
		}
	}
	return nil
}

// execGeneric runs a linalg.generic over its whole iteration space. The
// extent of loop d comes from the first operand dimension indexed by d alone.
func (x *machine) execGeneric(op *ir.Operation) error {
	g, _ := ir.AsGeneric(op)
	maps := g.IndexingMaps()
	if len(maps) != len(g.Operands) {
		return errors.Errorf("%d indexing maps for %d operands", len(maps), len(g.Operands))
	}
	bufs := make([]*Buffer, len(g.Operands))
	for i, v := range g.Operands {
		b, err := x.buffer(v)
		if err != nil {
			return err
		}
		bufs[i] = b
	}

	numLoops := 0
	if len(maps) > 0 {
		numLoops = maps[0].NumDims
	}
	extents := make([]int64, numLoops)
	for i := range extents {
		extents[i] = -1
	}
	for i, m := range maps {
		for r, e := range m.Results {
			if d, ok := e.(affine.DimExpr); ok && d.Pos < numLoops && extents[d.Pos] < 0 {
				extents[d.Pos] = bufs[i].Shape[r]
			}
		}
	}
	for d, e := range extents {
		if e < 0 {
			return errors.Errorf("cannot infer the extent of loop d%d", d)
		}
		if e == 0 {
			return nil
		}
	}

	body := g.Body().Front()
	outputs := bufs[g.NumInputs():]
	outMaps := maps[g.NumInputs():]
	point := make([]int64, numLoops)
	for {
		for i, m := range maps {
			idx, err := m.Eval(point, nil)
			if err != nil {
				return err
			}
			v, err := bufs[i].Load(idx)
			if err != nil {
				return err
			}
			x.vals[body.Args[i]] = value{scalar: v}
		}
		yielded, err := x.execBlock(body)
		if err != nil {
			return err
		}
		if len(yielded) != len(outputs) {
			return errors.Errorf("body yields %d values for %d outputs", len(yielded), len(outputs))
		}
		for i, y := range yielded {
			idx, err := outMaps[i].Eval(point, nil)
			if err != nil {
				return err
			}
			if err := outputs[i].Store(x.scalar(y), idx); err != nil {
				return err
			}
		}

		// Advance the row-major odometer.
		d := numLoops - 1
		for ; d >= 0; d-- {
			point[d]++
			if point[d] < extents[d] {
				break
			}
			point[d] = 0
		}
		if d < 0 {
			return nil
		}
	}
}
