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

package interp

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/ajroetker/hwyopt/ir"
)

// Buffer is a dense row-major memref value. Every element is held as a
// float64 already rounded to Elem.
type Buffer struct {
	Shape []int64
	Elem  ir.ScalarType
	Data  []float64
}

// NewBuffer returns a zero-filled buffer.
func NewBuffer(elem ir.ScalarType, shape ...int64) *Buffer {
	n := int64(1)
	for _, s := range shape {
		n *= s
	}
	return &Buffer{Shape: append([]int64(nil), shape...), Elem: elem, Data: make([]float64, n)}
}

// FromSlice wraps data, rounding every element to elem.
func FromSlice(elem ir.ScalarType, shape []int64, data []float64) (*Buffer, error) {
	b := NewBuffer(elem, shape...)
	if len(data) != len(b.Data) {
		return nil, errors.Errorf("shape %v needs %d elements, got %d", shape, len(b.Data), len(data))
	}
	for i, v := range data {
		b.Data[i] = Round(elem, v)
	}
	return b, nil
}

// FromNested2D builds a rank-2 buffer from equally long rows.
func FromNested2D(elem ir.ScalarType, rows [][]float64) *Buffer {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	b := NewBuffer(elem, int64(len(rows)), int64(cols))
	for i, row := range rows {
		for j, v := range row {
			b.Data[i*cols+j] = Round(elem, v)
		}
	}
	return b
}

// Iota returns a buffer holding 0, 1, 2, ... in row-major order.
func Iota(elem ir.ScalarType, shape ...int64) *Buffer {
	b := NewBuffer(elem, shape...)
	for i := range b.Data {
		b.Data[i] = Round(elem, float64(i))
	}
	return b
}

// Nested2D returns the rows of a rank-2 buffer.
func (b *Buffer) Nested2D() [][]float64 {
	if len(b.Shape) != 2 {
		panic(fmt.Sprintf("Nested2D on rank-%d buffer", len(b.Shape)))
	}
	rows := make([][]float64, b.Shape[0])
	for i := range rows {
		rows[i] = append([]float64(nil), b.Data[int64(i)*b.Shape[1]:int64(i+1)*b.Shape[1]]...)
	}
	return rows
}

// Type returns the static memref type of b.
func (b *Buffer) Type() ir.MemRefType {
	return ir.MemRefType{Shape: append([]int64(nil), b.Shape...), Elem: b.Elem}
}

// InBounds reports whether idx addresses an element of b.
func (b *Buffer) InBounds(idx []int64) bool {
	if len(idx) != len(b.Shape) {
		return false
	}
	for i, x := range idx {
		if x < 0 || x >= b.Shape[i] {
			return false
		}
	}
	return true
}

func (b *Buffer) offset(idx []int64) (int64, error) {
	if !b.InBounds(idx) {
		return 0, errors.Errorf("index %v out of bounds for shape %v", idx, b.Shape)
	}
	off := int64(0)
	for i, x := range idx {
		off = off*b.Shape[i] + x
	}
	return off, nil
}

// Load returns the element at idx.
func (b *Buffer) Load(idx []int64) (float64, error) {
	off, err := b.offset(idx)
	if err != nil {
		return 0, err
	}
	return b.Data[off], nil
}

// Store writes v, rounded to the element type, at idx.
func (b *Buffer) Store(v float64, idx []int64) error {
	off, err := b.offset(idx)
	if err != nil {
		return err
	}
	b.Data[off] = Round(b.Elem, v)
	return nil
}

// At returns the element at idx and panics if it is out of bounds.
func (b *Buffer) At(idx ...int64) float64 {
	v, err := b.Load(idx)
	if err != nil {
		panic(err)
	}
	return v
}

// String prints the shape and the flat data.
func (b *Buffer) String() string {
	dims := make([]string, len(b.Shape))
	for i, s := range b.Shape {
		dims[i] = fmt.Sprint(s)
	}
	return fmt.Sprintf("%sx%s %v", strings.Join(dims, "x"), b.Elem, b.Data)
}

// Round converts v to the precision and range of elem. Integers truncate
// toward zero and wrap like Go conversions.
func Round(elem ir.ScalarType, v float64) float64 {
	switch elem.Kind {
	case ir.F16:
		return float64(float16.Fromfloat32(float32(v)).Float32())
	case ir.F32:
		return float64(float32(v))
	case ir.F64:
		return v
	case ir.I8:
		return float64(int8(int64(v)))
	case ir.I16:
		return float64(int16(int64(v)))
	case ir.I32:
		return float64(int32(int64(v)))
	default:
		return float64(int64(v))
	}
}
