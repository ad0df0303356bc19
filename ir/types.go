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
	"strings"
)

// Dynamic marks a memref dimension whose extent is only known at runtime.
const Dynamic int64 = -1

// Type is an IR value type.
type Type interface {
	String() string
	isType()
}

// IndexType is the type of loop induction variables and buffer indices.
type IndexType struct{}

// ScalarKind enumerates element types.
type ScalarKind int

const (
	F16 ScalarKind = iota
	F32
	F64
	I8
	I16
	I32
	I64
)

// ScalarType is an element type.
type ScalarType struct{ Kind ScalarKind }

// MemRefType is a ranked buffer type. A Dynamic entry in Shape is an extent
// that must be queried with memref.dim.
type MemRefType struct {
	Shape []int64
	Elem  ScalarType
}

// VectorType is a 1-D vector of Size elements.
type VectorType struct {
	Size int64
	Elem ScalarType
}

func (IndexType) isType()  {}
func (ScalarType) isType() {}
func (MemRefType) isType() {}
func (VectorType) isType() {}

// Index is the shared index type value.
var Index = IndexType{}

// Scalar element types.
var (
	Float16 = ScalarType{Kind: F16}
	Float32 = ScalarType{Kind: F32}
	Float64 = ScalarType{Kind: F64}
	Int8    = ScalarType{Kind: I8}
	Int16   = ScalarType{Kind: I16}
	Int32   = ScalarType{Kind: I32}
	Int64   = ScalarType{Kind: I64}
)

func (IndexType) String() string { return "index" }

func (t ScalarType) String() string {
	switch t.Kind {
	case F16:
		return "f16"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case I8:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	default:
		return fmt.Sprintf("scalar(%d)", int(t.Kind))
	}
}

// IsFloat reports whether t is a floating-point type.
func (t ScalarType) IsFloat() bool {
	return t.Kind == F16 || t.Kind == F32 || t.Kind == F64
}

// Bytes returns the storage size of one element.
func (t ScalarType) Bytes() int {
	switch t.Kind {
	case I8:
		return 1
	case F16, I16:
		return 2
	case F32, I32:
		return 4
	default:
		return 8
	}
}

// ParseScalarType parses names such as "f32" or "i64".
func ParseScalarType(name string) (ScalarType, bool) {
	for k := F16; k <= I64; k++ {
		t := ScalarType{Kind: k}
		if t.String() == name {
			return t, true
		}
	}
	return ScalarType{}, false
}

// Rank returns the number of dimensions.
func (t MemRefType) Rank() int { return len(t.Shape) }

// IsDynamicDim reports whether dimension i has a runtime extent.
func (t MemRefType) IsDynamicDim(i int) bool { return t.Shape[i] == Dynamic }

func (t MemRefType) String() string {
	var sb strings.Builder
	sb.WriteString("memref<")
	for _, d := range t.Shape {
		if d == Dynamic {
			sb.WriteString("?")
		} else {
			fmt.Fprintf(&sb, "%d", d)
		}
		sb.WriteString("x")
	}
	sb.WriteString(t.Elem.String())
	sb.WriteString(">")
	return sb.String()
}

func (t VectorType) String() string {
	return fmt.Sprintf("vector<%dx%s>", t.Size, t.Elem)
}

// TypesEqual reports whether a and b denote the same type.
func TypesEqual(a, b Type) bool {
	switch x := a.(type) {
	case MemRefType:
		y, ok := b.(MemRefType)
		if !ok || x.Elem != y.Elem || len(x.Shape) != len(y.Shape) {
			return false
		}
		for i := range x.Shape {
			if x.Shape[i] != y.Shape[i] {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// ElementType returns the scalar element type of a memref, vector or scalar.
func ElementType(t Type) (ScalarType, bool) {
	switch x := t.(type) {
	case ScalarType:
		return x, true
	case MemRefType:
		return x.Elem, true
	case VectorType:
		return x.Elem, true
	default:
		return ScalarType{}, false
	}
}
