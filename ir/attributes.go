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
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/ajroetker/hwyopt/ir/affine"
)

// Attribute is a compile-time constant attached to an operation.
type Attribute interface {
	String() string
}

// IntegerAttr is an integer (or index) constant.
type IntegerAttr struct {
	Value int64
	Type  Type
}

// FloatAttr is a floating-point constant.
type FloatAttr struct {
	Value float64
	Type  Type
}

// StringAttr is a string constant.
type StringAttr string

// BoolAttr is a boolean flag.
type BoolAttr bool

// AffineMapAttr wraps an affine map.
type AffineMapAttr struct{ Map affine.Map }

// ArrayAttr is an ordered list of attributes.
type ArrayAttr []Attribute

// TypeAttr wraps a type.
type TypeAttr struct{ Type Type }

// IteratorType describes how a linalg.generic iterates one loop dimension.
type IteratorType int

const (
	// IteratorParallel dimensions carry no dependence between iterations.
	IteratorParallel IteratorType = iota
	// IteratorReduction dimensions accumulate across iterations.
	IteratorReduction
	// IteratorWindow dimensions slide an ordered window.
	IteratorWindow
)

func (a IntegerAttr) String() string   { return fmt.Sprintf("%d : %s", a.Value, a.Type) }
func (a FloatAttr) String() string     { return fmt.Sprintf("%s : %s", strconv.FormatFloat(a.Value, 'g', -1, 64), a.Type) }
func (a StringAttr) String() string    { return strconv.Quote(string(a)) }
func (a BoolAttr) String() string      { return strconv.FormatBool(bool(a)) }
func (a AffineMapAttr) String() string { return "affine_map<" + a.Map.String() + ">" }
func (a TypeAttr) String() string      { return a.Type.String() }

func (a ArrayAttr) String() string {
	return "[" + strings.Join(lo.Map(a, func(x Attribute, _ int) string { return x.String() }), ", ") + "]"
}

func (it IteratorType) String() string {
	switch it {
	case IteratorParallel:
		return "parallel"
	case IteratorReduction:
		return "reduction"
	case IteratorWindow:
		return "window"
	default:
		return fmt.Sprintf("iterator(%d)", int(it))
	}
}

// ParseIteratorType parses "parallel", "reduction" or "window".
func ParseIteratorType(s string) (IteratorType, bool) {
	for _, it := range []IteratorType{IteratorParallel, IteratorReduction, IteratorWindow} {
		if it.String() == s {
			return it, true
		}
	}
	return 0, false
}

// IndexAttr returns an index-typed integer attribute.
func IndexAttr(v int64) IntegerAttr { return IntegerAttr{Value: v, Type: Index} }
