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

// Package affine provides immutable affine index expressions and maps.
//
// Expressions are plain comparable values: two expressions are equal exactly
// when their trees are structurally identical, so matching an index
// expression against another never requires numeric evaluation.
package affine

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ExprKind identifies the node type of an affine expression.
type ExprKind int

const (
	KindDim ExprKind = iota
	KindSymbol
	KindConst
	KindAdd
	KindMul
	KindMod
	KindFloorDiv
	KindCeilDiv
)

// String returns the textual operator or node name for the kind.
func (k ExprKind) String() string {
	switch k {
	case KindDim:
		return "dim"
	case KindSymbol:
		return "symbol"
	case KindConst:
		return "const"
	case KindAdd:
		return "+"
	case KindMul:
		return "*"
	case KindMod:
		return "mod"
	case KindFloorDiv:
		return "floordiv"
	case KindCeilDiv:
		return "ceildiv"
	default:
		return fmt.Sprintf("ExprKind(%d)", k)
	}
}

// Expr is an affine expression tree node.
//
// The set of implementations is closed: DimExpr, SymbolExpr, ConstExpr and
// BinaryExpr. All of them are comparable with ==.
type Expr interface {
	Kind() ExprKind
	String() string
	isExpr()
}

// DimExpr references iteration dimension Pos.
type DimExpr struct{ Pos int }

// SymbolExpr references symbol Pos.
type SymbolExpr struct{ Pos int }

// ConstExpr is an integer literal.
type ConstExpr struct{ Value int64 }

// BinaryExpr applies Op to LHS and RHS.
type BinaryExpr struct {
	Op       ExprKind
	LHS, RHS Expr
}

func (DimExpr) Kind() ExprKind      { return KindDim }
func (SymbolExpr) Kind() ExprKind   { return KindSymbol }
func (ConstExpr) Kind() ExprKind    { return KindConst }
func (e BinaryExpr) Kind() ExprKind { return e.Op }

func (DimExpr) isExpr()    {}
func (SymbolExpr) isExpr() {}
func (ConstExpr) isExpr()  {}
func (BinaryExpr) isExpr() {}

func (e DimExpr) String() string    { return fmt.Sprintf("d%d", e.Pos) }
func (e SymbolExpr) String() string { return fmt.Sprintf("s%d", e.Pos) }
func (e ConstExpr) String() string  { return fmt.Sprintf("%d", e.Value) }

func (e BinaryExpr) String() string {
	var sb strings.Builder
	writeOperand(&sb, e.LHS, precedence(e.Op), false)
	sb.WriteString(" ")
	sb.WriteString(e.Op.String())
	sb.WriteString(" ")
	writeOperand(&sb, e.RHS, precedence(e.Op), true)
	return sb.String()
}

func precedence(k ExprKind) int {
	switch k {
	case KindAdd:
		return 1
	case KindMul, KindMod, KindFloorDiv, KindCeilDiv:
		return 2
	default:
		return 3
	}
}

func writeOperand(sb *strings.Builder, e Expr, parent int, rhs bool) {
	p := precedence(e.Kind())
	if p < parent || (rhs && p == parent && p < 3) {
		sb.WriteString("(")
		sb.WriteString(e.String())
		sb.WriteString(")")
		return
	}
	sb.WriteString(e.String())
}

// Dim returns the expression for dimension pos.
func Dim(pos int) Expr { return DimExpr{Pos: pos} }

// Symbol returns the expression for symbol pos.
func Symbol(pos int) Expr { return SymbolExpr{Pos: pos} }

// Const returns a constant expression.
func Const(v int64) Expr { return ConstExpr{Value: v} }

// Add returns lhs + rhs, folded where possible.
func Add(lhs, rhs Expr) Expr { return binary(KindAdd, lhs, rhs) }

// Mul returns lhs * rhs, folded where possible.
func Mul(lhs, rhs Expr) Expr { return binary(KindMul, lhs, rhs) }

// Mod returns lhs mod rhs, folded where possible.
func Mod(lhs, rhs Expr) Expr { return binary(KindMod, lhs, rhs) }

// FloorDiv returns lhs floordiv rhs, folded where possible.
func FloorDiv(lhs, rhs Expr) Expr { return binary(KindFloorDiv, lhs, rhs) }

// CeilDiv returns lhs ceildiv rhs, folded where possible.
func CeilDiv(lhs, rhs Expr) Expr { return binary(KindCeilDiv, lhs, rhs) }

// Equal reports whether a and b are structurally identical.
func Equal(a, b Expr) bool { return a == b }

// AsConst returns the value of e if it is a constant.
func AsConst(e Expr) (int64, bool) {
	c, ok := e.(ConstExpr)
	return c.Value, ok
}

func binary(op ExprKind, lhs, rhs Expr) Expr {
	lc, lok := AsConst(lhs)
	rc, rok := AsConst(rhs)
	if lok && rok {
		if v, err := apply(op, lc, rc); err == nil {
			return Const(v)
		}
	}

	// Keep constants on the right of commutative ops.
	if (op == KindAdd || op == KindMul) && lok && !rok {
		lhs, rhs = rhs, lhs
		lc, rc = rc, lc
		lok, rok = rok, lok
	}

	if rok {
		switch op {
		case KindAdd:
			if rc == 0 {
				return lhs
			}
			// (x + c1) + c2 -> x + (c1 + c2)
			if inner, ok := lhs.(BinaryExpr); ok && inner.Op == KindAdd {
				if ic, ok := AsConst(inner.RHS); ok {
					return Add(inner.LHS, Const(ic+rc))
				}
			}
		case KindMul:
			if rc == 0 {
				return Const(0)
			}
			if rc == 1 {
				return lhs
			}
		case KindFloorDiv, KindCeilDiv:
			if rc == 1 {
				return lhs
			}
		case KindMod:
			if rc == 1 {
				return Const(0)
			}
		}
	}
	return BinaryExpr{Op: op, LHS: lhs, RHS: rhs}
}

func apply(op ExprKind, a, b int64) (int64, error) {
	switch op {
	case KindAdd:
		return a + b, nil
	case KindMul:
		return a * b, nil
	case KindMod:
		if b == 0 {
			return 0, errors.New("affine: mod by zero")
		}
		return a - floorDiv(a, b)*b, nil
	case KindFloorDiv:
		if b == 0 {
			return 0, errors.New("affine: floordiv by zero")
		}
		return floorDiv(a, b), nil
	case KindCeilDiv:
		if b == 0 {
			return 0, errors.New("affine: ceildiv by zero")
		}
		return -floorDiv(-a, b), nil
	default:
		return 0, errors.Errorf("affine: %s is not a binary operator", op)
	}
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// Eval evaluates e with the given dimension and symbol values.
func Eval(e Expr, dims, syms []int64) (int64, error) {
	switch x := e.(type) {
	case DimExpr:
		if x.Pos < 0 || x.Pos >= len(dims) {
			return 0, errors.Errorf("affine: d%d out of range (%d dims)", x.Pos, len(dims))
		}
		return dims[x.Pos], nil
	case SymbolExpr:
		if x.Pos < 0 || x.Pos >= len(syms) {
			return 0, errors.Errorf("affine: s%d out of range (%d symbols)", x.Pos, len(syms))
		}
		return syms[x.Pos], nil
	case ConstExpr:
		return x.Value, nil
	case BinaryExpr:
		a, err := Eval(x.LHS, dims, syms)
		if err != nil {
			return 0, err
		}
		b, err := Eval(x.RHS, dims, syms)
		if err != nil {
			return 0, err
		}
		return apply(x.Op, a, b)
	default:
		return 0, errors.Errorf("affine: unknown expression %T", e)
	}
}

// Replace substitutes dimension and symbol references and refolds the tree.
// A nil entry (or a position past the end) leaves the reference unchanged.
func Replace(e Expr, dims, syms []Expr) Expr {
	switch x := e.(type) {
	case DimExpr:
		if x.Pos < len(dims) && dims[x.Pos] != nil {
			return dims[x.Pos]
		}
		return x
	case SymbolExpr:
		if x.Pos < len(syms) && syms[x.Pos] != nil {
			return syms[x.Pos]
		}
		return x
	case BinaryExpr:
		return binary(x.Op, Replace(x.LHS, dims, syms), Replace(x.RHS, dims, syms))
	default:
		return e
	}
}

// UsesDim reports whether e references dimension pos.
func UsesDim(e Expr, pos int) bool {
	switch x := e.(type) {
	case DimExpr:
		return x.Pos == pos
	case BinaryExpr:
		return UsesDim(x.LHS, pos) || UsesDim(x.RHS, pos)
	default:
		return false
	}
}
