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

package affine

import (
	"strings"

	"github.com/pkg/errors"
)

// Map is an affine map (d0, ..., dN-1)[s0, ..., sM-1] -> (results...).
type Map struct {
	NumDims    int
	NumSymbols int
	Results    []Expr
}

// NewMap creates a map with the given dimension and symbol counts.
func NewMap(numDims, numSymbols int, results ...Expr) Map {
	return Map{NumDims: numDims, NumSymbols: numSymbols, Results: results}
}

// Identity returns (d0, ..., dn-1) -> (d0, ..., dn-1).
func Identity(n int) Map {
	results := make([]Expr, n)
	for i := range results {
		results[i] = Dim(i)
	}
	return Map{NumDims: n, Results: results}
}

// Permutation returns the map whose result i is d(perm[i]).
func Permutation(perm []int) Map {
	results := make([]Expr, len(perm))
	for i, p := range perm {
		results[i] = Dim(p)
	}
	return Map{NumDims: len(perm), Results: results}
}

// Constant returns the zero-dimensional map () -> (c).
func Constant(c int64) Map {
	return Map{Results: []Expr{Const(c)}}
}

// NumResults returns the number of result expressions.
func (m Map) NumResults() int { return len(m.Results) }

// Result returns result expression i.
func (m Map) Result(i int) Expr { return m.Results[i] }

// SingleConstant returns the value of a map with exactly one constant result.
func (m Map) SingleConstant() (int64, bool) {
	if len(m.Results) != 1 {
		return 0, false
	}
	return AsConst(m.Results[0])
}

// Equal reports whether both maps have the same shape and identical results.
func (m Map) Equal(o Map) bool {
	if m.NumDims != o.NumDims || m.NumSymbols != o.NumSymbols || len(m.Results) != len(o.Results) {
		return false
	}
	for i := range m.Results {
		if !Equal(m.Results[i], o.Results[i]) {
			return false
		}
	}
	return true
}

// PermutationVector returns p such that result i is d(p[i]), if the map is
// a permutation of its dimensions.
func (m Map) PermutationVector() ([]int, bool) {
	if len(m.Results) != m.NumDims || m.NumSymbols != 0 {
		return nil, false
	}
	seen := make([]bool, m.NumDims)
	perm := make([]int, m.NumDims)
	for i, r := range m.Results {
		d, ok := r.(DimExpr)
		if !ok || d.Pos >= m.NumDims || seen[d.Pos] {
			return nil, false
		}
		seen[d.Pos] = true
		perm[i] = d.Pos
	}
	return perm, true
}

// IsPermutation reports whether the map is a permutation of its dimensions.
func (m Map) IsPermutation() bool {
	_, ok := m.PermutationVector()
	return ok
}

// Eval evaluates every result of the map.
func (m Map) Eval(dims, syms []int64) ([]int64, error) {
	if len(dims) != m.NumDims || len(syms) != m.NumSymbols {
		return nil, errors.Errorf("affine: map %s applied to %d dims and %d symbols", m, len(dims), len(syms))
	}
	out := make([]int64, len(m.Results))
	for i, r := range m.Results {
		v, err := Eval(r, dims, syms)
		if err != nil {
			return nil, errors.Wrapf(err, "result %d of %s", i, m)
		}
		out[i] = v
	}
	return out, nil
}

// String renders the map in the usual (d0, d1)[s0] -> (d1, d0) form.
func (m Map) String() string {
	var sb strings.Builder
	sb.WriteString("(")
	for i := range m.NumDims {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(Dim(i).String())
	}
	sb.WriteString(")")
	if m.NumSymbols > 0 {
		sb.WriteString("[")
		for i := range m.NumSymbols {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(Symbol(i).String())
		}
		sb.WriteString("]")
	}
	sb.WriteString(" -> (")
	for i, r := range m.Results {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(r.String())
	}
	sb.WriteString(")")
	return sb.String()
}
