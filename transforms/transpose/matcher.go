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

// Package transpose rewrites linalg.generic operations that only permute the
// dimensions of a buffer into vector-width tiled affine loop nests.
//
// The rewrite has three steps: Match proves the generic is a pure transpose
// and recovers its permutation, Plan splits every dimension into full vector
// tiles and a remainder, and Emit builds the replacement loops.
package transpose

import (
	"fmt"

	"github.com/ajroetker/hwyopt/ir"
	"github.com/ajroetker/hwyopt/ir/affine"
)

// Kind discriminates the outcome of Match.
type Kind int

const (
	// NotATranspose means the operation was rejected and must be left as is.
	NotATranspose Kind = iota

	// Matched means the operation is a pure transpose.
	Matched
)

func (k Kind) String() string {
	if k == Matched {
		return "Matched"
	}
	return "NotATranspose"
}

// Result is the outcome of Match.
type Result struct {
	Kind Kind

	// Permutation maps each output dimension i to the input dimension it
	// reads: out[..., x_i, ...] = in[..., x_Permutation[i], ...].
	Permutation []int

	Rank   int
	Elem   ir.ScalarType
	Input  *ir.Value
	Output *ir.Value

	// Reason describes why the operation was rejected.
	Reason string
}

// Ok reports whether the operation matched.
func (r Result) Ok() bool { return r.Kind == Matched }

func reject(format string, args ...any) Result {
	return Result{Kind: NotATranspose, Reason: fmt.Sprintf(format, args...)}
}

// Match reports whether op is a linalg.generic that copies its single input to
// its single output with permuted dimensions and nothing else. The checks run
// in a fixed order and the first failing one decides the Reason.
//
// Match never mutates op and is safe to call concurrently.
func Match(op *ir.Operation) Result {
	g, ok := ir.AsGeneric(op)
	if !ok {
		return reject("%s is not a linalg.generic", op.Name)
	}

	// 1. One input and one output buffer.
	if g.NumInputs() != 1 || g.NumOutputs() != 1 {
		return reject("expected 1 input and 1 output, got %d and %d", g.NumInputs(), g.NumOutputs())
	}
	input, output := g.Inputs()[0], g.Outputs()[0]
	inType, ok1 := input.Type().(ir.MemRefType)
	outType, ok2 := output.Type().(ir.MemRefType)
	if !ok1 || !ok2 {
		return reject("operands must be memrefs")
	}
	rank := inType.Rank()
	if rank == 0 {
		return reject("rank-0 buffers have nothing to permute")
	}
	if outType.Rank() != rank {
		return reject("input rank %d differs from output rank %d", rank, outType.Rank())
	}
	if inType.Elem != outType.Elem {
		return reject("input element %s differs from output element %s", inType.Elem, outType.Elem)
	}

	// 2. Two indexing maps over the same rank-dimensional iteration space.
	maps := g.IndexingMaps()
	if len(maps) != 2 {
		return reject("expected 2 indexing maps, got %d", len(maps))
	}
	inMap, outMap := maps[0], maps[1]
	if inMap.NumDims != outMap.NumDims || inMap.NumDims != rank {
		return reject("indexing maps have %d and %d dims, want %d", inMap.NumDims, outMap.NumDims, rank)
	}
	if inMap.NumResults() != rank || outMap.NumResults() != rank {
		return reject("indexing maps must have %d results", rank)
	}
	if !inMap.IsPermutation() {
		return reject("input indexing map %s is not a permutation", inMap)
	}

	// 3. Every output result equals exactly one unclaimed input result.
	perm := make([]int, rank)
	claimed := make([]bool, rank)
	for i := range rank {
		found := -1
		for j := range rank {
			if affine.Equal(outMap.Result(i), inMap.Result(j)) {
				found = j
				break
			}
		}
		if found < 0 {
			return reject("output result %d (%s) matches no input result", i, outMap.Result(i))
		}
		if claimed[found] {
			return reject("input dimension %d is read by two output dimensions", found)
		}
		claimed[found] = true
		perm[i] = found
	}
	for i, j := range perm {
		if !inType.IsDynamicDim(j) && !outType.IsDynamicDim(i) && inType.Shape[j] != outType.Shape[i] {
			return reject("output dim %d has extent %d, input dim %d has %d", i, outType.Shape[i], j, inType.Shape[j])
		}
	}

	// 4. Only parallel iterators.
	iters := g.IteratorTypes()
	if len(iters) != rank {
		return reject("expected %d iterator types, got %d", rank, len(iters))
	}
	for i, it := range iters {
		if it != ir.IteratorParallel {
			return reject("iterator %d is %s", i, it)
		}
	}

	// 5. The body only forwards the input element.
	body := g.Body()
	if body == nil || !body.HasOneBlock() {
		return reject("body must have exactly one block")
	}
	blk := body.Front()
	if len(blk.Ops) != 1 {
		return reject("body has %d operations, want only the yield", len(blk.Ops))
	}
	yield := blk.Ops[0]
	if yield.Name != ir.LinalgYieldOpName || len(yield.Operands) != 1 || len(blk.Args) == 0 || yield.Operands[0] != blk.Args[0] {
		return reject("body does not yield the input element unchanged")
	}

	return Result{
		Kind:        Matched,
		Permutation: perm,
		Rank:        rank,
		Elem:        inType.Elem,
		Input:       input,
		Output:      output,
	}
}

// LaneDim returns the output dimension that the innermost input dimension is
// written to, i.e. the k with Permutation[k] == Rank-1.
func (r Result) LaneDim() int {
	for k, j := range r.Permutation {
		if j == r.Rank-1 {
			return k
		}
	}
	return -1
}
