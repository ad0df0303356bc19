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
	"github.com/pkg/errors"
)

// Builder creates operations at an insertion point.
//
// The insertion point is a block plus an anchor operation: new operations are
// placed immediately before the anchor, or appended when the anchor is nil.
// Consecutive insertions therefore keep their creation order.
type Builder struct {
	block  *Block
	before *Operation
	loc    string

	// onCreate, when set, observes every inserted operation.
	onCreate func(*Operation)
}

// NewBuilder returns a builder with no insertion point.
func NewBuilder() *Builder { return &Builder{} }

// SetInsertionPointToEnd appends subsequent operations to block.
func (b *Builder) SetInsertionPointToEnd(block *Block) {
	b.block, b.before = block, nil
}

// SetInsertionPointBefore inserts subsequent operations before op.
func (b *Builder) SetInsertionPointBefore(op *Operation) {
	b.block, b.before = op.parent, op
}

// SetLoc sets the location stamped on created operations.
func (b *Builder) SetLoc(loc string) { b.loc = loc }

// InsertionBlock returns the current insertion block.
func (b *Builder) InsertionBlock() *Block { return b.block }

// Fork returns a builder sharing b's creation hook with the same insertion point.
func (b *Builder) Fork() *Builder {
	nb := *b
	return &nb
}

// Create builds an operation and inserts it at the insertion point.
func (b *Builder) Create(name string, operands []*Value, resultTypes []Type, attrs map[string]Attribute, numRegions int) *Operation {
	op := &Operation{
		Name:     name,
		Operands: operands,
		Attrs:    attrs,
		Loc:      b.loc,
	}
	for i, t := range resultTypes {
		op.Results = append(op.Results, &Value{typ: t, owner: op, index: i})
	}
	for range numRegions {
		op.Regions = append(op.Regions, &Region{parent: op})
	}
	b.insert(op)
	return op
}

func (b *Builder) insert(op *Operation) {
	if b.block == nil {
		panic("ir: builder has no insertion point")
	}
	b.block.insertBefore(op, b.before)
	if b.onCreate != nil {
		b.onCreate(op)
	}
}

// CreateBlock appends a new block with the given argument types to r.
func (b *Builder) CreateBlock(r *Region, argTypes ...Type) *Block {
	blk := &Block{parent: r}
	for _, t := range argTypes {
		blk.AddArgument(t)
	}
	r.Blocks = append(r.Blocks, blk)
	return blk
}

// within runs fn with the insertion point temporarily at the end of block.
func (b *Builder) within(block *Block, fn func()) {
	saved, savedBefore := b.block, b.before
	b.block, b.before = block, nil
	fn()
	b.block, b.before = saved, savedBefore
}

// Rewriter is the single mutation boundary used by conversion patterns. It
// tracks what was created and erased so drivers can report progress.
type Rewriter struct {
	*Builder
	created int
	erased  int
}

// NewRewriter returns a rewriter with an empty insertion point.
func NewRewriter() *Rewriter {
	rw := &Rewriter{Builder: NewBuilder()}
	rw.Builder.onCreate = func(*Operation) { rw.created++ }
	return rw
}

// EraseOp removes op and its nested regions from the IR. Results of op must
// have no remaining uses.
func (rw *Rewriter) EraseOp(op *Operation) error {
	if op.parent == nil {
		return errors.Errorf("erase %s: operation is detached", op.Name)
	}
	root := Root(op)
	for _, r := range op.Results {
		for _, user := range Uses(root, r) {
			if !IsAncestor(op, user) {
				return errors.Errorf("erase %s: result #%d still used by %s", op.Name, r.index, user.Name)
			}
		}
	}
	op.parent.remove(op)
	rw.erased++
	return nil
}

// Created returns the number of operations inserted through the rewriter.
func (rw *Rewriter) Created() int { return rw.created }

// Erased returns the number of operations erased through the rewriter.
func (rw *Rewriter) Erased() int { return rw.erased }
