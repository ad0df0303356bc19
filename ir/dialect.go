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
	"slices"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Dialect names.
const (
	BuiltinDialect = "builtin"
	FuncDialect    = "func"
	ArithDialect   = "arith"
	AffineDialect  = "affine"
	MemRefDialect  = "memref"
	VectorDialect  = "vector"
	LinalgDialect  = "linalg"
)

// Operation names.
const (
	ModuleOpName = "builtin.module"

	FuncOpName   = "func.func"
	ReturnOpName = "func.return"

	ConstantOpName = "arith.constant"
	AddIOpName     = "arith.addi"
	MulIOpName     = "arith.muli"
	AddFOpName     = "arith.addf"
	MulFOpName     = "arith.mulf"

	ApplyOpName       = "affine.apply"
	ForOpName         = "affine.for"
	AffineYieldOpName = "affine.yield"

	DimOpName   = "memref.dim"
	LoadOpName  = "memref.load"
	StoreOpName = "memref.store"
	AllocOpName = "memref.alloc"

	TransferReadOpName  = "vector.transfer_read"
	TransferWriteOpName = "vector.transfer_write"

	GenericOpName     = "linalg.generic"
	LinalgYieldOpName = "linalg.yield"
	FillOpName        = "linalg.fill"
)

// ErrUnknownDialect is returned when loading a dialect that does not exist.
var ErrUnknownDialect = errors.New("unknown dialect")

// dialectOps lists the operations each dialect defines.
var dialectOps = map[string][]string{
	BuiltinDialect: {ModuleOpName},
	FuncDialect:    {FuncOpName, ReturnOpName},
	ArithDialect:   {ConstantOpName, AddIOpName, MulIOpName, AddFOpName, MulFOpName},
	AffineDialect:  {ApplyOpName, ForOpName, AffineYieldOpName},
	MemRefDialect:  {DimOpName, LoadOpName, StoreOpName, AllocOpName},
	VectorDialect:  {TransferReadOpName, TransferWriteOpName},
	LinalgDialect:  {GenericOpName, LinalgYieldOpName, FillOpName},
}

// KnownDialects returns every dialect name in sorted order.
func KnownDialects() []string {
	names := lo.Keys(dialectOps)
	sort.Strings(names)
	return names
}

// DialectOps returns the operation names defined by dialect.
func DialectOps(dialect string) []string {
	return slices.Clone(dialectOps[dialect])
}

// IsTerminator reports whether name is a block terminator.
func IsTerminator(name string) bool {
	switch name {
	case ReturnOpName, AffineYieldOpName, LinalgYieldOpName:
		return true
	}
	return false
}

// IsPure reports whether an operation of this name has no side effects.
func IsPure(name string) bool {
	switch name {
	case ConstantOpName, AddIOpName, MulIOpName, AddFOpName, MulFOpName,
		ApplyOpName, DimOpName, LoadOpName, TransferReadOpName:
		return true
	}
	return false
}

// Context records which dialects are loaded. It is safe for concurrent use.
type Context struct {
	mu     sync.RWMutex
	loaded map[string]bool
}

// NewContext creates a context with the builtin dialect loaded.
func NewContext() *Context {
	return &Context{loaded: map[string]bool{BuiltinDialect: true}}
}

// LoadDialect makes a dialect available.
func (c *Context) LoadDialect(names ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range names {
		if _, ok := dialectOps[name]; !ok {
			return errors.Wrapf(ErrUnknownDialect, "load %q", name)
		}
		c.loaded[name] = true
	}
	return nil
}

// IsLoaded reports whether dialect has been loaded.
func (c *Context) IsLoaded(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded[name]
}

// LoadedDialects returns loaded dialect names in sorted order.
func (c *Context) LoadedDialects() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := lo.Keys(c.loaded)
	sort.Strings(names)
	return names
}
