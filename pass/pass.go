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

// Package pass provides the pass interface, an explicit pass registry, a
// textual pipeline syntax and a manager that runs pipelines over modules.
//
// Nothing registers itself at package initialization: hosts build a Registry
// and call each pass package's Register function.
package pass

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/pflag"

	"github.com/ajroetker/hwyopt/ir"
)

// ErrUnknownPass is wrapped when a pipeline names an unregistered pass.
var ErrUnknownPass = errors.New("unknown pass")

// Pass transforms a module in place.
type Pass interface {
	// Name is the stable identifier used in pipelines.
	Name() string

	// Description is a one-line summary shown in listings.
	Description() string

	// DependentDialects lists the dialects the pass may introduce.
	DependentDialects() []string

	// Run applies the pass. A non-nil error means the pass failed.
	Run(ctx context.Context, m *ir.Module) error
}

// Options holds the configurable options of one pass instance.
type Options interface {
	// RegisterFlags binds the options to fs.
	RegisterFlags(fs *pflag.FlagSet)

	// Build validates the options and constructs the pass.
	Build() (Pass, error)
}

// Info describes a registered pass.
type Info struct {
	Name        string
	Description string
	Dialects    []string

	// NewOptions returns options initialized to their defaults.
	NewOptions func() Options
}

// Registry maps pass names to their Info.
type Registry struct {
	mu    sync.RWMutex
	infos map[string]Info
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{infos: make(map[string]Info)}
}

// Register adds info to the registry. Names must be unique.
func (r *Registry) Register(info Info) error {
	if info.Name == "" || info.NewOptions == nil {
		return errors.Errorf("pass registration %q is incomplete", info.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.infos[info.Name]; dup {
		return errors.Errorf("pass %q registered twice", info.Name)
	}
	r.infos[info.Name] = info
	return nil
}

// Lookup returns the Info registered under name.
func (r *Registry) Lookup(name string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.infos[name]
	return info, ok
}

// Infos returns every registered pass sorted by name.
func (r *Registry) Infos() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := lo.Values(r.infos)
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Instantiate builds a pass from its registered defaults and option args
// such as "--vector-size=8".
func (r *Registry) Instantiate(name string, args []string) (Pass, error) {
	info, ok := r.Lookup(name)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownPass, "%q", name)
	}
	opts := info.NewOptions()
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	opts.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, errors.Wrapf(err, "options of pass %s", name)
	}
	if fs.NArg() > 0 {
		return nil, errors.Errorf("options of pass %s: unexpected arguments %v", name, fs.Args())
	}
	p, err := opts.Build()
	if err != nil {
		return nil, errors.Wrapf(err, "construct pass %s", name)
	}
	return p, nil
}
