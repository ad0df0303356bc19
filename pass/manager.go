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

package pass

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ajroetker/hwyopt/ir"
)

// Manager runs an ordered list of passes over a module.
type Manager struct {
	ctx     *ir.Context
	passes  []Pass
	verify  bool
	logger  logrus.FieldLogger
	checked bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithVerifier verifies the module after every pass.
func WithVerifier(enabled bool) ManagerOption {
	return func(m *Manager) { m.verify = enabled }
}

// WithManagerLogger sets the logger used for per-pass timing.
func WithManagerLogger(l logrus.FieldLogger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a manager whose passes load dialects into ctx.
func NewManager(ctx *ir.Context, opts ...ManagerOption) *Manager {
	m := &Manager{ctx: ctx, verify: true, logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add appends passes to the pipeline.
func (m *Manager) Add(passes ...Pass) {
	m.passes = append(m.passes, passes...)
	m.checked = false
}

// AddPipeline parses text and appends the passes it names.
func (m *Manager) AddPipeline(reg *Registry, text string) error {
	stages, err := ParsePipeline(text)
	if err != nil {
		return err
	}
	for _, st := range stages {
		p, err := reg.Instantiate(st.Name, st.Args)
		if err != nil {
			return err
		}
		m.Add(p)
	}
	return nil
}

// Passes returns the passes in pipeline order.
func (m *Manager) Passes() []Pass { return m.passes }

// Validate loads every dialect the pipeline may introduce, failing on any
// dialect the context does not know. Run calls it implicitly.
func (m *Manager) Validate() error {
	for _, p := range m.passes {
		if err := m.ctx.LoadDialect(p.DependentDialects()...); err != nil {
			return errors.Wrapf(err, "pass %s", p.Name())
		}
	}
	m.checked = true
	return nil
}

// Run applies the pipeline to mod, stopping at the first failing pass.
func (m *Manager) Run(ctx context.Context, mod *ir.Module) error {
	if !m.checked {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	for _, p := range m.passes {
		start := time.Now()
		if err := p.Run(ctx, mod); err != nil {
			return errors.Wrapf(err, "pass %s", p.Name())
		}
		if m.verify {
			if err := ir.VerifyModule(mod); err != nil {
				return errors.Wrapf(err, "after pass %s", p.Name())
			}
		}
		m.logger.WithFields(logrus.Fields{"pass": p.Name(), "elapsed": time.Since(start)}).Debug("pass finished")
	}
	return nil
}
