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

package conversion

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ajroetker/hwyopt/ir"
)

// ErrIllegalResidual is wrapped by the error returned when illegal operations
// remain after conversion.
var ErrIllegalResidual = errors.New("illegal operations remain after conversion")

// Residual identifies one operation left illegal by a conversion.
type Residual struct {
	Name string
	Loc  string
}

// ConversionError lists the illegal operations that could not be converted.
// Rewrites that succeeded before the failure stay committed.
type ConversionError struct {
	Residual []Residual
}

// Error implements the error interface.
func (e *ConversionError) Error() string {
	names := lo.Map(e.Residual, func(r Residual, _ int) string {
		if r.Loc != "" {
			return fmt.Sprintf("%s (%s)", r.Name, r.Loc)
		}
		return r.Name
	})
	return fmt.Sprintf("%v: %s", ErrIllegalResidual, strings.Join(names, ", "))
}

// Unwrap returns ErrIllegalResidual.
func (e *ConversionError) Unwrap() error { return ErrIllegalResidual }

// Stats summarizes one conversion run.
type Stats struct {
	Candidates int
	Converted  int
	Created    int
	Erased     int
}

type config struct {
	workers int
	logger  logrus.FieldLogger
}

// Option configures ApplyPartialConversion.
type Option func(*config)

// WithWorkers matches candidates on up to n goroutines. Rewrites stay serial.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithLogger sets the logger used for per-candidate diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *config) { c.logger = l }
}

type matched struct {
	pattern Pattern
	state   any
}

// ApplyPartialConversion rewrites every illegal operation nested in root with
// the first matching pattern. Operations of unknown legality are left as is.
//
// Candidates are snapshotted before any mutation, matched (concurrently when
// WithWorkers > 1), then rewritten one at a time in pre-order. If any illegal
// operation remains afterwards, a *ConversionError is returned.
func ApplyPartialConversion(ctx context.Context, root *ir.Operation, target *Target, patterns []Pattern, opts ...Option) (Stats, error) {
	cfg := config{workers: 1, logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}

	byRoot := lo.GroupBy(patterns, func(p Pattern) string { return p.RootName() })
	candidates := ir.Snapshot(root, target.IsIllegal)
	stats := Stats{Candidates: len(candidates)}

	matches, err := matchAll(ctx, candidates, byRoot, cfg.workers)
	if err != nil {
		return stats, err
	}

	rw := ir.NewRewriter()
	for i, op := range candidates {
		log := cfg.logger.WithFields(logrus.Fields{"op": op.Name, "loc": op.Loc})
		if !ir.IsAncestor(root, op) {
			log.Debug("candidate erased by an earlier rewrite")
			continue
		}
		m := matches[i]
		if m.pattern == nil {
			log.Debug("no pattern matched")
			continue
		}
		rw.SetInsertionPointBefore(op)
		rw.SetLoc(op.Loc)
		if err := m.pattern.Rewrite(op, m.state, rw); err != nil {
			return stats, errors.Wrapf(err, "rewrite %s", op.Name)
		}
		if op.Block() != nil {
			return stats, errors.Errorf("pattern for %s succeeded without erasing its root", op.Name)
		}
		stats.Converted++
		log.Debug("converted")
	}
	stats.Created, stats.Erased = rw.Created(), rw.Erased()

	if residual := ir.Snapshot(root, target.IsIllegal); len(residual) > 0 {
		return stats, &ConversionError{Residual: lo.Map(residual, func(op *ir.Operation, _ int) Residual {
			return Residual{Name: op.Name, Loc: op.Loc}
		})}
	}
	return stats, nil
}

func matchAll(ctx context.Context, candidates []*ir.Operation, byRoot map[string][]Pattern, workers int) ([]matched, error) {
	results := make([]matched, len(candidates))
	matchOne := func(i int) {
		for _, p := range byRoot[candidates[i].Name] {
			if state, ok := p.Match(candidates[i]); ok {
				results[i] = matched{pattern: p, state: state}
				return
			}
		}
	}

	if workers <= 1 {
		for i := range candidates {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			matchOne(i)
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			matchOne(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
