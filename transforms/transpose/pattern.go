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

package transpose

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ajroetker/hwyopt/ir"
)

// pattern rewrites matched transposes into tiled loop nests.
type pattern struct {
	vectorSize int64
	logger     logrus.FieldLogger
}

func (p *pattern) RootName() string { return ir.GenericOpName }

func (p *pattern) Match(op *ir.Operation) (any, bool) {
	res := Match(op)
	if !res.Ok() {
		p.logger.WithFields(logrus.Fields{"loc": op.Loc, "reason": res.Reason}).Debug("not a transpose")
		return nil, false
	}
	return res, true
}

func (p *pattern) Rewrite(op *ir.Operation, state any, rw *ir.Rewriter) error {
	m, ok := state.(Result)
	if !ok {
		return errors.Errorf("unexpected match state %T", state)
	}
	bounds := Plan(rw.Builder, m.Input, m.Rank, p.vectorSize)
	nests := Emit(rw.Builder, m, bounds)
	p.logger.WithFields(logrus.Fields{
		"loc":         op.Loc,
		"permutation": m.Permutation,
		"tiled":       nests.Tiled,
		"remainders":  nests.RemainderDims,
	}).Debug("transpose vectorized")
	return rw.EraseOp(op)
}
