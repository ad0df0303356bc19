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
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"

	"github.com/ajroetker/hwyopt/ir/affine"
)

// Print writes the textual form of op to w.
func Print(w io.Writer, op *Operation) error {
	p := &printer{names: make(map[*Value]string)}
	p.op(op)
	_, err := w.Write(p.buf.Bytes())
	return err
}

// OpString returns the textual form of op.
func OpString(op *Operation) string {
	var buf bytes.Buffer
	_ = Print(&buf, op)
	return buf.String()
}

// String returns the textual form of the module.
func (m *Module) String() string { return OpString(m.Op) }

type printer struct {
	buf     bytes.Buffer
	names   map[*Value]string
	nextID  int
	nextArg int
	indent  int
}

func (p *printer) line(format string, args ...any) {
	p.buf.WriteString(strings.Repeat("  ", p.indent))
	fmt.Fprintf(&p.buf, format, args...)
	p.buf.WriteByte('\n')
}

func (p *printer) name(v *Value) string {
	if v == nil {
		return "<<null>>"
	}
	if n, ok := p.names[v]; ok {
		return n
	}
	return "<<undef>>"
}

func (p *printer) define(v *Value) string {
	var n string
	if v.block != nil {
		n = fmt.Sprintf("%%arg%d", p.nextArg)
		p.nextArg++
	} else {
		n = fmt.Sprintf("%%%d", p.nextID)
		p.nextID++
	}
	p.names[v] = n
	return n
}

func (p *printer) list(vs []*Value) string {
	return strings.Join(lo.Map(vs, func(v *Value, _ int) string { return p.name(v) }), ", ")
}

func (p *printer) op(op *Operation) {
	switch op.Name {
	case ModuleOpName:
		p.line("module {")
		p.indent++
		for _, nested := range op.Regions[0].Blocks[0].Ops {
			p.op(nested)
		}
		p.indent--
		p.line("}")
	case FuncOpName:
		p.fn(op)
	case ForOpName:
		p.forOp(op)
	case ReturnOpName, AffineYieldOpName:
		if len(op.Operands) > 0 {
			p.generic(op)
		}
	default:
		p.generic(op)
	}
}

func (p *printer) fn(op *Operation) {
	name, _ := op.Attr("sym_name").(StringAttr)
	blk := op.Regions[0].Blocks[0]
	args := lo.Map(blk.Args, func(a *Value, _ int) string {
		return p.define(a) + ": " + a.Type().String()
	})
	p.line("func.func @%s(%s) {", string(name), strings.Join(args, ", "))
	p.indent++
	for _, nested := range blk.Ops {
		p.op(nested)
	}
	p.indent--
	p.line("}")
}

func (p *printer) bound(bd Bound) string {
	if c, ok := bd.Constant(); ok {
		return fmt.Sprintf("%d", c)
	}
	if len(bd.Operands) == 1 && bd.Map.Equal(affine.Identity(1)) {
		return p.name(bd.Operands[0])
	}
	return fmt.Sprintf("affine_map<%s>(%s)", bd.Map, p.list(bd.Operands))
}

func (p *printer) forOp(op *Operation) {
	f := ForOp{op}
	lb, ub := p.bound(f.LowerBound()), p.bound(f.UpperBound())
	iv := p.define(f.InductionVar())
	step := ""
	if f.Step() != 1 {
		step = fmt.Sprintf(" step %d", f.Step())
	}
	p.line("affine.for %s = %s to %s%s {", iv, lb, ub, step)
	p.indent++
	for _, nested := range f.Body().Ops {
		p.op(nested)
	}
	p.indent--
	p.line("}")
}

func (p *printer) generic(op *Operation) {
	var sb strings.Builder
	if len(op.Results) > 0 {
		results := lo.Map(op.Results, func(r *Value, _ int) string { return p.define(r) })
		sb.WriteString(strings.Join(results, ", "))
		sb.WriteString(" = ")
	}
	sb.WriteString(op.Name)
	if len(op.Operands) > 0 {
		sb.WriteString(" ")
		sb.WriteString(p.list(op.Operands))
	}
	if len(op.Attrs) > 0 {
		attrs := lo.Map(op.AttrNames(), func(k string, _ int) string {
			return k + " = " + op.Attrs[k].String()
		})
		sb.WriteString(" {")
		sb.WriteString(strings.Join(attrs, ", "))
		sb.WriteString("}")
	}
	if len(op.Operands) > 0 || len(op.Results) > 0 {
		in := lo.Map(op.Operands, func(v *Value, _ int) string { return v.Type().String() })
		out := lo.Map(op.Results, func(v *Value, _ int) string { return v.Type().String() })
		fmt.Fprintf(&sb, " : (%s) -> (%s)", strings.Join(in, ", "), strings.Join(out, ", "))
	}
	if len(op.Regions) == 0 {
		p.line("%s", sb.String())
		return
	}
	sb.WriteString(" {")
	p.line("%s", sb.String())
	for _, r := range op.Regions {
		for _, blk := range r.Blocks {
			args := lo.Map(blk.Args, func(a *Value, _ int) string {
				return p.define(a) + ": " + a.Type().String()
			})
			p.line("^bb(%s):", strings.Join(args, ", "))
			p.indent++
			for _, nested := range blk.Ops {
				p.op(nested)
			}
			p.indent--
		}
	}
	p.line("}")
}
