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

package workload

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ajroetker/hwyopt/interp"
	"github.com/ajroetker/hwyopt/ir"
)

const sample = `
functions:
  - name: main
    elem: f32
    kernels:
      - kind: transpose
        shape: [3, 2]
        perm: [1, 0]
      - kind: fill
        shape: [4]
        value: 2.5
  - name: dynamic
    elem: i32
    kernels:
      - kind: transpose
        shape: ["?", 4, 3]
        perm: [2, 0, 1]
        runtime: [5, 4, 3]
      - kind: reduction
        shape: [2, 3]
      - kind: add_one
        shape: [2, 2]
        perm: [1, 0]
      - kind: copy
        shape: [6]
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Len(t, f.Functions, 2)
	dyn, ok := f.Lookup("dynamic")
	require.True(t, ok)
	if diff := cmp.Diff(Shape{ir.Dynamic, 4, 3}, dyn.Kernels[0].Shape); diff != "" {
		t.Errorf("shape mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, []int64{3, ir.Dynamic, 4}, dyn.Kernels[0].Params(ir.Int32)[1].Shape)

	out, err := yaml.Marshal(dyn.Kernels[0].Shape)
	require.NoError(t, err)
	var back Shape
	require.NoError(t, yaml.Unmarshal(out, &back))
	require.Equal(t, dyn.Kernels[0].Shape, back)
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"no functions": `functions: []`,
		"bad elem":     "functions:\n  - name: a\n    elem: f8\n",
		"bad kind":     "functions:\n  - name: a\n    elem: f32\n    kernels:\n      - kind: conv\n        shape: [2]\n",
		"bad perm":     "functions:\n  - name: a\n    elem: f32\n    kernels:\n      - kind: transpose\n        shape: [2, 2]\n        perm: [0, 0]\n",
		"bad extent":   "functions:\n  - name: a\n    elem: f32\n    kernels:\n      - kind: copy\n        shape: [x]\n",
		"duplicate":    "functions:\n  - name: a\n    elem: f32\n  - name: a\n    elem: f32\n",
		"runtime rank": "functions:\n  - name: a\n    elem: f32\n    kernels:\n      - kind: copy\n        shape: [\"?\"]\n        runtime: [1, 2]\n",
		"rank-1 sum":   "functions:\n  - name: a\n    elem: f32\n    kernels:\n      - kind: reduction\n        shape: [4]\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src))
			require.Error(t, err)
		})
	}
}

func TestBuild(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)
	ctx := ir.NewContext()
	m, err := f.Build(ctx)
	require.NoError(t, err)
	require.True(t, ctx.IsLoaded(ir.LinalgDialect))

	counts := ir.CountOps(m.Op)
	require.Equal(t, 2, counts[ir.FuncOpName])
	require.Equal(t, 5, counts[ir.GenericOpName])
	require.Equal(t, 1, counts[ir.FillOpName])

	fn := m.LookupFunc("dynamic")
	require.NotNil(t, fn)
	require.Len(t, fn.Regions[0].Front().Args, 8)
}

func TestBuildAndRun(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)
	m, err := f.Build(ir.NewContext())
	require.NoError(t, err)

	main, _ := f.Lookup("main")
	bufs, err := main.Buffers()
	require.NoError(t, err)
	require.Len(t, bufs, 3)
	_, err = interp.Run(m, "main", bufs...)
	require.NoError(t, err)
	if diff := cmp.Diff([][]float64{{0, 2, 4}, {1, 3, 5}}, bufs[1].Nested2D()); diff != "" {
		t.Errorf("transpose mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, []float64{2.5, 2.5, 2.5, 2.5}, bufs[2].Data)

	dyn, _ := f.Lookup("dynamic")
	bufs, err = dyn.Buffers()
	require.NoError(t, err)
	_, err = interp.Run(m, "dynamic", bufs...)
	require.NoError(t, err)
	require.Equal(t, []int64{3, 5, 4}, bufs[1].Shape)
	// out[c][a][b] = in[a][b][c]
	require.Equal(t, bufs[0].At(4, 1, 2), bufs[1].At(2, 4, 1))
	require.Equal(t, []float64{3, 12}, bufs[3].Data)
	if diff := cmp.Diff([][]float64{{1, 3}, {2, 4}}, bufs[5].Nested2D()); diff != "" {
		t.Errorf("add_one mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, bufs[6].Data, bufs[7].Data)
}

func TestBuffersNeedRuntimeShape(t *testing.T) {
	fn := Function{Name: "f", Elem: "f32", Kernels: []Kernel{{Kind: KindCopy, Shape: Shape{ir.Dynamic}}}}
	_, err := fn.Buffers()
	require.Error(t, err)
}
