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
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"
	"gopkg.in/yaml.v3"

	"github.com/ajroetker/hwyopt/conversion"
	"github.com/ajroetker/hwyopt/interp"
	"github.com/ajroetker/hwyopt/ir"
	"github.com/ajroetker/hwyopt/pass"
	"github.com/ajroetker/hwyopt/transforms/loops"
	"github.com/ajroetker/hwyopt/workload"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newRegistry(t *testing.T) *pass.Registry {
	t.Helper()
	reg := pass.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, loops.Register(reg))
	return reg
}

// TestGolden runs every testdata/*.txtar archive. Each archive holds a
// pipeline, a workload, and either the expected op counts (want.yaml, only
// the listed ops are checked) or an expected error. Successful pipelines are
// also executed and compared with the unoptimized module.
func TestGolden(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.txtar"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".txtar")
		t.Run(name, func(t *testing.T) {
			ar, err := txtar.ParseFile(path)
			require.NoError(t, err)
			files := make(map[string]string)
			for _, f := range ar.Files {
				files[f.Name] = string(f.Data)
			}

			wl, err := workload.Parse([]byte(files["workload.yaml"]))
			require.NoError(t, err)
			ref, err := wl.Build(ir.NewContext())
			require.NoError(t, err)
			ctx := ir.NewContext()
			m, err := wl.Build(ctx)
			require.NoError(t, err)

			mgr := pass.NewManager(ctx, pass.WithManagerLogger(quietLogger()))
			require.NoError(t, mgr.AddPipeline(newRegistry(t), strings.TrimSpace(files["pipeline"])))
			err = mgr.Run(context.Background(), m)

			if want, ok := files["error"]; ok {
				require.ErrorContains(t, err, strings.TrimSpace(want))
				require.True(t, errors.Is(err, conversion.ErrIllegalResidual), "error %v is not an illegal residual", err)
				return
			}
			require.NoError(t, err)

			var want map[string]int
			require.NoError(t, yaml.Unmarshal([]byte(files["want.yaml"]), &want))
			counts := ir.CountOps(m.Op)
			for op, n := range want {
				require.Equal(t, n, counts[op], "count of %s in\n%s", op, m)
			}

			for _, fn := range wl.Functions {
				wantBufs, err := fn.Buffers()
				require.NoError(t, err)
				_, err = interp.Run(ref, fn.Name, wantBufs...)
				require.NoError(t, err)
				gotBufs, err := fn.Buffers()
				require.NoError(t, err)
				_, err = interp.Run(m, fn.Name, gotBufs...)
				require.NoError(t, err)
				for i := range wantBufs {
					require.Equal(t, wantBufs[i].Data, gotBufs[i].Data, "%s argument %d", fn.Name, i)
				}
			}
		})
	}
}
