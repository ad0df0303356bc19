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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xyproto/env/v2"
)

const testWorkload = `
functions:
  - name: main
    elem: f32
    kernels:
      - kind: transpose
        shape: [6, 5]
        perm: [1, 0]
      - kind: add_one
        shape: [2, 3]
        perm: [1, 0]
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeWorkload(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kernels.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testWorkload), 0o644))
	return path
}

func TestRunDefaultPipelineFailsOnAddOne(t *testing.T) {
	_, err := execute(t, "run", writeWorkload(t), "--vector-size=4")
	require.ErrorContains(t, err, "illegal operations remain")
}

func TestRunDeferredAndChecked(t *testing.T) {
	out, err := execute(t, "run", writeWorkload(t), "--vector-size=4", "--defer-non-transpose", "--check", "--print")
	require.NoError(t, err)
	require.Contains(t, out, "vector.transfer_read")
	require.Contains(t, out, "linalg.generic")
	require.Contains(t, out, "main: ok")
}

func TestRunExplicitPipeline(t *testing.T) {
	out, err := execute(t, "run", writeWorkload(t), "--check", "--print",
		"--pipeline", "genericOp-transpose-vectorization{vector-size=2 defer-non-transpose},convert-linalg-to-affine-loops")
	require.NoError(t, err)
	require.NotContains(t, out, "linalg.")
	require.Contains(t, out, "main: ok")
}

func TestRunErrors(t *testing.T) {
	_, err := execute(t, "run", writeWorkload(t), "--vector-size=0")
	require.ErrorContains(t, err, "vector size must be positive")

	_, err = execute(t, "run", writeWorkload(t), "--pipeline", "no-such-pass")
	require.ErrorContains(t, err, "unknown pass")

	_, err = execute(t, "run", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = execute(t, "--log-level=loud", "passes")
	require.Error(t, err)
}

// setenv sets key for the test and reloads the environment cache that flag
// defaults are read from.
func setenv(t *testing.T, key, value string) {
	t.Helper()
	t.Cleanup(func() { env.Load() })
	t.Setenv(key, value)
	env.Load()
}

func TestRunVectorSizeFromEnv(t *testing.T) {
	t.Run("invalid", func(t *testing.T) {
		setenv(t, "HWYOPT_VECTOR_SIZE", "-3")
		_, err := execute(t, "run", writeWorkload(t))
		require.ErrorContains(t, err, "vector size must be positive")
	})
	t.Run("deferred", func(t *testing.T) {
		setenv(t, "HWYOPT_VECTOR_SIZE", "4")
		setenv(t, "HWYOPT_WORKERS", "2")
		out, err := execute(t, "run", "--defer-non-transpose", "--check", "--print", writeWorkload(t))
		require.NoError(t, err)
		require.Contains(t, out, "vector<4xf32>")
	})
}

func TestPasses(t *testing.T) {
	out, err := execute(t, "passes")
	require.NoError(t, err)
	require.Contains(t, out, "genericOp-transpose-vectorization")
	require.Contains(t, out, "Transpose Optimization for any rank tensor.")
	require.Contains(t, out, "convert-linalg-to-affine-loops")
	require.Contains(t, out, "Dialects: Linalg, Affine, Vector")
	require.Contains(t, out, "vector-size=16")
}

func TestCPUInfo(t *testing.T) {
	out, err := execute(t, "cpuinfo")
	require.NoError(t, err)
	require.Contains(t, out, "SIMD: ")
	require.Contains(t, out, "f32: vector-size=")
}
