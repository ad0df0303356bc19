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

package cpuinfo

import (
	"testing"

	"github.com/xyproto/env/v2"
)

// setenv sets key for the duration of the test and refreshes the cached
// environment read by env, both now and after the value is restored.
func setenv(t *testing.T, key, value string) {
	t.Helper()
	t.Cleanup(func() { env.Load() })
	t.Setenv(key, value)
	env.Load()
}

func TestLevelString(t *testing.T) {
	for level, want := range map[Level]string{
		Scalar: "scalar", SSE2: "sse2", AVX2: "avx2", AVX512: "avx512", NEON: "neon", SVE: "sve", Level(99): "unknown",
	} {
		if got := level.String(); got != want {
			t.Errorf("Level(%d).String() = %q, want %q", int(level), got, want)
		}
	}
}

func TestDetect(t *testing.T) {
	info := Detect()
	if info.VectorBytes < 16 {
		t.Errorf("VectorBytes = %d, want at least 16", info.VectorBytes)
	}
	if got := info.Lanes(4); got != info.VectorBytes/4 {
		t.Errorf("Lanes(4) = %d, want %d", got, info.VectorBytes/4)
	}
	t.Logf("detected %s", info)
}

func TestNoSIMD(t *testing.T) {
	setenv(t, NoSIMDEnv, "1")
	info := Detect()
	if info.Level != Scalar || info.VectorBytes != 16 {
		t.Errorf("Detect() with %s set = %v, want scalar 128-bit", NoSIMDEnv, info)
	}
}

func TestNoSIMDRestored(t *testing.T) {
	before := Detect()
	t.Run("set", func(t *testing.T) {
		setenv(t, NoSIMDEnv, "1")
		if got := Detect().Level; got != Scalar {
			t.Errorf("Detect().Level = %v with %s set, want scalar", got, NoSIMDEnv)
		}
	})
	if got := Detect(); got.Level != before.Level || got.VectorBytes != before.VectorBytes {
		t.Errorf("Detect() after the variable is restored = %v, want %v", got, before)
	}
}

func TestInfoString(t *testing.T) {
	info := Info{Level: AVX2, VectorBytes: 32, Features: []string{"avx", "avx2"}}
	if got, want := info.String(), "avx2 (256-bit) [avx avx2]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := info.Lanes(0); got != 0 {
		t.Errorf("Lanes(0) = %d, want 0", got)
	}
}
