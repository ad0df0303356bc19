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

// Package cpuinfo reports the SIMD capabilities of the host, so tools can
// suggest a vector width that fills one native register.
package cpuinfo

import (
	"fmt"
	"strings"

	"github.com/xyproto/env/v2"
)

// Level identifies a SIMD instruction set family.
type Level int

const (
	// Scalar means no SIMD support was detected or SIMD was disabled.
	Scalar Level = iota

	// SSE2 is the x86-64 baseline (128-bit).
	SSE2

	// AVX2 provides 256-bit registers.
	AVX2

	// AVX512 provides 512-bit registers.
	AVX512

	// NEON is the ARMv8 baseline (128-bit).
	NEON

	// SVE is the ARM scalable vector extension.
	SVE
)

// String returns a human-readable name for the level.
func (l Level) String() string {
	switch l {
	case Scalar:
		return "scalar"
	case SSE2:
		return "sse2"
	case AVX2:
		return "avx2"
	case AVX512:
		return "avx512"
	case NEON:
		return "neon"
	case SVE:
		return "sve"
	default:
		return "unknown"
	}
}

// Info is the detected SIMD configuration.
type Info struct {
	Level Level

	// VectorBytes is the register width in bytes.
	VectorBytes int

	// Features lists the relevant CPU feature flags that are present.
	Features []string
}

// NoSIMDEnv names the environment variable that forces scalar mode.
const NoSIMDEnv = "HWYOPT_NO_SIMD"

// Detect inspects the host CPU. Setting HWYOPT_NO_SIMD reports Scalar.
func Detect() Info {
	if env.Bool(NoSIMDEnv) {
		return Info{Level: Scalar, VectorBytes: 16}
	}
	return detect()
}

// Lanes returns how many elements of elemBytes fit in one register.
func (i Info) Lanes(elemBytes int) int {
	if elemBytes <= 0 {
		return 0
	}
	return i.VectorBytes / elemBytes
}

// String describes the configuration in one line.
func (i Info) String() string {
	s := fmt.Sprintf("%s (%d-bit)", i.Level, i.VectorBytes*8)
	if len(i.Features) > 0 {
		s += " [" + strings.Join(i.Features, " ") + "]"
	}
	return s
}
