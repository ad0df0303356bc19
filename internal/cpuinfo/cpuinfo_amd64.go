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

//go:build amd64

package cpuinfo

import "golang.org/x/sys/cpu"

func detect() Info {
	var features []string
	add := func(has bool, name string) {
		if has {
			features = append(features, name)
		}
	}
	add(cpu.X86.HasSSE2, "sse2")
	add(cpu.X86.HasAVX, "avx")
	add(cpu.X86.HasAVX2, "avx2")
	add(cpu.X86.HasFMA, "fma")
	add(cpu.X86.HasAVX512F, "avx512f")
	add(cpu.X86.HasAVX512BF16, "avx512bf16")

	switch {
	case cpu.X86.HasAVX512F:
		return Info{Level: AVX512, VectorBytes: 64, Features: features}
	case cpu.X86.HasAVX2:
		return Info{Level: AVX2, VectorBytes: 32, Features: features}
	default:
		// SSE2 is part of the amd64 baseline.
		return Info{Level: SSE2, VectorBytes: 16, Features: features}
	}
}
