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

//go:build arm64

package cpuinfo

import "golang.org/x/sys/cpu"

func detect() Info {
	var features []string
	add := func(has bool, name string) {
		if has {
			features = append(features, name)
		}
	}
	add(cpu.ARM64.HasASIMD, "asimd")
	add(cpu.ARM64.HasFPHP, "fphp")
	add(cpu.ARM64.HasASIMDHP, "asimdhp")
	add(cpu.ARM64.HasSVE, "sve")

	// SVE lengths vary per implementation and x/sys/cpu does not expose
	// them, so NEON's 128 bits is reported as the safe width.
	if cpu.ARM64.HasSVE {
		return Info{Level: SVE, VectorBytes: 16, Features: features}
	}
	if cpu.ARM64.HasASIMD {
		return Info{Level: NEON, VectorBytes: 16, Features: features}
	}
	return Info{Level: Scalar, VectorBytes: 16, Features: features}
}
