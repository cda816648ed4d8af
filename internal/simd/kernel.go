// Copyright 2025 uzqw
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

// Package simd computes vector magnitude and cosine similarity with a
// scalar baseline, a lane-folded path used when the host CPU advertises
// wide SIMD registers, and a fully unrolled fast path for the common
// 768-dimension embedding size.
package simd

import (
	"math"

	"golang.org/x/sys/cpu"
)

// laneWidth is the width (in float32 lanes) folded per step on the
// accelerated path. 8 lanes matches a single AVX/AVX2 register.
const laneWidth = 8

// accelerated reports whether the host CPU exposes wide enough SIMD
// registers to make lane-folding worthwhile. Computed once at package
// init from runtime feature detection, mirroring the capability-gated
// dispatch used throughout the pack's vector kernels.
var accelerated = detectAccelerated()

func detectAccelerated() bool {
	switch {
	case cpu.X86.HasAVX2 || cpu.X86.HasAVX:
		return true
	case cpu.ARM64.HasASIMD:
		return true
	default:
		return false
	}
}

// Accelerated reports whether the lane-folded path is in use on this
// host. Exposed for metrics/diagnostics, not required for correctness.
func Accelerated() bool {
	return accelerated
}

// Magnitude returns sqrt(sum(v[i]^2)). A zero vector yields exactly 0.0.
func Magnitude(v []float32) float32 {
	if len(v) == 0 {
		return 0
	}
	if len(v) == 768 {
		return magnitudeUnrolled768(v)
	}
	if accelerated && len(v) >= laneWidth {
		return magnitudeLanes(v)
	}
	return magnitudeScalar(v)
}

// Cosine returns the cosine similarity between q and s given their
// precomputed magnitudes. Returns 0.0 if sMag is zero, matching the
// contract that a zero-magnitude candidate never scores.
func Cosine(q []float32, qMag float32, s []float32, sMag float32) float32 {
	if sMag == 0 {
		return 0
	}
	var dot float32
	switch {
	case len(q) == 768 && len(s) == 768:
		dot = dotUnrolled768(q, s)
	case accelerated && len(q) >= laneWidth && len(s) >= laneWidth:
		dot = dotLanes(q, s)
	default:
		dot = dotScalar(q, s)
	}
	return dot / (qMag * sMag)
}

func magnitudeScalar(v []float32) float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	return float32(math.Sqrt(float64(sum)))
}

func dotScalar(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// magnitudeLanes folds the sum of squares over laneWidth-wide chunks,
// scalarizing the tail. This is the "SIMD path" in the sense the pack's
// go-simd.go example uses: a capability-gated, wide-stride loop, not a
// hand-written assembly kernel.
func magnitudeLanes(v []float32) float32 {
	var lanes [laneWidth]float32
	n := len(v)
	full := n - n%laneWidth
	for i := 0; i < full; i += laneWidth {
		chunk := v[i : i+laneWidth]
		for l := 0; l < laneWidth; l++ {
			lanes[l] += chunk[l] * chunk[l]
		}
	}
	var sum float32
	for _, l := range lanes {
		sum += l
	}
	for i := full; i < n; i++ {
		sum += v[i] * v[i]
	}
	return float32(math.Sqrt(float64(sum)))
}

func dotLanes(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var lanes [laneWidth]float32
	full := n - n%laneWidth
	for i := 0; i < full; i += laneWidth {
		ca := a[i : i+laneWidth]
		cb := b[i : i+laneWidth]
		for l := 0; l < laneWidth; l++ {
			lanes[l] += ca[l] * cb[l]
		}
	}
	var sum float32
	for _, l := range lanes {
		sum += l
	}
	for i := full; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// magnitudeUnrolled768 is a step-4 unrolled scalar fast path specialized
// for the 768-dimension embeddings this store most commonly holds.
func magnitudeUnrolled768(v []float32) float32 {
	var sum float32
	for i := 0; i < 768; i += 4 {
		sum += v[i]*v[i] + v[i+1]*v[i+1] + v[i+2]*v[i+2] + v[i+3]*v[i+3]
	}
	return float32(math.Sqrt(float64(sum)))
}

func dotUnrolled768(a, b []float32) float32 {
	var sum float32
	for i := 0; i < 768; i += 4 {
		sum += a[i]*b[i] + a[i+1]*b[i+1] + a[i+2]*b[i+2] + a[i+3]*b[i+3]
	}
	return sum
}
