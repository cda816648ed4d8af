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

package simd

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uzqw/vex/internal/refsim"
)

func randomUnitVector(rng *rand.Rand, d int) []float32 {
	v := make([]float32, d)
	var sumSq float64
	for i := range v {
		x := rng.Float32()*2 - 1
		v[i] = x
		sumSq += float64(x) * float64(x)
	}
	norm := float32(math.Sqrt(sumSq))
	if norm == 0 {
		v[0] = 1
		return v
	}
	for i := range v {
		v[i] /= norm
	}
	return v
}

func TestMagnitudeZero(t *testing.T) {
	assert.Equal(t, float32(0), Magnitude(nil))
	assert.Equal(t, float32(0), Magnitude(make([]float32, 768)))
}

func TestMagnitudeKnownValues(t *testing.T) {
	assert.InDelta(t, 5.0, Magnitude([]float32{3, 4}), 1e-5)
	assert.InDelta(t, 1.0, Magnitude([]float32{1, 0, 0}), 1e-5)
}

func TestCosineZeroMagnitude(t *testing.T) {
	q := []float32{1, 0, 0}
	s := []float32{0, 0, 0}
	got := Cosine(q, Magnitude(q), s, Magnitude(s))
	assert.Equal(t, float32(0), got)
}

func TestCosineIdentity(t *testing.T) {
	v := []float32{1, 2, 3, 4}
	mag := Magnitude(v)
	got := Cosine(v, mag, v, mag)
	assert.InDelta(t, 1.0, got, 1e-5)
}

func TestCosinePathsAgreeWithScalarBaseline(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	dims := []int{1, 3, 7, 8, 16, 31, 128, 768}

	for _, d := range dims {
		q := randomUnitVector(rng, d)
		s := randomUnitVector(rng, d)
		qMag := Magnitude(q)
		sMag := Magnitude(s)

		got := Cosine(q, qMag, s, sMag)
		want := dotScalar(q, s) / (magnitudeScalar(q) * magnitudeScalar(s))

		rel := math.Abs(float64(got-want)) / math.Max(math.Abs(float64(want)), 1e-6)
		if rel > 1e-4 {
			t.Errorf("dim %d: cosine mismatch got=%v want=%v rel=%v", d, got, want, rel)
		}
		assert.GreaterOrEqual(t, got, float32(-1.0001))
		assert.LessOrEqual(t, got, float32(1.0001))
	}
}

func TestMagnitudeLanesAgreeWithScalar(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for _, d := range []int{8, 16, 64, 768, 769, 1000} {
		v := make([]float32, d)
		for i := range v {
			v[i] = rng.Float32()*4 - 2
		}
		got := Magnitude(v)
		want := magnitudeScalar(v)
		rel := math.Abs(float64(got-want)) / math.Max(math.Abs(float64(want)), 1e-6)
		if rel > 1e-4 {
			t.Errorf("dim %d: magnitude mismatch got=%v want=%v", d, got, want)
		}
	}
}

// TestCosineAgreesWithIndependentReference cross-checks the accelerated
// package against refsim, a separately maintained, allocation-heavy
// implementation that shares none of this package's code paths.
func TestCosineAgreesWithIndependentReference(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, d := range []int{3, 8, 31, 128, 768} {
		q := randomUnitVector(rng, d)
		s := randomUnitVector(rng, d)

		got := Cosine(q, Magnitude(q), s, Magnitude(s))
		want, err := refsim.CosineSimilarity(q, s)
		require.NoError(t, err)

		rel := math.Abs(float64(got-want)) / math.Max(math.Abs(float64(want)), 1e-6)
		if rel > 1e-4 {
			t.Errorf("dim %d: cosine mismatch vs refsim got=%v want=%v rel=%v", d, got, want, rel)
		}
	}
}

func BenchmarkCosine768(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	q := randomUnitVector(rng, 768)
	s := randomUnitVector(rng, 768)
	qMag, sMag := Magnitude(q), Magnitude(s)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Cosine(q, qMag, s, sMag)
	}
}
