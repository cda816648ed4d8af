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

package topk

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeapKeepsTopK(t *testing.T) {
	h := New[int](3)
	scores := []float32{0.1, 0.9, 0.5, 0.3, 0.8, 0.2, 0.95}
	for i, s := range scores {
		h.Add(i, s)
	}
	require.Equal(t, 3, h.Len())

	sorted := h.Sorted()
	want := []float32{0.95, 0.9, 0.8}
	for i, e := range sorted {
		assert.InDelta(t, want[i], e.Score, 1e-6)
	}
}

func TestHeapFewerThanK(t *testing.T) {
	h := New[string](10)
	h.Add("a", 1.0)
	h.Add("b", 2.0)
	assert.Equal(t, 2, h.Len())
}

func TestHeapZeroCapacity(t *testing.T) {
	h := New[int](0)
	h.Add(1, 5.0)
	assert.Equal(t, 0, h.Len())
}

func TestHeapRandomAgainstBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := 500
	k := 17

	type cand struct {
		id    int
		score float32
	}
	cands := make([]cand, n)
	for i := range cands {
		cands[i] = cand{id: i, score: rng.Float32()}
	}

	h := New[int](k)
	for _, c := range cands {
		h.Add(c.id, c.score)
	}

	sort.Slice(cands, func(i, j int) bool { return cands[i].score > cands[j].score })
	wantTop := cands[:k]

	gotScores := make([]float32, 0, k)
	for _, e := range h.Items() {
		gotScores = append(gotScores, e.Score)
	}
	sort.Slice(gotScores, func(i, j int) bool { return gotScores[i] > gotScores[j] })

	for i, c := range wantTop {
		assert.InDelta(t, c.score, gotScores[i], 1e-6)
	}
}
