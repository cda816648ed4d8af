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

package store

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uzqw/vex/internal/vexerr"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	const dim = 768
	src, err := New(dim)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(123))
	n := 1500
	for i := 0; i < n; i++ {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()*2 - 1
		}
		require.NoError(t, src.Add(Vector{ID: uuid.New(), Values: v}))
	}

	var buf bytes.Buffer
	require.NoError(t, src.Save(&buf))

	dst, err := New(dim)
	require.NoError(t, err)
	require.NoError(t, dst.Load(bytes.NewReader(buf.Bytes())))

	assert.Equal(t, src.Count(), dst.Count())

	for q := 0; q < 50; q++ {
		query := make([]float32, dim)
		for j := range query {
			query[j] = rng.Float32()*2 - 1
		}

		wantResults, err := src.Search(query, 10)
		require.NoError(t, err)
		gotResults, err := dst.Search(query, 10)
		require.NoError(t, err)

		want := idSet(wantResults)
		got := idSet(gotResults)
		assert.Equal(t, want, got, "query %d: id sets differ", q)
	}
}

func idSet(vs []Vector) map[uuid.UUID]bool {
	m := make(map[uuid.UUID]bool, len(vs))
	for _, v := range vs {
		m[v.ID] = true
	}
	return m
}

func TestLoadDimensionMismatchLeavesStoreUnchanged(t *testing.T) {
	s, err := New(4)
	require.NoError(t, err)
	id := uuid.New()
	require.NoError(t, s.Add(Vector{ID: id, Values: []float32{1, 2, 3, 4}}))

	other, err := New(8)
	require.NoError(t, err)
	require.NoError(t, other.Add(Vector{ID: uuid.New(), Values: make([]float32, 8)}))

	var buf bytes.Buffer
	require.NoError(t, other.Save(&buf))

	err = s.Load(bytes.NewReader(buf.Bytes()))
	assert.ErrorIs(t, err, vexerr.ErrDimensionMismatch)

	assert.Equal(t, 1, s.Count())
	results, err := s.Search([]float32{1, 2, 3, 4}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].ID)
}

func TestLoadTruncatedReturnsError(t *testing.T) {
	s, err := New(4)
	require.NoError(t, err)
	require.NoError(t, s.Add(Vector{ID: uuid.New(), Values: []float32{1, 2, 3, 4}}))

	var buf bytes.Buffer
	require.NoError(t, s.Save(&buf))

	truncated := buf.Bytes()[:buf.Len()-4]

	fresh, err := New(4)
	require.NoError(t, err)
	err = fresh.Load(bytes.NewReader(truncated))
	assert.ErrorIs(t, err, vexerr.ErrTruncated)
	assert.Equal(t, 0, fresh.Count())
}

func TestLoadEmptySnapshot(t *testing.T) {
	src, err := New(4)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, src.Save(&buf))

	dst, err := New(4)
	require.NoError(t, err)
	require.NoError(t, dst.Load(bytes.NewReader(buf.Bytes())))
	assert.Equal(t, 0, dst.Count())
}
