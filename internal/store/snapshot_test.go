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
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveToFileThenLoadFromFileRoundTrips(t *testing.T) {
	s, err := New(3)
	require.NoError(t, err)

	a := Vector{ID: uuid.New(), Values: []float32{1, 0, 0}}
	b := Vector{ID: uuid.New(), Values: []float32{0, 1, 0}}
	require.NoError(t, s.Add(a))
	require.NoError(t, s.Add(b))

	path := filepath.Join(t.TempDir(), "snapshot.bin")
	ctx := context.Background()
	require.NoError(t, s.SaveToFile(ctx, path))

	s2, err := New(3)
	require.NoError(t, err)
	require.NoError(t, s2.LoadFromFile(ctx, path))

	assert.Equal(t, 2, s2.Count())
}

func TestSaveToFileReleasesLockAfterWrite(t *testing.T) {
	s, err := New(2)
	require.NoError(t, err)
	require.NoError(t, s.Add(Vector{ID: uuid.New(), Values: []float32{1, 1}}))

	path := filepath.Join(t.TempDir(), "snapshot.bin")
	ctx := context.Background()
	require.NoError(t, s.SaveToFile(ctx, path))

	// The lock must be released after SaveToFile returns, so a second
	// save to the same path should succeed without blocking.
	require.NoError(t, s.SaveToFile(ctx, path))
}

func TestLoadFromFileMissingFileReturnsError(t *testing.T) {
	s, err := New(2)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "does-not-exist.bin")
	err = s.LoadFromFile(context.Background(), path)
	assert.Error(t, err)
}
