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

package refimpl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordTokenCounter(t *testing.T) {
	var c WordTokenCounter
	assert.Equal(t, 0, c.CountTokens(""))
	assert.Equal(t, 3, c.CountTokens("one two three"))
	assert.Equal(t, 2, c.CountTokens("  spaced   out  "))
}

func TestNewHashEmbedderRejectsNonPositiveDim(t *testing.T) {
	_, err := NewHashEmbedder(0)
	assert.Error(t, err)
}

func TestHashEmbedderProducesUnitVectors(t *testing.T) {
	e, err := NewHashEmbedder(16)
	require.NoError(t, err)

	v, err := e.Embed(context.Background(), "the quick brown fox jumps over the lazy dog")
	require.NoError(t, err)
	require.Len(t, v, 16)

	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, sumSq, 1e-4)
}

func TestHashEmbedderIsDeterministic(t *testing.T) {
	e, err := NewHashEmbedder(32)
	require.NoError(t, err)

	a, err := e.Embed(context.Background(), "repeatable text")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "repeatable text")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestHashEmbedderDiffersForDifferentText(t *testing.T) {
	e, err := NewHashEmbedder(32)
	require.NoError(t, err)

	a, err := e.Embed(context.Background(), "alpha beta gamma")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "delta epsilon zeta")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHashEmbedderEmptyTextReturnsZeroVector(t *testing.T) {
	e, err := NewHashEmbedder(8)
	require.NoError(t, err)

	v, err := e.Embed(context.Background(), "")
	require.NoError(t, err)
	for _, x := range v {
		assert.Equal(t, float32(0), x)
	}
}

func TestHashEmbedderRespectsCancellation(t *testing.T) {
	e, err := NewHashEmbedder(8)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = e.Embed(ctx, "anything")
	assert.Error(t, err)
}
