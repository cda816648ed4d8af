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

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "6379", cfg.Server.Port)
	assert.Equal(t, 768, cfg.Store.Dimension)
	assert.Equal(t, 3, cfg.Sectioning.Lookahead)
	assert.Equal(t, 400, cfg.Chunking.MaxTokensPerChunk)
}

func TestFromEnvAppliesOverrides(t *testing.T) {
	t.Setenv("VEX_PORT", "7000")
	t.Setenv("VEX_DIMENSION", "384")
	t.Setenv("VEX_MAX_TOKENS_PER_CHUNK", "250")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, 384, cfg.Store.Dimension)
	assert.Equal(t, 250, cfg.Chunking.MaxTokensPerChunk)
}

func TestFromEnvRejectsNonPositiveDimension(t *testing.T) {
	t.Setenv("VEX_DIMENSION", "0")
	_, err := FromEnv()
	assert.Error(t, err)
}

func TestFromEnvEmptyDSNFallsBackToDefault(t *testing.T) {
	t.Setenv("VEX_METADATA_DSN", "")
	cfg, err := FromEnv()
	// empty string falls back to the default DSN via getEnv, so this
	// should still succeed; confirm the default is non-empty instead.
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Metadata.DSN)
}

func TestFromEnvAcceptsZeroLookahead(t *testing.T) {
	t.Setenv("VEX_LOOKAHEAD", "0")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Sectioning.Lookahead)
}

func TestFromEnvRejectsNegativeLookahead(t *testing.T) {
	t.Setenv("VEX_LOOKAHEAD", "-1")
	_, err := FromEnv()
	assert.Error(t, err)
}

func TestFromEnvRejectsInvalidMinSimilarity(t *testing.T) {
	t.Setenv("VEX_MIN_SIMILARITY", "1.5")
	_, err := FromEnv()
	assert.Error(t, err)
}

func TestFromEnvRejectsInvalidMaxConns(t *testing.T) {
	t.Setenv("VEX_METADATA_MAX_CONNS", "0")
	_, err := FromEnv()
	assert.Error(t, err)
}

func TestFromEnvIgnoresUnparsableInt(t *testing.T) {
	t.Setenv("VEX_DIMENSION", "not-a-number")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 768, cfg.Store.Dimension)
}
