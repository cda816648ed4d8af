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

package loadtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRejectsUnknownMode(t *testing.T) {
	_, err := Run(Options{Mode: "bogus"})
	require.Error(t, err)
}

func TestRandomVectorHasRequestedDimension(t *testing.T) {
	v := randomVector(16)
	assert.Len(t, v, 16)
	for _, x := range v {
		assert.GreaterOrEqual(t, x, float32(-1))
		assert.LessOrEqual(t, x, float32(1))
	}
}

func TestFormatVectorProducesBracketedList(t *testing.T) {
	s := formatVector([]float32{1, -0.5})
	assert.Equal(t, "[1.000000, -0.500000]", s)
}

func TestSummarizeComputesPercentiles(t *testing.T) {
	latencies := make([]time.Duration, 100)
	for i := range latencies {
		latencies[i] = time.Duration(i+1) * time.Millisecond
	}

	result := summarize(100, latencies, time.Second, 100, 0)

	assert.Equal(t, 100, result.TotalOps)
	assert.Equal(t, 1*time.Millisecond, result.MinLatency)
	assert.Equal(t, 100*time.Millisecond, result.MaxLatency)
	assert.Equal(t, 51*time.Millisecond, result.P50Latency)
}

func TestSummarizeHandlesAllErrors(t *testing.T) {
	latencies := make([]time.Duration, 10)
	result := summarize(10, latencies, time.Second, 0, 10)
	assert.Equal(t, int64(10), result.ErrorCount)
	assert.Equal(t, time.Duration(0), result.AvgLatency)
}
