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

package segment

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, r *Reader) []string {
	t.Helper()
	var out []string
	ctx := context.Background()
	for {
		seg, err := r.Next(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		out = append(out, seg)
	}
	return out
}

func TestSegmentsEndAtBoundary(t *testing.T) {
	r := NewReader(strings.NewReader("one\n\ntwo\n\nthree"), []string{"\n\n"})
	segs := collect(t, r)
	assert.Equal(t, []string{"one\n\n", "two\n\n", "three"}, segs)
}

func TestSegmentEndsAtFirstBoundaryReached(t *testing.T) {
	r := NewReader(strings.NewReader("a## b### c"), []string{"#", "##", "###"})
	segs := collect(t, r)
	assert.Equal(t, []string{"a#", "#", " b#", "#", "#", " c"}, segs)
}

func TestNoBoundaryEmitsSingleFinalSegment(t *testing.T) {
	r := NewReader(strings.NewReader("just text"), []string{"\n\n"})
	segs := collect(t, r)
	assert.Equal(t, []string{"just text"}, segs)
}

func TestEmptySourceEmitsNothing(t *testing.T) {
	r := NewReader(strings.NewReader(""), []string{"\n\n"})
	segs := collect(t, r)
	assert.Empty(t, segs)
}

func TestSegmentRoundTripPreservesContent(t *testing.T) {
	text := "# Heading\n\nSome body text.\n\n## Sub\n\nMore text here."
	r := NewReader(strings.NewReader(text), []string{"\n\n"})
	segs := collect(t, r)

	var rebuilt strings.Builder
	for _, s := range segs {
		rebuilt.WriteString(s)
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestCancellationStopsIteration(t *testing.T) {
	r := NewReader(strings.NewReader("one\n\ntwo\n\nthree"), []string{"\n\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Next(ctx)
	assert.Error(t, err)
}
