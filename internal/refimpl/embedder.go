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
	"fmt"
	"hash/fnv"
	"math"
	"strings"
)

// HashEmbedder is a deterministic, model-free Embedder: it hashes each
// token of the input into one of Dim buckets with a signed feature-hash
// projection, giving semantically meaningless but stable, reproducible
// vectors. It exists so the section segmenter and CVS can be exercised
// end-to-end without a real embedding model configured.
type HashEmbedder struct {
	Dim int
}

// NewHashEmbedder constructs a HashEmbedder for the given dimension.
func NewHashEmbedder(dim int) (*HashEmbedder, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("refimpl: dimension must be positive, got %d", dim)
	}
	return &HashEmbedder{Dim: dim}, nil
}

// Embed implements internal/section.Embedder. It never blocks on ctx;
// the parameter exists to satisfy the contract real embedding services
// need (network calls, rate limiting).
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := make([]float32, e.Dim)
	for _, tok := range strings.Fields(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum32()

		bucket := int(sum % uint32(e.Dim))
		sign := float32(1)
		if sum&1 == 1 {
			sign = -1
		}
		v[bucket] += sign
	}

	normalize(v)
	return v, nil
}

func normalize(v []float32) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return
	}
	norm := float32(math.Sqrt(sumSq))
	for i := range v {
		v[i] /= norm
	}
}
