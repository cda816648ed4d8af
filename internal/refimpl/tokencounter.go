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

// Package refimpl provides reference TokenCounter and Embedder
// implementations satisfying the external contracts internal/chunk and
// internal/section depend on, for use in tests and as the default CLI
// wiring when no real tokenizer or embedding service is configured.
package refimpl

import "strings"

// WordTokenCounter counts tokens as whitespace-separated fields. It is a
// crude stand-in for a subword tokenizer: good enough to exercise the
// token-bounded chunking and section-sizing logic without a model
// dependency.
type WordTokenCounter struct{}

// CountTokens implements internal/chunk.TokenCounter and
// internal/section.TokenCounter.
func (WordTokenCounter) CountTokens(text string) int {
	return len(strings.Fields(text))
}
