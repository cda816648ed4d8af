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

// Package vexerr defines the shared error taxonomy for the vex core:
// kinds, not concrete types, so callers compare with errors.Is.
package vexerr

import (
	"context"
	"errors"
)

var (
	// ErrInvalidDimension is raised by store construction when dim <= 0.
	ErrInvalidDimension = errors.New("vex: invalid dimension")

	// ErrDimensionMismatch is raised by Add/Search/Load when a vector's
	// length does not match the store's configured dimension.
	ErrDimensionMismatch = errors.New("vex: dimension mismatch")

	// ErrTruncated is raised by Load when the source ends before the
	// header-declared payload is fully read.
	ErrTruncated = errors.New("vex: truncated snapshot")

	// ErrMalformedPayload is raised by Load on a structurally invalid
	// stream that is not simply short.
	ErrMalformedPayload = errors.New("vex: malformed snapshot payload")

	// ErrTokenizer wraps failures surfaced verbatim from the tokenizer
	// contract.
	ErrTokenizer = errors.New("vex: tokenizer error")

	// ErrEmbedder wraps failures surfaced verbatim from the embedding
	// service contract.
	ErrEmbedder = errors.New("vex: embedder error")

	// ErrCancelled marks a non-error cooperative shutdown at a
	// suspension point.
	ErrCancelled = errors.New("vex: cancelled")
)

// Cancelled reports whether err represents cooperative cancellation,
// whether raised locally or via a parent context.
func Cancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}
