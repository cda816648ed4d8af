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

// Package chunk implements the Segment-Based Chunk Reader: it combines
// segments from a Text Segment Reader into token-bounded chunks, honoring
// stop-signal boundaries.
package chunk

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/uzqw/vex/internal/vexerr"
)

// TokenCounter is the external tokenizer contract: pure and cheap.
type TokenCounter interface {
	CountTokens(text string) int
}

// SegmentSource is anything that yields segments lazily, matching
// *segment.Reader's shape without importing it directly.
type SegmentSource interface {
	Next(ctx context.Context) (string, error)
}

// Config configures chunk assembly.
type Config struct {
	// MaxTokensPerChunk is the hard upper bound on a chunk's token
	// count, except for a single segment that alone exceeds it (that
	// segment is never subdivided and becomes its own chunk).
	MaxTokensPerChunk int

	// StopSignals are prefix strings that, when a segment begins with
	// one, force the current (non-empty) chunk to close before that
	// segment is appended.
	StopSignals []string
}

// Reader pulls segments from a SegmentSource and emits chunk strings.
// Not safe for concurrent use.
type Reader struct {
	src       SegmentSource
	tokenizer TokenCounter
	cfg       Config

	buf  strings.Builder
	done bool
}

// NewReader creates a chunk Reader. cfg.MaxTokensPerChunk must be
// positive.
func NewReader(src SegmentSource, tokenizer TokenCounter, cfg Config) (*Reader, error) {
	if cfg.MaxTokensPerChunk <= 0 {
		return nil, fmt.Errorf("chunk: max tokens per chunk must be positive, got %d", cfg.MaxTokensPerChunk)
	}
	return &Reader{src: src, tokenizer: tokenizer, cfg: cfg}, nil
}

// Next returns the next chunk, or io.EOF once exhausted.
func (r *Reader) Next(ctx context.Context) (string, error) {
	for {
		if r.done {
			if r.buf.Len() > 0 {
				return r.drain(), nil
			}
			return "", io.EOF
		}

		if err := ctx.Err(); err != nil {
			return "", vexerr.ErrCancelled
		}

		seg, err := r.src.Next(ctx)
		if err == io.EOF {
			r.done = true
			continue
		}
		if err != nil {
			return "", err
		}

		if r.buf.Len() == 0 {
			r.buf.WriteString(seg)
			continue
		}

		if r.shouldCloseBefore(seg) {
			chunk := r.drain()
			r.buf.WriteString(seg)
			return chunk, nil
		}

		r.buf.WriteString(seg)
	}
}

// shouldCloseBefore decides whether the current (non-empty) chunk must
// close before appending seg.
func (r *Reader) shouldCloseBefore(seg string) bool {
	if r.startsWithStopSignal(seg) {
		return true
	}
	candidate := r.buf.String() + seg
	return r.tokenizer.CountTokens(candidate) > r.cfg.MaxTokensPerChunk
}

func (r *Reader) startsWithStopSignal(seg string) bool {
	for _, sig := range r.cfg.StopSignals {
		if sig != "" && strings.HasPrefix(seg, sig) {
			return true
		}
	}
	return false
}

func (r *Reader) drain() string {
	s := r.buf.String()
	r.buf.Reset()
	return s
}
