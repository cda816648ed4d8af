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

// Package segment implements the Text Segment Reader: a lazy, pull-based
// sequence of minimal text segments ending at configured boundary
// strings.
package segment

import (
	"context"
	"io"
	"sort"

	"github.com/uzqw/vex/internal/vexerr"
)

// Reader produces segments from src one rune at a time, emitting a
// segment whenever the accumulated buffer ends with one of the
// configured boundary strings. A segment ends at the first rune after
// which the buffer ends with any boundary; boundaries are checked
// longest first only to pick among those matching at that same rune, so
// a shorter boundary that is a prefix of a longer one ends the segment
// before the longer one can match. At end-of-stream any residual non-empty buffer is emitted as the
// final segment. Not safe for concurrent use.
type Reader struct {
	src        io.RuneReader
	boundaries []string
	buf        []rune
	done       bool
}

// NewReader creates a segment Reader over src. boundaries is copied and
// sorted longest-first internally; callers need not pre-sort.
func NewReader(src io.RuneReader, boundaries []string) *Reader {
	bs := make([]string, len(boundaries))
	copy(bs, boundaries)
	sort.Slice(bs, func(i, j int) bool { return len(bs[i]) > len(bs[j]) })
	return &Reader{src: src, boundaries: bs}
}

// Next returns the next segment, or io.EOF once the stream and any
// residual buffer are exhausted. Returns vexerr.ErrCancelled if ctx is
// done before a segment can be produced.
func (r *Reader) Next(ctx context.Context) (string, error) {
	if r.done {
		return "", io.EOF
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", vexerr.ErrCancelled
		}

		ch, _, err := r.src.ReadRune()
		if err != nil {
			r.done = true
			if len(r.buf) == 0 {
				return "", io.EOF
			}
			return string(r.buf), nil
		}

		r.buf = append(r.buf, ch)
		if _, ok := r.matchedBoundary(); ok {
			seg := string(r.buf)
			r.buf = r.buf[:0]
			return seg, nil
		}
	}
}

// matchedBoundary reports whether the buffer currently ends with any
// configured boundary string, returning the longest such match.
func (r *Reader) matchedBoundary() (string, bool) {
	for _, b := range r.boundaries {
		if b == "" {
			continue
		}
		if hasRuneSuffix(r.buf, b) {
			return b, true
		}
	}
	return "", false
}

func hasRuneSuffix(buf []rune, boundary string) bool {
	br := []rune(boundary)
	if len(br) > len(buf) {
		return false
	}
	offset := len(buf) - len(br)
	for i, r := range br {
		if buf[offset+i] != r {
			return false
		}
	}
	return true
}
