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
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/uzqw/vex/internal/vexerr"
)

// Save writes a full little-endian snapshot of the store:
//
//	int32  dimension
//	int32  count
//	count times:
//	  16 bytes  uuid (RFC 4122 byte order)
//	  int32     per-vector length (always == dimension)
//	  4*length  bytes of IEEE-754 float32
//	  float32   cached magnitude
//
// Save acquires the store's read lock; concurrent Search calls may
// proceed, concurrent Add/Remove/Load cannot.
func (s *Store) Save(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bw := bufio.NewWriter(w)

	if err := binary.Write(bw, binary.LittleEndian, int32(s.dim)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, int32(s.count)); err != nil {
		return err
	}

	for i := 0; i < s.count; i++ {
		idBytes, err := s.ids[i].MarshalBinary()
		if err != nil {
			return fmt.Errorf("marshal id: %w", err)
		}
		if _, err := bw.Write(idBytes); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, int32(s.dim)); err != nil {
			return err
		}
		offset := i * s.dim
		for _, f := range s.values[offset : offset+s.dim] {
			if err := binary.Write(bw, binary.LittleEndian, f); err != nil {
				return err
			}
		}
		if err := binary.Write(bw, binary.LittleEndian, s.mags[i]); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Load replaces the store's state from a snapshot written by Save.
// Acquires the write lock. The entire payload is parsed into scratch
// buffers before any field of the store is mutated, so a failed Load
// (truncated read, dimension mismatch, malformed payload) leaves the
// store exactly as it was — atomic at the level of the whole payload.
func (s *Store) Load(r io.Reader) error {
	br := bufio.NewReader(r)

	var dim, count int32
	if err := binary.Read(br, binary.LittleEndian, &dim); err != nil {
		return truncationError(err)
	}
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return truncationError(err)
	}

	s.mu.RLock()
	expectedDim := s.dim
	s.mu.RUnlock()

	if int(dim) != expectedDim {
		return fmt.Errorf("%w: header declares %d, store configured for %d", vexerr.ErrDimensionMismatch, dim, expectedDim)
	}
	if count < 0 {
		return fmt.Errorf("%w: negative count %d", vexerr.ErrMalformedPayload, count)
	}

	ids := make([]uuid.UUID, count)
	values := make([]float32, int(count)*int(dim))
	mags := make([]float32, count)

	idBuf := make([]byte, 16)
	for i := int32(0); i < count; i++ {
		if _, err := io.ReadFull(br, idBuf); err != nil {
			return truncationError(err)
		}
		if err := ids[i].UnmarshalBinary(idBuf); err != nil {
			return fmt.Errorf("%w: %v", vexerr.ErrMalformedPayload, err)
		}

		var vecLen int32
		if err := binary.Read(br, binary.LittleEndian, &vecLen); err != nil {
			return truncationError(err)
		}
		if vecLen != dim {
			return fmt.Errorf("%w: vector %d has length %d, header dimension %d", vexerr.ErrDimensionMismatch, i, vecLen, dim)
		}

		offset := int(i) * int(dim)
		for j := int32(0); j < dim; j++ {
			if err := binary.Read(br, binary.LittleEndian, &values[offset+int(j)]); err != nil {
				return truncationError(err)
			}
		}
		if err := binary.Read(br, binary.LittleEndian, &mags[i]); err != nil {
			return truncationError(err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids = ids
	s.values = values
	s.mags = mags
	s.count = int(count)
	s.capacity = int(count)
	s.index = make(map[uuid.UUID]int, count)
	for i, id := range ids {
		s.index[id] = i
	}

	return nil
}

func truncationError(err error) error {
	return fmt.Errorf("%w: %v", vexerr.ErrTruncated, err)
}
