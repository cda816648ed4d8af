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

// Package store implements the Cosine Vector Store: an in-memory,
// persistable structure-of-arrays index over fixed-dimension float32
// vectors, supporting concurrent top-k cosine similarity search.
package store

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/uzqw/vex/internal/simd"
	"github.com/uzqw/vex/internal/topk"
	"github.com/uzqw/vex/internal/vexerr"
)

// parallelThreshold is the element count above which Search fans out
// across worker partitions instead of scanning single-threaded. Tunable,
// but implementations must preserve the single-threaded result on
// identical inputs (spec §9).
const parallelThreshold = 1000

// Vector is an (id, values) pair. It carries no magnitude field; the
// store computes each vector's magnitude on Add and caches it in its
// own internal arrays. Values returned to callers are always copies; the store never hands
// out aliases into its internal arrays.
type Vector struct {
	ID     uuid.UUID
	Values []float32
}

// Store is a dimension-fixed cosine similarity index backed by parallel
// arrays (structure-of-arrays) for cache-friendly scanning. Guarded by a
// single reader-writer lock: Add/Remove/Load are writers, Search/Save
// are readers and may run concurrently with each other.
type Store struct {
	mu sync.RWMutex

	dim      int
	values   []float32 // len == capacity*dim, packed contiguously
	ids      []uuid.UUID
	mags     []float32
	count    int
	capacity int

	index map[uuid.UUID]int // id -> slot, kept in sync with ids/values/mags
}

// New creates an empty store for vectors of the given dimension.
func New(dim int) (*Store, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", vexerr.ErrInvalidDimension, dim)
	}
	return &Store{
		dim:   dim,
		index: make(map[uuid.UUID]int),
	}, nil
}

// Dimension returns the store's fixed vector dimension.
func (s *Store) Dimension() int {
	return s.dim
}

// Count returns the number of vectors currently stored.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Add inserts v, growing internal storage if needed. Returns
// ErrDimensionMismatch if v.Values does not match the store's dimension.
func (s *Store) Add(v Vector) error {
	if len(v.Values) != s.dim {
		return fmt.Errorf("%w: expected %d, got %d", vexerr.ErrDimensionMismatch, s.dim, len(v.Values))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[v.ID]; exists {
		// Re-adding an existing id replaces the old entry rather than
		// duplicating it: the old slot is removed (swap-with-last) and
		// the new vector is appended below.
		s.removeLocked(v.ID)
	}

	s.ensureCapacity(s.count + 1)

	mag := simd.Magnitude(v.Values)
	offset := s.count * s.dim
	copy(s.values[offset:offset+s.dim], v.Values)

	s.ids[s.count] = v.ID
	s.mags[s.count] = mag
	s.index[v.ID] = s.count
	s.count++

	return nil
}

// Remove deletes the vector with the given id. Returns true if it was
// present, false otherwise. Never fails.
func (s *Store) Remove(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(id)
}

// removeLocked performs swap-with-last removal; caller holds the write
// lock. Order of remaining elements is not preserved.
func (s *Store) removeLocked(id uuid.UUID) bool {
	idx, ok := s.index[id]
	if !ok {
		return false
	}

	last := s.count - 1
	if idx != last {
		lastOffset := last * s.dim
		idxOffset := idx * s.dim
		copy(s.values[idxOffset:idxOffset+s.dim], s.values[lastOffset:lastOffset+s.dim])
		s.ids[idx] = s.ids[last]
		s.mags[idx] = s.mags[last]
		s.index[s.ids[idx]] = idx
	}

	delete(s.index, id)
	s.count--
	return true
}

// Clear removes all vectors, resetting the store to its just-constructed
// state while preserving its dimension.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = nil
	s.ids = nil
	s.mags = nil
	s.count = 0
	s.capacity = 0
	s.index = make(map[uuid.UUID]int)
}

// ensureCapacity grows the backing arrays so at least `required` vectors
// fit, doubling capacity (or growing to `required` if larger).
func (s *Store) ensureCapacity(required int) {
	if required <= s.capacity {
		return
	}
	newCap := s.capacity * 2
	if newCap < required {
		newCap = required
	}
	if newCap < 4 {
		newCap = 4
	}

	newValues := make([]float32, newCap*s.dim)
	copy(newValues, s.values[:s.count*s.dim])
	newIDs := make([]uuid.UUID, newCap)
	copy(newIDs, s.ids[:s.count])
	newMags := make([]float32, newCap)
	copy(newMags, s.mags[:s.count])

	s.values = newValues
	s.ids = newIDs
	s.mags = newMags
	s.capacity = newCap
}

// Search returns up to k vectors most similar to query by cosine
// similarity. Returns an empty (nil) result, not an error, when query is
// empty, k<=0, the store is empty, or the query has zero magnitude.
// Returns ErrDimensionMismatch if len(query) != Dimension().
func (s *Store) Search(query []float32, k int) ([]Vector, error) {
	if len(query) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != s.dim {
		return nil, fmt.Errorf("%w: expected %d, got %d", vexerr.ErrDimensionMismatch, s.dim, len(query))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.count == 0 {
		return nil, nil
	}

	queryMag := simd.Magnitude(query)
	if queryMag == 0 {
		return nil, nil
	}

	var winners []topk.Entry[int]
	if s.count > parallelThreshold {
		winners = s.searchParallelLocked(query, queryMag, k)
	} else {
		winners = s.searchSequentialLocked(query, queryMag, k)
	}

	results := make([]Vector, len(winners))
	for i, w := range winners {
		offset := w.Item * s.dim
		values := make([]float32, s.dim)
		copy(values, s.values[offset:offset+s.dim])
		results[i] = Vector{ID: s.ids[w.Item], Values: values}
	}
	return results, nil
}

func (s *Store) searchSequentialLocked(query []float32, queryMag float32, k int) []topk.Entry[int] {
	h := topk.New[int](k)
	for i := 0; i < s.count; i++ {
		if s.mags[i] == 0 {
			continue
		}
		offset := i * s.dim
		score := simd.Cosine(query, queryMag, s.values[offset:offset+s.dim], s.mags[i])
		h.Add(i, score)
	}
	return h.Items()
}

// searchPartition is the unit of work handed to each parallel search
// worker: a disjoint [start, end) slot range scanned under the shared
// read lock the caller already holds.
type searchPartition struct {
	start, end int
}

func partitionRanges(count, workers int) []searchPartition {
	if workers > count {
		workers = count
	}
	if workers < 1 {
		workers = 1
	}
	base := count / workers
	rem := count % workers
	parts := make([]searchPartition, 0, workers)
	start := 0
	for i := 0; i < workers; i++ {
		size := base
		if i < rem {
			size++
		}
		if size == 0 {
			continue
		}
		parts = append(parts, searchPartition{start: start, end: start + size})
		start += size
	}
	return parts
}

func (s *Store) searchParallelLocked(query []float32, queryMag float32, k int) []topk.Entry[int] {
	parts := partitionRanges(s.count, searchWorkerCount())

	partial := make([][]topk.Entry[int], len(parts))
	g := new(errgroup.Group)
	for pi, part := range parts {
		pi, part := pi, part
		g.Go(func() error {
			h := topk.New[int](k)
			for i := part.start; i < part.end; i++ {
				if s.mags[i] == 0 {
					continue
				}
				offset := i * s.dim
				score := simd.Cosine(query, queryMag, s.values[offset:offset+s.dim], s.mags[i])
				h.Add(i, score)
			}
			partial[pi] = h.Items()
			return nil
		})
	}
	// Workers never return an error; they only score read-only slices.
	_ = g.Wait()

	final := topk.New[int](k)
	for _, entries := range partial {
		for _, e := range entries {
			final.Add(e.Item, e.Score)
		}
	}
	return final.Items()
}

// searchWorkerCount bounds parallel search fan-out to the host's
// available parallelism rather than one goroutine per candidate.
func searchWorkerCount() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		return 1
	}
	return n
}
