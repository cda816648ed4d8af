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

// Package topk implements a fixed-capacity, array-backed min-heap for
// maintaining the k highest-scoring items seen in a stream. Not safe for
// concurrent use; each parallel worker owns one.
package topk

import "container/heap"

// Entry is a single (item, score) pair held by the heap. Score is
// compared ascending so the root is always the current weakest member
// of the top-k set.
type Entry[T any] struct {
	Item  T
	Score float32
}

// Heap is a bounded min-heap of capacity K over Entry[T].
type Heap[T any] struct {
	entries entryHeap[T]
	k       int
}

// New creates a heap with capacity k. k must not be negative; a heap
// with k == 0 keeps no items.
func New[T any](k int) *Heap[T] {
	return &Heap[T]{
		entries: make(entryHeap[T], 0, k),
		k:       k,
	}
}

// Len returns the number of items currently held (<= k).
func (h *Heap[T]) Len() int {
	return len(h.entries)
}

// Cap returns the heap's configured capacity k.
func (h *Heap[T]) Cap() int {
	return h.k
}

// Add offers an (item, score) candidate to the heap. If the heap has
// fewer than k entries, item is always kept. Otherwise item replaces the
// current weakest entry only if score is strictly greater; ties favor
// whichever candidate arrived first.
func (h *Heap[T]) Add(item T, score float32) {
	if len(h.entries) < h.k {
		heap.Push(&h.entries, Entry[T]{Item: item, Score: score})
		return
	}
	if h.k == 0 {
		return
	}
	if score > h.entries[0].Score {
		h.entries[0] = Entry[T]{Item: item, Score: score}
		heap.Fix(&h.entries, 0)
	}
}

// Items returns the held entries in unspecified order. The returned
// slice aliases the heap's internal storage and must not be retained
// past the next Add call.
func (h *Heap[T]) Items() []Entry[T] {
	return h.entries
}

// Sorted drains the heap and returns its entries in descending score
// order, highest first.
func (h *Heap[T]) Sorted() []Entry[T] {
	out := make([]Entry[T], len(h.entries))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h.entries).(Entry[T])
	}
	return out
}

// entryHeap implements container/heap.Interface as a min-heap on Score.
type entryHeap[T any] []Entry[T]

func (e entryHeap[T]) Len() int            { return len(e) }
func (e entryHeap[T]) Less(i, j int) bool  { return e[i].Score < e[j].Score }
func (e entryHeap[T]) Swap(i, j int)       { e[i], e[j] = e[j], e[i] }
func (e *entryHeap[T]) Push(x interface{}) { *e = append(*e, x.(Entry[T])) }
func (e *entryHeap[T]) Pop() interface{} {
	old := *e
	n := len(old)
	x := old[n-1]
	*e = old[:n-1]
	return x
}
