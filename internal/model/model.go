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

// Package model holds the shared data types that flow between the
// segmenter, the cosine vector store, and the metadata store: File,
// Section, and Chunk.
package model

import "github.com/google/uuid"

// File is a named, hashed document. Deleting a File cascades to its
// Sections and their Chunks (enforced by the metadata store).
type File struct {
	ID          uuid.UUID
	Name        string
	ContentHash []byte
}

// Section is an ordered group of Chunks forming one semantic retrieval
// unit. SectionIndex is unique within File; ChunkIDs are in ascending
// chunk-index order with no gaps.
type Section struct {
	ID                 uuid.UUID
	FileID             uuid.UUID
	SectionIndex       int
	ChunkIDs           []uuid.UUID
	Summary            string
	AdditionalContext  string
	Embedding          []float32
}

// Chunk is a contiguous, non-empty piece of text bounded by token count
// and segmenter stop signals. ChunkIndex is unique within SectionID.
type Chunk struct {
	ID         uuid.UUID
	SectionID  uuid.UUID
	ChunkIndex int
	Content    string
	Embedding  []float32
}
